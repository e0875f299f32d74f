package rules

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Load reads a rule file from disk, decodes it, and validates it.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: load %s", path)
	}
	return r, nil
}

// Parse decodes rule YAML and validates it.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "rules: parse yaml")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
