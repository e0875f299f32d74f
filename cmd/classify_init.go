package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/internal/archive"
	"github.com/wherewasi/wherewasi/internal/model"
	"github.com/wherewasi/wherewasi/internal/pipeline"
	"github.com/wherewasi/wherewasi/internal/rules"
	"github.com/wherewasi/wherewasi/internal/store"
	"github.com/wherewasi/wherewasi/pkg/holiday"
)

// classifyEnv bundles the store, parsed rules, and the holiday provider
// shared by the classify, visits, vacation, and serve commands.
type classifyEnv struct {
	Store    store.Store
	Rules    *rules.Rules
	Provider holiday.Provider
}

// Close releases resources held by the environment.
func (ce *classifyEnv) Close() {
	if ce.Store != nil {
		_ = ce.Store.Close()
	}
}

// Classifier builds a point classifier covering the given year span.
// The span bounds holiday resolution, so it must cover the data.
func (ce *classifyEnv) Classifier(ctx context.Context, fromYear, toYear int) (*pipeline.Classifier, error) {
	clf, err := pipeline.FromRules(ctx, ce.Rules, ce.Provider, fromYear, toYear)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("classifier ready",
		zap.Int("from_year", fromYear),
		zap.Int("to_year", toYear))
	return clf, nil
}

// initClassifyEnv validates the config for mode, loads the rule file,
// opens the store, and wires the holiday provider cascade. Callers
// defer env.Close().
func initClassifyEnv(ctx context.Context, mode, rulesPath string) (*classifyEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	if rulesPath == "" {
		rulesPath = cfg.Rules.Path
	}

	r, err := rules.Load(rulesPath)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	return &classifyEnv{Store: st, Rules: r, Provider: initHolidayProvider(st)}, nil
}

// initHolidayProvider builds the provider cascade: the embedded
// calendars answer first, the remote API covers the rest, and results
// land in the store-backed cache.
func initHolidayProvider(st store.Store) *holiday.Cascade {
	providers := []holiday.Provider{holiday.NewEmbeddedProvider()}
	if cfg.Holiday.Remote {
		providers = append(providers,
			holiday.NewNagerProvider(holiday.WithBaseURL(cfg.Holiday.BaseURL)))
	}

	ttl := time.Duration(cfg.Holiday.CacheTTLHours) * time.Hour
	return holiday.NewCascade(providers, holiday.WithCache(store.NewHolidayCache(st, ttl)))
}

// loadPoints reads points from either a stored import or a raw archive
// file. Exactly one of importID and inputPath must be set. A positive
// year narrows the points to that calendar year (UTC), matching the
// span the classifier calendar is built for.
func loadPoints(ctx context.Context, st store.Store, importID, inputPath string, year int) ([]model.Point, error) {
	switch {
	case importID != "" && inputPath != "":
		return nil, eris.New("use either --import or --input, not both")
	case importID != "":
		filter := store.PointFilter{ImportID: importID}
		if year > 0 {
			filter.From = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
			filter.To = time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		return st.Points(ctx, filter)
	case inputPath != "":
		points, err := readArchivePoints(ctx, inputPath)
		if err != nil {
			return nil, err
		}
		return filterYear(points, year), nil
	default:
		return nil, eris.New("one of --import or --input is required")
	}
}

// filterYear drops points whose timestamp falls in a different calendar
// year (UTC). Points with unusable timestamps stay, so skip accounting
// still sees them. A non-positive year keeps everything.
func filterYear(points []model.Point, year int) []model.Point {
	if year <= 0 {
		return points
	}
	out := points[:0]
	for _, p := range points {
		if p.TimeValid() && p.Time.UTC().Year() != year {
			continue
		}
		out = append(out, p)
	}
	return out
}

// readArchivePoints collects every record of an archive file.
func readArchivePoints(ctx context.Context, path string) ([]model.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open archive %s", path)
	}
	defer f.Close()

	return collectArchivePoints(ctx, f)
}

// collectArchivePoints drains an archive stream, keeping malformed
// records as zero points so classification can count the skips.
func collectArchivePoints(ctx context.Context, r io.Reader) ([]model.Point, error) {
	records, errs := archive.Stream(ctx, r)

	var points []model.Point
	for rec := range records {
		p, _ := rec.Point()
		points = append(points, p)
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return points, nil
}

// classifySlice builds a classifier sized to the data and labels every
// point.
func classifySlice(ctx context.Context, env *classifyEnv, points []model.Point, year int) ([]model.ClassifiedPoint, pipeline.Snapshot, error) {
	fromYear, toYear := yearSpan(year, points)
	clf, err := env.Classifier(ctx, fromYear, toYear)
	if err != nil {
		return nil, pipeline.Snapshot{}, err
	}
	classified, snap := clf.Slice(points)
	return classified, snap, nil
}

// yearSpan picks the classifier year range: an explicit year wins,
// otherwise the span of the data, and the current year as a last
// resort.
func yearSpan(year int, points []model.Point) (int, int) {
	if year > 0 {
		return year, year
	}

	fromYear, toYear := 0, 0
	for _, p := range points {
		if !p.TimeValid() {
			continue
		}
		y := p.Time.UTC().Year()
		if fromYear == 0 || y < fromYear {
			fromYear = y
		}
		if y > toYear {
			toYear = y
		}
	}
	if fromYear == 0 {
		now := time.Now().UTC().Year()
		return now, now
	}
	return fromYear, toYear
}
