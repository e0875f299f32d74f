package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wherewasi/wherewasi/internal/export"
	"github.com/wherewasi/wherewasi/internal/geofence"
	"github.com/wherewasi/wherewasi/internal/rules"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Inspect and convert configured areas",
	Long:  "Commands for listing areas, converting shapefiles, and exporting GeoJSON.",
}

// -- areas list --

var areasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the areas of the rule file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rulesPath, _ := cmd.Flags().GetString("rules")

		r, err := loadAreaRules(rulesPath)
		if err != nil {
			return err
		}

		if len(r.Areas) == 0 {
			fmt.Fprintln(os.Stderr, "No areas configured.")
			return nil
		}

		formatAreasList(os.Stdout, r.Areas)
		return nil
	},
}

// -- areas import-shapefile --

var areasImportShapefileCmd = &cobra.Command{
	Use:   "import-shapefile <file.shp>",
	Short: "Convert shapefile polygons into an areas block",
	Long: `Import-shapefile reads polygon records from an ESRI shapefile and
prints a ready-to-paste YAML areas block. Each polygon becomes a
circular area around its centroid; the radius defaults to --radius
when the polygon extent gives nothing larger.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tagField, _ := cmd.Flags().GetString("tag-field")
		radius, _ := cmd.Flags().GetFloat64("radius")

		areas, err := geofence.LoadShapefile(args[0], tagField, radius)
		if err != nil {
			return err
		}
		if len(areas) == 0 {
			return eris.Errorf("no polygon records in %s", args[0])
		}

		block, err := yaml.Marshal(struct {
			Areas []rules.Area `yaml:"areas"`
		}{Areas: areas})
		if err != nil {
			return eris.Wrap(err, "encode areas block")
		}

		_, _ = os.Stdout.Write(block)
		zap.L().Info("shapefile converted",
			zap.String("path", args[0]),
			zap.Int("areas", len(areas)))
		return nil
	},
}

// -- areas export-geojson --

var areasExportGeoJSONCmd = &cobra.Command{
	Use:   "export-geojson",
	Short: "Export the areas as a GeoJSON FeatureCollection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rulesPath, _ := cmd.Flags().GetString("rules")
		out, _ := cmd.Flags().GetString("out")

		r, err := loadAreaRules(rulesPath)
		if err != nil {
			return err
		}

		if err := export.ExportAreasGeoJSON(out, r.Areas); err != nil {
			return err
		}
		zap.L().Info("areas exported",
			zap.String("path", out),
			zap.Int("areas", len(r.Areas)))
		return nil
	},
}

func init() {
	areasListCmd.Flags().String("rules", "", "rule file (default: rules.path from config)")

	areasImportShapefileCmd.Flags().String("tag-field", "NAME", "attribute field holding the area tag")
	areasImportShapefileCmd.Flags().Float64("radius", 100, "fallback radius in meters for small polygons")

	areasExportGeoJSONCmd.Flags().String("rules", "", "rule file (default: rules.path from config)")
	areasExportGeoJSONCmd.Flags().String("out", "areas.geojson", "output file")

	areasCmd.AddCommand(areasListCmd)
	areasCmd.AddCommand(areasImportShapefileCmd)
	areasCmd.AddCommand(areasExportGeoJSONCmd)
	rootCmd.AddCommand(areasCmd)
}

// loadAreaRules loads the rule file named by the flag, falling back to
// the configured path.
func loadAreaRules(path string) (*rules.Rules, error) {
	if path == "" {
		path = cfg.Rules.Path
	}
	return rules.Load(path)
}

// formatAreasList writes a tabular list of areas to w.
func formatAreasList(out io.Writer, areas []rules.Area) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TAG\tLAT\tLNG\tRADIUS")
	_, _ = fmt.Fprintln(w, "---\t---\t---\t------")
	for _, a := range areas {
		_, _ = fmt.Fprintf(w, "%s\t%.5f\t%.5f\t%.0fm\n", a.Tag, a.Lat, a.Lng, a.Radius)
	}
	_ = w.Flush()
}
