package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/internal/export"
	"github.com/wherewasi/wherewasi/internal/visit"
)

var (
	visitsRules  string
	visitsInput  string
	visitsImport string
	visitsYear   int
	visitsXLSX   string
	visitsCSV    string
)

var visitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "Report time spent in configured areas",
	Long: `Visits classifies points, segments consecutive same-area points into
visits, and reports per day the area with the longest stay. The default
output is a text table; --xlsx writes a workbook with visit, day, and
area sheets, and --csv writes the raw visit list.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initClassifyEnv(ctx, "classify", visitsRules)
		if err != nil {
			return err
		}
		defer env.Close()

		points, err := loadPoints(ctx, env.Store, visitsImport, visitsInput, visitsYear)
		if err != nil {
			return err
		}

		classified, snap, err := classifySlice(ctx, env, points, visitsYear)
		if err != nil {
			return err
		}

		seg := visit.NewSegmenter(env.Rules.Location())
		for _, cp := range classified {
			seg.Add(cp)
		}
		visits := seg.Finish()
		sum := visit.Summarize(visits)

		zap.L().Debug("visits computed",
			zap.Int64("points", snap.Processed),
			zap.Int("visits", len(visits)),
			zap.Int("days", len(sum.Longest)))

		if visitsXLSX != "" {
			if err := export.ExportVisitsXLSX(visitsXLSX, visits, sum); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", visitsXLSX))
			return nil
		}

		if visitsCSV != "" {
			f, err := os.Create(visitsCSV)
			if err != nil {
				return eris.Wrapf(err, "create %s", visitsCSV)
			}
			defer f.Close()
			return export.WriteVisitsCSV(f, visits)
		}

		if len(sum.Longest) == 0 {
			fmt.Fprintln(os.Stderr, "No visits found.")
			return nil
		}

		formatVisitsSummary(os.Stdout, sum)
		return nil
	},
}

func init() {
	visitsCmd.Flags().StringVar(&visitsRules, "rules", "", "rule file (default: rules.path from config)")
	visitsCmd.Flags().StringVar(&visitsInput, "input", "", "read points from a raw archive file instead of a stored import")
	visitsCmd.Flags().StringVar(&visitsImport, "import", "", "read points from a stored import")
	visitsCmd.Flags().IntVar(&visitsYear, "year", 0, "restrict to one calendar year (default: span of the data)")
	visitsCmd.Flags().StringVar(&visitsXLSX, "xlsx", "", "write an XLSX workbook to this path")
	visitsCmd.Flags().StringVar(&visitsCSV, "csv", "", "write the visit list as CSV to this path")
	rootCmd.AddCommand(visitsCmd)
}

// formatVisitsSummary writes the per-day and per-area tables to w.
func formatVisitsSummary(out io.Writer, sum visit.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tAREA\tSTAY\tVISITS")
	_, _ = fmt.Fprintln(w, "----\t----\t----\t------")
	for _, ds := range sum.Longest {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			ds.Date, ds.Area, ds.Stay.Round(time.Minute), ds.Visits)
	}
	_ = w.Flush()

	areas := make([]string, 0, len(sum.DaysInArea))
	for area := range sum.DaysInArea {
		areas = append(areas, area)
	}
	sort.Strings(areas)

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(w, "AREA\tDAYS\tTOTAL_STAY")
	_, _ = fmt.Fprintln(w, "----\t----\t----------")
	for _, area := range areas {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n",
			area, sum.DaysInArea[area], sum.TotalStay[area].Round(time.Minute))
	}
	_ = w.Flush()
}
