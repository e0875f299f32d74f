package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wherewasi/wherewasi/internal/export"
)

var (
	classifyRules     string
	classifyInput     string
	classifyImport    string
	classifyYear      int
	classifyOut       string
	classifyFormat    string
	classifyDayType   string
	classifyWorkHours bool
	classifyArea      string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Label points with day type, work hour, and area",
	Long: `Classify labels every point of a stored import or a raw archive file
with its day type (workday, weekend, holiday, vacation, extra workday),
whether it falls inside the configured work hours, and the configured
area containing it, then writes the labelled points as CSV or JSON.
The day-type, work-hours, and area flags narrow the output to matching
points, so "where was I outside work hours on workdays" is one query.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter := pointFilter{Area: classifyArea}
		if classifyDayType != "" {
			dt, err := parseDayType(classifyDayType)
			if err != nil {
				return err
			}
			filter.DayType = dt
		}
		if cmd.Flags().Changed("work-hours") {
			filter.WorkHour = &classifyWorkHours
		}

		env, err := initClassifyEnv(ctx, "classify", classifyRules)
		if err != nil {
			return err
		}
		defer env.Close()

		points, err := loadPoints(ctx, env.Store, classifyImport, classifyInput, classifyYear)
		if err != nil {
			return err
		}

		classified, snap, err := classifySlice(ctx, env, points, classifyYear)
		if err != nil {
			return err
		}
		classified = filter.Apply(classified)

		out := io.Writer(os.Stdout)
		if classifyOut != "" {
			f, err := os.Create(classifyOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", classifyOut)
			}
			defer f.Close()
			out = f
		}

		switch classifyFormat {
		case "csv":
			if err := export.WritePointsCSV(out, classified); err != nil {
				return err
			}
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(classified); err != nil {
				return eris.Wrap(err, "encode points")
			}
		default:
			return eris.Errorf("unknown format %q (want csv or json)", classifyFormat)
		}

		zap.L().Info("classification complete",
			zap.Int64("processed", snap.Processed),
			zap.Int64("skipped", snap.Skipped),
			zap.Int64("bad_timestamps", snap.BadTimestamps),
			zap.Int64("bad_coordinates", snap.BadCoordinates),
			zap.Int("written", len(classified)))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyRules, "rules", "", "rule file (default: rules.path from config)")
	classifyCmd.Flags().StringVar(&classifyInput, "input", "", "classify a raw archive file instead of a stored import")
	classifyCmd.Flags().StringVar(&classifyImport, "import", "", "classify the points of a stored import")
	classifyCmd.Flags().IntVar(&classifyYear, "year", 0, "restrict to one calendar year (default: span of the data)")
	classifyCmd.Flags().StringVar(&classifyOut, "out", "", "output file (default: stdout)")
	classifyCmd.Flags().StringVar(&classifyFormat, "format", "csv", "output format: csv or json")
	classifyCmd.Flags().StringVar(&classifyDayType, "day-type", "", "only write points with this day type")
	classifyCmd.Flags().BoolVar(&classifyWorkHours, "work-hours", false, "only write work-hour points (=false for the rest)")
	classifyCmd.Flags().StringVar(&classifyArea, "area", "", "only write points inside this area")
	rootCmd.AddCommand(classifyCmd)
}
