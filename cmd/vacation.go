package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wherewasi/wherewasi/internal/calendar"
)

var (
	vacationRules string
	vacationYear  int
)

var vacationCmd = &cobra.Command{
	Use:   "vacation",
	Short: "List vacation days that consume allowance",
	Long: `Vacation expands the rule file's vacation ranges and lists the days
that actually consume vacation allowance: booked days that fall on a
configured workday and are not public holidays.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initClassifyEnv(ctx, "classify", vacationRules)
		if err != nil {
			return err
		}
		defer env.Close()

		year := vacationYear
		if year == 0 {
			year = time.Now().UTC().Year()
		}

		rs, err := calendar.Build(ctx, env.Rules, env.Provider, year, year)
		if err != nil {
			return err
		}

		var days []time.Time
		for _, d := range rs.ActualVacationDays() {
			if d.Year() == year {
				days = append(days, d)
			}
		}

		if len(days) == 0 {
			fmt.Fprintf(os.Stderr, "No vacation days consumed in %d.\n", year)
			return nil
		}

		formatVacationDays(os.Stdout, days)
		fmt.Printf("\n%d vacation days consumed in %d.\n", len(days), year)
		return nil
	},
}

func init() {
	vacationCmd.Flags().StringVar(&vacationRules, "rules", "", "rule file (default: rules.path from config)")
	vacationCmd.Flags().IntVar(&vacationYear, "year", 0, "calendar year (default: current year)")
	rootCmd.AddCommand(vacationCmd)
}

// formatVacationDays writes a tabular list of vacation days to w.
func formatVacationDays(out io.Writer, days []time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tWEEKDAY")
	_, _ = fmt.Fprintln(w, "----\t-------")
	for _, d := range days {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", d.Format(time.DateOnly), d.Weekday())
	}
	_ = w.Flush()
}
