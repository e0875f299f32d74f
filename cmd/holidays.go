package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/wherewasi/wherewasi/pkg/holiday"
)

var (
	holidaysRules    string
	holidaysState    string
	holidaysProvince string
	holidaysYear     int
)

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the public holidays of a jurisdiction",
	Long: `Holidays resolves a jurisdiction's official public holidays through
the provider cascade: embedded calendars first, then the remote API.
Resolved years are cached in the store. The jurisdiction defaults to
bank_holidays in the rule file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		state, province := holidaysState, holidaysProvince
		if state == "" {
			r, err := loadAreaRules(holidaysRules)
			if err != nil {
				return eris.Wrap(err, "no --state given and no readable rule file")
			}
			state, province = r.BankHolidays.State, r.BankHolidays.Province
		}
		if state == "" {
			return eris.New("no jurisdiction: pass --state or set bank_holidays.state in the rule file")
		}

		year := holidaysYear
		if year == 0 {
			year = time.Now().UTC().Year()
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		j := holiday.Jurisdiction{State: state, Province: province}
		days, err := initHolidayProvider(st).Resolve(ctx, j, year, year)
		if err != nil {
			return err
		}

		if len(days) == 0 {
			fmt.Fprintf(os.Stderr, "No holidays found for %s in %d.\n", j, year)
			return nil
		}

		formatHolidays(os.Stdout, days)
		return nil
	},
}

func init() {
	holidaysCmd.Flags().StringVar(&holidaysRules, "rules", "", "rule file (default: rules.path from config)")
	holidaysCmd.Flags().StringVar(&holidaysState, "state", "", "jurisdiction code, e.g. DE or US")
	holidaysCmd.Flags().StringVar(&holidaysProvince, "province", "", "subdivision code, e.g. BY")
	holidaysCmd.Flags().IntVar(&holidaysYear, "year", 0, "calendar year (default: current year)")
	rootCmd.AddCommand(holidaysCmd)
}

// formatHolidays writes a tabular holiday list to w.
func formatHolidays(out io.Writer, days []time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tWEEKDAY")
	_, _ = fmt.Fprintln(w, "----\t-------")
	for _, d := range days {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", d.Format(time.DateOnly), d.Weekday())
	}
	_ = w.Flush()
}
