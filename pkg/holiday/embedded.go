package holiday

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/ch"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/us"
	"github.com/rotisserie/eris"
)

// regions maps country code to subdivision code to holiday set. The
// empty subdivision key is the national calendar.
var regions = map[string]map[string][]*cal.Holiday{
	"DE": {
		"":   de.Holidays,
		"BW": de.HolidaysBW,
		"BY": de.HolidaysBY,
		"BE": de.HolidaysBE,
		"BB": de.HolidaysBB,
		"HB": de.HolidaysHB,
		"HH": de.HolidaysHH,
		"HE": de.HolidaysHE,
		"MV": de.HolidaysMV,
		"NI": de.HolidaysNI,
		"NW": de.HolidaysNW,
		"RP": de.HolidaysRP,
		"SL": de.HolidaysSL,
		"SN": de.HolidaysSN,
		"ST": de.HolidaysST,
		"SH": de.HolidaysSH,
		"TH": de.HolidaysTH,
	},
	"AT": {"": at.Holidays},
	"CA": {"": ca.Holidays},
	"CH": {"": ch.Holidays},
	"ES": {"": es.Holidays},
	"FR": {"": fr.Holidays},
	"GB": {"": gb.Holidays},
	"IT": {"": it.Holidays},
	"NL": {"": nl.Holidays},
	"US": {"": us.Holidays},
}

// EmbeddedProvider resolves holidays from the built-in calendar
// registry. It needs no network access and is the default primary
// provider.
type EmbeddedProvider struct{}

// NewEmbeddedProvider creates an EmbeddedProvider.
func NewEmbeddedProvider() EmbeddedProvider { return EmbeddedProvider{} }

// Name implements Provider.
func (EmbeddedProvider) Name() string { return "embedded" }

// Available implements Provider.
func (EmbeddedProvider) Available() bool { return true }

// Resolve implements Provider.
func (EmbeddedProvider) Resolve(_ context.Context, j Jurisdiction, fromYear, toYear int) ([]time.Time, error) {
	subdivisions, ok := regions[strings.ToUpper(j.State)]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownJurisdiction, "state %q", j.State)
	}
	set, ok := subdivisions[strings.ToUpper(j.Province)]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownJurisdiction, "province %q of %s", j.Province, j.State)
	}

	c := cal.NewBusinessCalendar()
	c.AddHoliday(set...)

	var days []time.Time
	for year := fromYear; year <= toYear; year++ {
		for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
			actual, observed, _ := c.IsHoliday(d)
			if actual || observed {
				days = append(days, d)
			}
		}
	}
	return days, nil
}

// Jurisdictions lists the country codes the embedded registry knows,
// sorted for stable display.
func (EmbeddedProvider) Jurisdictions() []string {
	out := make([]string, 0, len(regions))
	for state := range regions {
		out = append(out, state)
	}
	sort.Strings(out)
	return out
}
