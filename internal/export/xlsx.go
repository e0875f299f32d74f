package export

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/wherewasi/wherewasi/internal/visit"
)

// ExportVisitsXLSX writes a visit report workbook with three sheets:
// every visit, the longest stay per day, and per-area totals.
func ExportVisitsXLSX(path string, visits []visit.Visit, sum visit.Summary) error {
	f := xlsx.NewFile()

	if err := addVisitsSheet(f, visits); err != nil {
		return err
	}
	if err := addDaysSheet(f, sum); err != nil {
		return err
	}
	if err := addAreasSheet(f, sum); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "export: save workbook %s", path)
}

func addVisitsSheet(f *xlsx.File, visits []visit.Visit) error {
	sheet, err := f.AddSheet("Visits")
	if err != nil {
		return eris.Wrap(err, "export: add visits sheet")
	}

	header := sheet.AddRow()
	for _, col := range visitColumns {
		header.AddCell().SetString(col)
	}

	for _, v := range visits {
		row := sheet.AddRow()
		row.AddCell().SetString(v.Area)
		row.AddCell().SetString(v.Date)
		row.AddCell().SetString(v.Start.UTC().Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(v.End.UTC().Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(v.Stay().String())
		row.AddCell().SetInt(v.Points)
	}
	return nil
}

func addDaysSheet(f *xlsx.File, sum visit.Summary) error {
	sheet, err := f.AddSheet("Days")
	if err != nil {
		return eris.Wrap(err, "export: add days sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"date", "area", "stay", "visits"} {
		header.AddCell().SetString(col)
	}

	for _, d := range sum.Longest {
		row := sheet.AddRow()
		row.AddCell().SetString(d.Date)
		row.AddCell().SetString(d.Area)
		row.AddCell().SetString(d.Stay.String())
		row.AddCell().SetInt(d.Visits)
	}
	return nil
}

func addAreasSheet(f *xlsx.File, sum visit.Summary) error {
	sheet, err := f.AddSheet("Areas")
	if err != nil {
		return eris.Wrap(err, "export: add areas sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"area", "days", "total_stay"} {
		header.AddCell().SetString(col)
	}

	areas := make([]string, 0, len(sum.TotalStay))
	for area := range sum.TotalStay {
		areas = append(areas, area)
	}
	sort.Strings(areas)

	for _, area := range areas {
		row := sheet.AddRow()
		row.AddCell().SetString(area)
		row.AddCell().SetInt(sum.DaysInArea[area])
		row.AddCell().SetString(sum.TotalStay[area].String())
	}
	return nil
}
