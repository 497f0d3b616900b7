// Package export writes dashboard snapshots as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order.
const (
	SheetSummary        = "Summary"
	SheetCumulative     = "Cumulative"
	SheetWeekly         = "Weekly"
	SheetMunicipalities = "Municipalities"
	SheetSchools        = "Schools"
)

// WriteWorkbook writes d as an XLSX workbook to w.
func WriteWorkbook(w io.Writer, d domain.Dashboard) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{SheetSummary, []string{"Metric", "Latest", "Previous", "Change"}, summaryRows(d)},
		{SheetCumulative, []string{"Reported date", "Cumulative cases"}, cumulativeRows(d.Cumulative)},
		{SheetWeekly, []string{"Week starting", "Average new cases", "Days reported"}, weeklyRows(d.Weekly)},
		{SheetMunicipalities, []string{"Rank", "Municipality", "Active cases"}, rankRows(d.Municipalities, false)},
		{SheetSchools, []string{"Rank", "School", "Municipality", "Active cases"}, rankRows(d.Schools, true)},
	}

	for i, s := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("create sheet %s: %w", s.name, err)
			}
		}
		if err := writeSheet(f, s.name, s.headers, s.rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("%s header: %w", sheet, err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("%s cell %s: %w", sheet, cell, err)
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", last, 22)
}

func summaryRows(d domain.Dashboard) [][]any {
	delta := func(name string, v domain.Delta) []any {
		return []any{name, v.Latest, v.Previous, v.Change}
	}
	return [][]any{
		{"Reported date", day(d.Deltas.LatestDate), day(d.Deltas.PreviousDate), ""},
		delta("New cases", d.Deltas.TotalCases),
		delta("New student cases", d.Deltas.StudentCases),
		delta("New staff cases", d.Deltas.StaffCases),
		delta("Schools with active cases", d.Deltas.SchoolsWithCases),
		delta("Schools closed", d.Deltas.SchoolsClosed),
		{"Schools with cases (% of all)", d.PercentSchoolsWithCases, "", ""},
		{fmt.Sprintf("Schools with %d+ active cases", d.Threshold), d.SchoolsOverThreshold, "", ""},
		{"School days completed", d.DaysCompleted, d.SchoolYearDays, ""},
		{"Generated at", d.GeneratedAt.Format(time.RFC3339), "", ""},
	}
}

func cumulativeRows(points []domain.SeriesPoint) [][]any {
	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{day(p.Date), p.Value}
	}
	return rows
}

func weeklyRows(weeks []domain.WeeklyAverage) [][]any {
	rows := make([][]any, len(weeks))
	for i, w := range weeks {
		rows[i] = []any{day(w.WeekStart), w.Average, w.Days}
	}
	return rows
}

func rankRows(entries []domain.RankEntry, withMunicipality bool) [][]any {
	rows := make([][]any, len(entries))
	for i, e := range entries {
		if withMunicipality {
			rows[i] = []any{i + 1, e.Name, e.Municipality, e.Cases}
			continue
		}
		rows[i] = []any{i + 1, e.Name, e.Cases}
	}
	return rows
}

func day(t time.Time) string {
	return t.Format(time.DateOnly)
}
