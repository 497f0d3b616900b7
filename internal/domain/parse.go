package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Summary dataset columns.
const (
	colReportedDate        = "reported_date"
	colNewTotalCases       = "new_total_school_related_cases"
	colNewStudentCases     = "new_school_related_student_cases"
	colNewStaffCases       = "new_school_related_staff_cases"
	colNewUnspecifiedCases = "new_school_related_unspecified_cases"
	colCumulativeCases     = "cumulative_school_related_cases"
	colSchoolsWithCases    = "current_schools_w_cases"
	colSchoolsClosed       = "current_schools_closed"
	colTotalSchools        = "current_total_number_schools"
)

// Active case dataset columns.
const (
	colSchoolBoard      = "school_board"
	colSchool           = "school"
	colMunicipality     = "municipality"
	colStudentCases     = "confirmed_student_cases"
	colStaffCases       = "confirmed_staff_cases"
	colUnspecifiedCases = "confirmed_unspecified_cases"
	colTotalCases       = "total_confirmed_cases"
)

var summaryRequired = []string{
	colReportedDate,
	colNewTotalCases,
	colNewStudentCases,
	colNewStaffCases,
	colCumulativeCases,
	colSchoolsWithCases,
	colSchoolsClosed,
	colTotalSchools,
}

var activeRequired = []string{
	colReportedDate,
	colSchool,
	colMunicipality,
	colTotalCases,
}

// dateLayouts lists the reported_date formats seen across dataset revisions.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// byteOrderMarks covers a UTF-8 BOM as decoded by UTF-8 and by Latin-1.
var byteOrderMarks = []string{"\ufeff", "\u00ef\u00bb\u00bf"}

// ParseSummaryCSV parses the summary dataset. Rows are returned sorted by
// reported date; a repeated date is rejected.
func ParseSummaryCSV(r io.Reader) ([]DailySummary, error) {
	t, err := readTable(r, DatasetSummary, summaryRequired)
	if err != nil {
		return nil, err
	}

	var rows []DailySummary
	for {
		rec, line, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var row DailySummary
		if row.ReportedDate, err = t.date(rec, line, colReportedDate); err != nil {
			return nil, err
		}
		ints := []struct {
			col string
			dst *int
		}{
			{colNewTotalCases, &row.NewTotalCases},
			{colNewStudentCases, &row.NewStudentCases},
			{colNewStaffCases, &row.NewStaffCases},
			{colNewUnspecifiedCases, &row.NewUnspecifiedCases},
			{colCumulativeCases, &row.CumulativeCases},
			{colSchoolsWithCases, &row.SchoolsWithCases},
			{colSchoolsClosed, &row.SchoolsClosed},
			{colTotalSchools, &row.TotalSchools},
		}
		for _, f := range ints {
			if *f.dst, err = t.count(rec, line, f.col); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}

	slices.SortStableFunc(rows, func(a, b DailySummary) int {
		return a.ReportedDate.Compare(b.ReportedDate)
	})
	for i := 1; i < len(rows); i++ {
		if rows[i].ReportedDate.Equal(rows[i-1].ReportedDate) {
			return nil, &ParseError{
				Dataset: DatasetSummary,
				Column:  colReportedDate,
				Err:     fmt.Errorf("duplicate reported date %s", rows[i].ReportedDate.Format(time.DateOnly)),
			}
		}
	}
	return rows, nil
}

// ParseActiveCSV parses the active case dataset, normalizing school names
// with names. Row order is preserved.
func ParseActiveCSV(r io.Reader, names NameNormalizer) ([]ActiveCase, error) {
	t, err := readTable(r, DatasetActive, activeRequired)
	if err != nil {
		return nil, err
	}

	var rows []ActiveCase
	for {
		rec, line, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := ActiveCase{
			SchoolBoard:  t.str(rec, colSchoolBoard),
			School:       names.Normalize(t.str(rec, colSchool)),
			Municipality: t.str(rec, colMunicipality),
		}
		if row.ReportedDate, err = t.date(rec, line, colReportedDate); err != nil {
			return nil, err
		}
		if row.StudentCases, err = t.count(rec, line, colStudentCases); err != nil {
			return nil, err
		}
		if row.StaffCases, err = t.count(rec, line, colStaffCases); err != nil {
			return nil, err
		}
		if row.UnspecifiedCases, err = t.count(rec, line, colUnspecifiedCases); err != nil {
			return nil, err
		}
		if row.TotalCases, err = t.count(rec, line, colTotalCases); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// table is a CSV reader with header lookup by column name.
type table struct {
	dataset string
	reader  *csv.Reader
	columns map[string]int
}

func readTable(r io.Reader, dataset string, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Dataset: dataset, Err: errors.New("empty document")}
	}
	if err != nil {
		return nil, wrapCSVError(dataset, err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			for _, bom := range byteOrderMarks {
				h = strings.TrimPrefix(h, bom)
			}
		}
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, &ParseError{Dataset: dataset, Line: 1, Column: name, Err: ErrMissingColumn}
		}
	}

	return &table{dataset: dataset, reader: cr, columns: columns}, nil
}

// next returns the next record and its line number.
func (t *table) next() ([]string, int, error) {
	rec, err := t.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		return nil, 0, wrapCSVError(t.dataset, err)
	}
	line, _ := t.reader.FieldPos(0)
	return rec, line, nil
}

// str returns the trimmed cell for col, or "" when the column is absent.
func (t *table) str(rec []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t *table) date(rec []string, line int, col string) (time.Time, error) {
	s := t.str(rec, col)
	d, err := parseDate(s)
	if err != nil {
		return time.Time{}, &ParseError{Dataset: t.dataset, Line: line, Column: col, Err: err}
	}
	return d, nil
}

func (t *table) count(rec []string, line int, col string) (int, error) {
	v, err := parseCount(t.str(rec, col))
	if err != nil {
		return 0, &ParseError{Dataset: t.dataset, Line: line, Column: col, Err: err}
	}
	return v, nil
}

// parseDate accepts any of dateLayouts and truncates to a UTC calendar date.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return dateOf(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseCount parses a case count. Empty cells count as zero and decimal
// cells ("12.0") are truncated.
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int(f), nil
}

func wrapCSVError(dataset string, err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Dataset: dataset, Line: csvErr.Line, Err: csvErr.Err}
	}
	return &ParseError{Dataset: dataset, Err: err}
}

// dateOf strips the time of day, keeping the calendar date in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
