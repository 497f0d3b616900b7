package domain

import "time"

// Dataset names used in errors, logs and metric labels.
const (
	DatasetSummary = "summary"
	DatasetActive  = "active_cases"
)

// DailySummary is one row of the province-wide summary dataset.
type DailySummary struct {
	ReportedDate        time.Time `json:"reported_date"`
	NewTotalCases       int       `json:"new_total_cases"`
	NewStudentCases     int       `json:"new_student_cases"`
	NewStaffCases       int       `json:"new_staff_cases"`
	NewUnspecifiedCases int       `json:"new_unspecified_cases"`
	CumulativeCases     int       `json:"cumulative_cases"`
	SchoolsWithCases    int       `json:"schools_with_cases"`
	SchoolsClosed       int       `json:"schools_closed"`
	TotalSchools        int       `json:"total_schools"`
}

// ActiveCase is one school's active case count on a reported date.
type ActiveCase struct {
	ReportedDate     time.Time `json:"reported_date"`
	SchoolBoard      string    `json:"school_board,omitempty"`
	School           string    `json:"school"`
	Municipality     string    `json:"municipality"`
	StudentCases     int       `json:"student_cases"`
	StaffCases       int       `json:"staff_cases"`
	UnspecifiedCases int       `json:"unspecified_cases"`
	TotalCases       int       `json:"total_cases"`
}

// Tables holds both parsed datasets for a single build.
type Tables struct {
	Summary []DailySummary
	Active  []ActiveCase
}

// Delta compares a metric's latest value with the previous reported day.
type Delta struct {
	Latest   int `json:"latest"`
	Previous int `json:"previous"`
	Change   int `json:"change"`
}

func newDelta(latest, previous int) Delta {
	return Delta{Latest: latest, Previous: previous, Change: latest - previous}
}

// Deltas holds the day-over-day comparison for each headline metric.
type Deltas struct {
	LatestDate       time.Time `json:"latest_date"`
	PreviousDate     time.Time `json:"previous_date"`
	TotalCases       Delta     `json:"total_cases"`
	StudentCases     Delta     `json:"student_cases"`
	StaffCases       Delta     `json:"staff_cases"`
	SchoolsWithCases Delta     `json:"schools_with_cases"`
	SchoolsClosed    Delta     `json:"schools_closed"`
}

// WeeklyAverage is the rounded mean of new total cases in one week.
type WeeklyAverage struct {
	WeekStart time.Time `json:"week_start"`
	Average   int       `json:"average"`
	Days      int       `json:"days"`
}

// RankEntry is one row of a municipality or school ranking.
type RankEntry struct {
	Name         string `json:"name"`
	Municipality string `json:"municipality,omitempty"`
	Cases        int    `json:"cases"`
}

// SeriesPoint is a dated value in a time series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value int       `json:"value"`
}
