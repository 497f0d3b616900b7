package domain

import "time"

// Options tunes the aggregation.
type Options struct {
	// Threshold is K in "schools with at least K active cases".
	Threshold         int
	MunicipalityLimit int
	SchoolLimit       int
	// SchoolYearDays caps the school-year progress gauge.
	SchoolYearDays int
}

// DefaultOptions returns the dashboard's published settings.
func DefaultOptions() Options {
	return Options{
		Threshold:         2,
		MunicipalityLimit: 30,
		SchoolLimit:       15,
		SchoolYearDays:    195,
	}
}

// Dashboard is every view the page renders, derived from one pair of tables.
type Dashboard struct {
	FirstDate               time.Time       `json:"first_date"`
	Deltas                  Deltas          `json:"deltas"`
	TotalSchools            int             `json:"total_schools"`
	PercentSchoolsWithCases string          `json:"percent_schools_with_cases"`
	Threshold               int             `json:"threshold"`
	SchoolsOverThreshold    int             `json:"schools_over_threshold"`
	ActiveDate              time.Time       `json:"active_date"`
	Cumulative              []SeriesPoint   `json:"cumulative"`
	Weekly                  []WeeklyAverage `json:"weekly"`
	Municipalities          []RankEntry     `json:"municipalities"`
	Schools                 []RankEntry     `json:"schools"`
	DaysCompleted           int             `json:"days_completed"`
	SchoolYearDays          int             `json:"school_year_days"`
	GeneratedAt             time.Time       `json:"generated_at"`
}

// LatestDate is the most recent reported date in the summary dataset.
func (d Dashboard) LatestDate() time.Time { return d.Deltas.LatestDate }

// GaugeWarning is the day count at which the school-year gauge turns amber.
func (d Dashboard) GaugeWarning() int { return d.SchoolYearDays - 1 }

// BuildDashboard derives every view from the two tables. It fails with a
// *DataSufficiencyError when the summary has fewer than two reported dates
// or the active case table is empty.
func BuildDashboard(t Tables, opts Options) (Dashboard, error) {
	deltas, err := LatestDeltas(t.Summary)
	if err != nil {
		return Dashboard{}, err
	}
	if len(t.Active) == 0 {
		return Dashboard{}, &DataSufficiencyError{Dataset: DatasetActive, Need: 1}
	}

	var latest DailySummary
	for _, r := range t.Summary {
		if r.ReportedDate.Equal(deltas.LatestDate) {
			latest = r
			break
		}
	}

	cumulative := CumulativeSeries(t.Summary)
	var activeDate time.Time
	for _, r := range t.Active {
		if r.ReportedDate.After(activeDate) {
			activeDate = r.ReportedDate
		}
	}

	return Dashboard{
		FirstDate:               cumulative[0].Date,
		Deltas:                  deltas,
		TotalSchools:            latest.TotalSchools,
		PercentSchoolsWithCases: PercentWithCases(latest.SchoolsWithCases, latest.TotalSchools),
		Threshold:               opts.Threshold,
		SchoolsOverThreshold:    SchoolsAtOrAbove(t.Active, opts.Threshold),
		ActiveDate:              activeDate,
		Cumulative:              cumulative,
		Weekly:                  WeeklyAverages(t.Summary),
		Municipalities:          MunicipalityRanking(t.Active, opts.MunicipalityLimit),
		Schools:                 SchoolRanking(t.Active, opts.SchoolLimit),
		DaysCompleted:           DaysCompleted(t.Summary),
		SchoolYearDays:          opts.SchoolYearDays,
		GeneratedAt:             clock.Now().UTC(),
	}, nil
}
