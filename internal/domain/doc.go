// Package domain models the Ontario "COVID-19 cases in schools" open data
// and the summary views derived from it.
//
// # Data Sources
//
// Both datasets are published by the Ontario data catalogue as CSV
// resources under https://data.ontario.ca/dataset/b1fef838-8784-4338-8ef9-ae7cfd405b41.
// They are re-published every school day and each download contains the
// full history for the current school year.
//
//	schoolcovidsummary.csv   one row per reported date, UTF-8
//	schoolsactivecovid.csv   one row per (reported date, school), Latin-1
//
// # Summary Columns
//
//	reported_date                           date the snapshot applies to
//	collected_date                          ignored
//	new_total_school_related_cases          new cases since previous report
//	new_school_related_student_cases
//	new_school_related_staff_cases
//	new_school_related_unspecified_cases    optional
//	cumulative_school_related_cases         running total, non-decreasing
//	current_schools_w_cases
//	current_schools_closed
//	current_total_number_schools
//
// # Active Case Columns
//
//	reported_date, collected_date (ignored), school_board, school,
//	municipality, confirmed_student_cases, confirmed_staff_cases,
//	confirmed_unspecified_cases, total_confirmed_cases
//
// Only reported_date, school, municipality and total_confirmed_cases are
// required; the rest are read when present.
//
// # Encoding Quirks
//
// The active case file is served as Latin-1 while some school names were
// originally UTF-8, so accented French names arrive double-encoded
// ("Ã‰cole Ã©lÃ©mentaire catholique de Casselman"). Rather than attempt
// general repair, known names are mapped to canonical English names by a
// small rule table, see [DefaultSchoolNameRules].
//
// Rows whose school is a "board site" describe a school board office and
// are excluded from every school or municipality view.
//
// # Weeks
//
// Weekly averages bucket days into Sunday-start weeks (UTC). A week's
// average is the mean of new total cases over the days reported in it,
// rounded half-up. Weeks without reports are omitted.
package domain
