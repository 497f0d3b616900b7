package domain

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// LatestDeltas compares each headline metric on the most recent reported
// date with the date before it. Input order does not matter. Fewer than two
// distinct dates yields a *DataSufficiencyError.
func LatestDeltas(rows []DailySummary) (Deltas, error) {
	latest, previous, dates := latestTwo(rows)
	if dates < 2 {
		return Deltas{}, &DataSufficiencyError{Dataset: DatasetSummary, Dates: dates, Need: 2}
	}

	l, p := rows[latest], rows[previous]
	return Deltas{
		LatestDate:       l.ReportedDate,
		PreviousDate:     p.ReportedDate,
		TotalCases:       newDelta(l.NewTotalCases, p.NewTotalCases),
		StudentCases:     newDelta(l.NewStudentCases, p.NewStudentCases),
		StaffCases:       newDelta(l.NewStaffCases, p.NewStaffCases),
		SchoolsWithCases: newDelta(l.SchoolsWithCases, p.SchoolsWithCases),
		SchoolsClosed:    newDelta(l.SchoolsClosed, p.SchoolsClosed),
	}, nil
}

// latestTwo returns the indexes of the rows on the max and second-max dates
// and the number of distinct dates. On a repeated date the first row wins.
func latestTwo(rows []DailySummary) (latest, previous, dates int) {
	latest, previous = -1, -1
	seen := make(map[time.Time]struct{}, len(rows))
	for i, r := range rows {
		d := dateOf(r.ReportedDate)
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}

		switch {
		case latest < 0 || d.After(dateOf(rows[latest].ReportedDate)):
			previous = latest
			latest = i
		case previous < 0 || d.After(dateOf(rows[previous].ReportedDate)):
			previous = i
		}
	}
	return latest, previous, len(seen)
}

// WeeklyAverages buckets the summary into Sunday-start weeks and averages
// new total cases per bucket, rounding half-up. Results are ordered by week.
func WeeklyAverages(rows []DailySummary) []WeeklyAverage {
	type acc struct{ sum, n int }
	buckets := make(map[time.Time]*acc)
	for _, r := range rows {
		w := WeekStart(r.ReportedDate)
		a, ok := buckets[w]
		if !ok {
			a = &acc{}
			buckets[w] = a
		}
		a.sum += r.NewTotalCases
		a.n++
	}

	out := make([]WeeklyAverage, 0, len(buckets))
	for w, a := range buckets {
		out = append(out, WeeklyAverage{
			WeekStart: w,
			Average:   roundHalfUp(float64(a.sum) / float64(a.n)),
			Days:      a.n,
		})
	}
	slices.SortFunc(out, func(a, b WeeklyAverage) int {
		return a.WeekStart.Compare(b.WeekStart)
	})
	return out
}

// WeekStart returns the Sunday (UTC) starting the week containing t.
func WeekStart(t time.Time) time.Time {
	d := dateOf(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// LatestActive returns the rows on the most recent reported date, excluding
// board sites. Input order is preserved.
func LatestActive(rows []ActiveCase) []ActiveCase {
	var latest time.Time
	for _, r := range rows {
		if r.ReportedDate.After(latest) {
			latest = r.ReportedDate
		}
	}

	out := make([]ActiveCase, 0, len(rows))
	for _, r := range rows {
		if r.ReportedDate.Equal(latest) && !IsBoardSite(r.School) {
			out = append(out, r)
		}
	}
	return out
}

// MunicipalityRanking sums the latest active cases by municipality and
// returns the top n, largest first. Ties keep first-seen order. n <= 0
// returns every municipality.
func MunicipalityRanking(rows []ActiveCase, n int) []RankEntry {
	ranked := sumBy(LatestActive(rows), func(r ActiveCase) (string, RankEntry) {
		return r.Municipality, RankEntry{Name: r.Municipality}
	})
	return top(ranked, n)
}

// SchoolRanking sums the latest active cases by school name and returns the
// top n, largest first. Schools with zero cases are kept.
func SchoolRanking(rows []ActiveCase, n int) []RankEntry {
	ranked := sumBy(LatestActive(rows), func(r ActiveCase) (string, RankEntry) {
		return r.School, RankEntry{Name: r.School, Municipality: r.Municipality}
	})
	return top(ranked, n)
}

// SchoolsAtOrAbove counts schools, keyed by municipality and name, whose
// latest active cases sum to at least k.
func SchoolsAtOrAbove(rows []ActiveCase, k int) int {
	ranked := sumBy(LatestActive(rows), func(r ActiveCase) (string, RankEntry) {
		return r.Municipality + "\x00" + r.School, RankEntry{Name: r.School, Municipality: r.Municipality}
	})
	count := 0
	for _, e := range ranked {
		if e.Cases >= k {
			count++
		}
	}
	return count
}

// sumBy groups rows by key, summing total cases. Groups are returned in
// first-seen order.
func sumBy(rows []ActiveCase, key func(ActiveCase) (string, RankEntry)) []RankEntry {
	index := make(map[string]int)
	var out []RankEntry
	for _, r := range rows {
		k, entry := key(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, entry)
		}
		out[i].Cases += r.TotalCases
	}
	return out
}

func top(entries []RankEntry, n int) []RankEntry {
	slices.SortStableFunc(entries, func(a, b RankEntry) int {
		return b.Cases - a.Cases
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// PercentWithCases formats schools with cases as a whole percentage of all
// schools, or "n/a" when the total is unknown.
func PercentWithCases(withCases, total int) string {
	if total <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", roundHalfUp(100*float64(withCases)/float64(total)))
}

// CumulativeSeries returns cumulative cases ordered by reported date.
func CumulativeSeries(rows []DailySummary) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, SeriesPoint{Date: r.ReportedDate, Value: r.CumulativeCases})
	}
	slices.SortStableFunc(out, func(a, b SeriesPoint) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// CumulativeRegressions returns the dates on which cumulative cases fell
// below the previous reported date's value.
func CumulativeRegressions(rows []DailySummary) []time.Time {
	series := CumulativeSeries(rows)
	var out []time.Time
	for i := 1; i < len(series); i++ {
		if series[i].Value < series[i-1].Value {
			out = append(out, series[i].Date)
		}
	}
	return out
}

// DaysCompleted counts distinct reported dates in the summary.
func DaysCompleted(rows []DailySummary) int {
	seen := make(map[time.Time]struct{}, len(rows))
	for _, r := range rows {
		seen[dateOf(r.ReportedDate)] = struct{}{}
	}
	return len(seen)
}
