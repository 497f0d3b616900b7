package render

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(d int) time.Time {
	return time.Date(2021, 9, d, 0, 0, 0, 0, time.UTC)
}

func testDashboard() domain.Dashboard {
	return domain.Dashboard{
		FirstDate: date(13),
		Deltas: domain.Deltas{
			LatestDate:       date(15),
			PreviousDate:     date(14),
			TotalCases:       domain.Delta{Latest: 12, Previous: 15, Change: -3},
			StudentCases:     domain.Delta{Latest: 9, Previous: 10, Change: -1},
			StaffCases:       domain.Delta{Latest: 3, Previous: 3, Change: 0},
			SchoolsWithCases: domain.Delta{Latest: 121, Previous: 110, Change: 11},
			SchoolsClosed:    domain.Delta{Latest: 2, Previous: 1, Change: 1},
		},
		TotalSchools:            4844,
		PercentSchoolsWithCases: "2%",
		Threshold:               2,
		SchoolsOverThreshold:    1,
		ActiveDate:              date(15),
		Cumulative:              []domain.SeriesPoint{{Date: date(13), Value: 1010}, {Date: date(14), Value: 1025}, {Date: date(15), Value: 1037}},
		Weekly:                  []domain.WeeklyAverage{{WeekStart: date(5), Average: 8, Days: 5}, {WeekStart: date(12), Average: 12, Days: 3}},
		Municipalities:          []domain.RankEntry{{Name: "Ottawa", Cases: 3}, {Name: "Toronto", Cases: 1}},
		Schools: []domain.RankEntry{
			{Name: "St. Anne", Municipality: "Ottawa", Cases: 3},
			{Name: "Lord Dufferin <PS>", Municipality: "Toronto", Cases: 1},
		},
		DaysCompleted:  3,
		SchoolYearDays: 195,
		GeneratedAt:    time.Date(2021, 9, 16, 8, 30, 0, 0, time.UTC),
	}
}

func TestPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Page(&buf, testDashboard(), discardLogger()))
	html := buf.String()

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>"+Title+"</title>")
	assert.Contains(t, html, "Reported September 15, 2021, compared with September 14, 2021")
	for _, label := range []string{
		"Reported cases", "Student cases", "Staff cases",
		"Schools with active cases", "Schools closed", "Schools with 2&#43; active cases",
	} {
		assert.Contains(t, html, label)
	}
	assert.Contains(t, html, `<div class="delta down">-3 vs previous day</div>`)
	assert.Contains(t, html, `<div class="delta up">&#43;11 vs previous day</div>`)
	assert.Contains(t, html, `<div class="delta flat">0 vs previous day</div>`)
	assert.Contains(t, html, "2% of 4844 schools")
	assert.Contains(t, html, "St. Anne")
	assert.Contains(t, html, "Lord Dufferin &lt;PS&gt;")
	assert.GreaterOrEqual(t, strings.Count(html, "<svg"), 4, "three charts and the gauge")
	assert.Contains(t, html, "of 195 days")
	assert.NotContains(t, html, "No data to chart")
}

func TestPage_EmptyViews(t *testing.T) {
	d := testDashboard()
	d.Weekly = nil
	d.Municipalities = nil
	d.Schools = nil

	var buf bytes.Buffer
	require.NoError(t, Page(&buf, d, discardLogger()))

	assert.Equal(t, 2, strings.Count(buf.String(), "No data to chart."))
	assert.Contains(t, buf.String(), "No active cases reported.")
}

func TestErrorPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorPage(&buf, "Data source unavailable", `fetch https://data.ontario.ca/x.csv: status 503 <oops>`))

	html := buf.String()
	assert.Contains(t, html, `role="alert"`)
	assert.Contains(t, html, "Data source unavailable")
	assert.Contains(t, html, "status 503 &lt;oops&gt;")
	assert.NotContains(t, html, "Reported cases")
}

func TestSignedAndDeltaClass(t *testing.T) {
	assert.Equal(t, "+4", signed(4))
	assert.Equal(t, "-2", signed(-2))
	assert.Equal(t, "0", signed(0))
	assert.Equal(t, "up", deltaClass(1))
	assert.Equal(t, "down", deltaClass(-1))
	assert.Equal(t, "flat", deltaClass(0))
}

func TestNewGauge(t *testing.T) {
	g := newGauge(0, 195, 194)
	assert.Empty(t, g.Arc)
	assert.Equal(t, "M 20.00 100.00 A 80 80 0 0 1 180.00 100.00", g.Track)
	assert.False(t, g.Warn)

	g = newGauge(195, 195, 194)
	assert.Equal(t, g.Track, g.Arc)
	assert.True(t, g.Warn)

	g = newGauge(400, 195, 194)
	assert.Equal(t, g.Track, g.Arc, "progress is capped at the school year")

	g = newGauge(97, 194, 193)
	assert.True(t, strings.HasSuffix(g.Arc, "100.00 20.00"), g.Arc)
}
