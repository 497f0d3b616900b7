package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDashboard_EndToEnd(t *testing.T) {
	now := time.Date(2021, 9, 16, 8, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	summary, err := ParseSummaryCSV(strings.NewReader(summaryHeader +
		"x,2021-09-13,100,1,4844,10,8,2,0,25,1010\n" +
		"x,2021-09-14,110,1,4844,15,10,4,1,35,1025\n" +
		"x,2021-09-15,121,2,4844,12,9,3,0,40,1037\n"))
	require.NoError(t, err)
	active, err := ParseActiveCSV(strings.NewReader(activeHeader+
		"x,2021-09-15,Ottawa Catholic DSB,Quiet PS,1,Ottawa,0,0,0,0\n"+
		"x,2021-09-15,Ottawa Catholic DSB,St. Anne,2,Ottawa,2,1,0,3\n"), DefaultSchoolNameRules)
	require.NoError(t, err)

	d, err := BuildDashboard(Tables{Summary: summary, Active: active}, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, -3, d.Deltas.TotalCases.Change)
	assert.Equal(t, day(15), d.LatestDate())
	assert.Equal(t, day(13), d.FirstDate)
	assert.Equal(t, []WeeklyAverage{{WeekStart: day(12), Average: 12, Days: 3}}, d.Weekly)
	require.Len(t, d.Schools, 2)
	assert.Equal(t, "St. Anne", d.Schools[0].Name)
	assert.Equal(t, 3, d.Schools[0].Cases)
	assert.Equal(t, "Quiet PS", d.Schools[1].Name)
	assert.Equal(t, 0, d.Schools[1].Cases)
	assert.Equal(t, []RankEntry{{Name: "Ottawa", Cases: 3}}, d.Municipalities)
	assert.Equal(t, 1, d.SchoolsOverThreshold)
	assert.Equal(t, 2, d.Threshold)
	assert.Equal(t, "2%", d.PercentSchoolsWithCases)
	assert.Equal(t, 4844, d.TotalSchools)
	assert.Equal(t, 3, d.DaysCompleted)
	assert.Equal(t, 195, d.SchoolYearDays)
	assert.Equal(t, 194, d.GaugeWarning())
	assert.Equal(t, day(15), d.ActiveDate)
	assert.Len(t, d.Cumulative, 3)
	assert.Equal(t, now, d.GeneratedAt)
}

func TestBuildDashboard_InsufficientSummary(t *testing.T) {
	tables := Tables{
		Summary: []DailySummary{summaryRow(day(13), 10, 0, 0, 0, 0)},
		Active:  []ActiveCase{activeRow(day(13), "Ottawa", "St. Anne", 1)},
	}

	_, err := BuildDashboard(tables, DefaultOptions())

	var dse *DataSufficiencyError
	require.ErrorAs(t, err, &dse)
	assert.Equal(t, DatasetSummary, dse.Dataset)
}

func TestBuildDashboard_EmptyActive(t *testing.T) {
	tables := Tables{
		Summary: []DailySummary{
			summaryRow(day(13), 10, 0, 0, 0, 0),
			summaryRow(day(14), 12, 0, 0, 0, 0),
		},
	}

	_, err := BuildDashboard(tables, DefaultOptions())

	var dse *DataSufficiencyError
	require.ErrorAs(t, err, &dse)
	assert.Equal(t, DatasetActive, dse.Dataset)
}

func TestBuildDashboard_Threshold(t *testing.T) {
	tables := Tables{
		Summary: []DailySummary{
			summaryRow(day(13), 10, 0, 0, 0, 0),
			summaryRow(day(14), 12, 0, 0, 0, 0),
		},
		Active: []ActiveCase{
			activeRow(day(14), "Ottawa", "St. Anne", 5),
			activeRow(day(14), "Ottawa", "Glebe CI", 2),
		},
	}
	opts := DefaultOptions()
	opts.Threshold = 5

	d, err := BuildDashboard(tables, opts)

	require.NoError(t, err)
	assert.Equal(t, 1, d.SchoolsOverThreshold)
	assert.Equal(t, 5, d.Threshold)
}
