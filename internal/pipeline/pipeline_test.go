package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
	"github.com/Peterstangolis/ontschoolsapp/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	tables  domain.Tables
	err     error
	loads   atomic.Int32
	reloads atomic.Int32
}

func (m *mockLoader) Load(_ context.Context) (domain.Tables, error) {
	m.loads.Add(1)
	return m.tables, m.err
}

func (m *mockLoader) Reload(_ context.Context) (domain.Tables, error) {
	m.reloads.Add(1)
	return m.tables, m.err
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.Dashboard
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, d domain.Dashboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, d)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(d int) time.Time {
	return time.Date(2021, 9, d, 0, 0, 0, 0, time.UTC)
}

func validTables() domain.Tables {
	return domain.Tables{
		Summary: []domain.DailySummary{
			{ReportedDate: date(13), NewTotalCases: 10, CumulativeCases: 10, SchoolsWithCases: 5, TotalSchools: 100},
			{ReportedDate: date(14), NewTotalCases: 15, CumulativeCases: 25, SchoolsWithCases: 6, TotalSchools: 100},
			{ReportedDate: date(15), NewTotalCases: 12, CumulativeCases: 37, SchoolsWithCases: 8, TotalSchools: 100},
		},
		Active: []domain.ActiveCase{
			{ReportedDate: date(15), School: "Quiet PS", Municipality: "Ottawa", TotalCases: 0},
			{ReportedDate: date(15), School: "St. Anne", Municipality: "Ottawa", TotalCases: 3},
		},
	}
}

func newPipeline(l pipeline.Loader, pub pipeline.Publisher) (*pipeline.Pipeline, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return pipeline.New(l, pub, domain.DefaultOptions(), discardLogger(), metrics), metrics
}

// --- tests ---

func TestPipeline_Build_HappyPath(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2021, 9, 16, 9, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	ldr := &mockLoader{tables: validTables()}
	p, metrics := newPipeline(ldr, nil)

	require.Error(t, p.CheckReadiness(context.Background()))

	d, err := p.Build(context.Background())
	require.NoError(t, err)

	want := []domain.RankEntry{
		{Name: "St. Anne", Municipality: "Ottawa", Cases: 3},
		{Name: "Quiet PS", Municipality: "Ottawa", Cases: 0},
	}
	if diff := cmp.Diff(want, d.Schools); diff != "" {
		t.Errorf("schools mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, -3, d.Deltas.TotalCases.Change)
	assert.Equal(t, "8%", d.PercentSchoolsWithCases)
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, int32(1), ldr.loads.Load())
	assert.Zero(t, ldr.reloads.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Builds.WithLabelValues(pipeline.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Ready))
}

func TestPipeline_Build_Errors(t *testing.T) {
	tests := []struct {
		name    string
		loader  *mockLoader
		outcome string
	}{
		{
			name:    "fetch error",
			loader:  &mockLoader{err: &domain.FetchError{URL: "http://x", StatusCode: 503, Err: errors.New("unavailable")}},
			outcome: pipeline.OutcomeFetchError,
		},
		{
			name:    "parse error",
			loader:  &mockLoader{err: &domain.ParseError{Dataset: domain.DatasetSummary, Line: 4, Err: errors.New("bad date")}},
			outcome: pipeline.OutcomeParseError,
		},
		{
			name:    "single reported date",
			loader:  &mockLoader{tables: domain.Tables{Summary: validTables().Summary[:1], Active: validTables().Active}},
			outcome: pipeline.OutcomeInsufficientData,
		},
		{
			name:    "unclassified",
			loader:  &mockLoader{err: context.DeadlineExceeded},
			outcome: pipeline.OutcomeError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, metrics := newPipeline(tt.loader, nil)

			_, err := p.Build(context.Background())

			require.Error(t, err)
			assert.Equal(t, tt.outcome, pipeline.Outcome(err))
			assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Builds.WithLabelValues(tt.outcome)))
			assert.Error(t, p.CheckReadiness(context.Background()))
		})
	}
}

func TestPipeline_Refresh_Publishes(t *testing.T) {
	ldr := &mockLoader{tables: validTables()}
	pub := &mockPublisher{}
	p, metrics := newPipeline(ldr, pub)

	require.NoError(t, p.Refresh(context.Background()))

	assert.Equal(t, int32(1), ldr.reloads.Load())
	assert.Zero(t, ldr.loads.Load())
	require.Len(t, pub.published, 1)
	assert.Equal(t, date(15), pub.published[0].LatestDate())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Refreshes.WithLabelValues("success")))
}

func TestPipeline_Refresh_WithoutPublisher(t *testing.T) {
	p, _ := newPipeline(&mockLoader{tables: validTables()}, nil)

	require.NoError(t, p.Refresh(context.Background()))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Refresh_PublishError(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	p, metrics := newPipeline(&mockLoader{tables: validTables()}, pub)

	err := p.Refresh(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish snapshot: broker down")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Refreshes.WithLabelValues("error")))
}

func TestPipeline_Refresh_BuildError(t *testing.T) {
	pub := &mockPublisher{}
	p, _ := newPipeline(&mockLoader{err: &domain.FetchError{URL: "http://x", Err: errors.New("dns")}}, pub)

	err := p.Refresh(context.Background())

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Empty(t, pub.published)
}

func TestOutcome(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", &domain.DataSufficiencyError{Dataset: domain.DatasetActive, Need: 1})
	assert.Equal(t, pipeline.OutcomeInsufficientData, pipeline.Outcome(wrapped))
	assert.Equal(t, pipeline.OutcomeSuccess, pipeline.Outcome(nil))
}
