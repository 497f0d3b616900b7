package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
)

// Loader produces both source tables.
type Loader interface {
	// Load may serve cached dataset bodies.
	Load(ctx context.Context) (domain.Tables, error)
	// Reload downloads both datasets again.
	Reload(ctx context.Context) (domain.Tables, error)
}

// Publisher receives each dashboard built by a refresh.
type Publisher interface {
	Publish(ctx context.Context, d domain.Dashboard) error
}

// Build outcomes, used as metric labels.
const (
	OutcomeSuccess          = "success"
	OutcomeFetchError       = "fetch_error"
	OutcomeParseError       = "parse_error"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeError            = "error"
)

// Pipeline composes loading and aggregation into dashboard builds.
type Pipeline struct {
	loader    Loader
	publisher Publisher
	opts      domain.Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. publisher may be nil.
func New(l Loader, pub Publisher, opts domain.Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		loader:    l,
		publisher: pub,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a dashboard has been built successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no dashboard has been built yet")
	}
	return nil
}

// Build loads both datasets and derives the dashboard.
func (p *Pipeline) Build(ctx context.Context) (domain.Dashboard, error) {
	return p.build(ctx, p.loader.Load)
}

// Refresh rebuilds from freshly downloaded datasets and publishes the result
// when a publisher is configured.
func (p *Pipeline) Refresh(ctx context.Context) error {
	d, err := p.build(ctx, p.loader.Reload)
	if err != nil {
		p.metrics.Refreshes.WithLabelValues("error").Inc()
		return err
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, d); err != nil {
			p.metrics.Refreshes.WithLabelValues("error").Inc()
			return fmt.Errorf("publish snapshot: %w", err)
		}
	}

	p.metrics.Refreshes.WithLabelValues("success").Inc()
	p.logger.Info("dashboard refreshed",
		"latest_date", d.LatestDate().Format(time.DateOnly),
		"published", p.publisher != nil,
	)
	return nil
}

func (p *Pipeline) build(ctx context.Context, load func(context.Context) (domain.Tables, error)) (domain.Dashboard, error) {
	start := time.Now()

	tables, err := load(ctx)
	if err != nil {
		return domain.Dashboard{}, p.fail("load datasets failed", err)
	}

	d, err := domain.BuildDashboard(tables, p.opts)
	if err != nil {
		return domain.Dashboard{}, p.fail("aggregate datasets failed", err)
	}

	p.metrics.Builds.WithLabelValues(OutcomeSuccess).Inc()
	p.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	if !p.ready.Swap(true) {
		p.metrics.Ready.Set(1)
		p.logger.Info("first dashboard built", "latest_date", d.LatestDate().Format(time.DateOnly))
	}
	return d, nil
}

func (p *Pipeline) fail(msg string, err error) error {
	outcome := Outcome(err)
	p.metrics.Builds.WithLabelValues(outcome).Inc()
	p.logger.Error(msg, "error", err, "outcome", outcome)
	return err
}

// Outcome classifies a build error.
func Outcome(err error) string {
	var (
		fetchErr *domain.FetchError
		parseErr *domain.ParseError
		dataErr  *domain.DataSufficiencyError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &fetchErr):
		return OutcomeFetchError
	case errors.As(err, &parseErr):
		return OutcomeParseError
	case errors.As(err, &dataErr):
		return OutcomeInsufficientData
	default:
		return OutcomeError
	}
}
