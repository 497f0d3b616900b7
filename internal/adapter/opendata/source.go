package opendata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
)

// Fetcher retrieves a raw dataset document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// refetcher is implemented by fetchers that can bypass a cache.
type refetcher interface {
	Refetch(ctx context.Context, url string) ([]byte, error)
}

// Dataset locates one published CSV document.
type Dataset struct {
	URL      string
	Encoding string
}

// Source loads and parses both datasets.
type Source struct {
	fetcher    Fetcher
	summary    Dataset
	active     Dataset
	summaryEnc encoding.Encoding
	activeEnc  encoding.Encoding
	names      domain.NameNormalizer
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewSource creates a loader for the summary and active case datasets.
func NewSource(f Fetcher, summary, active Dataset, names domain.NameNormalizer, metrics *observability.Metrics, logger *slog.Logger) (*Source, error) {
	summaryEnc, err := LookupEncoding(summary.Encoding)
	if err != nil {
		return nil, fmt.Errorf("summary dataset: %w", err)
	}
	activeEnc, err := LookupEncoding(active.Encoding)
	if err != nil {
		return nil, fmt.Errorf("active case dataset: %w", err)
	}

	return &Source{
		fetcher:    f,
		summary:    summary,
		active:     active,
		summaryEnc: summaryEnc,
		activeEnc:  activeEnc,
		names:      names,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Load fetches and parses both datasets, serving cached bodies when the
// fetcher has them.
func (s *Source) Load(ctx context.Context) (domain.Tables, error) {
	return s.load(ctx, s.fetcher.Fetch)
}

// Reload is Load with any cache freshness bypassed.
func (s *Source) Reload(ctx context.Context) (domain.Tables, error) {
	if r, ok := s.fetcher.(refetcher); ok {
		return s.load(ctx, r.Refetch)
	}
	return s.load(ctx, s.fetcher.Fetch)
}

func (s *Source) load(ctx context.Context, fetch func(context.Context, string) ([]byte, error)) (domain.Tables, error) {
	var summaryBody, activeBody []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaryBody, err = fetch(gctx, s.summary.URL)
		return err
	})
	g.Go(func() error {
		var err error
		activeBody, err = fetch(gctx, s.active.URL)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Tables{}, err
	}

	summary, err := domain.ParseSummaryCSV(decode(summaryBody, s.summaryEnc))
	if err != nil {
		return domain.Tables{}, err
	}
	if regressions := domain.CumulativeRegressions(summary); len(regressions) > 0 {
		s.logger.Warn("cumulative cases decreased between reported dates",
			"dates", len(regressions),
			"first", regressions[0].Format(time.DateOnly),
		)
	}

	active, err := domain.ParseActiveCSV(decode(activeBody, s.activeEnc), s.names)
	if err != nil {
		return domain.Tables{}, err
	}

	s.metrics.DatasetRows.WithLabelValues(domain.DatasetSummary).Set(float64(len(summary)))
	s.metrics.DatasetRows.WithLabelValues(domain.DatasetActive).Set(float64(len(active)))
	s.logger.Debug("datasets loaded", "summary_rows", len(summary), "active_rows", len(active))

	return domain.Tables{Summary: summary, Active: active}, nil
}

// FileFetcher reads datasets from the local filesystem; URLs are paths.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.FetchError{URL: path, Err: err}
	}
	return b, nil
}
