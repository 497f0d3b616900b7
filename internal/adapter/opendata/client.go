package opendata

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
	"github.com/go-resty/resty/v2"
)

const userAgent = "ontschoolsapp/1.0 (+https://data.ontario.ca)"

// MaxRetryWait caps the backoff between download attempts.
const MaxRetryWait = 5 * time.Second

// Client downloads dataset documents over HTTP.
type Client struct {
	http    *resty.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a dataset client. Transport errors and 5xx responses are
// retried up to retries times with backoff; timeout bounds each attempt.
func NewClient(timeout time.Duration, retries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(MaxRetryWait).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/csv, */*").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})

	return &Client{http: c, metrics: metrics, logger: logger}
}

// Fetch downloads url. Failures are returned as *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(url)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		c.logger.Warn("dataset download failed", "url", url, "error", err)
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues("http_error").Inc()
		c.logger.Warn("dataset download rejected", "url", url, "status", resp.StatusCode())
		return nil, &domain.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.logger.Debug("dataset downloaded", "url", url, "bytes", len(resp.Body()), "duration", resp.Time())
	return resp.Body(), nil
}
