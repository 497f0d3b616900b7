package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type refresher interface {
	Refresh(ctx context.Context) error
}

// Refresher re-downloads the datasets on a cron schedule so page loads are
// served from a warm cache. It implements cron.Job.
type Refresher struct {
	target  refresher
	engine  *cron.Cron
	job     cron.Job
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *slog.Logger
	ctx     context.Context
}

// NewRefresher registers target on schedule, a six-field cron spec or a
// descriptor such as "@every 15m". timeout bounds each run.
func NewRefresher(target refresher, schedule string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	r := &Refresher{
		target:  target,
		engine:  cron.New(cron.WithSeconds()),
		timeout: timeout,
		logger:  logger,
		ctx:     context.Background(),
	}
	// Startup and scheduled runs share one wrapper, so they never overlap.
	r.job = cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(r)
	if _, err := r.engine.AddJob(schedule, r.job); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs one refresh immediately, then follows the schedule until ctx is
// cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	r.ctx = ctx
	r.logger.Info("refresher started", "next", r.engine.Entries()[0].Schedule.Next(time.Now()))
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.job.Run()
	}()
	r.engine.Start()
}

// Stop halts the schedule and waits for running refreshes, including the
// startup one, to finish.
func (r *Refresher) Stop() {
	<-r.engine.Stop().Done()
	r.wg.Wait()
	r.logger.Info("refresher stopped")
}

// Run performs one refresh. Failures are logged; the next tick retries.
func (r *Refresher) Run() {
	if r.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	start := time.Now()
	if err := r.target.Refresh(ctx); err != nil {
		r.logger.Warn("scheduled refresh failed", "error", err, "duration", time.Since(start))
		return
	}
	r.logger.Debug("scheduled refresh complete", "duration", time.Since(start))
}
