package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fulfilhub/dashboard/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Sweeper deletes stale cache entries and reports how many were removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// CacheSweepJob drops query cache entries that were invalidated but never read
// again, so the shared Redis cache does not keep them until their TTL.
type CacheSweepJob struct {
	Store   Sweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheSweepJob wires dependencies for the sweep handler.
func NewCacheSweepJob(store Sweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheSweepJob {
	return &CacheSweepJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes cache sweep tasks.
func (j *CacheSweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("cache sweep: handler not configured")
	}
	var payload CacheSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Reason == "" {
		payload.Reason = "manual"
	}

	metrics := j.metrics()
	tracker := metrics.Track(TaskCacheSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	removed, err := j.Store.Sweep(ctx)
	if err != nil {
		logger.Error("sweep query cache", slog.Int("removed", removed), slog.Any("error", err))
		return err
	}
	metrics.AddSwept(removed)
	logger.Info("query cache swept", slog.Int("removed", removed))
	return nil
}

func (j *CacheSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *CacheSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
