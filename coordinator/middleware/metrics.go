package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/experiment"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateExperiment(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-experiment").Add(1)
		mm.latency.With("method", "create-experiment").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateExperiment(ctx, exp)
}

func (mm *metricsMiddleware) GetExperiment(ctx context.Context, experimentID string) (experiment.Experiment, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-experiment").Add(1)
		mm.latency.With("method", "get-experiment").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetExperiment(ctx, experimentID)
}

func (mm *metricsMiddleware) ListExperiments(ctx context.Context, offset, limit uint64) (experiment.ExperimentPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-experiments").Add(1)
		mm.latency.With("method", "list-experiments").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListExperiments(ctx, offset, limit)
}

func (mm *metricsMiddleware) DeleteExperiment(ctx context.Context, experimentID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "delete-experiment").Add(1)
		mm.latency.With("method", "delete-experiment").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.DeleteExperiment(ctx, experimentID)
}

func (mm *metricsMiddleware) StartRun(ctx context.Context, experimentID string) (experiment.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start-run").Add(1)
		mm.latency.With("method", "start-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartRun(ctx, experimentID)
}

func (mm *metricsMiddleware) GetRun(ctx context.Context, runID string) (experiment.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-run").Add(1)
		mm.latency.With("method", "get-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRun(ctx, runID)
}

func (mm *metricsMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (experiment.RunPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-runs").Add(1)
		mm.latency.With("method", "list-runs").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRuns(ctx, offset, limit)
}

func (mm *metricsMiddleware) StopRun(ctx context.Context, runID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "stop-run").Add(1)
		mm.latency.With("method", "stop-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StopRun(ctx, runID)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, runID string, offset, limit uint64) (experiment.RoundPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, runID, offset, limit)
}
