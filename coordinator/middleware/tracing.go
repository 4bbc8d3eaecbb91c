package middleware

import (
	"context"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/experiment"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) CreateExperiment(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error) {
	ctx, span := tm.tracer.Start(ctx, "create-experiment", trace.WithAttributes(
		attribute.String("name", exp.Name),
		attribute.String("strategy", exp.Strategy.Name),
		attribute.String("attack", exp.Attack.Name),
	))
	defer span.End()

	return tm.svc.CreateExperiment(ctx, exp)
}

func (tm *tracing) GetExperiment(ctx context.Context, experimentID string) (experiment.Experiment, error) {
	ctx, span := tm.tracer.Start(ctx, "get-experiment", trace.WithAttributes(
		attribute.String("id", experimentID),
	))
	defer span.End()

	return tm.svc.GetExperiment(ctx, experimentID)
}

func (tm *tracing) ListExperiments(ctx context.Context, offset, limit uint64) (experiment.ExperimentPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-experiments", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListExperiments(ctx, offset, limit)
}

func (tm *tracing) DeleteExperiment(ctx context.Context, experimentID string) error {
	ctx, span := tm.tracer.Start(ctx, "delete-experiment", trace.WithAttributes(
		attribute.String("id", experimentID),
	))
	defer span.End()

	return tm.svc.DeleteExperiment(ctx, experimentID)
}

func (tm *tracing) StartRun(ctx context.Context, experimentID string) (experiment.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "start-run", trace.WithAttributes(
		attribute.String("experiment_id", experimentID),
	))
	defer span.End()

	return tm.svc.StartRun(ctx, experimentID)
}

func (tm *tracing) GetRun(ctx context.Context, runID string) (experiment.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "get-run", trace.WithAttributes(
		attribute.String("id", runID),
	))
	defer span.End()

	return tm.svc.GetRun(ctx, runID)
}

func (tm *tracing) ListRuns(ctx context.Context, offset, limit uint64) (experiment.RunPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-runs", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRuns(ctx, offset, limit)
}

func (tm *tracing) StopRun(ctx context.Context, runID string) error {
	ctx, span := tm.tracer.Start(ctx, "stop-run", trace.WithAttributes(
		attribute.String("id", runID),
	))
	defer span.End()

	return tm.svc.StopRun(ctx, runID)
}

func (tm *tracing) ListRounds(ctx context.Context, runID string, offset, limit uint64) (experiment.RoundPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, runID, offset, limit)
}
