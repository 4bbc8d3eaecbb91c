package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/experiment"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) CreateExperiment(ctx context.Context, exp experiment.Experiment) (resp experiment.Experiment, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("experiment",
				slog.String("name", exp.Name),
				slog.String("strategy", exp.Strategy.Name),
				slog.String("attack", exp.Attack.Name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create experiment failed", args...)

			return
		}
		lm.logger.Info("Create experiment completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateExperiment(ctx, exp)
}

func (lm *loggingMiddleware) GetExperiment(ctx context.Context, experimentID string) (resp experiment.Experiment, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("experiment",
				slog.String("id", experimentID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get experiment failed", args...)

			return
		}
		lm.logger.Info("Get experiment completed successfully", args...)
	}(time.Now())

	return lm.svc.GetExperiment(ctx, experimentID)
}

func (lm *loggingMiddleware) ListExperiments(ctx context.Context, offset, limit uint64) (resp experiment.ExperimentPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List experiments failed", args...)

			return
		}
		lm.logger.Info("List experiments completed successfully", args...)
	}(time.Now())

	return lm.svc.ListExperiments(ctx, offset, limit)
}

func (lm *loggingMiddleware) DeleteExperiment(ctx context.Context, experimentID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("experiment",
				slog.String("id", experimentID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Delete experiment failed", args...)

			return
		}
		lm.logger.Info("Delete experiment completed successfully", args...)
	}(time.Now())

	return lm.svc.DeleteExperiment(ctx, experimentID)
}

func (lm *loggingMiddleware) StartRun(ctx context.Context, experimentID string) (resp experiment.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", resp.ID),
				slog.String("experiment_id", experimentID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start run failed", args...)

			return
		}
		lm.logger.Info("Start run completed successfully", args...)
	}(time.Now())

	return lm.svc.StartRun(ctx, experimentID)
}

func (lm *loggingMiddleware) GetRun(ctx context.Context, runID string) (resp experiment.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get run failed", args...)

			return
		}
		lm.logger.Info("Get run completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRun(ctx, runID)
}

func (lm *loggingMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (resp experiment.RunPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List runs failed", args...)

			return
		}
		lm.logger.Info("List runs completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRuns(ctx, offset, limit)
}

func (lm *loggingMiddleware) StopRun(ctx context.Context, runID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Stop run failed", args...)

			return
		}
		lm.logger.Info("Stop run completed successfully", args...)
	}(time.Now())

	return lm.svc.StopRun(ctx, runID)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, runID string, offset, limit uint64) (resp experiment.RoundPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
			),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, runID, offset, limit)
}
