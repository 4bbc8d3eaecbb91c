package coordinator

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/google/uuid"
	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/aggregate"
	"github.com/rampart-fl/rampart/pkg/attack"
	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/history"
	"github.com/rampart-fl/rampart/pkg/storage"
	"github.com/rampart-fl/rampart/report"
)

var namegen = namegenerator.NewGenerator()

type activeRun struct {
	cancel       context.CancelFunc
	experimentID string
}

type service struct {
	experimentsDB storage.ExperimentRepository
	runsDB        storage.RunRepository
	metricsDB     storage.MetricsRepository
	reporter      *report.Writer
	historyRoot   string
	logger        *slog.Logger

	mu     sync.Mutex
	active map[string]activeRun
}

func NewService(experimentsDB storage.ExperimentRepository, runsDB storage.RunRepository, metricsDB storage.MetricsRepository, reporter *report.Writer, historyRoot string, logger *slog.Logger) Service {
	return &service{
		experimentsDB: experimentsDB,
		runsDB:        runsDB,
		metricsDB:     metricsDB,
		reporter:      reporter,
		historyRoot:   historyRoot,
		logger:        logger,
		active:        make(map[string]activeRun),
	}
}

func (svc *service) CreateExperiment(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error) {
	exp.Normalize()
	if err := exp.Validate(); err != nil {
		return experiment.Experiment{}, err
	}
	if !slices.Contains(aggregate.Names(), exp.Strategy.Name) {
		return experiment.Experiment{}, errors.ErrUnknownStrategy
	}
	if !slices.Contains(attack.Names(), exp.Attack.Name) {
		return experiment.Experiment{}, errors.ErrUnknownAttack
	}

	exp.ID = uuid.NewString()
	exp.CreatedAt = time.Now()
	exp.UpdatedAt = exp.CreatedAt

	return svc.experimentsDB.Create(ctx, exp)
}

func (svc *service) GetExperiment(ctx context.Context, experimentID string) (experiment.Experiment, error) {
	return svc.experimentsDB.Get(ctx, experimentID)
}

func (svc *service) ListExperiments(ctx context.Context, offset, limit uint64) (experiment.ExperimentPage, error) {
	exps, total, err := svc.experimentsDB.List(ctx, offset, limit)
	if err != nil {
		return experiment.ExperimentPage{}, err
	}

	return experiment.ExperimentPage{
		Offset:      offset,
		Limit:       limit,
		Total:       total,
		Experiments: exps,
	}, nil
}

func (svc *service) DeleteExperiment(ctx context.Context, experimentID string) error {
	svc.mu.Lock()
	for _, a := range svc.active {
		if a.experimentID == experimentID {
			svc.mu.Unlock()

			return errors.ErrRunActive
		}
	}
	svc.mu.Unlock()

	return svc.experimentsDB.Delete(ctx, experimentID)
}

func (svc *service) StartRun(ctx context.Context, experimentID string) (experiment.Run, error) {
	exp, err := svc.experimentsDB.Get(ctx, experimentID)
	if err != nil {
		return experiment.Run{}, err
	}

	run := experiment.Run{
		ID:           uuid.NewString(),
		ExperimentID: exp.ID,
		Name:         namegen.Generate(),
		State:        experiment.Pending,
		Seed:         exp.Seed,
		CreatedAt:    time.Now(),
	}
	run.UpdatedAt = run.CreatedAt

	hist, err := history.New(filepath.Join(svc.historyRoot, run.ID), exp.Strategy.SampleWidth, exp.Seed)
	if err != nil {
		return experiment.Run{}, err
	}
	// A fresh run never reuses a previous run's recorded rounds.
	if err := hist.Reset(); err != nil {
		return experiment.Run{}, err
	}

	engine, err := NewEngine(exp, hist, svc.logger)
	if err != nil {
		return experiment.Run{}, err
	}

	run, err = svc.runsDB.Create(ctx, run)
	if err != nil {
		return experiment.Run{}, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	svc.mu.Lock()
	svc.active[run.ID] = activeRun{cancel: cancel, experimentID: exp.ID}
	svc.mu.Unlock()

	go svc.execute(runCtx, exp, run, engine)

	return run, nil
}

// execute owns the run's state transitions from start to finish. The caller's
// request context is already detached, so the run outlives the HTTP request
// and stops only on StopRun or completion.
func (svc *service) execute(ctx context.Context, exp experiment.Experiment, run experiment.Run, engine *Engine) {
	defer func() {
		svc.mu.Lock()
		delete(svc.active, run.ID)
		svc.mu.Unlock()
	}()

	run.State = experiment.Running
	run.StartTime = time.Now()
	run.UpdatedAt = run.StartTime
	if err := svc.runsDB.Update(ctx, run); err != nil {
		svc.logger.Error("Failed to mark run as running", slog.String("run_id", run.ID), slog.Any("error", err))

		return
	}

	records := make([]experiment.RoundRecord, 0, exp.NumRounds)
	hook := func(hctx context.Context, rec experiment.RoundRecord) error {
		if err := svc.metricsDB.CreateRoundMetrics(hctx, rec); err != nil {
			return err
		}
		if err := svc.reporter.Append(exp, run, rec); err != nil {
			return err
		}
		records = append(records, rec)

		run.Round = rec.Round
		run.UpdatedAt = time.Now()

		return svc.runsDB.Update(hctx, run)
	}

	err := engine.Run(ctx, run.ID, hook)

	run.FinishTime = time.Now()
	run.UpdatedAt = run.FinishTime
	switch {
	case err == nil:
		run.State = experiment.Completed
		if perr := svc.reporter.Plot(run.ID, records); perr != nil {
			svc.logger.Warn("Failed to plot run curves", slog.String("run_id", run.ID), slog.Any("error", perr))
		}
	case ctx.Err() != nil:
		run.State = experiment.Stopped
	default:
		run.State = experiment.Failed
		run.Error = err.Error()
	}

	// The run context may already be canceled; state still has to land.
	if uerr := svc.runsDB.Update(context.WithoutCancel(ctx), run); uerr != nil {
		svc.logger.Error("Failed to finalize run", slog.String("run_id", run.ID), slog.Any("error", uerr))
	}

	if err != nil {
		svc.logger.Warn("Run finished with error",
			slog.String("run_id", run.ID),
			slog.String("state", run.State.String()),
			slog.Any("error", err),
		)

		return
	}
	svc.logger.Info("Run completed",
		slog.String("run_id", run.ID),
		slog.Int("rounds", exp.NumRounds),
	)
}

func (svc *service) GetRun(ctx context.Context, runID string) (experiment.Run, error) {
	return svc.runsDB.Get(ctx, runID)
}

func (svc *service) ListRuns(ctx context.Context, offset, limit uint64) (experiment.RunPage, error) {
	runs, total, err := svc.runsDB.List(ctx, offset, limit)
	if err != nil {
		return experiment.RunPage{}, err
	}

	return experiment.RunPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Runs:   runs,
	}, nil
}

func (svc *service) StopRun(ctx context.Context, runID string) error {
	svc.mu.Lock()
	a, ok := svc.active[runID]
	svc.mu.Unlock()

	if ok {
		a.cancel()

		return nil
	}

	run, err := svc.runsDB.Get(ctx, runID)
	if err != nil {
		return err
	}
	switch run.State {
	case experiment.Completed, experiment.Failed, experiment.Stopped:
		return errors.ErrRunFinished
	default:
		return errors.ErrNotFound
	}
}

func (svc *service) ListRounds(ctx context.Context, runID string, offset, limit uint64) (experiment.RoundPage, error) {
	if _, err := svc.runsDB.Get(ctx, runID); err != nil {
		return experiment.RoundPage{}, err
	}

	recs, total, err := svc.metricsDB.ListRoundMetrics(ctx, runID, offset, limit)
	if err != nil {
		return experiment.RoundPage{}, err
	}

	return experiment.RoundPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Rounds: recs,
	}, nil
}
