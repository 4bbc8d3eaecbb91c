package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/aggregate"
	"github.com/rampart-fl/rampart/pkg/attack"
	"github.com/rampart-fl/rampart/pkg/history"
	"github.com/rampart-fl/rampart/pkg/vector"
	"github.com/rampart-fl/rampart/trainer"
	"golang.org/x/sync/errgroup"
)

// State is the engine's position inside one federated round.
type State uint8

const (
	Idle State = iota
	Sampling
	Fitting
	Attacking
	Aggregating
	Evaluating
	Persisting
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Fitting:
		return "fitting"
	case Attacking:
		return "attacking"
	case Aggregating:
		return "aggregating"
	case Evaluating:
		return "evaluating"
	case Persisting:
		return "persisting"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// RoundHook observes every completed round record before the next round
// starts. A hook error aborts the run.
type RoundHook func(ctx context.Context, rec experiment.RoundRecord) error

// Engine steps a single run through its rounds. It is not safe for
// concurrent use; the service creates one engine per run.
type Engine struct {
	exp       experiment.Experiment
	clients   []trainer.Client
	evaluator *trainer.Evaluator
	template  vector.Template
	strategy  aggregate.Strategy
	injector  attack.Injector
	hist      *history.Store
	rng       *rand.Rand
	logger    *slog.Logger

	state  State
	global vector.Vector
}

// NewEngine wires an experiment into a runnable engine: client pool,
// aggregation strategy, attack injector and the run's history store. The
// global model starts at zero parameters.
func NewEngine(exp experiment.Experiment, hist *history.Store, logger *slog.Logger) (*Engine, error) {
	clients, evaluator, template, err := trainer.NewPool(exp)
	if err != nil {
		return nil, err
	}

	maliciousIdx := make([]int, exp.Attack.NumMalicious)
	for i := range maliciousIdx {
		maliciousIdx[i] = i
	}

	strategy, err := aggregate.New(exp.Strategy.Name, aggregate.Config{
		NumMalicious: exp.Attack.NumMalicious,
		NumToKeep:    exp.Strategy.NumToKeep,
		TrimRatio:    exp.Strategy.TrimRatio,
		NumIters:     exp.Strategy.NumIters,
		SampleWidth:  exp.Strategy.SampleWidth,
		Multiplier:   exp.Strategy.Multiplier,
		Window:       exp.WarmupRounds,
		Threshold:    exp.Strategy.Threshold,
		Omniscient:   exp.Strategy.Omniscient,
		MaliciousIDs: maliciousIdx,
	}, hist)
	if err != nil {
		return nil, err
	}

	injector, err := attack.New(exp.Attack.Name, attack.Config{
		Magnitude: exp.Attack.Magnitude,
		MaxIters:  exp.Attack.MaxIters,
		Tolerance: exp.Attack.Tolerance,
		Direction: exp.Attack.Direction,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		exp:       exp,
		clients:   clients,
		evaluator: evaluator,
		template:  template,
		strategy:  strategy,
		injector:  injector,
		hist:      hist,
		rng:       rand.New(rand.NewSource(exp.Seed)),
		logger:    logger,
		state:     Idle,
		global:    make(vector.Vector, template.Size()),
	}, nil
}

func (e *Engine) State() State {
	return e.state
}

// Global returns the current global parameters.
func (e *Engine) Global() vector.Vector {
	return e.global.Clone()
}

// Run plays every round of the experiment in order. Any round error is
// fatal: the engine terminates without aggregating a partial result.
func (e *Engine) Run(ctx context.Context, runID string, hook RoundHook) error {
	defer e.transition(Terminated)

	for round := 0; round < e.exp.NumRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		began := time.Now()
		rec, err := e.step(ctx, runID, round)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}

		e.logger.Info("Round completed",
			slog.String("run_id", runID),
			slog.Int("round", round),
			slog.Float64("loss", rec.Metrics.Loss),
			slog.Float64("accuracy", rec.Metrics.Accuracy),
			slog.Int("kept", len(rec.KeptIndices)),
			slog.String("duration", time.Since(began).String()),
		)

		if hook != nil {
			if err := hook(ctx, rec); err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
		}
	}

	return nil
}

func (e *Engine) step(ctx context.Context, runID string, round int) (experiment.RoundRecord, error) {
	e.transition(Sampling)
	sampled := e.sample()

	e.transition(Fitting)
	updates, err := e.fit(ctx, sampled)
	if err != nil {
		return experiment.RoundRecord{}, err
	}

	e.transition(Attacking)
	maliciousIDs, err := e.attack(round, sampled, updates)
	if err != nil {
		return experiment.RoundRecord{}, err
	}

	e.transition(Aggregating)
	agg := make([]aggregate.Update, len(updates))
	for i, u := range updates {
		agg[i] = aggregate.Update{Vector: u.Vector, Weight: u.NumExamples}
	}
	res, err := e.strategy.Aggregate(round, agg, e.rng)
	if err != nil {
		return experiment.RoundRecord{}, err
	}

	e.transition(Evaluating)
	metrics, err := e.evaluator.Evaluate(ctx, res.Vector)
	if err != nil {
		return experiment.RoundRecord{}, err
	}

	e.transition(Persisting)
	rec := experiment.RoundRecord{
		RunID:        runID,
		Round:        round,
		Updates:      updates,
		MaliciousIDs: maliciousIDs,
		KeptIndices:  res.Kept,
		Aggregated:   res.Vector,
		Metrics:      metrics,
		CreatedAt:    time.Now(),
	}
	if err := e.hist.Append(rec); err != nil {
		return experiment.RoundRecord{}, err
	}
	e.global = res.Vector

	return rec, nil
}

// sample picks this round's participants. The malicious set is fixed by
// client index, so membership survives sampling.
func (e *Engine) sample() []int {
	count := int(e.exp.Sampling * float64(len(e.clients)))
	if count >= len(e.clients) || count < 1 {
		picked := make([]int, len(e.clients))
		for i := range picked {
			picked[i] = i
		}

		return picked
	}

	picked := e.rng.Perm(len(e.clients))[:count]
	sort.Ints(picked)

	return picked
}

func (e *Engine) fit(ctx context.Context, sampled []int) ([]experiment.Update, error) {
	cfg := trainer.FitConfig{
		Epochs:    e.exp.Epochs,
		BatchSize: e.exp.BatchSize,
	}

	updates := make([]experiment.Update, len(sampled))
	g, gctx := errgroup.WithContext(ctx)
	for i, idx := range sampled {
		g.Go(func() error {
			u, err := e.clients[idx].Fit(gctx, e.global.Clone(), cfg)
			if err != nil {
				return err
			}
			flat, err := vector.Flatten(u.Layers, e.template)
			if err != nil {
				return err
			}
			updates[i] = experiment.Update{
				ClientID:    u.ClientID,
				Vector:      flat,
				NumExamples: u.NumExamples,
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return updates, nil
}

// attack replaces the sampled malicious clients' updates with crafted ones.
// Warmup rounds run clean so every detector sees the same honest history.
func (e *Engine) attack(round int, sampled []int, updates []experiment.Update) ([]string, error) {
	var malicious []string
	var positions []int
	for i, idx := range sampled {
		if idx < e.exp.Attack.NumMalicious {
			malicious = append(malicious, updates[i].ClientID)
			positions = append(positions, i)
		}
	}

	if len(positions) == 0 || round < e.exp.WarmupRounds {
		return malicious, nil
	}

	r := attack.Round{
		Honest:    make([]vector.Vector, 0, len(updates)-len(positions)),
		Malicious: make([]vector.Vector, 0, len(positions)),
	}
	for i, u := range updates {
		if len(r.Malicious) < len(positions) && positions[len(r.Malicious)] == i {
			r.Malicious = append(r.Malicious, u.Vector)
		} else {
			r.Honest = append(r.Honest, u.Vector)
		}
	}

	crafted, err := e.injector.Craft(r, e.rng)
	if err != nil {
		return nil, err
	}
	for k, i := range positions {
		updates[i].Vector = crafted[k]
	}

	return malicious, nil
}

func (e *Engine) transition(next State) {
	e.state = next
	e.logger.Debug("Engine state changed", slog.String("state", next.String()))
}
