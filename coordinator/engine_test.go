package coordinator_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/experiment"
	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/history"
	"github.com/rampart-fl/rampart/pkg/vector"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func engineExperiment(strategy experiment.StrategyParams, atk experiment.AttackParams) experiment.Experiment {
	exp := experiment.Experiment{
		Name:      "engine-test",
		PoolSize:  4,
		NumRounds: 3,
		Seed:      42,
		Strategy:  strategy,
		Attack:    atk,
	}
	exp.Normalize()

	return exp
}

func runEngine(t *testing.T, exp experiment.Experiment) (*coordinator.Engine, []experiment.RoundRecord, *history.Store) {
	t.Helper()

	hist, err := history.New(t.TempDir(), exp.Strategy.SampleWidth, exp.Seed)
	require.NoError(t, err)

	engine, err := coordinator.NewEngine(exp, hist, testLogger())
	require.NoError(t, err)

	var recs []experiment.RoundRecord
	hook := func(_ context.Context, rec experiment.RoundRecord) error {
		recs = append(recs, rec)

		return nil
	}
	require.NoError(t, engine.Run(context.Background(), "run-1", hook))

	return engine, recs, hist
}

func maxAbs(v vector.Vector) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}

	return m
}

func TestEngineRunCompletesAllRounds(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "fedavg"},
		experiment.AttackParams{Name: "na"},
	)

	engine, recs, hist := runEngine(t, exp)

	assert.Equal(t, coordinator.Terminated, engine.State())
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, "run-1", rec.RunID)
		assert.Equal(t, i, rec.Round)
		assert.Len(t, rec.Updates, 4)
		assert.Empty(t, rec.MaliciousIDs)
		// FedAvg keeps every client.
		assert.Equal(t, []int{0, 1, 2, 3}, rec.KeptIndices)
		// Synthetic dataset: 20 weights plus the bias.
		assert.Len(t, rec.Aggregated, 21)
		assert.Greater(t, rec.Metrics.Loss, 0.0)
		assert.GreaterOrEqual(t, rec.Metrics.Accuracy, 0.0)
		assert.LessOrEqual(t, rec.Metrics.Accuracy, 1.0)
		assert.Equal(t, 512, rec.Metrics.TP+rec.Metrics.TN+rec.Metrics.FP+rec.Metrics.FN)
	}

	assert.Equal(t, recs[2].Aggregated, engine.Global())

	rounds, err := hist.Rounds()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, rounds)
}

func TestEngineDeterministicAcrossRuns(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "krum", NumToKeep: 2},
		experiment.AttackParams{Name: "gaussian", NumMalicious: 1, Magnitude: 0.5},
	)
	exp.WarmupRounds = 1
	exp.NumRounds = 2
	exp.Seed = 7

	_, first, _ := runEngine(t, exp)
	_, second, _ := runEngine(t, exp)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].KeptIndices, second[i].KeptIndices)
		assert.Equal(t, first[i].Aggregated, second[i].Aggregated)
		assert.Equal(t, first[i].Metrics, second[i].Metrics)
	}
}

func TestEngineAttackStartsAfterWarmup(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "fedavg"},
		experiment.AttackParams{Name: "gaussian", NumMalicious: 1, Magnitude: 1e6},
	)
	exp.WarmupRounds = 1
	exp.NumRounds = 2

	_, recs, _ := runEngine(t, exp)
	require.Len(t, recs, 2)

	// The malicious client is listed from round zero but submits honest
	// updates until warmup has passed.
	assert.Equal(t, []string{"client-0"}, recs[0].MaliciousIDs)
	assert.Equal(t, "client-0", recs[0].Updates[0].ClientID)
	assert.Less(t, maxAbs(recs[0].Updates[0].Vector), 1e2)

	assert.Equal(t, []string{"client-0"}, recs[1].MaliciousIDs)
	assert.Greater(t, maxAbs(recs[1].Updates[0].Vector), 1e3)
	for _, u := range recs[1].Updates[1:] {
		assert.Less(t, maxAbs(u.Vector), 1e2)
	}
}

func TestEngineKrumExcludesNoisyClient(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "krum", NumToKeep: 3},
		experiment.AttackParams{Name: "gaussian", NumMalicious: 1, Magnitude: 1e6},
	)
	exp.PoolSize = 5
	exp.WarmupRounds = 1
	exp.NumRounds = 2
	exp.Normalize()

	_, recs, _ := runEngine(t, exp)
	require.Len(t, recs, 2)

	require.Len(t, recs[1].KeptIndices, 3)
	assert.NotContains(t, recs[1].KeptIndices, 0)
}

func TestEngineFlandersWarmupThenFiltering(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "flanders", NumToKeep: 3},
		experiment.AttackParams{Name: "na"},
	)
	exp.WarmupRounds = 1

	_, recs, hist := runEngine(t, exp)
	require.Len(t, recs, 3)

	// Warmup rounds keep everyone; once history exists the detector keeps
	// only the configured count.
	assert.Len(t, recs[0].KeptIndices, 4)
	assert.Len(t, recs[1].KeptIndices, 3)
	assert.Len(t, recs[2].KeptIndices, 3)

	rounds, err := hist.Rounds()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, rounds)
}

func TestEngineCancelledContext(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "fedavg"},
		experiment.AttackParams{Name: "na"},
	)

	hist, err := history.New(t.TempDir(), 0, exp.Seed)
	require.NoError(t, err)
	engine, err := coordinator.NewEngine(exp, hist, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rounds int
	err = engine.Run(ctx, "run-1", func(context.Context, experiment.RoundRecord) error {
		rounds++

		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rounds)
	assert.Equal(t, coordinator.Terminated, engine.State())
}

func TestNewEngineUnknownStrategy(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "paxos"},
		experiment.AttackParams{Name: "na"},
	)

	hist, err := history.New(t.TempDir(), 0, exp.Seed)
	require.NoError(t, err)

	_, err = coordinator.NewEngine(exp, hist, testLogger())
	assert.ErrorIs(t, err, pkgerrors.ErrUnknownStrategy)
}

func TestNewEngineUnknownAttack(t *testing.T) {
	exp := engineExperiment(
		experiment.StrategyParams{Name: "fedavg"},
		experiment.AttackParams{Name: "meteor"},
	)

	hist, err := history.New(t.TempDir(), 0, exp.Seed)
	require.NoError(t, err)

	_, err = coordinator.NewEngine(exp, hist, testLogger())
	assert.ErrorIs(t, err, pkgerrors.ErrUnknownAttack)
}
