package coordinator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/experiment"
	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/storage"
	"github.com/rampart-fl/rampart/report"
)

func newTestService(t *testing.T) (coordinator.Service, string) {
	t.Helper()

	repos, err := storage.NewRepositories(storage.Config{Type: "memory"})
	require.NoError(t, err)

	reportRoot := t.TempDir()
	reporter, err := report.NewWriter(reportRoot)
	require.NoError(t, err)

	svc := coordinator.NewService(repos.Experiments, repos.Runs, repos.Metrics, reporter, t.TempDir(), testLogger())

	return svc, reportRoot
}

func smallExperiment() experiment.Experiment {
	return experiment.Experiment{
		Name:      "svc-test",
		PoolSize:  3,
		NumRounds: 2,
		Seed:      42,
		Strategy:  experiment.StrategyParams{Name: "fedavg"},
		Attack:    experiment.AttackParams{Name: "na"},
	}
}

func TestCreateExperiment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	overloaded := smallExperiment()
	overloaded.Attack.NumMalicious = 5

	unknownStrategy := smallExperiment()
	unknownStrategy.Strategy.Name = "paxos"

	unknownAttack := smallExperiment()
	unknownAttack.Attack.Name = "meteor"

	cases := []struct {
		desc string
		exp  experiment.Experiment
		err  error
	}{
		{
			desc: "valid experiment",
			exp:  smallExperiment(),
			err:  nil,
		},
		{
			desc: "unknown strategy",
			exp:  unknownStrategy,
			err:  pkgerrors.ErrUnknownStrategy,
		},
		{
			desc: "unknown attack",
			exp:  unknownAttack,
			err:  pkgerrors.ErrUnknownAttack,
		},
		{
			desc: "more malicious clients than the pool",
			exp:  overloaded,
			err:  pkgerrors.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			created, err := svc.CreateExperiment(ctx, tc.exp)
			assert.ErrorIs(t, err, tc.err)
			if tc.err == nil {
				assert.NotEmpty(t, created.ID)
				assert.False(t, created.CreatedAt.IsZero())
				assert.Equal(t, "synthetic", created.Dataset)
				assert.Equal(t, 3, created.Strategy.NumToKeep)
			}
		})
	}
}

func TestGetExperiment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateExperiment(ctx, smallExperiment())
	require.NoError(t, err)

	retrieved, err := svc.GetExperiment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, retrieved)

	_, err = svc.GetExperiment(ctx, "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestListExperiments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateExperiment(ctx, smallExperiment())
		require.NoError(t, err)
	}

	page, err := svc.ListExperiments(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Experiments, 3)
	assert.Equal(t, uint64(0), page.Offset)
	assert.Equal(t, uint64(10), page.Limit)

	page, err = svc.ListExperiments(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Experiments, 2)
}

func TestDeleteExperiment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateExperiment(ctx, smallExperiment())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExperiment(ctx, created.ID))
	_, err = svc.GetExperiment(ctx, created.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	// Deleting an already removed experiment is not an error.
	assert.NoError(t, svc.DeleteExperiment(ctx, created.ID))
}

func TestRunLifecycle(t *testing.T) {
	svc, reportRoot := newTestService(t)
	ctx := context.Background()

	exp, err := svc.CreateExperiment(ctx, smallExperiment())
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, exp.ID, run.ExperimentID)
	assert.NotEmpty(t, run.Name)
	assert.Equal(t, exp.Seed, run.Seed)

	require.Eventually(t, func() bool {
		r, err := svc.GetRun(ctx, run.ID)

		return err == nil && r.State == experiment.Completed
	}, 30*time.Second, 10*time.Millisecond)

	finished, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.Completed, finished.State)
	assert.Equal(t, 1, finished.Round)
	assert.Empty(t, finished.Error)
	assert.False(t, finished.StartTime.IsZero())
	assert.False(t, finished.FinishTime.IsZero())

	page, err := svc.ListRounds(ctx, run.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), page.Total)
	require.Len(t, page.Rounds, 2)
	for i, rec := range page.Rounds {
		assert.Equal(t, i, rec.Round)
		assert.Equal(t, run.ID, rec.RunID)
		// Listings carry summaries only, not the vector payloads.
		assert.Nil(t, rec.Updates)
		assert.Nil(t, rec.Aggregated)
	}

	runs, err := svc.ListRuns(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), runs.Total)

	// Round rows and curves land under the run's report directory.
	_, err = os.Stat(filepath.Join(reportRoot, run.ID, "results.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(reportRoot, run.ID, "accuracy.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(reportRoot, "all_results.csv"))
	assert.NoError(t, err)
}

func TestStartRunUnknownExperiment(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.StartRun(context.Background(), "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestStopRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	def := smallExperiment()
	def.NumRounds = 100000
	exp, err := svc.CreateExperiment(ctx, def)
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, exp.ID)
	require.NoError(t, err)

	require.NoError(t, svc.StopRun(ctx, run.ID))

	require.Eventually(t, func() bool {
		r, err := svc.GetRun(ctx, run.ID)

		return err == nil && r.State == experiment.Stopped
	}, 30*time.Second, 10*time.Millisecond)

	err = svc.StopRun(ctx, run.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrRunFinished)

	err = svc.StopRun(ctx, "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestDeleteExperimentWithActiveRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	def := smallExperiment()
	def.NumRounds = 100000
	exp, err := svc.CreateExperiment(ctx, def)
	require.NoError(t, err)

	run, err := svc.StartRun(ctx, exp.ID)
	require.NoError(t, err)

	err = svc.DeleteExperiment(ctx, exp.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrRunActive)

	require.NoError(t, svc.StopRun(ctx, run.ID))

	// Deletion succeeds once the run has fully wound down.
	require.Eventually(t, func() bool {
		return svc.DeleteExperiment(ctx, exp.ID) == nil
	}, 30*time.Second, 10*time.Millisecond)

	_, err = svc.GetExperiment(ctx, exp.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestListRoundsUnknownRun(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListRounds(context.Background(), "missing", 0, 10)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
