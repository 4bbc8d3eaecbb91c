package report_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/report"
)

func reportExperiment(strategy string) experiment.Experiment {
	return experiment.Experiment{
		Name:     "report-test",
		Dataset:  "income",
		Strategy: experiment.StrategyParams{Name: strategy},
		Attack:   experiment.AttackParams{Name: "lie", NumMalicious: 2},
	}
}

func reportRecord(round int) experiment.RoundRecord {
	return experiment.RoundRecord{
		RunID: "run-1",
		Round: round,
		Metrics: experiment.Metrics{
			Loss:     0.25,
			Accuracy: 0.5,
			AUC:      0.75,
			TP:       10,
			TN:       11,
			FP:       12,
			FN:       13,
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	return rows
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	root := t.TempDir()
	w, err := report.NewWriter(root)
	require.NoError(t, err)

	exp := reportExperiment("krum")
	run := experiment.Run{ID: "run-1"}

	require.NoError(t, w.Append(exp, run, reportRecord(0)))
	require.NoError(t, w.Append(exp, run, reportRecord(1)))

	rows := readCSV(t, filepath.Join(root, "run-1", "results.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"round", "loss", "accuracy", "auc",
		"TP", "TN", "FP", "FN",
		"attack_fn", "dataset_name", "num_malicious", "strategy", "aggregate_fn",
	}, rows[0])
	assert.Equal(t, []string{"0", "0.25", "0.5", "0.75", "10", "11", "12", "13", "lie", "income", "2", "krum", "fedavg"}, rows[1])
	assert.Equal(t, "1", rows[2][0])

	shared := readCSV(t, filepath.Join(root, "all_results.csv"))
	assert.Len(t, shared, 3)
	assert.Equal(t, rows[0], shared[0])
}

func TestAppendSharedFileCollectsRuns(t *testing.T) {
	root := t.TempDir()
	w, err := report.NewWriter(root)
	require.NoError(t, err)

	exp := reportExperiment("fedavg")
	require.NoError(t, w.Append(exp, experiment.Run{ID: "run-a"}, reportRecord(0)))
	require.NoError(t, w.Append(exp, experiment.Run{ID: "run-b"}, reportRecord(0)))

	assert.Len(t, readCSV(t, filepath.Join(root, "run-a", "results.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(root, "run-b", "results.csv")), 2)
	// One header, then one row per run.
	assert.Len(t, readCSV(t, filepath.Join(root, "all_results.csv")), 3)
}

func TestAppendCombineColumn(t *testing.T) {
	cases := []struct {
		strategy string
		combine  string
	}{
		{strategy: "fedavg", combine: "fedavg"},
		{strategy: "krum", combine: "fedavg"},
		{strategy: "dnc", combine: "fedavg"},
		{strategy: "flanders", combine: "fedavg"},
		{strategy: "trimmedmean", combine: "trimmedmean"},
		{strategy: "fedmedian", combine: "fedmedian"},
		{strategy: "bulyan", combine: "trimmedmean"},
	}

	root := t.TempDir()
	w, err := report.NewWriter(root)
	require.NoError(t, err)

	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			run := experiment.Run{ID: "run-" + tc.strategy}
			require.NoError(t, w.Append(reportExperiment(tc.strategy), run, reportRecord(0)))

			rows := readCSV(t, filepath.Join(root, run.ID, "results.csv"))
			require.Len(t, rows, 2)
			assert.Equal(t, tc.strategy, rows[1][11])
			assert.Equal(t, tc.combine, rows[1][12])
		})
	}
}

func TestPlotWritesCurves(t *testing.T) {
	root := t.TempDir()
	w, err := report.NewWriter(root)
	require.NoError(t, err)

	recs := []experiment.RoundRecord{reportRecord(0), reportRecord(1), reportRecord(2)}
	require.NoError(t, w.Plot("run-1", recs))

	for _, file := range []string{"accuracy.png", "loss.png"} {
		info, err := os.Stat(filepath.Join(root, "run-1", file))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestPlotNoRecords(t *testing.T) {
	root := t.TempDir()
	w, err := report.NewWriter(root)
	require.NoError(t, err)

	require.NoError(t, w.Plot("run-1", nil))

	_, err = os.Stat(filepath.Join(root, "run-1"))
	assert.True(t, os.IsNotExist(err))
}
