package testutil

import (
	"time"

	"github.com/rampart-fl/rampart/experiment"
)

func TestExperiment(id string) experiment.Experiment {
	exp := experiment.Experiment{
		ID:        id,
		Name:      "test-experiment-" + id,
		Dataset:   "synthetic",
		PoolSize:  10,
		NumRounds: 5,
		Seed:      42,
		Strategy:  experiment.StrategyParams{Name: "fedavg"},
		Attack:    experiment.AttackParams{Name: "na"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	exp.Normalize()

	return exp
}

func TestRun(id, experimentID string) experiment.Run {
	return experiment.Run{
		ID:           id,
		ExperimentID: experimentID,
		Name:         "test-run-" + id,
		State:        experiment.Pending,
		Seed:         42,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestRoundRecord(runID string, round int) experiment.RoundRecord {
	return experiment.RoundRecord{
		RunID:        runID,
		Round:        round,
		MaliciousIDs: []string{"client-0"},
		KeptIndices:  []int{1, 2, 3},
		Metrics: experiment.Metrics{
			Loss:     0.35,
			Accuracy: 0.87,
			AUC:      0.91,
			TP:       210,
			TN:       235,
			FP:       30,
			FN:       37,
		},
		CreatedAt: time.Now(),
	}
}
