package trainer_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/pkg/vector"
	"github.com/rampart-fl/rampart/trainer"
)

// saturating puts every score at exactly 0 or 1 so the confusion counts are
// fixed by construction.
func saturating(labels []int, predictions []int) trainer.Dataset {
	d := trainer.Dataset{
		X: make([][]float64, len(labels)),
		Y: labels,
	}
	for i, p := range predictions {
		x := -31.0
		if p == 1 {
			x = 31
		}
		d.X[i] = []float64{x}
	}

	return d
}

func TestEvaluateConfusionCounts(t *testing.T) {
	data := saturating(
		[]int{1, 0, 0, 1},
		[]int{1, 0, 1, 0},
	)
	eval := trainer.NewEvaluator(data)

	m, err := eval.Evaluate(context.Background(), vector.Vector{1, 0})
	require.NoError(t, err)

	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 1, m.TN)
	assert.Equal(t, 1, m.FP)
	assert.Equal(t, 1, m.FN)
	assert.InDelta(t, 0.5, m.Accuracy, 1e-12)
	assert.InDelta(t, 0.5, m.AUC, 1e-12)

	// The two misclassified examples pay the clamped log loss, the other two
	// pay nearly nothing.
	wrong := -math.Log(1e-12)
	assert.InDelta(t, wrong/2, m.Loss, 1e-6)
}

func TestEvaluatePerfectClassifier(t *testing.T) {
	data := saturating(
		[]int{1, 0, 1, 0},
		[]int{1, 0, 1, 0},
	)
	eval := trainer.NewEvaluator(data)

	m, err := eval.Evaluate(context.Background(), vector.Vector{1, 0})
	require.NoError(t, err)

	assert.Equal(t, 2, m.TP)
	assert.Equal(t, 2, m.TN)
	assert.Equal(t, 0, m.FP)
	assert.Equal(t, 0, m.FN)
	assert.InDelta(t, 1.0, m.Accuracy, 1e-12)
	assert.InDelta(t, 1.0, m.AUC, 1e-12)
	assert.Less(t, m.Loss, 1e-6)
}

func TestEvaluateSingleClassAUC(t *testing.T) {
	data := saturating(
		[]int{1, 1, 1},
		[]int{1, 0, 1},
	)
	eval := trainer.NewEvaluator(data)

	m, err := eval.Evaluate(context.Background(), vector.Vector{1, 0})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, m.AUC, 1e-12)
}

func TestEvaluateTiedScores(t *testing.T) {
	// A zero model scores every example at one half; ties count half, so the
	// statistic stays at chance level.
	data := trainer.Dataset{
		X: [][]float64{{1}, {2}, {3}, {4}},
		Y: []int{1, 0, 1, 0},
	}
	eval := trainer.NewEvaluator(data)

	m, err := eval.Evaluate(context.Background(), vector.Vector{0, 0})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, m.AUC, 1e-12)
	assert.InDelta(t, math.Log(2), m.Loss, 1e-9)
}

func TestEvaluateCancelledContext(t *testing.T) {
	eval := trainer.NewEvaluator(saturating([]int{1}, []int{1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eval.Evaluate(ctx, vector.Vector{1, 0})
	assert.ErrorIs(t, err, context.Canceled)
}
