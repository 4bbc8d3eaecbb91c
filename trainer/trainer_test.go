package trainer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
	"github.com/rampart-fl/rampart/trainer"
)

func TestSynthesizeDeterministic(t *testing.T) {
	a := trainer.Synthesize(100, 5, 42)
	b := trainer.Synthesize(100, 5, 42)
	c := trainer.Synthesize(100, 5, 43)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	positives := 0
	for _, y := range a.Y {
		if y == 1 {
			positives++
		}
	}
	assert.Equal(t, 50, positives)
}

func TestFeatures(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"synthetic", 20},
		{"income", 14},
		{"house", 17},
		{"never-heard-of-it", 20},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, trainer.Features(tc.name))
	}
}

func TestPartition(t *testing.T) {
	data := trainer.Synthesize(10, 2, 1)
	shards := data.Partition(3)

	require.Len(t, shards, 3)
	assert.Equal(t, 3, shards[0].Len())
	assert.Equal(t, 3, shards[1].Len())
	assert.Equal(t, 4, shards[2].Len())

	total := 0
	for _, s := range shards {
		total += s.Len()
	}
	assert.Equal(t, data.Len(), total)
	assert.Equal(t, data.X[0], shards[0].X[0])
	assert.Equal(t, data.X[9], shards[2].X[3])
}

func TestModelFlatRoundTrip(t *testing.T) {
	m := trainer.NewModel(3)
	flat := vector.Vector{0.5, -1, 2, 0.25}
	require.NoError(t, m.SetFlat(flat))

	assert.Equal(t, []float64{0.5, -1, 2}, m.Weights)
	assert.Equal(t, 0.25, m.Bias)

	back, err := vector.Flatten(m.Layers(), trainer.Template(3))
	require.NoError(t, err)
	assert.Equal(t, flat, back)
}

func TestModelSetFlatDimensionMismatch(t *testing.T) {
	m := trainer.NewModel(3)
	err := m.SetFlat(vector.Vector{1, 2})
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

func TestModelPredict(t *testing.T) {
	m := trainer.NewModel(2)
	require.NoError(t, m.SetFlat(vector.Vector{1, 0, 0}))

	cases := []struct {
		desc string
		x    []float64
		want float64
	}{
		{"zero input sits on the boundary", []float64{0, 0}, 0.5},
		{"large positive saturates", []float64{31, 0}, 1},
		{"large negative saturates", []float64{-31, 0}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			p, err := m.Predict(tc.x)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, p, 1e-12)
		})
	}

	_, err := m.Predict([]float64{1})
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

func TestClientFitImprovesOnZeroModel(t *testing.T) {
	data := trainer.Synthesize(128, 5, 3)
	client := trainer.NewClient("client-0", data)
	zero := make(vector.Vector, 6)

	before, err := client.Evaluate(context.Background(), zero)
	require.NoError(t, err)
	assert.InDelta(t, 0.6931, before["loss"], 1e-3)

	up, err := client.Fit(context.Background(), zero, trainer.FitConfig{Epochs: 5, BatchSize: 32})
	require.NoError(t, err)

	assert.Equal(t, "client-0", up.ClientID)
	assert.Equal(t, int64(128), up.NumExamples)
	require.Len(t, up.Layers, 2)
	assert.Len(t, up.Layers[0], 5)
	assert.Len(t, up.Layers[1], 1)
	assert.Contains(t, up.Metrics, "train_loss")

	// Fit trains a copy, never the passed-in parameters.
	assert.Equal(t, make(vector.Vector, 6), zero)

	fitted, err := vector.Flatten(up.Layers, trainer.Template(5))
	require.NoError(t, err)
	after, err := client.Evaluate(context.Background(), fitted)
	require.NoError(t, err)

	assert.Less(t, after["loss"], before["loss"])
	assert.Greater(t, after["accuracy"], 0.7)
}

func TestClientFitDeterministicAcrossPools(t *testing.T) {
	exp := experiment.Experiment{Dataset: "synthetic", PoolSize: 3, Seed: 11}

	first, _, tmpl, err := trainer.NewPool(exp)
	require.NoError(t, err)
	second, _, _, err := trainer.NewPool(exp)
	require.NoError(t, err)

	zero := make(vector.Vector, tmpl.Size())
	cfg := trainer.FitConfig{Epochs: 1, BatchSize: 16}

	a, err := first[0].Fit(context.Background(), zero, cfg)
	require.NoError(t, err)
	b, err := second[0].Fit(context.Background(), zero, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Layers, b.Layers)
}

func TestClientFitEmptyShard(t *testing.T) {
	client := trainer.NewClient("client-0", trainer.Dataset{})

	_, err := client.Fit(context.Background(), vector.Vector{0}, trainer.FitConfig{})
	assert.ErrorIs(t, err, errors.ErrInvalidData)

	_, err = client.Evaluate(context.Background(), vector.Vector{0})
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestClientFitCancelledContext(t *testing.T) {
	data := trainer.Synthesize(16, 2, 1)
	client := trainer.NewClient("client-0", data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fit(ctx, make(vector.Vector, 3), trainer.FitConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPool(t *testing.T) {
	exp := experiment.Experiment{Dataset: "synthetic", PoolSize: 4, Seed: 5}

	clients, eval, tmpl, err := trainer.NewPool(exp)
	require.NoError(t, err)

	require.Len(t, clients, 4)
	for i, c := range clients {
		assert.Equal(t, []string{"client-0", "client-1", "client-2", "client-3"}[i], c.ID())
	}
	assert.NotNil(t, eval)
	assert.Equal(t, vector.Template{{20}, {1}}, tmpl)

	up, err := clients[0].Fit(context.Background(), make(vector.Vector, tmpl.Size()), trainer.FitConfig{})
	require.NoError(t, err)
	assert.Equal(t, int64(128), up.NumExamples)
}

func TestNewPoolRejectsEmptyPool(t *testing.T) {
	_, _, _, err := trainer.NewPool(experiment.Experiment{Dataset: "synthetic"})
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}
