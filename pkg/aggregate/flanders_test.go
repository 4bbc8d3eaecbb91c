package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/pkg/aggregate"
	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type fakeHistory struct {
	window [][]vector.Vector
	err    error
}

func (f *fakeHistory) Window(round, n int) ([][]vector.Vector, error) {
	return f.window, f.err
}

func (f *fakeHistory) Project(v vector.Vector) vector.Vector {
	return v
}

func TestNewFlandersValidation(t *testing.T) {
	cases := []struct {
		desc string
		cfg  aggregate.Config
		hist aggregate.History
	}{
		{
			desc: "missing history store",
			cfg:  aggregate.Config{Window: 2, NumToKeep: 1},
			hist: nil,
		},
		{
			desc: "zero window",
			cfg:  aggregate.Config{Window: 0, NumToKeep: 1},
			hist: &fakeHistory{},
		},
		{
			desc: "zero keep count",
			cfg:  aggregate.Config{Window: 2, NumToKeep: 0},
			hist: &fakeHistory{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := aggregate.NewFlanders(tc.cfg, tc.hist)
			assert.ErrorIs(t, err, errors.ErrInvalidData)
		})
	}
}

func TestFlandersWarmupKeepsEveryone(t *testing.T) {
	s, err := aggregate.NewFlanders(aggregate.Config{Window: 2, NumToKeep: 1}, &fakeHistory{})
	require.NoError(t, err)

	updates := updatesOf(nil,
		vector.Vector{1, 1},
		vector.Vector{3, 3},
		vector.Vector{200, -200},
	)

	for round := 0; round < 2; round++ {
		res, err := s.Aggregate(round, updates, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, res.Kept)
	}
}

func TestFlandersEmptyWindowKeepsEveryone(t *testing.T) {
	s, err := aggregate.NewFlanders(aggregate.Config{Window: 1, NumToKeep: 1}, &fakeHistory{})
	require.NoError(t, err)

	res, err := s.Aggregate(5, updatesOf(nil, vector.Vector{1}, vector.Vector{2}), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.Kept)
	assert.InDeltaSlice(t, []float64{1.5}, res.Vector, 1e-12)
}

func TestFlandersDetectsDeviatingClient(t *testing.T) {
	// Two observed rounds per client define a line; the forecast for round
	// two is its extrapolation. Clients zero and one track their lines while
	// client two jumps away from its flat history.
	hist := &fakeHistory{window: [][]vector.Vector{
		{{1, 1}, {2, 2}, {1, 1}},
		{{2, 2}, {4, 4}, {1, 1}},
	}}

	s, err := aggregate.NewFlanders(aggregate.Config{Window: 2, NumToKeep: 2}, hist)
	require.NoError(t, err)

	updates := updatesOf(nil,
		vector.Vector{3, 3},
		vector.Vector{6.1, 5.9},
		vector.Vector{50, -50},
	)

	res, err := s.Aggregate(2, updates, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.Kept)
	assert.InDeltaSlice(t, []float64{4.55, 4.45}, res.Vector, 1e-9)
}

func TestFlandersOmniscientMarksConfigured(t *testing.T) {
	hist := &fakeHistory{window: [][]vector.Vector{
		{{1}, {1}, {1}},
	}}

	s, err := aggregate.NewFlanders(aggregate.Config{
		Window:       1,
		NumToKeep:    2,
		Omniscient:   true,
		MaliciousIDs: []int{0},
	}, hist)
	require.NoError(t, err)

	updates := updatesOf(nil,
		vector.Vector{100},
		vector.Vector{1},
		vector.Vector{3},
	)

	res, err := s.Aggregate(1, updates, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, res.Kept)
	assert.InDeltaSlice(t, []float64{2}, res.Vector, 1e-12)
}

func TestFlandersThresholdCanRejectEveryone(t *testing.T) {
	hist := &fakeHistory{window: [][]vector.Vector{
		{{1}, {1}},
	}}

	s, err := aggregate.NewFlanders(aggregate.Config{
		Window:       1,
		NumToKeep:    2,
		Threshold:    1,
		Omniscient:   true,
		MaliciousIDs: []int{0, 1},
	}, hist)
	require.NoError(t, err)

	_, err = s.Aggregate(1, updatesOf(nil, vector.Vector{5}, vector.Vector{6}), nil)
	assert.ErrorIs(t, err, errors.ErrInsufficientClients)
}
