package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/history"
	"github.com/rampart-fl/rampart/pkg/vector"
)

func record(round int, base float64) experiment.RoundRecord {
	return experiment.RoundRecord{
		RunID: "run-1",
		Round: round,
		Updates: []experiment.Update{
			{ClientID: "client-0", Vector: vector.Vector{base, base + 1, base + 2}, NumExamples: 10},
			{ClientID: "client-1", Vector: vector.Vector{base + 3, base + 4, base + 5}, NumExamples: 20},
		},
		MaliciousIDs: []string{"client-1"},
		KeptIndices:  []int{0},
		Aggregated:   vector.Vector{base, base + 1, base + 2},
		Metrics:      experiment.Metrics{Loss: 0.5, Accuracy: 0.9, AUC: 0.95, TP: 9, TN: 9, FP: 1, FN: 1},
	}
}

func TestAppendLoadRoundTrip(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	rec := record(0, 1)
	require.NoError(t, store.Append(rec))

	got, err := store.Load(0)
	require.NoError(t, err)

	assert.Equal(t, rec.RunID, got.RunID)
	assert.Equal(t, rec.Round, got.Round)
	assert.Equal(t, rec.Updates, got.Updates)
	assert.Equal(t, rec.MaliciousIDs, got.MaliciousIDs)
	assert.Equal(t, rec.KeptIndices, got.KeptIndices)
	assert.Equal(t, rec.Aggregated, got.Aggregated)
	assert.Equal(t, rec.Metrics, got.Metrics)
}

func TestAppendRejectsDuplicateRound(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	require.NoError(t, store.Append(record(3, 1)))

	err = store.Append(record(3, 2))
	assert.ErrorIs(t, err, errors.ErrEntityExists)
}

func TestAppendRejectsNegativeRound(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	err = store.Append(record(-1, 1))
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestLoadMissingRound(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	_, err = store.Load(7)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestWindowReturnsOldestFirst(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	for round := 0; round < 3; round++ {
		require.NoError(t, store.Append(record(round, float64(round*10))))
	}

	window, err := store.Window(3, 2)
	require.NoError(t, err)

	require.Len(t, window, 2)
	assert.Equal(t, vector.Vector{10, 11, 12}, window[0][0])
	assert.Equal(t, vector.Vector{20, 21, 22}, window[1][0])

	window, err = store.Window(2, 5)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, vector.Vector{0, 1, 2}, window[0][0])

	window, err = store.Window(0, 3)
	require.NoError(t, err)
	assert.Empty(t, window)
}

func TestWindowSkipsMissingRounds(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	require.NoError(t, store.Append(record(0, 0)))
	require.NoError(t, store.Append(record(2, 20)))

	window, err := store.Window(3, 3)
	require.NoError(t, err)

	require.Len(t, window, 2)
	assert.Equal(t, vector.Vector{0, 1, 2}, window[0][0])
	assert.Equal(t, vector.Vector{20, 21, 22}, window[1][0])
}

func TestRoundsSortedAscending(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	for _, round := range []int{2, 0, 1} {
		require.NoError(t, store.Append(record(round, 1)))
	}

	rounds, err := store.Rounds()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, rounds)
}

func TestResetClearsRecordedRounds(t *testing.T) {
	store, err := history.New(t.TempDir(), 0, 1)
	require.NoError(t, err)

	for round := 0; round < 3; round++ {
		require.NoError(t, store.Append(record(round, 1)))
	}

	require.NoError(t, store.Reset())

	rounds, err := store.Rounds()
	require.NoError(t, err)
	assert.Empty(t, rounds)

	require.NoError(t, store.Append(record(0, 1)))
}

func TestSampledStoreProjectsVectors(t *testing.T) {
	store, err := history.New(t.TempDir(), 2, 42)
	require.NoError(t, err)

	full := vector.Vector{0, 1, 2, 3, 4, 5}
	assert.Equal(t, full, store.Project(full), "projection is identity before the first append")

	rec := experiment.RoundRecord{
		RunID: "run-1",
		Round: 0,
		Updates: []experiment.Update{
			{ClientID: "client-0", Vector: full, NumExamples: 1},
		},
		Aggregated: full,
	}
	require.NoError(t, store.Append(rec))

	got, err := store.Load(0)
	require.NoError(t, err)
	require.Len(t, got.Updates[0].Vector, 2)
	assert.Len(t, got.Aggregated, 2)

	assert.Equal(t, got.Updates[0].Vector, store.Project(full))

	window, err := store.Window(1, 1)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Len(t, window[0][0], 2)
}

func TestSampledStoreSeedReproducible(t *testing.T) {
	full := vector.Vector{10, 20, 30, 40, 50}
	rec := experiment.RoundRecord{
		Round: 0,
		Updates: []experiment.Update{
			{ClientID: "client-0", Vector: full, NumExamples: 1},
		},
		Aggregated: full,
	}

	first, err := history.New(t.TempDir(), 3, 7)
	require.NoError(t, err)
	require.NoError(t, first.Append(rec))

	second, err := history.New(t.TempDir(), 3, 7)
	require.NoError(t, err)
	require.NoError(t, second.Append(rec))

	assert.Equal(t, first.Project(full), second.Project(full))
}

func TestWideSampleWidthLeavesVectorsIntact(t *testing.T) {
	store, err := history.New(t.TempDir(), 8, 1)
	require.NoError(t, err)

	rec := record(0, 1)
	require.NoError(t, store.Append(rec))

	got, err := store.Load(0)
	require.NoError(t, err)
	assert.Equal(t, rec.Updates[0].Vector, got.Updates[0].Vector)
}
