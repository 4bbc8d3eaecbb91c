package storage_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/storage"
	"github.com/rampart-fl/rampart/pkg/storage/testutil"
	"github.com/rampart-fl/rampart/pkg/vector"
)

func TestStorageCreate(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "existing", "value"))

	cases := []struct {
		desc  string
		key   string
		value interface{}
		err   error
	}{
		{
			desc:  "create new entity",
			key:   "new",
			value: "value",
			err:   nil,
		},
		{
			desc:  "create existing entity",
			key:   "existing",
			value: "other",
			err:   errors.ErrEntityExists,
		},
		{
			desc:  "create with empty key",
			key:   "",
			value: "value",
			err:   errors.ErrEmptyKey,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := s.Create(ctx, tc.key, tc.value)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
		})
	}
}

func TestStorageGet(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "existing", "value"))

	cases := []struct {
		desc string
		key  string
		err  error
	}{
		{
			desc: "get existing entity",
			key:  "existing",
			err:  nil,
		},
		{
			desc: "get non-existing entity",
			key:  "missing",
			err:  errors.ErrNotFound,
		},
		{
			desc: "get with empty key",
			key:  "",
			err:  errors.ErrEmptyKey,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			val, err := s.Get(ctx, tc.key)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
			if tc.err == nil {
				assert.Equal(t, "value", val)
			}
		})
	}
}

func TestStorageUpdate(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "existing", "value"))

	cases := []struct {
		desc string
		key  string
		err  error
	}{
		{
			desc: "update existing entity",
			key:  "existing",
			err:  nil,
		},
		{
			desc: "update non-existing entity",
			key:  "missing",
			err:  errors.ErrNotFound,
		},
		{
			desc: "update with empty key",
			key:  "",
			err:  errors.ErrEmptyKey,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := s.Update(ctx, tc.key, "updated")
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
		})
	}

	val, err := s.Get(ctx, "existing")
	require.NoError(t, err)
	assert.Equal(t, "updated", val)
}

func TestStorageDelete(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "existing", "value"))

	cases := []struct {
		desc string
		key  string
		err  error
	}{
		{
			desc: "delete existing entity",
			key:  "existing",
			err:  nil,
		},
		{
			desc: "delete non-existing entity",
			key:  "missing",
			err:  nil,
		},
		{
			desc: "delete with empty key",
			key:  "",
			err:  errors.ErrEmptyKey,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := s.Delete(ctx, tc.key)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected error %v, got %v", tc.desc, tc.err, err))
		})
	}

	_, err := s.Get(ctx, "existing")
	assert.Equal(t, errors.ErrNotFound, err)
}

func TestStorageListInsertionOrder(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, fmt.Sprintf("key-%d", i), i))
	}

	cases := []struct {
		desc     string
		offset   uint64
		limit    uint64
		expected []interface{}
	}{
		{
			desc:     "list all entities",
			offset:   0,
			limit:    10,
			expected: []interface{}{0, 1, 2, 3, 4},
		},
		{
			desc:     "list with limit",
			offset:   0,
			limit:    2,
			expected: []interface{}{0, 1},
		},
		{
			desc:     "list with offset",
			offset:   3,
			limit:    10,
			expected: []interface{}{3, 4},
		},
		{
			desc:     "list with offset beyond total",
			offset:   10,
			limit:    10,
			expected: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			vals, total, err := s.List(ctx, tc.offset, tc.limit)
			assert.NoError(t, err)
			assert.Equal(t, uint64(5), total)
			assert.Equal(t, tc.expected, vals)
		})
	}

	// Deleting from the middle keeps the remaining order intact.
	require.NoError(t, s.Delete(ctx, "key-1"))
	vals, total, err := s.List(ctx, 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, uint64(4), total)
	assert.Equal(t, []interface{}{0, 2, 3, 4}, vals)
}

func TestMemoryRepositories(t *testing.T) {
	repos, err := storage.NewRepositories(storage.Config{Type: "memory"})
	require.NoError(t, err)
	assert.Nil(t, repos.Closer)
	ctx := context.Background()

	exp := testutil.TestExperiment(uuid.NewString())
	created, err := repos.Experiments.Create(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, exp, created)

	retrieved, err := repos.Experiments.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, exp, retrieved)

	_, err = repos.Experiments.Get(ctx, "missing")
	assert.Equal(t, errors.ErrNotFound, err)

	retrieved.Name = "renamed"
	require.NoError(t, repos.Experiments.Update(ctx, retrieved))
	updated, err := repos.Experiments.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	run := testutil.TestRun(uuid.NewString(), exp.ID)
	_, err = repos.Runs.Create(ctx, run)
	require.NoError(t, err)
	gotRun, err := repos.Runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, gotRun)

	require.NoError(t, repos.Experiments.Delete(ctx, exp.ID))
	_, err = repos.Experiments.Get(ctx, exp.ID)
	assert.Equal(t, errors.ErrNotFound, err)
}

func TestMemoryMetricsRepository(t *testing.T) {
	repos, err := storage.NewRepositories(storage.Config{Type: "memory"})
	require.NoError(t, err)
	ctx := context.Background()

	runID := uuid.NewString()
	for round := 0; round < 3; round++ {
		rec := testutil.TestRoundRecord(runID, round)
		rec.Updates = []experiment.Update{{ClientID: "client-0", Vector: vector.Vector{1, 2}, NumExamples: 16}}
		rec.Aggregated = vector.Vector{0.5, 0.5}
		require.NoError(t, repos.Metrics.CreateRoundMetrics(ctx, rec))
	}
	// A second run's rounds must not leak into the listing.
	require.NoError(t, repos.Metrics.CreateRoundMetrics(ctx, testutil.TestRoundRecord(uuid.NewString(), 0)))

	recs, total, err := repos.Metrics.ListRoundMetrics(ctx, runID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, i, rec.Round)
		assert.Equal(t, runID, rec.RunID)
		// Vector payloads are summarized away before storage.
		assert.Nil(t, rec.Updates)
		assert.Nil(t, rec.Aggregated)
		assert.Equal(t, []int{1, 2, 3}, rec.KeptIndices)
		assert.InDelta(t, 0.35, rec.Metrics.Loss, 1e-9)
	}

	recs, total, err = repos.Metrics.ListRoundMetrics(ctx, runID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].Round)

	recs, total, err = repos.Metrics.ListRoundMetrics(ctx, "unknown", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
	assert.Empty(t, recs)

	err = repos.Metrics.CreateRoundMetrics(ctx, testutil.TestRoundRecord(runID, 0))
	assert.Equal(t, errors.ErrEntityExists, err)
}

func TestNewRepositoriesUnknownType(t *testing.T) {
	_, err := storage.NewRepositories(storage.Config{Type: "cassandra"})
	assert.ErrorContains(t, err, "unsupported storage type")
}
