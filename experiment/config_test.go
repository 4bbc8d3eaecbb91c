package experiment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "experiment.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
name = "krum-vs-lie"
pool_size = 12
num_rounds = 5
warmup_rounds = 2
seed = 99

[strategy]
name = "krum"
num_to_keep = 8

[attack]
name = "lie"
num_malicious = 3
`)

	e, err := experiment.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "krum-vs-lie", e.Name)
	assert.Equal(t, 12, e.PoolSize)
	assert.Equal(t, 5, e.NumRounds)
	assert.Equal(t, 2, e.WarmupRounds)
	assert.Equal(t, int64(99), e.Seed)
	assert.Equal(t, "krum", e.Strategy.Name)
	assert.Equal(t, 8, e.Strategy.NumToKeep)
	assert.Equal(t, "lie", e.Attack.Name)
	assert.Equal(t, 3, e.Attack.NumMalicious)

	// Unspecified knobs come back normalized.
	assert.Equal(t, "synthetic", e.Dataset)
	assert.Equal(t, 1, e.Epochs)
	assert.Equal(t, 32, e.BatchSize)
	assert.Equal(t, 1.0, e.Sampling)
	assert.Equal(t, 0.2, e.Strategy.TrimRatio)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := experiment.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "pool_size = = 3")

	_, err := experiment.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigInvalidExperiment(t *testing.T) {
	path := writeConfig(t, `
name = "too-many-adversaries"
pool_size = 2

[attack]
name = "gaussian"
num_malicious = 5
`)

	_, err := experiment.LoadConfig(path)
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}
