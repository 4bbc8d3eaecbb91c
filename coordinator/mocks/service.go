package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rampart-fl/rampart/experiment"
)

// MockService is a mock implementation of the coordinator.Service interface
type MockService struct {
	mock.Mock
}

// CreateExperiment creates a new experiment
func (m *MockService) CreateExperiment(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error) {
	args := m.Called(ctx, exp)
	return args.Get(0).(experiment.Experiment), args.Error(1)
}

// GetExperiment retrieves an experiment by ID
func (m *MockService) GetExperiment(ctx context.Context, experimentID string) (experiment.Experiment, error) {
	args := m.Called(ctx, experimentID)
	return args.Get(0).(experiment.Experiment), args.Error(1)
}

// ListExperiments lists experiments with pagination
func (m *MockService) ListExperiments(ctx context.Context, offset, limit uint64) (experiment.ExperimentPage, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(experiment.ExperimentPage), args.Error(1)
}

// DeleteExperiment deletes an experiment
func (m *MockService) DeleteExperiment(ctx context.Context, experimentID string) error {
	args := m.Called(ctx, experimentID)
	return args.Error(0)
}

// StartRun starts a run for an experiment
func (m *MockService) StartRun(ctx context.Context, experimentID string) (experiment.Run, error) {
	args := m.Called(ctx, experimentID)
	return args.Get(0).(experiment.Run), args.Error(1)
}

// GetRun retrieves a run by ID
func (m *MockService) GetRun(ctx context.Context, runID string) (experiment.Run, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(experiment.Run), args.Error(1)
}

// ListRuns lists runs with pagination
func (m *MockService) ListRuns(ctx context.Context, offset, limit uint64) (experiment.RunPage, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(experiment.RunPage), args.Error(1)
}

// StopRun stops a running run
func (m *MockService) StopRun(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

// ListRounds lists the recorded rounds of a run with pagination
func (m *MockService) ListRounds(ctx context.Context, runID string, offset, limit uint64) (experiment.RoundPage, error) {
	args := m.Called(ctx, runID, offset, limit)
	return args.Get(0).(experiment.RoundPage), args.Error(1)
}
