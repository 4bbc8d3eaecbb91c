// Package experiment defines the entities a simulation run is made of: the
// experiment definition, the run lifecycle and the per-round records.
package experiment

import (
	"fmt"
	"time"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type RunState uint8

const (
	Pending RunState = iota
	Running
	Completed
	Failed
	Stopped
)

func (s RunState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// StrategyParams are the numeric knobs of the configured defense.
type StrategyParams struct {
	Name        string  `json:"name"                   toml:"name"`
	NumToKeep   int     `json:"num_to_keep,omitempty"  toml:"num_to_keep"`
	TrimRatio   float64 `json:"trim_ratio,omitempty"   toml:"trim_ratio"`
	NumIters    int     `json:"num_iters,omitempty"    toml:"num_iters"`
	SampleWidth int     `json:"sample_width,omitempty" toml:"sample_width"`
	Multiplier  float64 `json:"multiplier,omitempty"   toml:"multiplier"`
	Threshold   float64 `json:"threshold,omitempty"    toml:"threshold"`
	Omniscient  bool    `json:"omniscient,omitempty"   toml:"omniscient"`
}

// AttackParams are the adversary's knobs. NumMalicious clients, always the
// first of the pool, submit crafted updates once warmup has passed.
type AttackParams struct {
	Name         string  `json:"name"                 toml:"name"`
	NumMalicious int     `json:"num_malicious"        toml:"num_malicious"`
	Magnitude    float64 `json:"magnitude,omitempty"  toml:"magnitude"`
	MaxIters     int     `json:"max_iters,omitempty"  toml:"max_iters"`
	Tolerance    float64 `json:"tolerance,omitempty"  toml:"tolerance"`
	Direction    string  `json:"direction,omitempty"  toml:"direction"`
}

// Experiment is one simulation configuration. It is immutable once a run
// has started from it.
type Experiment struct {
	ID           string         `json:"id"            toml:"-"`
	Name         string         `json:"name"          toml:"name"`
	Dataset      string         `json:"dataset"       toml:"dataset"`
	PoolSize     int            `json:"pool_size"     toml:"pool_size"`
	NumRounds    int            `json:"num_rounds"    toml:"num_rounds"`
	WarmupRounds int            `json:"warmup_rounds" toml:"warmup_rounds"`
	Epochs       int            `json:"epochs"        toml:"epochs"`
	BatchSize    int            `json:"batch_size"    toml:"batch_size"`
	Sampling     float64        `json:"sampling"      toml:"sampling"`
	Seed         int64          `json:"seed"          toml:"seed"`
	Strategy     StrategyParams `json:"strategy"      toml:"strategy"`
	Attack       AttackParams   `json:"attack"        toml:"attack"`
	CreatedAt    time.Time      `json:"created_at"    toml:"-"`
	UpdatedAt    time.Time      `json:"updated_at"    toml:"-"`
}

// Normalize fills the defaults an empty definition leaves open.
func (e *Experiment) Normalize() {
	if e.Dataset == "" {
		e.Dataset = "synthetic"
	}
	if e.PoolSize == 0 {
		e.PoolSize = 10
	}
	if e.NumRounds == 0 {
		e.NumRounds = 50
	}
	if e.Epochs == 0 {
		e.Epochs = 1
	}
	if e.BatchSize == 0 {
		e.BatchSize = 32
	}
	if e.Sampling == 0 {
		e.Sampling = 1
	}
	if e.Strategy.Name == "" {
		e.Strategy.Name = "fedavg"
	}
	if e.Attack.Name == "" {
		e.Attack.Name = "na"
	}
	if e.Strategy.NumToKeep == 0 {
		e.Strategy.NumToKeep = e.PoolSize - e.Attack.NumMalicious
	}
	if e.Strategy.TrimRatio == 0 {
		e.Strategy.TrimRatio = 0.2
	}
	if e.Strategy.NumIters == 0 {
		e.Strategy.NumIters = 5
	}
	if e.Strategy.Multiplier == 0 {
		e.Strategy.Multiplier = 1
	}
}

// Validate checks the numeric invariants every run depends on. Strategy and
// attack names are resolved by their factories before a run starts.
func (e Experiment) Validate() error {
	if e.PoolSize < 1 {
		return fmt.Errorf("%w: pool size %d", errors.ErrInvalidData, e.PoolSize)
	}
	if e.NumRounds < 1 {
		return fmt.Errorf("%w: num rounds %d", errors.ErrInvalidData, e.NumRounds)
	}
	if e.WarmupRounds < 0 {
		return fmt.Errorf("%w: warmup rounds %d", errors.ErrInvalidData, e.WarmupRounds)
	}
	if e.Attack.NumMalicious < 0 {
		return fmt.Errorf("%w: num malicious %d", errors.ErrInvalidData, e.Attack.NumMalicious)
	}
	if e.Attack.NumMalicious >= e.PoolSize {
		return fmt.Errorf("%w: %d malicious clients need a pool larger than %d", errors.ErrInvalidData, e.Attack.NumMalicious, e.PoolSize)
	}

	return nil
}

// Run is one execution of an experiment.
type Run struct {
	ID           string    `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	Name         string    `json:"name"`
	State        RunState  `json:"state"`
	Seed         int64     `json:"seed"`
	Round        int       `json:"round"`
	Error        string    `json:"error,omitempty"`
	StartTime    time.Time `json:"start_time"`
	FinishTime   time.Time `json:"finish_time"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Metrics is the centralized evaluation of the global model after one round.
type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
	AUC      float64 `json:"auc"`
	TP       int     `json:"tp"`
	TN       int     `json:"tn"`
	FP       int     `json:"fp"`
	FN       int     `json:"fn"`
}

// Update is one client's contribution to a round, flattened.
type Update struct {
	ClientID    string        `json:"client_id"`
	Vector      vector.Vector `json:"vector"`
	NumExamples int64         `json:"num_examples"`
}

// RoundRecord is the immutable outcome of one round: the raw updates as
// aggregated, the clients judged good, the new global parameters and the
// evaluation metrics.
type RoundRecord struct {
	RunID        string        `json:"run_id"`
	Round        int           `json:"round"`
	Updates      []Update      `json:"updates"`
	MaliciousIDs []string      `json:"malicious_ids"`
	KeptIndices  []int         `json:"kept_indices"`
	Aggregated   vector.Vector `json:"aggregated"`
	Metrics      Metrics       `json:"metrics"`
	CreatedAt    time.Time     `json:"created_at"`
}

type ExperimentPage struct {
	Offset      uint64       `json:"offset"`
	Limit       uint64       `json:"limit"`
	Total       uint64       `json:"total"`
	Experiments []Experiment `json:"experiments"`
}

type RunPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}

type RoundPage struct {
	Offset uint64        `json:"offset"`
	Limit  uint64        `json:"limit"`
	Total  uint64        `json:"total"`
	Rounds []RoundRecord `json:"rounds"`
}
