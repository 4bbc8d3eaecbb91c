package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const experimentsEndpoint = "/experiments"

type Strategy struct {
	Name        string  `json:"name"`
	NumToKeep   int     `json:"num_to_keep,omitempty"`
	TrimRatio   float64 `json:"trim_ratio,omitempty"`
	NumIters    int     `json:"num_iters,omitempty"`
	SampleWidth int     `json:"sample_width,omitempty"`
	Multiplier  float64 `json:"multiplier,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
	Omniscient  bool    `json:"omniscient,omitempty"`
}

type Attack struct {
	Name         string  `json:"name"`
	NumMalicious int     `json:"num_malicious"`
	Magnitude    float64 `json:"magnitude,omitempty"`
	MaxIters     int     `json:"max_iters,omitempty"`
	Tolerance    float64 `json:"tolerance,omitempty"`
	Direction    string  `json:"direction,omitempty"`
}

type Experiment struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Dataset      string    `json:"dataset,omitempty"`
	PoolSize     int       `json:"pool_size,omitempty"`
	NumRounds    int       `json:"num_rounds,omitempty"`
	WarmupRounds int       `json:"warmup_rounds,omitempty"`
	Epochs       int       `json:"epochs,omitempty"`
	BatchSize    int       `json:"batch_size,omitempty"`
	Sampling     float64   `json:"sampling,omitempty"`
	Seed         int64     `json:"seed,omitempty"`
	Strategy     Strategy  `json:"strategy"`
	Attack       Attack    `json:"attack"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ExperimentPage struct {
	Offset      uint64       `json:"offset"`
	Limit       uint64       `json:"limit"`
	Total       uint64       `json:"total"`
	Experiments []Experiment `json:"experiments"`
}

func (sdk *rampartSDK) CreateExperiment(exp Experiment) (Experiment, error) {
	data, err := json.Marshal(exp)
	if err != nil {
		return Experiment{}, err
	}

	url := sdk.coordinatorURL + experimentsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return Experiment{}, err
	}

	var e Experiment
	if err := json.Unmarshal(body, &e); err != nil {
		return Experiment{}, err
	}

	return e, nil
}

func (sdk *rampartSDK) GetExperiment(id string) (Experiment, error) {
	url := sdk.coordinatorURL + experimentsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Experiment{}, err
	}

	var e Experiment
	if err := json.Unmarshal(body, &e); err != nil {
		return Experiment{}, err
	}

	return e, nil
}

func (sdk *rampartSDK) ListExperiments(offset, limit uint64) (ExperimentPage, error) {
	url := sdk.coordinatorURL + experimentsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return ExperimentPage{}, err
	}

	var p ExperimentPage
	if err := json.Unmarshal(body, &p); err != nil {
		return ExperimentPage{}, err
	}

	return p, nil
}

func (sdk *rampartSDK) DeleteExperiment(id string) error {
	url := sdk.coordinatorURL + experimentsEndpoint + "/" + id

	if _, err := sdk.processRequest(http.MethodDelete, url, nil, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}

func (sdk *rampartSDK) StartRun(experimentID string) (Run, error) {
	url := fmt.Sprintf("%s/experiments/%s/start", sdk.coordinatorURL, experimentID)

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusAccepted)
	if err != nil {
		return Run{}, err
	}

	var r Run
	if err := json.Unmarshal(body, &r); err != nil {
		return Run{}, err
	}

	return r, nil
}

func pageQuery(offset, limit uint64) string {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	if len(queries) == 0 {
		return ""
	}

	return "?" + strings.Join(queries, "&")
}
