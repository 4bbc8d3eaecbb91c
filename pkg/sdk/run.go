package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const runsEndpoint = "/runs"

type Run struct {
	ID           string    `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	Name         string    `json:"name"`
	State        uint8     `json:"state"`
	Seed         int64     `json:"seed"`
	Round        int       `json:"round"`
	Error        string    `json:"error,omitempty"`
	StartTime    time.Time `json:"start_time"`
	FinishTime   time.Time `json:"finish_time"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RunPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}

type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
	AUC      float64 `json:"auc"`
	TP       int     `json:"tp"`
	TN       int     `json:"tn"`
	FP       int     `json:"fp"`
	FN       int     `json:"fn"`
}

type Round struct {
	RunID        string    `json:"run_id"`
	Round        int       `json:"round"`
	MaliciousIDs []string  `json:"malicious_ids,omitempty"`
	KeptIndices  []int     `json:"kept_indices,omitempty"`
	Metrics      Metrics   `json:"metrics"`
	CreatedAt    time.Time `json:"created_at"`
}

type RoundPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}

func (sdk *rampartSDK) GetRun(id string) (Run, error) {
	url := sdk.coordinatorURL + runsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Run{}, err
	}

	var r Run
	if err := json.Unmarshal(body, &r); err != nil {
		return Run{}, err
	}

	return r, nil
}

func (sdk *rampartSDK) ListRuns(offset, limit uint64) (RunPage, error) {
	url := sdk.coordinatorURL + runsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RunPage{}, err
	}

	var p RunPage
	if err := json.Unmarshal(body, &p); err != nil {
		return RunPage{}, err
	}

	return p, nil
}

func (sdk *rampartSDK) StopRun(id string) error {
	url := fmt.Sprintf("%s/runs/%s/stop", sdk.coordinatorURL, id)

	if _, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}

func (sdk *rampartSDK) ListRounds(runID string, offset, limit uint64) (RoundPage, error) {
	url := fmt.Sprintf("%s/runs/%s/rounds%s", sdk.coordinatorURL, runID, pageQuery(offset, limit))

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RoundPage{}, err
	}

	var p RoundPage
	if err := json.Unmarshal(body, &p); err != nil {
		return RoundPage{}, err
	}

	return p, nil
}
