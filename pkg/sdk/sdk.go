package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

type SDK interface {
	// CreateExperiment creates a new experiment.
	//
	// example:
	//  exp := sdk.Experiment{
	//    Name: "krum-vs-lie",
	//  }
	//  exp, _ := sdk.CreateExperiment(exp)
	//  fmt.Println(exp)
	CreateExperiment(exp Experiment) (Experiment, error)

	// GetExperiment gets an experiment by id.
	//
	// example:
	//  exp, _ := sdk.GetExperiment("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(exp)
	GetExperiment(id string) (Experiment, error)

	// ListExperiments lists experiments.
	//
	// example:
	//  page, _ := sdk.ListExperiments(0, 10)
	//  fmt.Println(page)
	ListExperiments(offset uint64, limit uint64) (ExperimentPage, error)

	// DeleteExperiment deletes an experiment.
	//
	// example:
	//  _ = sdk.DeleteExperiment("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	DeleteExperiment(id string) error

	// StartRun starts a new run of an experiment.
	//
	// example:
	//  run, _ := sdk.StartRun("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(run)
	StartRun(experimentID string) (Run, error)

	// GetRun gets a run by id.
	//
	// example:
	//  run, _ := sdk.GetRun("55f2b0e7-6f34-43b2-95fb-f01d09e0b04c")
	//  fmt.Println(run)
	GetRun(id string) (Run, error)

	// ListRuns lists runs.
	//
	// example:
	//  page, _ := sdk.ListRuns(0, 10)
	//  fmt.Println(page)
	ListRuns(offset uint64, limit uint64) (RunPage, error)

	// StopRun stops a running run.
	//
	// example:
	//  _ = sdk.StopRun("55f2b0e7-6f34-43b2-95fb-f01d09e0b04c")
	StopRun(id string) error

	// ListRounds lists the recorded rounds of a run.
	//
	// example:
	//  page, _ := sdk.ListRounds("55f2b0e7-6f34-43b2-95fb-f01d09e0b04c", 0, 10)
	//  fmt.Println(page)
	ListRounds(runID string, offset uint64, limit uint64) (RoundPage, error)
}

type rampartSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &rampartSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *rampartSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
