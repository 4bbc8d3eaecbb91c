package api

import (
	"net/http"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/api"
)

var (
	_ api.Response = (*experimentRes)(nil)
	_ api.Response = (*listExperimentsRes)(nil)
	_ api.Response = (*runRes)(nil)
	_ api.Response = (*listRunsRes)(nil)
	_ api.Response = (*listRoundsRes)(nil)
	_ api.Response = (*stopRunRes)(nil)
)

type experimentRes struct {
	experiment.Experiment `json:",inline"`
	created               bool
	deleted               bool
}

func (r experimentRes) Code() int {
	if r.created {
		return http.StatusCreated
	}
	if r.deleted {
		return http.StatusNoContent
	}

	return http.StatusOK
}

func (r experimentRes) Headers() map[string]string {
	if r.created {
		return map[string]string{
			"Location": "/experiments/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r experimentRes) Empty() bool {
	return r.deleted
}

type listExperimentsRes struct {
	experiment.ExperimentPage `json:",inline"`
}

func (r listExperimentsRes) Code() int {
	return http.StatusOK
}

func (r listExperimentsRes) Headers() map[string]string {
	return map[string]string{}
}

func (r listExperimentsRes) Empty() bool {
	return false
}

type runRes struct {
	experiment.Run `json:",inline"`
	started        bool
}

func (r runRes) Code() int {
	if r.started {
		return http.StatusAccepted
	}

	return http.StatusOK
}

func (r runRes) Headers() map[string]string {
	if r.started {
		return map[string]string{
			"Location": "/runs/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r runRes) Empty() bool {
	return false
}

type listRunsRes struct {
	experiment.RunPage `json:",inline"`
}

func (r listRunsRes) Code() int {
	return http.StatusOK
}

func (r listRunsRes) Headers() map[string]string {
	return map[string]string{}
}

func (r listRunsRes) Empty() bool {
	return false
}

type listRoundsRes struct {
	experiment.RoundPage `json:",inline"`
}

func (r listRoundsRes) Code() int {
	return http.StatusOK
}

func (r listRoundsRes) Headers() map[string]string {
	return map[string]string{}
}

func (r listRoundsRes) Empty() bool {
	return false
}

type stopRunRes struct{}

func (r stopRunRes) Code() int {
	return http.StatusNoContent
}

func (r stopRunRes) Headers() map[string]string {
	return map[string]string{}
}

func (r stopRunRes) Empty() bool {
	return true
}
