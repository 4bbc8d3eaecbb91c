package api

import (
	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/api"
)

type experimentReq struct {
	experiment.Experiment `json:",inline"`
}

func (r *experimentReq) validate() error {
	if r.Name == "" {
		return api.ErrMissingName
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return api.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}

type listRoundsReq struct {
	id            string
	offset, limit uint64
}

func (r *listRoundsReq) validate() error {
	if r.id == "" {
		return api.ErrMissingID
	}

	return nil
}
