package api

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/pkg/api"
	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
)

func createExperimentEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(experimentReq)
		if !ok {
			return experimentRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return experimentRes{}, errors.Join(api.ErrValidation, err)
		}

		exp, err := svc.CreateExperiment(ctx, req.Experiment)
		if err != nil {
			return experimentRes{}, err
		}

		return experimentRes{Experiment: exp, created: true}, nil
	}
}

func getExperimentEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return experimentRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return experimentRes{}, errors.Join(api.ErrValidation, err)
		}

		exp, err := svc.GetExperiment(ctx, req.id)
		if err != nil {
			return experimentRes{}, err
		}

		return experimentRes{Experiment: exp}, nil
	}
}

func listExperimentsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listExperimentsRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return listExperimentsRes{}, errors.Join(api.ErrValidation, err)
		}

		page, err := svc.ListExperiments(ctx, req.offset, req.limit)
		if err != nil {
			return listExperimentsRes{}, err
		}

		return listExperimentsRes{ExperimentPage: page}, nil
	}
}

func deleteExperimentEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return experimentRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return experimentRes{}, errors.Join(api.ErrValidation, err)
		}

		if err := svc.DeleteExperiment(ctx, req.id); err != nil {
			return experimentRes{}, err
		}

		return experimentRes{deleted: true}, nil
	}
}

func startRunEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return runRes{}, errors.Join(api.ErrValidation, err)
		}

		run, err := svc.StartRun(ctx, req.id)
		if err != nil {
			return runRes{}, err
		}

		return runRes{Run: run, started: true}, nil
	}
}

func getRunEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return runRes{}, errors.Join(api.ErrValidation, err)
		}

		run, err := svc.GetRun(ctx, req.id)
		if err != nil {
			return runRes{}, err
		}

		return runRes{Run: run}, nil
	}
}

func listRunsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRunsRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return listRunsRes{}, errors.Join(api.ErrValidation, err)
		}

		page, err := svc.ListRuns(ctx, req.offset, req.limit)
		if err != nil {
			return listRunsRes{}, err
		}

		return listRunsRes{RunPage: page}, nil
	}
}

func stopRunEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return stopRunRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return stopRunRes{}, errors.Join(api.ErrValidation, err)
		}

		if err := svc.StopRun(ctx, req.id); err != nil {
			return stopRunRes{}, err
		}

		return stopRunRes{}, nil
	}
}

func listRoundsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listRoundsReq)
		if !ok {
			return listRoundsRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := req.validate(); err != nil {
			return listRoundsRes{}, errors.Join(api.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.id, req.offset, req.limit)
		if err != nil {
			return listRoundsRes{}, err
		}

		return listRoundsRes{RoundPage: page}, nil
	}
}
