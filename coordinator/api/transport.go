// Package api contains the HTTP transport for the coordinator service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rampart-fl/rampart/coordinator"
	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/api"
)

// MakeHandler returns an HTTP handler exposing the coordinator API.
func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux := chi.NewRouter()

	mux.Route("/experiments", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createExperimentEndpoint(svc),
			decodeExperimentReq,
			api.EncodeResponse,
			opts...,
		), "create-experiment").ServeHTTP)

		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listExperimentsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-experiments").ServeHTTP)

		r.Route("/{experimentID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getExperimentEndpoint(svc),
				decodeExperimentIDReq,
				api.EncodeResponse,
				opts...,
			), "get-experiment").ServeHTTP)

			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				deleteExperimentEndpoint(svc),
				decodeExperimentIDReq,
				api.EncodeResponse,
				opts...,
			), "delete-experiment").ServeHTTP)

			r.Post("/start", otelhttp.NewHandler(kithttp.NewServer(
				startRunEndpoint(svc),
				decodeExperimentIDReq,
				api.EncodeResponse,
				opts...,
			), "start-run").ServeHTTP)
		})
	})

	mux.Route("/runs", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRunsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-runs").ServeHTTP)

		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getRunEndpoint(svc),
				decodeRunIDReq,
				api.EncodeResponse,
				opts...,
			), "get-run").ServeHTTP)

			r.Post("/stop", otelhttp.NewHandler(kithttp.NewServer(
				stopRunEndpoint(svc),
				decodeRunIDReq,
				api.EncodeResponse,
				opts...,
			), "stop-run").ServeHTTP)

			r.Get("/rounds", otelhttp.NewHandler(kithttp.NewServer(
				listRoundsEndpoint(svc),
				decodeListRoundsReq,
				api.EncodeResponse,
				opts...,
			), "list-rounds").ServeHTTP)
		})
	})

	mux.Get("/health", api.Health("coordinator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeExperimentReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(api.ErrValidation, api.ErrUnsupportedContentType)
	}

	var exp experiment.Experiment
	if err := json.NewDecoder(r.Body).Decode(&exp); err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	return experimentReq{Experiment: exp}, nil
}

func decodeExperimentIDReq(_ context.Context, r *http.Request) (any, error) {
	return entityReq{id: chi.URLParam(r, "experimentID")}, nil
}

func decodeRunIDReq(_ context.Context, r *http.Request) (any, error) {
	return entityReq{id: chi.URLParam(r, "runID")}, nil
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	offset, err := api.ReadNumQuery(r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	limit, err := api.ReadNumQuery(r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}
	if limit > api.MaxLimitSize {
		return nil, errors.Join(api.ErrValidation, api.ErrInvalidQueryParams)
	}

	return listEntityReq{offset: offset, limit: limit}, nil
}

func decodeListRoundsReq(ctx context.Context, r *http.Request) (any, error) {
	req, err := decodeListEntityReq(ctx, r)
	if err != nil {
		return nil, err
	}
	list := req.(listEntityReq)

	return listRoundsReq{
		id:     chi.URLParam(r, "runID"),
		offset: list.offset,
		limit:  list.limit,
	}, nil
}
