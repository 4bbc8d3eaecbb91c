// Package api carries the HTTP plumbing shared by every transport: the
// response contract, query decoding helpers and the error-to-status mapping.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	kithttp "github.com/go-kit/kit/transport/http"
	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType = "application/json"

	MaxLimitSize = 100
)

var (
	ErrValidation             = errors.New("invalid request")
	ErrMissingID              = errors.New("missing entity id")
	ErrMissingName            = errors.New("missing entity name")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrInvalidQueryParams     = errors.New("invalid query parameters")
)

// Version is overridden at build time.
var Version = "0.1.0"

// Response lets an endpoint response drive its own status code and headers
// without the encoder knowing the payload type.
type Response interface {
	Code() int
	Headers() map[string]string
	Empty() bool
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, pkgerrors.ErrUnknownStrategy),
		errors.Is(err, pkgerrors.ErrUnknownAttack),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrMissingID),
		errors.Is(err, ErrMissingName),
		errors.Is(err, ErrInvalidQueryParams):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, ErrUnsupportedContentType):
		w.WriteHeader(http.StatusUnsupportedMediaType)
	case errors.Is(err, pkgerrors.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, pkgerrors.ErrEntityExists),
		errors.Is(err, pkgerrors.ErrRunActive),
		errors.Is(err, pkgerrors.ErrRunFinished):
		w.WriteHeader(http.StatusConflict)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if eerr := json.NewEncoder(w).Encode(errorRes{Error: err.Error()}); eerr != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type errorRes struct {
	Error string `json:"error"`
}

// LoggingErrorEncoder logs every transport error before encoding it.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		logger.Warn("Request failed", slog.Any("error", err))
		enc(ctx, err, w)
	}
}

// ReadNumQuery reads an unsigned numeric query parameter, falling back to
// def when the key is absent.
func ReadNumQuery(r *http.Request, key string, def uint64) (uint64, error) {
	vals, ok := r.URL.Query()[key]
	if !ok {
		return def, nil
	}
	if len(vals) > 1 {
		return 0, ErrInvalidQueryParams
	}

	v, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return 0, errors.Join(ErrInvalidQueryParams, err)
	}

	return v, nil
}

type healthRes struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
}

// Health serves the liveness endpoint.
func Health(service, instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)

		_ = json.NewEncoder(w).Encode(healthRes{
			Status:     "pass",
			Version:    Version,
			Service:    service,
			InstanceID: instanceID,
		})
	}
}
