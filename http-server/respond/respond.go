// Package respond holds the pieces every handler shares: actor lookup, id
// parsing and the mapping from engine errors to HTTP statuses.
package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/middleware/auth"
	"cutting-tracker/internal/service/cutting"
)

type ErrorBody struct {
	Error  string                 `json:"error"`
	Kind   string                 `json:"kind"`
	Report *cutting.BalanceReport `json:"report,omitempty"`
}

// StatusFor maps an engine error kind to an HTTP status.
func StatusFor(k cutting.Kind) int {
	switch k {
	case cutting.KindValidation:
		return http.StatusBadRequest
	case cutting.KindForbidden:
		return http.StatusForbidden
	case cutting.KindNotFound:
		return http.StatusNotFound
	case cutting.KindInvalidState, cutting.KindInvalidTransition:
		return http.StatusConflict
	case cutting.KindBalance:
		return http.StatusUnprocessableEntity
	case cutting.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as JSON. Validation, state and balance errors keep their
// message. Storage and internal failures are logged and hidden.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	kind := cutting.KindOf(err)
	status := StatusFor(kind)
	body := ErrorBody{Kind: kind.String()}

	var e *cutting.Error
	switch {
	case kind == cutting.KindStorage:
		body.Error = "the service is temporarily unavailable, try again"
	case kind == cutting.KindInternal:
		body.Error = "internal error"
	case errors.As(err, &e) && e.Msg != "":
		body.Error = e.Msg
		body.Report = e.Report
	default:
		body.Error = kind.String()
	}

	attrs := []any{
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	render.Status(r, status)
	render.JSON(w, r, body)
}

// BadRequest answers 400 for input the handler could not even decode.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorBody{Error: msg, Kind: cutting.KindValidation.String()})
}

// Actor returns the caller resolved by the auth middleware, or answers 401.
func Actor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	a, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return a, ok
}

// UUIDParam parses a chi URL parameter, answering 400 when it is malformed.
func UUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		BadRequest(w, r, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
