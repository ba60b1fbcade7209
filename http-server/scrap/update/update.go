package update

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"cutting-tracker/http-server/respond"
	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/storage"
)

type ScrapApprover interface {
	ApproveScrap(ctx context.Context, actor authz.Actor, entryID uuid.UUID, notes *string) (*storage.ScrapEntryView, error)
	RejectScrap(ctx context.Context, actor authz.Actor, entryID uuid.UUID, notes string) (*storage.ScrapEntryView, error)
}

type request struct {
	Notes *string `json:"notes"`
}

// decode accepts an empty body: approval notes are optional.
func decode(r *http.Request) (request, error) {
	var req request
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return req, err
}

func ApproveScrap(log *slog.Logger, approver ScrapApprover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scrap.ApproveScrap"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		req, err := decode(r)
		if err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		entry, err := approver.ApproveScrap(ctx, actor, id, req.Notes)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, entry)
	}
}

// RejectScrap requires notes; the engine answers 400 without them.
func RejectScrap(log *slog.Logger, approver ScrapApprover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scrap.RejectScrap"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		req, err := decode(r)
		if err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		var notes string
		if req.Notes != nil {
			notes = *req.Notes
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		entry, err := approver.RejectScrap(ctx, actor, id, notes)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, entry)
	}
}
