package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"cutting-tracker/http-server/respond"
	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage"
)

type ScrapCreator interface {
	CreateScrapEntry(ctx context.Context, actor authz.Actor, jobID uuid.UUID, in cutting.ScrapInput) (*storage.ScrapEntry, error)
}

func CreateScrapEntry(log *slog.Logger, creator ScrapCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scrap.CreateScrapEntry"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		jobID, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req cutting.ScrapInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		entry, err := creator.CreateScrapEntry(ctx, actor, jobID, req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, entry)
	}
}
