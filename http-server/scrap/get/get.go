package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"cutting-tracker/http-server/respond"
	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage"
)

type ScrapProvider interface {
	GetScrapEntry(ctx context.Context, id uuid.UUID) (*storage.ScrapEntryView, error)
	ListScrapEntries(ctx context.Context, filter storage.ScrapFilter) ([]storage.ScrapEntryView, error)
}

// ListScrapEntries accepts status, search and job_id query parameters.
func ListScrapEntries(log *slog.Logger, scrap ScrapProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scrap.ListScrapEntries"

		q := r.URL.Query()
		filter, err := cutting.ParseScrapFilter(q.Get("status"), q.Get("search"), q.Get("job_id"))
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := scrap.ListScrapEntries(ctx, filter)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}
		if list == nil {
			list = []storage.ScrapEntryView{}
		}

		render.JSON(w, r, list)
	}
}

func GetScrapEntry(log *slog.Logger, scrap ScrapProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scrap.GetScrapEntry"

		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		entry, err := scrap.GetScrapEntry(ctx, id)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, entry)
	}
}
