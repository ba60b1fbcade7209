package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"cutting-tracker/http-server/respond"
	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage"
)

type JobProvider interface {
	GetJob(ctx context.Context, id uuid.UUID) (*storage.CuttingJob, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]*storage.CuttingJob, error)
}

func GetJob(log *slog.Logger, jobs JobProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.GetJob"

		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		job, err := jobs.GetJob(ctx, id)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, job)
	}
}

// ListJobs accepts status, search, from, to (YYYY-MM-DD or RFC 3339) and
// limit query parameters.
func ListJobs(log *slog.Logger, jobs JobProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.ListJobs"

		q := r.URL.Query()
		filter, err := cutting.ParseJobFilter(q.Get("status"), q.Get("search"))
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		if filter.From, err = parseTime(q.Get("from")); err != nil {
			respond.BadRequest(w, r, "invalid from")
			return
		}
		if filter.To, err = parseTime(q.Get("to")); err != nil {
			respond.BadRequest(w, r, "invalid to")
			return
		}
		if s := q.Get("limit"); s != "" {
			if filter.Limit, err = strconv.Atoi(s); err != nil || filter.Limit < 0 {
				respond.BadRequest(w, r, "invalid limit")
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := jobs.ListJobs(ctx, filter)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}
		if list == nil {
			list = []*storage.CuttingJob{}
		}

		render.JSON(w, r, list)
	}
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
