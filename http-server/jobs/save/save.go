package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"cutting-tracker/http-server/respond"
	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage"
)

type JobCreator interface {
	CreateJob(ctx context.Context, actor authz.Actor, req cutting.CreateJobRequest) (*storage.CuttingJob, error)
}

func CreateJob(log *slog.Logger, creator JobCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.CreateJob"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}

		var req cutting.CreateJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		job, err := creator.CreateJob(ctx, actor, req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Info("job created", slog.String("op", op), slog.String("job_order_no", job.JobOrderNo))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, job)
	}
}
