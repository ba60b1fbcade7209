package update

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

type JobUpdater interface {
	RevisePlan(ctx context.Context, actor authz.Actor, jobID uuid.UUID, req cutting.PlanRevisionRequest) (*storage.CuttingJob, error)
	StartJob(ctx context.Context, actor authz.Actor, jobID uuid.UUID) (*storage.CuttingJob, error)
	CancelJob(ctx context.Context, actor authz.Actor, jobID uuid.UUID, reason string) (*storage.CuttingJob, error)
}

func RevisePlan(log *slog.Logger, jobs JobUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.RevisePlan"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req cutting.PlanRevisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		job, err := jobs.RevisePlan(ctx, actor, id, req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, job)
	}
}

func StartJob(log *slog.Logger, jobs JobUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.StartJob"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		job, err := jobs.StartJob(ctx, actor, id)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, job)
	}
}

func CancelJob(log *slog.Logger, jobs JobUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.CancelJob"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		job, err := jobs.CancelJob(ctx, actor, id, req.Reason)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, job)
	}
}
