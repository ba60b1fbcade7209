package complete

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
)

// Deadline bounds a completion request. The server write timeout must be
// longer or the client loses the response of a committed completion.
const Deadline = 10 * time.Second

type JobCompleter interface {
	CompleteJob(ctx context.Context, actor authz.Actor, jobID uuid.UUID, final cutting.FinalMeasurements) (*cutting.CompletionResult, error)
	PreviewCompletion(ctx context.Context, jobID uuid.UUID, final cutting.FinalMeasurements) (*cutting.BalanceReport, error)
}

// CompleteJob answers 422 with the balance report when the variance is above
// the hard limit.
func CompleteJob(log *slog.Logger, jobs JobCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.CompleteJob"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req cutting.FinalMeasurements
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), Deadline)
		defer cancel()

		res, err := jobs.CompleteJob(ctx, actor, id, req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Info("job completed",
			slog.String("op", op),
			slog.String("job_order_no", res.Job.JobOrderNo),
			slog.Bool("balanced", res.IsBalanced),
		)

		render.JSON(w, r, res)
	}
}

// PreviewCompletion reconciles the figures without closing the job.
func PreviewCompletion(log *slog.Logger, jobs JobCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.jobs.PreviewCompletion"

		if _, ok := respond.Actor(w, r); !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req cutting.FinalMeasurements
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report, err := jobs.PreviewCompletion(ctx, id, req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, report)
	}
}
