package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"cutting-tracker/http-server/respond"
	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/service/cutting"
)

type OperationRemover interface {
	RemoveOperation(ctx context.Context, actor authz.Actor, jobID, operationID uuid.UUID) (*cutting.RunningTotals, error)
}

// RemoveOperation deletes one ledger entry and returns the recomputed totals.
func RemoveOperation(log *slog.Logger, remover OperationRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.operations.RemoveOperation"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		jobID, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}
		opID, ok := respond.UUIDParam(w, r, "opID")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		totals, err := remover.RemoveOperation(ctx, actor, jobID, opID)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, totals)
	}
}
