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

type OperationProvider interface {
	ListOperations(ctx context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error)
}

type Response struct {
	Operations []storage.CuttingOperation `json:"operations"`
	Totals     cutting.RunningTotals      `json:"running_totals"`
}

// ListOperations returns the job's ledger in sequence order with totals
// recomputed from it.
func ListOperations(log *slog.Logger, ops OperationProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.operations.ListOperations"

		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := ops.ListOperations(ctx, id)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}
		if list == nil {
			list = []storage.CuttingOperation{}
		}

		render.JSON(w, r, Response{Operations: list, Totals: cutting.ComputeTotals(list)})
	}
}
