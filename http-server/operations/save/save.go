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
)

type OperationRecorder interface {
	AddOperation(ctx context.Context, actor authz.Actor, jobID uuid.UUID, in cutting.OperationInput) (*cutting.OperationResult, error)
	PreviewOperation(in cutting.OperationInput) (*cutting.BalanceWarning, error)
}

func AddOperation(log *slog.Logger, rec OperationRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.operations.AddOperation"

		actor, ok := respond.Actor(w, r)
		if !ok {
			return
		}
		id, ok := respond.UUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req cutting.OperationInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		res, err := rec.AddOperation(ctx, actor, id, req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, res)
	}
}

type balanceResponse struct {
	Balanced bool                    `json:"balanced"`
	Warning  *cutting.BalanceWarning `json:"warning,omitempty"`
}

// CheckBalance validates one measurement and reports whether it balances.
// Nothing is recorded.
func CheckBalance(log *slog.Logger, rec OperationRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.operations.CheckBalance"

		var req cutting.OperationInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, "invalid JSON")
			return
		}

		warning, err := rec.PreviewOperation(req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, balanceResponse{Balanced: warning == nil, Warning: warning})
	}
}
