package cutting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/storage"
)

// OperationToleranceKg is the per-operation balance tolerance.
const OperationToleranceKg = 0.1

type RunningTotals struct {
	OperationCount         int     `json:"operation_count"`
	TotalInputWeight       float64 `json:"total_input_weight"`
	TotalOutputWeight      float64 `json:"total_output_weight"`
	TotalCutPiecesWeight   float64 `json:"total_cut_pieces_weight"`
	TotalScrapWeight       float64 `json:"total_scrap_weight"`
	TotalEndPieceWeight    float64 `json:"total_end_piece_weight"`
	TotalOutputParts       int     `json:"total_output_parts"`
	CurrentScrapPercentage float64 `json:"current_scrap_percentage"`
}

// ComputeTotals sums the ledger from scratch. It is used after removals as
// well as additions so rounding errors never accumulate across edits.
func ComputeTotals(ops []storage.CuttingOperation) RunningTotals {
	t := RunningTotals{OperationCount: len(ops)}
	for _, op := range ops {
		t.TotalInputWeight += op.InputWeightKg
		t.TotalOutputWeight += op.OutputTotalWeightKg
		t.TotalCutPiecesWeight += op.CutPiecesWeightKg
		t.TotalScrapWeight += op.ScrapWeightKg
		t.TotalEndPieceWeight += op.EndPieceWeightKg
		t.TotalOutputParts += op.OutputPartsCount
	}
	if t.TotalInputWeight > 0 {
		t.CurrentScrapPercentage = t.TotalScrapWeight / t.TotalInputWeight * 100
	}
	return t
}

func (t RunningTotals) jobTotals() storage.JobTotals {
	return storage.JobTotals{
		ActualOutputQty:       t.TotalOutputParts,
		TotalOutputWeightKg:   t.TotalOutputWeight,
		TotalReusableWeightKg: t.TotalCutPiecesWeight,
		TotalEndPieceWeightKg: t.TotalEndPieceWeight,
		TotalScrapWeightKg:    t.TotalScrapWeight,
		ScrapPercentage:       t.CurrentScrapPercentage,
	}
}

// BalanceWarning is advisory: operators may weigh end pieces later, so an
// unbalanced operation is still recorded.
type BalanceWarning struct {
	InputWeightKg     float64 `json:"input_weight_kg"`
	AccountedWeightKg float64 `json:"accounted_weight_kg"`
	DifferenceKg      float64 `json:"difference_kg"`
	ToleranceKg       float64 `json:"tolerance_kg"`
	Message           string  `json:"message"`
}

// CheckOperationBalance compares one operation's input against its outputs,
// cut pieces, scrap and end piece. It returns nil when within tolerance.
func CheckOperationBalance(op storage.CuttingOperation) *BalanceWarning {
	in := decimal.NewFromFloat(op.InputWeightKg)
	accounted := decimal.NewFromFloat(op.OutputTotalWeightKg).
		Add(decimal.NewFromFloat(op.CutPiecesWeightKg)).
		Add(decimal.NewFromFloat(op.ScrapWeightKg)).
		Add(decimal.NewFromFloat(op.EndPieceWeightKg))
	diff := in.Sub(accounted)

	if diff.Abs().LessThanOrEqual(decimal.NewFromFloat(OperationToleranceKg)) {
		return nil
	}
	return &BalanceWarning{
		InputWeightKg:     op.InputWeightKg,
		AccountedWeightKg: accounted.InexactFloat64(),
		DifferenceKg:      diff.InexactFloat64(),
		ToleranceKg:       OperationToleranceKg,
		Message: fmt.Sprintf("operation weights differ from input by %s kg (tolerance %.1f kg)",
			diff.StringFixed(3), OperationToleranceKg),
	}
}

type OperationResult struct {
	Operation      storage.CuttingOperation `json:"operation"`
	Totals         RunningTotals            `json:"running_totals"`
	BalanceWarning *BalanceWarning          `json:"balance_warning,omitempty"`
	ScrapEntry     *storage.ScrapEntry      `json:"scrap_entry,omitempty"`
}

// PreviewOperation validates a measurement and reports its balance without
// recording anything, so the form can ask the operator before submitting.
func (s *Service) PreviewOperation(in OperationInput) (*BalanceWarning, error) {
	const op = "cutting.PreviewOperation"

	m, err := in.normalize(op)
	if err != nil {
		return nil, err
	}
	return CheckOperationBalance(m.op), nil
}

func (s *Service) checkReason(ctx context.Context, op string, id *int64) error {
	if id == nil {
		return nil
	}
	r, err := s.master.GetScrapReason(ctx, *id)
	if err != nil {
		return refErr(op, "scrap reason", *id, err)
	}
	if !r.IsActive {
		return validationf(op, "scrap reason %s is not active", r.Code)
	}
	return nil
}

// AddOperation appends a measurement to a running job and refreshes the
// job's running totals. Scrap above zero raises a PENDING scrap entry.
func (s *Service) AddOperation(ctx context.Context, actor authz.Actor, jobID uuid.UUID, in OperationInput) (*OperationResult, error) {
	const op = "cutting.AddOperation"

	if err := s.authorize(op, actor, authz.OperationAdd); err != nil {
		return nil, err
	}
	m, err := in.normalize(op)
	if err != nil {
		return nil, err
	}
	if m.op.ScrapWeightKg > 0 {
		if err := s.checkReason(ctx, op, m.scrap.reasonID); err != nil {
			return nil, err
		}
	}

	var res OperationResult
	err = s.withJob(ctx, op, jobID, func(tx storage.JobTx, job *storage.CuttingJob) error {
		if job.Status != storage.JobInProgress {
			return stateErr(op, KindInvalidState, "job %s is %s; operations can only be added while IN_PROGRESS", job.JobOrderNo, job.Status)
		}

		ops, err := tx.ListOperations(ctx, job.ID)
		if err != nil {
			return err
		}

		next := m.op
		next.ID = uuid.New()
		next.JobID = job.ID
		next.Sequence = maxSequence(ops) + 1
		next.CreatedByID = actor.ID
		next.CreatedAt = s.now()

		if err := tx.InsertOperation(ctx, &next); err != nil {
			return err
		}
		ops = append(ops, next)

		totals := ComputeTotals(ops)
		if err := tx.UpdateJobTotals(ctx, job.ID, totals.jobTotals()); err != nil {
			return err
		}

		if next.ScrapWeightKg > 0 {
			entry := s.newScrapEntry(job, &next.ID, next.ScrapWeightKg, m.scrap, actor.ID)
			if err := tx.InsertScrapEntry(ctx, entry); err != nil {
				return err
			}
			res.ScrapEntry = entry
		}

		res.Operation = next
		res.Totals = totals
		res.BalanceWarning = CheckOperationBalance(next)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("operation added",
		slog.String("job_id", jobID.String()),
		slog.Int("sequence", res.Operation.Sequence),
		slog.Float64("input_kg", res.Operation.InputWeightKg),
		slog.Bool("balance_warning", res.BalanceWarning != nil),
	)
	return &res, nil
}

// RemoveOperation deletes an operation from a running job, renumbers the rest
// to 1..N and recomputes every total from the remaining operations.
func (s *Service) RemoveOperation(ctx context.Context, actor authz.Actor, jobID, operationID uuid.UUID) (*RunningTotals, error) {
	const op = "cutting.RemoveOperation"

	if err := s.authorize(op, actor, authz.OperationRemove); err != nil {
		return nil, err
	}

	var totals RunningTotals
	err := s.withJob(ctx, op, jobID, func(tx storage.JobTx, job *storage.CuttingJob) error {
		if job.Status != storage.JobInProgress {
			return stateErr(op, KindInvalidState, "job %s is %s; operations can only be removed while IN_PROGRESS", job.JobOrderNo, job.Status)
		}

		ops, err := tx.ListOperations(ctx, job.ID)
		if err != nil {
			return err
		}
		idx := -1
		for i := range ops {
			if ops[i].ID == operationID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf("operation %s not found in job %s", operationID, job.JobOrderNo)}
		}

		if _, err := tx.DeletePendingScrapForOperation(ctx, operationID); err != nil {
			return err
		}
		if err := tx.DeleteOperation(ctx, job.ID, operationID); err != nil {
			return err
		}

		remaining := append(ops[:idx:idx], ops[idx+1:]...)
		for i := range remaining {
			want := i + 1
			if remaining[i].Sequence == want {
				continue
			}
			if err := tx.SetOperationSequence(ctx, remaining[i].ID, want); err != nil {
				return err
			}
			remaining[i].Sequence = want
		}

		totals = ComputeTotals(remaining)
		return tx.UpdateJobTotals(ctx, job.ID, totals.jobTotals())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("operation removed",
		slog.String("job_id", jobID.String()),
		slog.String("operation_id", operationID.String()),
		slog.Int("remaining", totals.OperationCount),
	)
	return &totals, nil
}

func (s *Service) ListOperations(ctx context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error) {
	const op = "cutting.ListOperations"

	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return nil, storageErr(op, err)
	}
	ops, err := s.repo.ListOperations(ctx, jobID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return ops, nil
}

// RunningTotals recomputes the ledger totals of a job.
func (s *Service) RunningTotals(ctx context.Context, jobID uuid.UUID) (*RunningTotals, error) {
	ops, err := s.ListOperations(ctx, jobID)
	if err != nil {
		return nil, err
	}
	t := ComputeTotals(ops)
	return &t, nil
}

func maxSequence(ops []storage.CuttingOperation) int {
	highest := 0
	for _, op := range ops {
		if op.Sequence > highest {
			highest = op.Sequence
		}
	}
	return highest
}
