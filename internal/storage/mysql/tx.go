package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cutting-tracker/internal/storage"
)

type jobTx struct {
	tx *sql.Tx
}

// LockJob reads the job with SELECT ... FOR UPDATE. The row stays locked
// until the transaction ends.
func (t *jobTx) LockJob(ctx context.Context, id uuid.UUID) (*storage.CuttingJob, error) {
	const op = "storage.mysql.LockJob"

	row := t.tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM cutting_jobs WHERE id = ? FOR UPDATE`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: job %s: %w", op, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

func (t *jobTx) ListOperations(ctx context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error) {
	return listOperations(ctx, t.tx, "storage.mysql.tx.ListOperations", jobID)
}

func (t *jobTx) InsertOperation(ctx context.Context, o *storage.CuttingOperation) error {
	const op = "storage.mysql.InsertOperation"

	stmt := `INSERT INTO cutting_operations (` + operationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := t.tx.ExecContext(ctx, stmt, o.ID, o.JobID, o.Sequence, o.InputLengthMm, o.InputWeightKg, o.OutputPartsCount,
		o.OutputPartsLengthMm, o.OutputTotalWeightKg, o.CutPiecesWeightKg, o.CutPiecesCount,
		o.ScrapWeightKg, o.EndPieceWeightKg, o.OperationTimeMinutes, nullString(o.Notes), o.CreatedByID, o.CreatedAt)
	if err != nil {
		switch mysqlErrno(err) {
		case errDuplicateEntry:
			return fmt.Errorf("%s: sequence %d: %w", op, o.Sequence, storage.ErrSequenceTaken)
		case errNoReferenced:
			return fmt.Errorf("%s: %w: %v", op, storage.ErrReferenceBroken, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteOperation removes one operation. Scrap entries still pointing at it
// lose the reference through the ON DELETE SET NULL foreign key.
func (t *jobTx) DeleteOperation(ctx context.Context, jobID, operationID uuid.UUID) error {
	const op = "storage.mysql.DeleteOperation"

	res, err := t.tx.ExecContext(ctx, `DELETE FROM cutting_operations WHERE id = ? AND job_id = ?`, operationID, jobID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := execOne(res, storage.ErrNotFound); err != nil {
		return fmt.Errorf("%s: operation %s: %w", op, operationID, err)
	}
	return nil
}

func (t *jobTx) SetOperationSequence(ctx context.Context, operationID uuid.UUID, sequence int) error {
	const op = "storage.mysql.SetOperationSequence"

	res, err := t.tx.ExecContext(ctx, `UPDATE cutting_operations SET sequence = ? WHERE id = ?`, sequence, operationID)
	if err != nil {
		if mysqlErrno(err) == errDuplicateEntry {
			return fmt.Errorf("%s: sequence %d: %w", op, sequence, storage.ErrSequenceTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := execOne(res, storage.ErrNotFound); err != nil {
		return fmt.Errorf("%s: operation %s: %w", op, operationID, err)
	}
	return nil
}

func (t *jobTx) UpdateJobTotals(ctx context.Context, jobID uuid.UUID, tot storage.JobTotals) error {
	const op = "storage.mysql.UpdateJobTotals"

	_, err := t.tx.ExecContext(ctx, `UPDATE cutting_jobs SET actual_output_qty = ?, total_output_weight_kg = ?,
			total_reusable_weight_kg = ?, total_end_piece_weight_kg = ?, total_scrap_weight_kg = ?, scrap_percentage = ?
		WHERE id = ?`,
		tot.ActualOutputQty, tot.TotalOutputWeightKg, tot.TotalReusableWeightKg, tot.TotalEndPieceWeightKg,
		tot.TotalScrapWeightKg, tot.ScrapPercentage, jobID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *jobTx) RevisePlan(ctx context.Context, jobID uuid.UUID, rev storage.PlanRevision) error {
	const op = "storage.mysql.RevisePlan"

	res, err := t.tx.ExecContext(ctx, `UPDATE cutting_jobs SET planned_output_qty = ?, total_input_weight_kg = ?
		WHERE id = ? AND status = ?`, rev.PlannedOutputQty, rev.TotalInputWeightKg, jobID, storage.JobPlanned)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := execOne(res, storage.ErrStatusConflict); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// TransitionJob is a compare-and-swap on status. Completion figures, when
// present, are written by the same statement.
func (t *jobTx) TransitionJob(ctx context.Context, jobID uuid.UUID, tr storage.Transition) error {
	const op = "storage.mysql.TransitionJob"

	var (
		res sql.Result
		err error
	)
	switch tr.To {
	case storage.JobInProgress:
		res, err = t.tx.ExecContext(ctx, `UPDATE cutting_jobs SET status = ?, started_at = ?
			WHERE id = ? AND status = ?`, tr.To, tr.At, jobID, tr.From)
	case storage.JobCancelled:
		res, err = t.tx.ExecContext(ctx, `UPDATE cutting_jobs SET status = ?, cancelled_at = ?, cancellation_reason = ?
			WHERE id = ? AND status = ?`, tr.To, tr.At, nullString(tr.CancellationReason), jobID, tr.From)
	case storage.JobCompleted:
		c := tr.Completion
		if c == nil {
			return fmt.Errorf("%s: completion figures missing", op)
		}
		res, err = t.tx.ExecContext(ctx, `UPDATE cutting_jobs SET status = ?, completed_at = ?,
				actual_output_qty = ?, total_output_weight_kg = ?, total_reusable_weight_kg = ?,
				total_end_piece_weight_kg = ?, total_scrap_weight_kg = ?, scrap_percentage = ?,
				variance_kg = ?, variance_percentage = ?, balance_overridden = ?, scrap_value_estimate = ?
			WHERE id = ? AND status = ?`,
			tr.To, tr.At,
			c.Totals.ActualOutputQty, c.Totals.TotalOutputWeightKg, c.Totals.TotalReusableWeightKg,
			c.Totals.TotalEndPieceWeightKg, c.Totals.TotalScrapWeightKg, c.Totals.ScrapPercentage,
			c.VarianceKg, c.VariancePercentage, c.BalanceOverridden, c.ScrapValueEstimate,
			jobID, tr.From)
	default:
		return fmt.Errorf("%s: unsupported target status %s", op, tr.To)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := execOne(res, storage.ErrStatusConflict); err != nil {
		return fmt.Errorf("%s: %s -> %s: %w", op, tr.From, tr.To, err)
	}
	return nil
}

func (t *jobTx) InsertScrapEntry(ctx context.Context, e *storage.ScrapEntry) error {
	const op = "storage.mysql.InsertScrapEntry"

	stmt := `INSERT INTO scrap_entries (id, job_id, operation_id, scrap_classification, scrap_type, reason_code_id,
			scrap_weight_kg, scrap_quantity, scrap_value_estimate, is_recyclable, approval_status, created_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var reason sql.NullInt64
	if e.ReasonCodeID != nil {
		reason = sql.NullInt64{Int64: *e.ReasonCodeID, Valid: true}
	}

	_, err := t.tx.ExecContext(ctx, stmt, e.ID, e.JobID, nullUUID(e.OperationID), e.ScrapClassification, e.ScrapType, reason,
		e.ScrapWeightKg, e.ScrapQuantity, e.ScrapValueEstimate, e.IsRecyclable, e.ApprovalStatus, e.CreatedByID, e.CreatedAt)
	if err != nil {
		if mysqlErrno(err) == errNoReferenced {
			return fmt.Errorf("%s: %w: %v", op, storage.ErrReferenceBroken, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *jobTx) DeletePendingScrapForOperation(ctx context.Context, operationID uuid.UUID) (int64, error) {
	const op = "storage.mysql.DeletePendingScrapForOperation"

	res, err := t.tx.ExecContext(ctx, `DELETE FROM scrap_entries WHERE operation_id = ? AND approval_status = ?`,
		operationID, storage.ApprovalPending)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ScrapWeightForJob sums the entries of a job that have not been rejected.
func (t *jobTx) ScrapWeightForJob(ctx context.Context, jobID uuid.UUID) (float64, error) {
	const op = "storage.mysql.ScrapWeightForJob"

	var total float64
	err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(scrap_weight_kg), 0) FROM scrap_entries
		WHERE job_id = ? AND approval_status <> ?`, jobID, storage.ApprovalRejected).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
