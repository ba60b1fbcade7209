package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cutting-tracker/internal/storage"
)

type jobTx struct {
	st *state
}

func (tx *jobTx) job(op string, id uuid.UUID) (storage.CuttingJob, error) {
	j, ok := tx.st.jobs[id]
	if !ok {
		return j, fmt.Errorf("%s: job %s: %w", op, id, storage.ErrNotFound)
	}
	return j, nil
}

func (tx *jobTx) LockJob(_ context.Context, id uuid.UUID) (*storage.CuttingJob, error) {
	j, err := tx.job("storage.memory.LockJob", id)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (tx *jobTx) ListOperations(_ context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error) {
	return tx.st.operations(jobID), nil
}

func (tx *jobTx) InsertOperation(_ context.Context, o *storage.CuttingOperation) error {
	const op = "storage.memory.InsertOperation"

	if _, ok := tx.st.jobs[o.JobID]; !ok {
		return fmt.Errorf("%s: job %s: %w", op, o.JobID, storage.ErrReferenceBroken)
	}
	for _, other := range tx.st.ops {
		if other.JobID == o.JobID && other.Sequence == o.Sequence {
			return fmt.Errorf("%s: sequence %d: %w", op, o.Sequence, storage.ErrSequenceTaken)
		}
	}
	tx.st.ops[o.ID] = *o
	return nil
}

// DeleteOperation detaches decided scrap entries from the operation, the way
// the SQL schema does with ON DELETE SET NULL.
func (tx *jobTx) DeleteOperation(_ context.Context, jobID, operationID uuid.UUID) error {
	const op = "storage.memory.DeleteOperation"

	o, ok := tx.st.ops[operationID]
	if !ok || o.JobID != jobID {
		return fmt.Errorf("%s: operation %s: %w", op, operationID, storage.ErrNotFound)
	}
	delete(tx.st.ops, operationID)

	for id, e := range tx.st.scrap {
		if e.OperationID != nil && *e.OperationID == operationID {
			e.OperationID = nil
			tx.st.scrap[id] = e
		}
	}
	return nil
}

func (tx *jobTx) SetOperationSequence(_ context.Context, operationID uuid.UUID, sequence int) error {
	const op = "storage.memory.SetOperationSequence"

	o, ok := tx.st.ops[operationID]
	if !ok {
		return fmt.Errorf("%s: operation %s: %w", op, operationID, storage.ErrNotFound)
	}
	for id, other := range tx.st.ops {
		if id != operationID && other.JobID == o.JobID && other.Sequence == sequence {
			return fmt.Errorf("%s: sequence %d: %w", op, sequence, storage.ErrSequenceTaken)
		}
	}
	o.Sequence = sequence
	tx.st.ops[operationID] = o
	return nil
}

func (tx *jobTx) UpdateJobTotals(_ context.Context, jobID uuid.UUID, totals storage.JobTotals) error {
	j, err := tx.job("storage.memory.UpdateJobTotals", jobID)
	if err != nil {
		return err
	}
	j.JobTotals = totals
	tx.st.jobs[jobID] = j
	return nil
}

func (tx *jobTx) RevisePlan(_ context.Context, jobID uuid.UUID, rev storage.PlanRevision) error {
	const op = "storage.memory.RevisePlan"

	j, err := tx.job(op, jobID)
	if err != nil {
		return err
	}
	if j.Status != storage.JobPlanned {
		return fmt.Errorf("%s: job is %s: %w", op, j.Status, storage.ErrStatusConflict)
	}
	j.PlannedOutputQty = rev.PlannedOutputQty
	j.TotalInputWeightKg = rev.TotalInputWeightKg
	tx.st.jobs[jobID] = j
	return nil
}

func (tx *jobTx) TransitionJob(_ context.Context, jobID uuid.UUID, t storage.Transition) error {
	const op = "storage.memory.TransitionJob"

	j, err := tx.job(op, jobID)
	if err != nil {
		return err
	}
	if j.Status != t.From {
		return fmt.Errorf("%s: job is %s, expected %s: %w", op, j.Status, t.From, storage.ErrStatusConflict)
	}
	t.Apply(&j)
	tx.st.jobs[jobID] = j
	return nil
}

func (tx *jobTx) InsertScrapEntry(_ context.Context, e *storage.ScrapEntry) error {
	const op = "storage.memory.InsertScrapEntry"

	if _, ok := tx.st.jobs[e.JobID]; !ok {
		return fmt.Errorf("%s: job %s: %w", op, e.JobID, storage.ErrReferenceBroken)
	}
	if e.OperationID != nil {
		if _, ok := tx.st.ops[*e.OperationID]; !ok {
			return fmt.Errorf("%s: operation %s: %w", op, *e.OperationID, storage.ErrReferenceBroken)
		}
	}
	tx.st.scrap[e.ID] = *e
	return nil
}

func (tx *jobTx) DeletePendingScrapForOperation(_ context.Context, operationID uuid.UUID) (int64, error) {
	var n int64
	for id, e := range tx.st.scrap {
		if e.OperationID != nil && *e.OperationID == operationID && e.ApprovalStatus == storage.ApprovalPending {
			delete(tx.st.scrap, id)
			n++
		}
	}
	return n, nil
}

// ScrapWeightForJob sums the entries of a job that have not been rejected.
func (tx *jobTx) ScrapWeightForJob(_ context.Context, jobID uuid.UUID) (float64, error) {
	var total float64
	for _, e := range tx.st.scrap {
		if e.JobID == jobID && e.ApprovalStatus != storage.ApprovalRejected {
			total += e.ScrapWeightKg
		}
	}
	return total, nil
}
