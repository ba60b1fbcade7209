package storage

import (
	"context"

	"github.com/google/uuid"
)

// JobTx is the unit of work used for every job mutation. LockJob must be the
// first call: it takes the row lock that serializes writers of one job until
// the transaction ends.
type JobTx interface {
	LockJob(ctx context.Context, id uuid.UUID) (*CuttingJob, error)
	// ListOperations returns the job's operations ordered by sequence.
	ListOperations(ctx context.Context, jobID uuid.UUID) ([]CuttingOperation, error)
	InsertOperation(ctx context.Context, op *CuttingOperation) error
	DeleteOperation(ctx context.Context, jobID, operationID uuid.UUID) error
	SetOperationSequence(ctx context.Context, operationID uuid.UUID, sequence int) error
	UpdateJobTotals(ctx context.Context, jobID uuid.UUID, totals JobTotals) error
	// RevisePlan fails with ErrStatusConflict unless the job is still PLANNED.
	RevisePlan(ctx context.Context, jobID uuid.UUID, rev PlanRevision) error
	// TransitionJob is a compare-and-swap on status: ErrStatusConflict when the
	// stored status is not t.From.
	TransitionJob(ctx context.Context, jobID uuid.UUID, t Transition) error
	InsertScrapEntry(ctx context.Context, e *ScrapEntry) error
	DeletePendingScrapForOperation(ctx context.Context, operationID uuid.UUID) (int64, error)
	ScrapWeightForJob(ctx context.Context, jobID uuid.UUID) (float64, error)
}
