package cutting

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/storage"
)

func (s *Service) newScrapEntry(job *storage.CuttingJob, operationID *uuid.UUID, weightKg float64, spec scrapSpec, createdBy int64) *storage.ScrapEntry {
	return &storage.ScrapEntry{
		ID:                  uuid.New(),
		JobID:               job.ID,
		OperationID:         operationID,
		ScrapClassification: spec.classification,
		ScrapType:           spec.scrapType,
		ReasonCodeID:        spec.reasonID,
		ScrapWeightKg:       weightKg,
		ScrapQuantity:       spec.quantity,
		ScrapValueEstimate:  scrapValue(weightKg, job.MaterialCostPerKg),
		IsRecyclable:        spec.recyclable,
		ApprovalStatus:      storage.ApprovalPending,
		CreatedByID:         createdBy,
		CreatedAt:           s.now(),
	}
}

// CreateScrapEntry records scrap reported outside an operation, for example
// found while clearing the machine. Entries always start PENDING.
func (s *Service) CreateScrapEntry(ctx context.Context, actor authz.Actor, jobID uuid.UUID, in ScrapInput) (*storage.ScrapEntry, error) {
	const op = "cutting.CreateScrapEntry"

	if err := s.authorize(op, actor, authz.ScrapCreate); err != nil {
		return nil, err
	}
	ns, err := in.normalize(op)
	if err != nil {
		return nil, err
	}
	if err := s.checkReason(ctx, op, ns.spec.reasonID); err != nil {
		return nil, err
	}

	var entry *storage.ScrapEntry
	err = s.withJob(ctx, op, jobID, func(tx storage.JobTx, job *storage.CuttingJob) error {
		if job.Status != storage.JobInProgress && job.Status != storage.JobCompleted {
			return stateErr(op, KindInvalidState, "job %s is %s; scrap can only be recorded for running or completed jobs", job.JobOrderNo, job.Status)
		}
		if ns.operationID != nil {
			ops, err := tx.ListOperations(ctx, job.ID)
			if err != nil {
				return err
			}
			if !hasOperation(ops, *ns.operationID) {
				return validationf(op, "operation %s does not belong to job %s", ns.operationID, job.JobOrderNo)
			}
		}
		entry = s.newScrapEntry(job, ns.operationID, ns.weightKg, ns.spec, actor.ID)
		return tx.InsertScrapEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("scrap entry created",
		slog.String("entry_id", entry.ID.String()),
		slog.String("job_id", jobID.String()),
		slog.Float64("weight_kg", entry.ScrapWeightKg),
	)
	return entry, nil
}

func hasOperation(ops []storage.CuttingOperation, id uuid.UUID) bool {
	for _, o := range ops {
		if o.ID == id {
			return true
		}
	}
	return false
}

// ApproveScrap makes a PENDING entry eligible for cost posting. Notes are optional.
func (s *Service) ApproveScrap(ctx context.Context, actor authz.Actor, entryID uuid.UUID, notes *string) (*storage.ScrapEntryView, error) {
	const op = "cutting.ApproveScrap"

	if err := s.authorize(op, actor, authz.ScrapApprove); err != nil {
		return nil, err
	}
	return s.decide(ctx, op, entryID, storage.ScrapDecision{
		Status:     storage.ApprovalApproved,
		ApproverID: actor.ID,
		Notes:      text(notes),
	})
}

// RejectScrap refuses a PENDING entry. A reason is mandatory.
func (s *Service) RejectScrap(ctx context.Context, actor authz.Actor, entryID uuid.UUID, notes string) (*storage.ScrapEntryView, error) {
	const op = "cutting.RejectScrap"

	if err := s.authorize(op, actor, authz.ScrapReject); err != nil {
		return nil, err
	}
	n := text(&notes)
	if n == nil {
		return nil, validationf(op, "rejection notes are required")
	}
	return s.decide(ctx, op, entryID, storage.ScrapDecision{
		Status:     storage.ApprovalRejected,
		ApproverID: actor.ID,
		Notes:      n,
	})
}

func (s *Service) decide(ctx context.Context, op string, entryID uuid.UUID, d storage.ScrapDecision) (*storage.ScrapEntryView, error) {
	entry, err := s.repo.GetScrapEntry(ctx, entryID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if entry.ApprovalStatus != storage.ApprovalPending {
		return nil, stateErr(op, KindInvalidTransition, "scrap entry is already %s", entry.ApprovalStatus)
	}

	d.At = s.now()
	if err := s.repo.DecideScrapEntry(ctx, entryID, d); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			return nil, stateErr(op, KindInvalidTransition, "scrap entry was decided concurrently")
		}
		return nil, storageErr(op, err)
	}
	d.Apply(&entry.ScrapEntry)

	s.log.Info("scrap entry decided",
		slog.String("entry_id", entryID.String()),
		slog.String("job_order_no", entry.JobOrderNo),
		slog.String("status", string(d.Status)),
		slog.Int64("approver_id", d.ApproverID),
	)
	return entry, nil
}

func (s *Service) GetScrapEntry(ctx context.Context, id uuid.UUID) (*storage.ScrapEntryView, error) {
	const op = "cutting.GetScrapEntry"

	e, err := s.repo.GetScrapEntry(ctx, id)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return e, nil
}

// ListScrapEntries is read-only; status, job and search combine with AND.
func (s *Service) ListScrapEntries(ctx context.Context, filter storage.ScrapFilter) ([]storage.ScrapEntryView, error) {
	const op = "cutting.ListScrapEntries"

	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validationf(op, "unknown approval status %q", *filter.Status)
	}
	entries, err := s.repo.ListScrapEntries(ctx, filter)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return entries, nil
}
