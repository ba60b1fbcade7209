package cutting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/storage"
)

// maxJobNoAttempts bounds retries after a generated job order number collides.
const maxJobNoAttempts = 3

// GenerateJobOrderNo returns WO-<year>-<month>-<4 random digits>. Collisions
// are expected and handled by CreateJob.
func GenerateJobOrderNo(now time.Time) string {
	return fmt.Sprintf("WO-%04d-%02d-%04d", now.Year(), int(now.Month()), rand.Intn(10000))
}

type jobRefs struct {
	machine    *storage.Machine
	material   *storage.RawMaterial
	operator   *storage.Employee
	supervisor *storage.Employee
}

// loadRefs fetches the master records a new job points at.
func (s *Service) loadRefs(ctx context.Context, op string, j newJob) (jobRefs, error) {
	var refs jobRefs

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.master.GetMachine(gCtx, j.machineID)
		if err != nil {
			return refErr(op, "machine", j.machineID, err)
		}
		if !m.IsActive {
			return validationf(op, "machine %s is not active", m.Code)
		}
		refs.machine = m
		return nil
	})
	g.Go(func() error {
		m, err := s.master.GetRawMaterial(gCtx, j.materialID)
		if err != nil {
			return refErr(op, "material", j.materialID, err)
		}
		if !m.IsActive {
			return validationf(op, "material %s is not active", m.Code)
		}
		refs.material = m
		return nil
	})
	g.Go(func() error {
		e, err := s.master.GetEmployee(gCtx, j.operatorID)
		if err != nil {
			return refErr(op, "operator", j.operatorID, err)
		}
		if !e.IsActive {
			return validationf(op, "operator %s is not active", e.Name)
		}
		refs.operator = e
		return nil
	})
	g.Go(func() error {
		e, err := s.master.GetEmployee(gCtx, j.supervisorID)
		if err != nil {
			return refErr(op, "supervisor", j.supervisorID, err)
		}
		if !e.IsActive {
			return validationf(op, "supervisor %s is not active", e.Name)
		}
		role, _ := authz.ParseRole(e.Role)
		if role != authz.RoleSupervisor && role != authz.RoleManager {
			return validationf(op, "employee %s is not a supervisor", e.Name)
		}
		refs.supervisor = e
		return nil
	})

	if err := g.Wait(); err != nil {
		return jobRefs{}, err
	}
	return refs, nil
}

func refErr(op, what string, id int64, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return validationf(op, "%s %d does not exist", what, id)
	}
	return storageErr(op, err)
}

// CreateJob registers a PLANNED job. The raw material weight entered here
// becomes the job's fixed input weight.
func (s *Service) CreateJob(ctx context.Context, actor authz.Actor, req CreateJobRequest) (*storage.CuttingJob, error) {
	const op = "cutting.CreateJob"

	if err := s.authorize(op, actor, authz.JobCreate); err != nil {
		return nil, err
	}
	j, err := req.normalize(op)
	if err != nil {
		return nil, err
	}
	refs, err := s.loadRefs(ctx, op, j)
	if err != nil {
		return nil, err
	}

	now := s.now()
	job := &storage.CuttingJob{
		ID:                 uuid.New(),
		OperatorID:         j.operatorID,
		SupervisorID:       j.supervisorID,
		MachineID:          j.machineID,
		MaterialID:         j.materialID,
		Shift:              j.shift,
		OperatorName:       refs.operator.Name,
		SupervisorName:     refs.supervisor.Name,
		MachineName:        refs.machine.Name,
		MaterialCode:       refs.material.Code,
		MaterialName:       refs.material.Name,
		MaterialCostPerKg:  refs.material.CostPerKg,
		PlannedOutputQty:   j.plannedQty,
		TotalInputWeightKg: j.inputKg,
		Status:             storage.JobPlanned,
		Notes:              j.notes,
		CreatedByID:        actor.ID,
		CreatedAt:          now,
	}

	if j.jobOrderNo != nil {
		job.JobOrderNo = strings.ToUpper(*j.jobOrderNo)
		err := s.repo.CreateJob(ctx, job)
		if errors.Is(err, storage.ErrJobOrderExists) {
			return nil, validationf(op, "job order %s already exists", job.JobOrderNo)
		}
		if err != nil {
			return nil, storageErr(op, err)
		}
		s.logCreated(job)
		return job, nil
	}

	for attempt := 1; attempt <= maxJobNoAttempts; attempt++ {
		job.JobOrderNo = s.jobNo(now)
		err := s.repo.CreateJob(ctx, job)
		if err == nil {
			s.logCreated(job)
			return job, nil
		}
		if !errors.Is(err, storage.ErrJobOrderExists) {
			return nil, storageErr(op, err)
		}
		s.log.Warn("job order number collision",
			slog.String("op", op),
			slog.String("job_order_no", job.JobOrderNo),
			slog.Int("attempt", attempt),
		)
	}

	return nil, &Error{
		Kind: KindStorage,
		Op:   op,
		Msg:  fmt.Sprintf("no free job order number after %d attempts", maxJobNoAttempts),
		Err:  storage.ErrJobOrderExists,
	}
}

func (s *Service) logCreated(job *storage.CuttingJob) {
	s.log.Info("job created",
		slog.String("job_id", job.ID.String()),
		slog.String("job_order_no", job.JobOrderNo),
		slog.Float64("input_kg", job.TotalInputWeightKg),
		slog.Int("planned_qty", job.PlannedOutputQty),
	)
}

// RevisePlan corrects the planned quantity or input weight of a job that has
// not started yet.
func (s *Service) RevisePlan(ctx context.Context, actor authz.Actor, jobID uuid.UUID, req PlanRevisionRequest) (*storage.CuttingJob, error) {
	const op = "cutting.RevisePlan"

	if err := s.authorize(op, actor, authz.JobRevise); err != nil {
		return nil, err
	}

	var out *storage.CuttingJob
	err := s.withJob(ctx, op, jobID, func(tx storage.JobTx, job *storage.CuttingJob) error {
		if job.Status != storage.JobPlanned {
			return stateErr(op, KindInvalidState, "job %s is %s; input weight is fixed once the job leaves PLANNED", job.JobOrderNo, job.Status)
		}
		rev, err := req.normalize(op, job)
		if err != nil {
			return err
		}
		if err := tx.RevisePlan(ctx, job.ID, rev); err != nil {
			if errors.Is(err, storage.ErrStatusConflict) {
				return stateErr(op, KindInvalidState, "job %s is no longer PLANNED", job.JobOrderNo)
			}
			return err
		}
		job.PlannedOutputQty = rev.PlannedOutputQty
		job.TotalInputWeightKg = rev.TotalInputWeightKg
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) StartJob(ctx context.Context, actor authz.Actor, jobID uuid.UUID) (*storage.CuttingJob, error) {
	const op = "cutting.StartJob"

	if err := s.authorize(op, actor, authz.JobStart); err != nil {
		return nil, err
	}
	return s.transition(ctx, op, jobID, storage.Transition{
		From: storage.JobPlanned,
		To:   storage.JobInProgress,
	}, storage.JobPlanned)
}

// CancelJob is reserved to supervisors and managers and needs a reason.
// Logged operations stay for audit.
func (s *Service) CancelJob(ctx context.Context, actor authz.Actor, jobID uuid.UUID, reason string) (*storage.CuttingJob, error) {
	const op = "cutting.CancelJob"

	if err := s.authorize(op, actor, authz.JobCancel); err != nil {
		return nil, err
	}
	r := text(&reason)
	if r == nil {
		return nil, validationf(op, "cancellation reason is required")
	}
	return s.transition(ctx, op, jobID, storage.Transition{
		To:                 storage.JobCancelled,
		CancellationReason: r,
	}, storage.JobPlanned, storage.JobInProgress)
}

// transition moves a job to t.To when its current status is one of allowed.
// t.From is filled from the locked row so the store's compare-and-swap checks
// exactly the state we validated.
func (s *Service) transition(ctx context.Context, op string, jobID uuid.UUID, t storage.Transition, allowed ...storage.JobStatus) (*storage.CuttingJob, error) {
	var out *storage.CuttingJob
	err := s.withJob(ctx, op, jobID, func(tx storage.JobTx, job *storage.CuttingJob) error {
		if !statusIn(job.Status, allowed) {
			return stateErr(op, KindInvalidTransition, "job %s cannot move from %s to %s", job.JobOrderNo, job.Status, t.To)
		}
		t.From = job.Status
		t.At = s.now()
		if err := tx.TransitionJob(ctx, job.ID, t); err != nil {
			if errors.Is(err, storage.ErrStatusConflict) {
				return stateErr(op, KindInvalidTransition, "job %s changed status concurrently", job.JobOrderNo)
			}
			return err
		}
		t.Apply(job)
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job status changed",
		slog.String("op", op),
		slog.String("job_order_no", out.JobOrderNo),
		slog.String("from", string(t.From)),
		slog.String("to", string(out.Status)),
	)
	return out, nil
}

func statusIn(s storage.JobStatus, set []storage.JobStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
