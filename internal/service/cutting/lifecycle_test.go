package cutting

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/storage"
)

func TestCreateJob(t *testing.T) {
	f := newFixture(t)

	job := f.createJob(t, 125.5)

	assert.Equal(t, storage.JobPlanned, job.Status)
	assert.Regexp(t, `^WO-2026-03-\d{4}$`, job.JobOrderNo)
	assert.Equal(t, storage.ShiftDay, job.Shift)
	assert.Equal(t, 125.5, job.TotalInputWeightKg)
	assert.Equal(t, "Ivan Petrov", job.OperatorName)
	assert.Equal(t, "AL-6063", job.MaterialCode)
	assert.Equal(t, 3.5, job.MaterialCostPerKg)
	assert.Equal(t, operator.ID, job.CreatedByID)

	stored, err := f.svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.JobOrderNo, stored.JobOrderNo)
}

func TestCreateJob_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateJobRequest)
		msg    string
	}{
		{
			name:   "zero weight",
			mutate: func(r *CreateJobRequest) { r.RawMaterialWeightKg = ptr(0.0) },
			msg:    "raw_material_weight_kg",
		},
		{
			name:   "infinite weight",
			mutate: func(r *CreateJobRequest) { r.RawMaterialWeightKg = ptr(math.Inf(1)) },
			msg:    "raw_material_weight_kg must be a finite number",
		},
		{
			name:   "NaN weight",
			mutate: func(r *CreateJobRequest) { r.RawMaterialWeightKg = ptr(math.NaN()) },
			msg:    "raw_material_weight_kg must be a finite number",
		},
		{
			name:   "missing machine",
			mutate: func(r *CreateJobRequest) { r.MachineID = nil },
			msg:    "machine_id is required",
		},
		{
			name:   "bad shift",
			mutate: func(r *CreateJobRequest) { r.Shift = ptr("evening") },
			msg:    "unknown shift",
		},
		{
			name:   "inactive machine",
			mutate: func(r *CreateJobRequest) { r.MachineID = ptr(int64(9)) },
			msg:    "not active",
		},
		{
			name:   "unknown material",
			mutate: func(r *CreateJobRequest) { r.MaterialID = ptr(int64(77)) },
			msg:    "does not exist",
		},
		{
			name:   "operator as supervisor",
			mutate: func(r *CreateJobRequest) { r.SupervisorID = ptr(operator.ID) },
			msg:    "not a supervisor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := createReq(100)
			tt.mutate(&req)

			_, err := f.svc.CreateJob(context.Background(), operator, req)
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCreateJob_BlankOptionalFieldsNormalized(t *testing.T) {
	f := newFixture(t)
	req := createReq(50)
	req.JobOrderNo = ptr("   ")
	req.Notes = ptr("")
	req.Shift = ptr(" night ")

	job, err := f.svc.CreateJob(context.Background(), operator, req)
	require.NoError(t, err)
	assert.NotEmpty(t, job.JobOrderNo)
	assert.Nil(t, job.Notes)
	assert.Equal(t, storage.ShiftNight, job.Shift)
}

func TestCreateJob_RetriesNumberCollision(t *testing.T) {
	numbers := []string{"WO-2026-03-0001", "WO-2026-03-0001", "WO-2026-03-0002"}
	calls := 0
	f := newFixture(t, WithJobNumbers(func(time.Time) string {
		n := numbers[calls]
		calls++
		return n
	}))

	first := f.createJob(t, 10)
	second := f.createJob(t, 10)

	assert.Equal(t, "WO-2026-03-0001", first.JobOrderNo)
	assert.Equal(t, "WO-2026-03-0002", second.JobOrderNo)
	assert.Equal(t, 3, calls)
}

func TestCreateJob_CollisionRetriesExhausted(t *testing.T) {
	f := newFixture(t, WithJobNumbers(func(time.Time) string { return "WO-2026-03-0001" }))
	f.createJob(t, 10)

	_, err := f.svc.CreateJob(context.Background(), operator, createReq(10))
	require.ErrorIs(t, err, ErrStorage)
	assert.True(t, errors.Is(err, storage.ErrJobOrderExists))
}

func TestCreateJob_ManualNumberTaken(t *testing.T) {
	f := newFixture(t)
	req := createReq(10)
	req.JobOrderNo = ptr("wo-manual-1")

	job, err := f.svc.CreateJob(context.Background(), operator, req)
	require.NoError(t, err)
	assert.Equal(t, "WO-MANUAL-1", job.JobOrderNo)

	_, err = f.svc.CreateJob(context.Background(), operator, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLifecycle_ValidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job := f.createJob(t, 100)
	started, err := f.svc.StartJob(ctx, operator, job.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.JobInProgress, started.Status)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, f.now, *started.StartedAt)

	cancelled, err := f.svc.CancelJob(ctx, supervisor, job.ID, "material defect")
	require.NoError(t, err)
	assert.Equal(t, storage.JobCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "material defect", *cancelled.CancellationReason)

	planned := f.createJob(t, 100)
	cancelled, err = f.svc.CancelJob(ctx, manager, planned.ID, "order withdrawn")
	require.NoError(t, err)
	assert.Equal(t, storage.JobCancelled, cancelled.Status)
	assert.Nil(t, cancelled.StartedAt)
}

func TestLifecycle_InvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()

	type step func(f *fixture, job *storage.CuttingJob) error
	start := func(f *fixture, job *storage.CuttingJob) error {
		_, err := f.svc.StartJob(ctx, operator, job.ID)
		return err
	}
	cancel := func(f *fixture, job *storage.CuttingJob) error {
		_, err := f.svc.CancelJob(ctx, supervisor, job.ID, "stop")
		return err
	}
	complete := func(f *fixture, job *storage.CuttingJob) error {
		_, err := f.svc.CompleteJob(ctx, operator, job.ID, final(100, 0, 0, 0))
		return err
	}

	tests := []struct {
		name    string
		prepare []step
		attempt step
	}{
		{name: "complete planned", attempt: complete},
		{name: "start running", prepare: []step{start}, attempt: start},
		{name: "start completed", prepare: []step{start, complete}, attempt: start},
		{name: "cancel completed", prepare: []step{start, complete}, attempt: cancel},
		{name: "complete cancelled", prepare: []step{cancel}, attempt: complete},
		{name: "start cancelled", prepare: []step{cancel}, attempt: start},
		{name: "complete completed", prepare: []step{start, complete}, attempt: complete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.createJob(t, 100)
			for _, s := range tt.prepare {
				require.NoError(t, s(f, job))
			}
			before, err := f.svc.GetJob(ctx, job.ID)
			require.NoError(t, err)

			err = tt.attempt(f, job)
			require.ErrorIs(t, err, ErrInvalidTransition)

			after, err := f.svc.GetJob(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestCancelJob_SecondCallFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.runningJob(t, 100)

	first, err := f.svc.CancelJob(ctx, supervisor, job.ID, "machine breakdown")
	require.NoError(t, err)

	_, err = f.svc.CancelJob(ctx, supervisor, job.ID, "again")
	require.ErrorIs(t, err, ErrInvalidTransition)

	after, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, first, after)
}

func TestCancelJob_RequiresReason(t *testing.T) {
	f := newFixture(t)
	job := f.createJob(t, 100)

	_, err := f.svc.CancelJob(context.Background(), supervisor, job.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCancelJob_KeepsOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.runningJob(t, 100)
	f.addOp(t, job.ID, operation(50, 48, 1, 1))

	_, err := f.svc.CancelJob(ctx, supervisor, job.ID, "rush order replaced")
	require.NoError(t, err)

	ops, err := f.svc.ListOperations(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestRevisePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, 100)

	_, err := f.svc.RevisePlan(ctx, operator, job.ID, PlanRevisionRequest{RawMaterialWeightKg: ptr(math.NaN())})
	assert.ErrorIs(t, err, ErrValidation)

	revised, err := f.svc.RevisePlan(ctx, operator, job.ID, PlanRevisionRequest{RawMaterialWeightKg: ptr(104.2)})
	require.NoError(t, err)
	assert.Equal(t, 104.2, revised.TotalInputWeightKg)
	assert.Equal(t, 40, revised.PlannedOutputQty)

	_, err = f.svc.StartJob(ctx, operator, job.ID)
	require.NoError(t, err)

	_, err = f.svc.RevisePlan(ctx, operator, job.ID, PlanRevisionRequest{RawMaterialWeightKg: ptr(90.0)})
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 104.2, stored.TotalInputWeightKg)
}

func TestAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.runningJob(t, 100)

	_, err := f.svc.CancelJob(ctx, operator, job.ID, "not mine to cancel")
	assert.ErrorIs(t, err, ErrForbidden)

	unknown := authz.Actor{ID: 50, Role: "GUEST"}
	_, err = f.svc.CreateJob(ctx, unknown, createReq(10))
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.JobInProgress, stored.Status)
}

func TestGetJob_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartJob(context.Background(), operator, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	running := f.runningJob(t, 100)
	f.createJob(t, 50)

	filter, err := ParseJobFilter("in_progress", "")
	require.NoError(t, err)
	jobs, err := f.svc.ListJobs(ctx, filter)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, running.ID, jobs[0].ID)

	jobs, err = f.svc.ListJobs(ctx, storage.JobFilter{Search: "petrov"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	_, err = ParseJobFilter("finished", "")
	assert.ErrorIs(t, err, ErrValidation)
}
