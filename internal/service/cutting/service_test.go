package cutting

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/storage"
	"cutting-tracker/internal/storage/memory"
)

var (
	operator   = authz.Actor{ID: 1, Role: authz.RoleOperator}
	supervisor = authz.Actor{ID: 2, Role: authz.RoleSupervisor}
	manager    = authz.Actor{ID: 3, Role: authz.RoleManager}
)

const (
	machineID  int64 = 1
	materialID int64 = 1
	reasonID   int64 = 1
)

type fixture struct {
	svc   *Service
	store *memory.Storage
	now   time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store := memory.New()
	store.Load(memory.Seed{
		Machines: []storage.Machine{
			{ID: machineID, Code: "SAW-01", Name: "Band saw 1", IsActive: true},
			{ID: 9, Code: "SAW-09", Name: "Retired saw", IsActive: false},
		},
		RawMaterials: []storage.RawMaterial{
			{ID: materialID, Code: "AL-6063", Name: "Aluminium profile 6063", Grade: "T5", CostPerKg: 3.5, IsActive: true},
		},
		Employees: []storage.Employee{
			{ID: operator.ID, Name: "Ivan Petrov", Role: "OPERATOR", IsActive: true},
			{ID: supervisor.ID, Name: "Olga Smirnova", Role: "SUPERVISOR", IsActive: true},
			{ID: manager.ID, Name: "Pavel Orlov", Role: "MANAGER", IsActive: true},
		},
		ScrapReasons: []storage.ScrapReason{
			{ID: reasonID, Code: "WRONG_CUT", Description: "Cut to wrong length", IsAvoidable: true, IsActive: true},
			{ID: 2, Code: "OLD", Description: "Retired reason", IsActive: false},
		},
	})

	f := &fixture{store: store, now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = NewService(log, store, store, opts...)
	return f
}

func ptr[T any](v T) *T { return &v }

func createReq(inputKg float64) CreateJobRequest {
	return CreateJobRequest{
		MachineID:           ptr(machineID),
		MaterialID:          ptr(materialID),
		SupervisorID:        ptr(supervisor.ID),
		OperatorID:          ptr(operator.ID),
		RawMaterialWeightKg: ptr(inputKg),
		PlannedOutputQty:    ptr(40),
	}
}

func (f *fixture) createJob(t *testing.T, inputKg float64) *storage.CuttingJob {
	t.Helper()
	job, err := f.svc.CreateJob(context.Background(), operator, createReq(inputKg))
	require.NoError(t, err)
	return job
}

func (f *fixture) runningJob(t *testing.T, inputKg float64) *storage.CuttingJob {
	t.Helper()
	job := f.createJob(t, inputKg)
	job, err := f.svc.StartJob(context.Background(), operator, job.ID)
	require.NoError(t, err)
	return job
}

func operation(inputKg, outputKg, scrapKg, endKg float64) OperationInput {
	return OperationInput{
		InputWeightKg:       ptr(inputKg),
		OutputPartsCount:    ptr(10),
		OutputTotalWeightKg: ptr(outputKg),
		ScrapWeightKg:       ptr(scrapKg),
		EndPieceWeightKg:    ptr(endKg),
	}
}

func (f *fixture) addOp(t *testing.T, jobID uuid.UUID, in OperationInput) *OperationResult {
	t.Helper()
	res, err := f.svc.AddOperation(context.Background(), operator, jobID, in)
	require.NoError(t, err)
	return res
}

func final(output, reusable, endPiece, scrap float64) FinalMeasurements {
	return FinalMeasurements{
		ActualOutputQty:       ptr(40),
		TotalOutputWeightKg:   ptr(output),
		TotalReusableWeightKg: ptr(reusable),
		TotalEndPieceWeightKg: ptr(endPiece),
		TotalScrapWeightKg:    ptr(scrap),
	}
}
