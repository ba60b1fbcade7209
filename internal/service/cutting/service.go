// Package cutting implements the cutting job lifecycle, the operation ledger,
// balance reconciliation at completion and the scrap approval workflow.
//
// Every mutating call takes an explicit authz.Actor, checks it against the
// role table once, then runs under the per-job lock inside a repository
// transaction that row-locks the job.
package cutting

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/lock"
	"cutting-tracker/internal/storage"
)

type Repository interface {
	// CreateJob returns storage.ErrJobOrderExists when JobOrderNo is taken.
	CreateJob(ctx context.Context, job *storage.CuttingJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*storage.CuttingJob, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]*storage.CuttingJob, error)
	ListOperations(ctx context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error)
	GetScrapEntry(ctx context.Context, id uuid.UUID) (*storage.ScrapEntryView, error)
	ListScrapEntries(ctx context.Context, filter storage.ScrapFilter) ([]storage.ScrapEntryView, error)
	// DecideScrapEntry moves a PENDING entry to a terminal status, or returns
	// storage.ErrStatusConflict.
	DecideScrapEntry(ctx context.Context, id uuid.UUID, d storage.ScrapDecision) error
	InTx(ctx context.Context, fn func(tx storage.JobTx) error) error
}

// MasterData is the read-only view of machines, materials, staff and scrap
// reasons. Lookups return storage.ErrNotFound for unknown ids.
type MasterData interface {
	GetMachine(ctx context.Context, id int64) (*storage.Machine, error)
	GetRawMaterial(ctx context.Context, id int64) (*storage.RawMaterial, error)
	GetEmployee(ctx context.Context, id int64) (*storage.Employee, error)
	GetScrapReason(ctx context.Context, id int64) (*storage.ScrapReason, error)
}

type Service struct {
	repo   Repository
	master MasterData
	locker lock.Locker
	policy *authz.Policy
	log    *slog.Logger
	now    func() time.Time
	jobNo  func(time.Time) string
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithPolicy(p *authz.Policy) Option {
	return func(s *Service) { s.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithJobNumbers replaces the WO-YYYY-MM-#### generator.
func WithJobNumbers(gen func(time.Time) string) Option {
	return func(s *Service) { s.jobNo = gen }
}

func NewService(log *slog.Logger, repo Repository, master MasterData, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		master: master,
		locker: lock.NewLocal(),
		policy: authz.Default(),
		log:    log.With(slog.String("service", "cutting")),
		now:    time.Now,
		jobNo:  GenerateJobOrderNo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) authorize(op string, actor authz.Actor, action authz.Action) error {
	if !s.policy.Allows(actor.Role, action) {
		return forbidden(op, string(actor.Role), string(action))
	}
	return nil
}

// withJob runs fn under the job's lock in one transaction with the job row
// locked. Errors are classified before they leave.
func (s *Service) withJob(ctx context.Context, op string, jobID uuid.UUID, fn func(tx storage.JobTx, job *storage.CuttingJob) error) error {
	release, err := s.locker.Lock(ctx, jobID.String())
	if err != nil {
		return storageErr(op, err)
	}
	defer release()

	err = s.repo.InTx(ctx, func(tx storage.JobTx) error {
		job, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		return fn(tx, job)
	})
	return storageErr(op, err)
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*storage.CuttingJob, error) {
	const op = "cutting.GetJob"

	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, filter storage.JobFilter) ([]*storage.CuttingJob, error) {
	const op = "cutting.ListJobs"

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationf(op, "unknown job status %q", filter.Status)
	}
	jobs, err := s.repo.ListJobs(ctx, filter)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return jobs, nil
}
