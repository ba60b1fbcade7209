// Package memory is an in-process store for local runs and tests. It keeps
// the same contracts as the MySQL store: CreateJob reports duplicate job
// numbers, transitions are compare-and-swap and a transaction either commits
// all of its writes or none.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"cutting-tracker/internal/storage"
)

type state struct {
	jobs   map[uuid.UUID]storage.CuttingJob
	jobNos map[string]uuid.UUID
	ops    map[uuid.UUID]storage.CuttingOperation
	scrap  map[uuid.UUID]storage.ScrapEntry
}

func (s *state) clone() *state {
	return &state{
		jobs:   maps.Clone(s.jobs),
		jobNos: maps.Clone(s.jobNos),
		ops:    maps.Clone(s.ops),
		scrap:  maps.Clone(s.scrap),
	}
}

type Storage struct {
	mu    sync.Mutex
	state *state

	machines  map[int64]storage.Machine
	materials map[int64]storage.RawMaterial
	employees map[int64]storage.Employee
	reasons   map[int64]storage.ScrapReason
	goods     map[int64]storage.FinishedGood
}

func New() *Storage {
	return &Storage{
		state: &state{
			jobs:   make(map[uuid.UUID]storage.CuttingJob),
			jobNos: make(map[string]uuid.UUID),
			ops:    make(map[uuid.UUID]storage.CuttingOperation),
			scrap:  make(map[uuid.UUID]storage.ScrapEntry),
		},
		machines:  make(map[int64]storage.Machine),
		materials: make(map[int64]storage.RawMaterial),
		employees: make(map[int64]storage.Employee),
		reasons:   make(map[int64]storage.ScrapReason),
		goods:     make(map[int64]storage.FinishedGood),
	}
}

func (s *Storage) CreateJob(_ context.Context, job *storage.CuttingJob) error {
	const op = "storage.memory.CreateJob"

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(job.JobOrderNo)
	if _, ok := s.state.jobNos[key]; ok {
		return fmt.Errorf("%s: %s: %w", op, job.JobOrderNo, storage.ErrJobOrderExists)
	}
	s.state.jobs[job.ID] = *job
	s.state.jobNos[key] = job.ID
	return nil
}

func (s *Storage) GetJob(_ context.Context, id uuid.UUID) (*storage.CuttingJob, error) {
	const op = "storage.memory.GetJob"

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.state.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%s: job %s: %w", op, id, storage.ErrNotFound)
	}
	return &j, nil
}

// ListJobs returns the newest jobs first.
func (s *Storage) ListJobs(_ context.Context, f storage.JobFilter) ([]*storage.CuttingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*storage.CuttingJob, 0)
	for _, j := range s.state.jobs {
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		if f.From != nil && j.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !j.CreatedAt.Before(*f.To) {
			continue
		}
		if term != "" && !containsAny(term, j.JobOrderNo, j.OperatorName, j.MaterialCode, j.MaterialName, j.MachineName) {
			continue
		}
		out = append(out, &j)
	}

	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].JobOrderNo > out[b].JobOrderNo
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (s *Storage) ListOperations(_ context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.operations(jobID), nil
}

func (st *state) operations(jobID uuid.UUID) []storage.CuttingOperation {
	out := make([]storage.CuttingOperation, 0)
	for _, o := range st.ops {
		if o.JobID == jobID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Sequence < out[b].Sequence })
	return out
}

// view joins the entry with its job and reason. Callers hold s.mu.
func (s *Storage) view(e storage.ScrapEntry) storage.ScrapEntryView {
	j := s.state.jobs[e.JobID]
	v := storage.ScrapEntryView{
		ScrapEntry:   e,
		JobOrderNo:   j.JobOrderNo,
		OperatorName: j.OperatorName,
		MaterialCode: j.MaterialCode,
		MaterialName: j.MaterialName,
	}
	if e.ReasonCodeID != nil {
		if r, ok := s.reasons[*e.ReasonCodeID]; ok {
			v.ReasonCode = &r.Code
			v.ReasonIsAvoidable = &r.IsAvoidable
		}
	}
	return v
}

func (s *Storage) GetScrapEntry(_ context.Context, id uuid.UUID) (*storage.ScrapEntryView, error) {
	const op = "storage.memory.GetScrapEntry"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.state.scrap[id]
	if !ok {
		return nil, fmt.Errorf("%s: scrap entry %s: %w", op, id, storage.ErrNotFound)
	}
	v := s.view(e)
	return &v, nil
}

// ListScrapEntries returns matching entries, newest first.
func (s *Storage) ListScrapEntries(_ context.Context, f storage.ScrapFilter) ([]storage.ScrapEntryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]storage.ScrapEntryView, 0)
	for _, e := range s.state.scrap {
		v := s.view(e)
		if f.Matches(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID.String() < out[b].ID.String()
	})
	return out, nil
}

func (s *Storage) DecideScrapEntry(_ context.Context, id uuid.UUID, d storage.ScrapDecision) error {
	const op = "storage.memory.DecideScrapEntry"

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.state.scrap[id]
	if !ok {
		return fmt.Errorf("%s: scrap entry %s: %w", op, id, storage.ErrNotFound)
	}
	if e.ApprovalStatus != storage.ApprovalPending {
		return fmt.Errorf("%s: entry is %s: %w", op, e.ApprovalStatus, storage.ErrStatusConflict)
	}
	d.Apply(&e)
	s.state.scrap[id] = e
	return nil
}

// InTx runs fn against a private copy of the data and swaps it in when fn
// succeeds. The store mutex is held for the whole call.
func (s *Storage) InTx(_ context.Context, fn func(tx storage.JobTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &jobTx{st: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}
