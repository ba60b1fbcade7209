package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"cutting-tracker/internal/storage"
)

// Seed is the master data loaded into a fresh store.
type Seed struct {
	Machines      []storage.Machine      `yaml:"machines"`
	RawMaterials  []storage.RawMaterial  `yaml:"raw_materials"`
	Employees     []storage.Employee     `yaml:"employees"`
	ScrapReasons  []storage.ScrapReason  `yaml:"scrap_reasons"`
	FinishedGoods []storage.FinishedGood `yaml:"finished_goods"`
}

func (s *Storage) Load(seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range seed.Machines {
		s.machines[m.ID] = m
	}
	for _, m := range seed.RawMaterials {
		s.materials[m.ID] = m
	}
	for _, e := range seed.Employees {
		s.employees[e.ID] = e
	}
	for _, r := range seed.ScrapReasons {
		s.reasons[r.ID] = r
	}
	for _, g := range seed.FinishedGoods {
		s.goods[g.ID] = g
	}
}

func lookup[T any](op, what string, m map[int64]T, id int64) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%s: %s %d: %w", op, what, id, storage.ErrNotFound)
	}
	return &v, nil
}

func (s *Storage) GetMachine(_ context.Context, id int64) (*storage.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup("storage.memory.GetMachine", "machine", s.machines, id)
}

func (s *Storage) GetRawMaterial(_ context.Context, id int64) (*storage.RawMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup("storage.memory.GetRawMaterial", "raw material", s.materials, id)
}

func (s *Storage) GetEmployee(_ context.Context, id int64) (*storage.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup("storage.memory.GetEmployee", "employee", s.employees, id)
}

func (s *Storage) GetScrapReason(_ context.Context, id int64) (*storage.ScrapReason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup("storage.memory.GetScrapReason", "scrap reason", s.reasons, id)
}

func sorted[T any](m map[int64]T, id func(T) int64) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return out
}

func (s *Storage) ListMachines(_ context.Context) ([]storage.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sorted(s.machines, func(m storage.Machine) int64 { return m.ID }), nil
}

func (s *Storage) ListRawMaterials(_ context.Context) ([]storage.RawMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sorted(s.materials, func(m storage.RawMaterial) int64 { return m.ID }), nil
}

func (s *Storage) ListEmployees(_ context.Context) ([]storage.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sorted(s.employees, func(e storage.Employee) int64 { return e.ID }), nil
}

func (s *Storage) ListScrapReasons(_ context.Context) ([]storage.ScrapReason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sorted(s.reasons, func(r storage.ScrapReason) int64 { return r.ID }), nil
}

func (s *Storage) ListFinishedGoods(_ context.Context) ([]storage.FinishedGood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sorted(s.goods, func(g storage.FinishedGood) int64 { return g.ID }), nil
}
