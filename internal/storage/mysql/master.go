package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cutting-tracker/internal/storage"
)

// Master data tables are maintained by the ERP and only read here.

func getOne[T any](ctx context.Context, db *sql.DB, op, what, query string, id int64, scan func(rowScanner, *T) error) (*T, error) {
	var v T
	err := scan(db.QueryRowContext(ctx, query, id), &v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %s %d: %w", op, what, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}

func listAll[T any](ctx context.Context, db *sql.DB, op, query string, scan func(rowScanner, *T) error) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanMachine(rs rowScanner, m *storage.Machine) error {
	return rs.Scan(&m.ID, &m.Code, &m.Name, &m.IsActive)
}

func scanMaterial(rs rowScanner, m *storage.RawMaterial) error {
	return rs.Scan(&m.ID, &m.Code, &m.Name, &m.Grade, &m.CostPerKg, &m.IsActive)
}

func scanEmployee(rs rowScanner, e *storage.Employee) error {
	return rs.Scan(&e.ID, &e.Name, &e.Role, &e.IsActive)
}

func scanReason(rs rowScanner, r *storage.ScrapReason) error {
	return rs.Scan(&r.ID, &r.Code, &r.Description, &r.IsAvoidable, &r.IsActive)
}

func scanGood(rs rowScanner, g *storage.FinishedGood) error {
	return rs.Scan(&g.ID, &g.Code, &g.Name)
}

func (s *Storage) GetMachine(ctx context.Context, id int64) (*storage.Machine, error) {
	return getOne(ctx, s.db, "storage.mysql.GetMachine", "machine",
		`SELECT id, code, name, is_active FROM machines WHERE id = ?`, id, scanMachine)
}

func (s *Storage) GetRawMaterial(ctx context.Context, id int64) (*storage.RawMaterial, error) {
	return getOne(ctx, s.db, "storage.mysql.GetRawMaterial", "raw material",
		`SELECT id, code, name, grade, cost_per_kg, is_active FROM raw_materials WHERE id = ?`, id, scanMaterial)
}

func (s *Storage) GetEmployee(ctx context.Context, id int64) (*storage.Employee, error) {
	return getOne(ctx, s.db, "storage.mysql.GetEmployee", "employee",
		`SELECT id, name, role, is_active FROM employees WHERE id = ?`, id, scanEmployee)
}

func (s *Storage) GetScrapReason(ctx context.Context, id int64) (*storage.ScrapReason, error) {
	return getOne(ctx, s.db, "storage.mysql.GetScrapReason", "scrap reason",
		`SELECT id, code, description, is_avoidable, is_active FROM scrap_reasons WHERE id = ?`, id, scanReason)
}

func (s *Storage) ListMachines(ctx context.Context) ([]storage.Machine, error) {
	return listAll(ctx, s.db, "storage.mysql.ListMachines",
		`SELECT id, code, name, is_active FROM machines ORDER BY id`, scanMachine)
}

func (s *Storage) ListRawMaterials(ctx context.Context) ([]storage.RawMaterial, error) {
	return listAll(ctx, s.db, "storage.mysql.ListRawMaterials",
		`SELECT id, code, name, grade, cost_per_kg, is_active FROM raw_materials ORDER BY id`, scanMaterial)
}

func (s *Storage) ListEmployees(ctx context.Context) ([]storage.Employee, error) {
	return listAll(ctx, s.db, "storage.mysql.ListEmployees",
		`SELECT id, name, role, is_active FROM employees ORDER BY id`, scanEmployee)
}

func (s *Storage) ListScrapReasons(ctx context.Context) ([]storage.ScrapReason, error) {
	return listAll(ctx, s.db, "storage.mysql.ListScrapReasons",
		`SELECT id, code, description, is_avoidable, is_active FROM scrap_reasons ORDER BY id`, scanReason)
}

func (s *Storage) ListFinishedGoods(ctx context.Context) ([]storage.FinishedGood, error) {
	return listAll(ctx, s.db, "storage.mysql.ListFinishedGoods",
		`SELECT id, code, name FROM finished_goods ORDER BY id`, scanGood)
}
