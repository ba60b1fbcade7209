package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cutting-tracker/internal/storage"
)

const jobColumns = `id, job_order_no, operator_id, supervisor_id, machine_id, material_id, shift,
	operator_name, supervisor_name, machine_name, material_code, material_name, material_cost_per_kg,
	planned_output_qty, total_input_weight_kg,
	actual_output_qty, total_output_weight_kg, total_reusable_weight_kg, total_end_piece_weight_kg,
	total_scrap_weight_kg, scrap_percentage,
	variance_kg, variance_percentage, balance_overridden, scrap_value_estimate,
	status, notes, created_by_id, created_at, started_at, completed_at, cancelled_at, cancellation_reason`

func scanJob(rs rowScanner) (*storage.CuttingJob, error) {
	var (
		j                                   storage.CuttingJob
		notes, cancelReason                 sql.NullString
		startedAt, completedAt, cancelledAt sql.NullTime
	)
	err := rs.Scan(&j.ID, &j.JobOrderNo, &j.OperatorID, &j.SupervisorID, &j.MachineID, &j.MaterialID, &j.Shift,
		&j.OperatorName, &j.SupervisorName, &j.MachineName, &j.MaterialCode, &j.MaterialName, &j.MaterialCostPerKg,
		&j.PlannedOutputQty, &j.TotalInputWeightKg,
		&j.ActualOutputQty, &j.TotalOutputWeightKg, &j.TotalReusableWeightKg, &j.TotalEndPieceWeightKg,
		&j.TotalScrapWeightKg, &j.ScrapPercentage,
		&j.VarianceKg, &j.VariancePercentage, &j.BalanceOverridden, &j.ScrapValueEstimate,
		&j.Status, &notes, &j.CreatedByID, &j.CreatedAt, &startedAt, &completedAt, &cancelledAt, &cancelReason)
	if err != nil {
		return nil, err
	}
	j.Notes = stringPtr(notes)
	j.CancellationReason = stringPtr(cancelReason)
	j.StartedAt = timePtr(startedAt)
	j.CompletedAt = timePtr(completedAt)
	j.CancelledAt = timePtr(cancelledAt)
	return &j, nil
}

func (s *Storage) CreateJob(ctx context.Context, j *storage.CuttingJob) error {
	const op = "storage.mysql.CreateJob"

	stmt := `INSERT INTO cutting_jobs (id, job_order_no, operator_id, supervisor_id, machine_id, material_id, shift,
			operator_name, supervisor_name, machine_name, material_code, material_name, material_cost_per_kg,
			planned_output_qty, total_input_weight_kg, status, notes, created_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt, j.ID, j.JobOrderNo, j.OperatorID, j.SupervisorID, j.MachineID, j.MaterialID, j.Shift,
		j.OperatorName, j.SupervisorName, j.MachineName, j.MaterialCode, j.MaterialName, j.MaterialCostPerKg,
		j.PlannedOutputQty, j.TotalInputWeightKg, j.Status, nullString(j.Notes), j.CreatedByID, j.CreatedAt)
	if err != nil {
		switch mysqlErrno(err) {
		case errDuplicateEntry:
			return fmt.Errorf("%s: %s: %w", op, j.JobOrderNo, storage.ErrJobOrderExists)
		case errNoReferenced:
			return fmt.Errorf("%s: %w: %v", op, storage.ErrReferenceBroken, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetJob(ctx context.Context, id uuid.UUID) (*storage.CuttingJob, error) {
	const op = "storage.mysql.GetJob"

	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM cutting_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: job %s: %w", op, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// ListJobs returns the newest jobs first.
func (s *Storage) ListJobs(ctx context.Context, f storage.JobFilter) ([]*storage.CuttingJob, error) {
	const op = "storage.mysql.ListJobs"

	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, *f.To)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		where = append(where, `(job_order_no LIKE ? OR operator_name LIKE ? OR material_code LIKE ?
			OR material_name LIKE ? OR machine_name LIKE ?)`)
		like := "%" + escapeLike(term) + "%"
		args = append(args, like, like, like, like, like)
	}

	query := `SELECT ` + jobColumns + ` FROM cutting_jobs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, job_order_no DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	jobs := make([]*storage.CuttingJob, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return jobs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
