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

const scrapViewQuery = `SELECT s.id, s.job_id, s.operation_id, s.scrap_classification, s.scrap_type, s.reason_code_id,
		s.scrap_weight_kg, s.scrap_quantity, s.scrap_value_estimate, s.is_recyclable, s.approval_status,
		s.approved_by_id, s.approval_notes, s.approval_date, s.created_by_id, s.created_at,
		j.job_order_no, j.operator_name, j.material_code, j.material_name,
		r.code, r.is_avoidable
	FROM scrap_entries s
	JOIN cutting_jobs j ON j.id = s.job_id
	LEFT JOIN scrap_reasons r ON r.id = s.reason_code_id`

func scanScrapView(rs rowScanner) (*storage.ScrapEntryView, error) {
	var (
		v           storage.ScrapEntryView
		operationID uuid.NullUUID
		reason      sql.NullInt64
		approvedBy  sql.NullInt64
		notes       sql.NullString
		decidedAt   sql.NullTime
		reasonCode  sql.NullString
		avoidable   sql.NullBool
	)
	err := rs.Scan(&v.ID, &v.JobID, &operationID, &v.ScrapClassification, &v.ScrapType, &reason,
		&v.ScrapWeightKg, &v.ScrapQuantity, &v.ScrapValueEstimate, &v.IsRecyclable, &v.ApprovalStatus,
		&approvedBy, &notes, &decidedAt, &v.CreatedByID, &v.CreatedAt,
		&v.JobOrderNo, &v.OperatorName, &v.MaterialCode, &v.MaterialName,
		&reasonCode, &avoidable)
	if err != nil {
		return nil, err
	}
	if operationID.Valid {
		id := operationID.UUID
		v.OperationID = &id
	}
	v.ReasonCodeID = int64Ptr(reason)
	v.ApprovedByID = int64Ptr(approvedBy)
	v.ApprovalNotes = stringPtr(notes)
	v.ApprovalDate = timePtr(decidedAt)
	v.ReasonCode = stringPtr(reasonCode)
	if avoidable.Valid {
		v.ReasonIsAvoidable = &avoidable.Bool
	}
	return &v, nil
}

func (s *Storage) GetScrapEntry(ctx context.Context, id uuid.UUID) (*storage.ScrapEntryView, error) {
	const op = "storage.mysql.GetScrapEntry"

	v, err := scanScrapView(s.db.QueryRowContext(ctx, scrapViewQuery+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: scrap entry %s: %w", op, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// ListScrapEntries returns matching entries, newest first.
func (s *Storage) ListScrapEntries(ctx context.Context, f storage.ScrapFilter) ([]storage.ScrapEntryView, error) {
	const op = "storage.mysql.ListScrapEntries"

	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		where = append(where, "s.approval_status = ?")
		args = append(args, *f.Status)
	}
	if f.JobID != nil {
		where = append(where, "s.job_id = ?")
		args = append(args, *f.JobID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		where = append(where, `(j.job_order_no LIKE ? OR j.operator_name LIKE ? OR j.material_code LIKE ?
			OR j.material_name LIKE ?)`)
		like := "%" + escapeLike(term) + "%"
		args = append(args, like, like, like, like)
	}

	query := scrapViewQuery
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.created_at DESC, s.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := make([]storage.ScrapEntryView, 0)
	for rows.Next() {
		v, err := scanScrapView(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

// DecideScrapEntry is a compare-and-swap on approval_status = PENDING.
func (s *Storage) DecideScrapEntry(ctx context.Context, id uuid.UUID, d storage.ScrapDecision) error {
	const op = "storage.mysql.DecideScrapEntry"

	res, err := s.db.ExecContext(ctx, `UPDATE scrap_entries
		SET approval_status = ?, approved_by_id = ?, approval_notes = ?, approval_date = ?
		WHERE id = ? AND approval_status = ?`,
		d.Status, d.ApproverID, nullString(d.Notes), d.At, id, storage.ApprovalPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM scrap_entries WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: scrap entry %s: %w", op, id, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: scrap entry %s: %w", op, id, storage.ErrStatusConflict)
}
