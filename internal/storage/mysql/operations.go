package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"cutting-tracker/internal/storage"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const operationColumns = `id, job_id, sequence, input_length_mm, input_weight_kg, output_parts_count,
	output_parts_length_mm, output_total_weight_kg, cut_pieces_weight_kg, cut_pieces_count,
	scrap_weight_kg, end_piece_weight_kg, operation_time_minutes, notes, created_by_id, created_at`

func listOperations(ctx context.Context, q querier, op string, jobID uuid.UUID) ([]storage.CuttingOperation, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+operationColumns+` FROM cutting_operations
		WHERE job_id = ? ORDER BY sequence`, jobID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	ops := make([]storage.CuttingOperation, 0)
	for rows.Next() {
		var (
			o     storage.CuttingOperation
			notes sql.NullString
		)
		err := rows.Scan(&o.ID, &o.JobID, &o.Sequence, &o.InputLengthMm, &o.InputWeightKg, &o.OutputPartsCount,
			&o.OutputPartsLengthMm, &o.OutputTotalWeightKg, &o.CutPiecesWeightKg, &o.CutPiecesCount,
			&o.ScrapWeightKg, &o.EndPieceWeightKg, &o.OperationTimeMinutes, &notes, &o.CreatedByID, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		o.Notes = stringPtr(notes)
		ops = append(ops, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ops, nil
}

func (s *Storage) ListOperations(ctx context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error) {
	return listOperations(ctx, s.db, "storage.mysql.ListOperations", jobID)
}
