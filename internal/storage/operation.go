package storage

import (
	"time"

	"github.com/google/uuid"
)

// CuttingOperation is one measured cutting pass. Rows are never updated except
// for Sequence, which is renumbered after a removal.
type CuttingOperation struct {
	ID                   uuid.UUID `json:"id"`
	JobID                uuid.UUID `json:"job_id"`
	Sequence             int       `json:"sequence"`
	InputLengthMm        float64   `json:"input_length_mm"`
	InputWeightKg        float64   `json:"input_weight_kg"`
	OutputPartsCount     int       `json:"output_parts_count"`
	OutputPartsLengthMm  float64   `json:"output_parts_length_mm"`
	OutputTotalWeightKg  float64   `json:"output_total_weight_kg"`
	CutPiecesWeightKg    float64   `json:"cut_pieces_weight_kg"`
	CutPiecesCount       int       `json:"cut_pieces_count"`
	ScrapWeightKg        float64   `json:"scrap_weight_kg"`
	EndPieceWeightKg     float64   `json:"end_piece_weight_kg"`
	OperationTimeMinutes float64   `json:"operation_time_minutes"`
	Notes                *string   `json:"notes"`
	CreatedByID          int64     `json:"created_by_id"`
	CreatedAt            time.Time `json:"created_at"`
}
