package storage

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPlanned    JobStatus = "PLANNED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobCancelled  JobStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible from s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobPlanned, JobInProgress, JobCompleted, JobCancelled:
		return true
	}
	return false
}

type Shift string

const (
	ShiftDay       Shift = "DAY"
	ShiftNight     Shift = "NIGHT"
	ShiftAfternoon Shift = "AFTERNOON"
)

func (s Shift) Valid() bool {
	switch s {
	case ShiftDay, ShiftNight, ShiftAfternoon:
		return true
	}
	return false
}

// CuttingJob is one work order. Master data fields (names, cost per kg) are
// snapshots taken when the job was created.
type CuttingJob struct {
	ID           uuid.UUID `json:"id"`
	JobOrderNo   string    `json:"job_order_no"`
	OperatorID   int64     `json:"operator_id"`
	SupervisorID int64     `json:"supervisor_id"`
	MachineID    int64     `json:"machine_id"`
	MaterialID   int64     `json:"material_id"`
	Shift        Shift     `json:"shift"`

	OperatorName      string  `json:"operator_name"`
	SupervisorName    string  `json:"supervisor_name"`
	MachineName       string  `json:"machine_name"`
	MaterialCode      string  `json:"material_code"`
	MaterialName      string  `json:"material_name"`
	MaterialCostPerKg float64 `json:"material_cost_per_kg"`

	PlannedOutputQty   int     `json:"planned_output_qty"`
	TotalInputWeightKg float64 `json:"total_input_weight_kg"`

	JobTotals

	VarianceKg         float64 `json:"variance_kg"`
	VariancePercentage float64 `json:"variance_percentage"`
	BalanceOverridden  bool    `json:"balance_overridden"`
	ScrapValueEstimate float64 `json:"scrap_value_estimate"`

	Status             JobStatus  `json:"status"`
	Notes              *string    `json:"notes"`
	CreatedByID        int64      `json:"created_by_id"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CancellationReason *string    `json:"cancellation_reason"`
}

// JobTotals are the accumulated figures written by the operation ledger while
// the job runs, and overwritten once by the completion step.
type JobTotals struct {
	ActualOutputQty       int     `json:"actual_output_qty"`
	TotalOutputWeightKg   float64 `json:"total_output_weight_kg"`
	TotalReusableWeightKg float64 `json:"total_reusable_weight_kg"`
	TotalEndPieceWeightKg float64 `json:"total_end_piece_weight_kg"`
	TotalScrapWeightKg    float64 `json:"total_scrap_weight_kg"`
	ScrapPercentage       float64 `json:"scrap_percentage"`
}

// Transition carries the fields written together with a status change.
type Transition struct {
	From               JobStatus
	To                 JobStatus
	At                 time.Time
	CancellationReason *string
	// Completion is set only for IN_PROGRESS -> COMPLETED.
	Completion *Completion
}

type Completion struct {
	Totals             JobTotals
	VarianceKg         float64
	VariancePercentage float64
	BalanceOverridden  bool
	ScrapValueEstimate float64
}

// Apply writes t onto job. Storage adapters use it to keep the in-memory view
// in line with the persisted row.
func (t Transition) Apply(job *CuttingJob) {
	job.Status = t.To
	at := t.At
	switch t.To {
	case JobInProgress:
		job.StartedAt = &at
	case JobCancelled:
		job.CancelledAt = &at
		job.CancellationReason = t.CancellationReason
	case JobCompleted:
		job.CompletedAt = &at
	}
	if c := t.Completion; c != nil {
		job.JobTotals = c.Totals
		job.VarianceKg = c.VarianceKg
		job.VariancePercentage = c.VariancePercentage
		job.BalanceOverridden = c.BalanceOverridden
		job.ScrapValueEstimate = c.ScrapValueEstimate
	}
}

type PlanRevision struct {
	PlannedOutputQty   int
	TotalInputWeightKg float64
}

type JobFilter struct {
	Status JobStatus
	Search string
	From   *time.Time
	To     *time.Time
	Limit  int
}
