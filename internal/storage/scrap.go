package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ScrapClassification string

const (
	ScrapReusable    ScrapClassification = "REUSABLE"
	ScrapNonReusable ScrapClassification = "NON_REUSABLE"
)

func (c ScrapClassification) Valid() bool {
	return c == ScrapReusable || c == ScrapNonReusable
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

const (
	ScrapTypeKerfLoss      = "KERF_LOSS"
	ScrapTypeWrongCut      = "WRONG_CUT"
	ScrapTypeEndTrim       = "END_TRIM"
	ScrapTypeFinalWeighing = "FINAL_WEIGHING"
)

type ScrapEntry struct {
	ID                  uuid.UUID           `json:"id"`
	JobID               uuid.UUID           `json:"job_id"`
	OperationID         *uuid.UUID          `json:"operation_id"`
	ScrapClassification ScrapClassification `json:"scrap_classification"`
	ScrapType           string              `json:"scrap_type"`
	ReasonCodeID        *int64              `json:"reason_code_id"`
	ScrapWeightKg       float64             `json:"scrap_weight_kg"`
	ScrapQuantity       int                 `json:"scrap_quantity"`
	ScrapValueEstimate  float64             `json:"scrap_value_estimate"`
	IsRecyclable        bool                `json:"is_recyclable"`
	ApprovalStatus      ApprovalStatus      `json:"approval_status"`
	ApprovedByID        *int64              `json:"approved_by_id"`
	ApprovalNotes       *string             `json:"approval_notes"`
	ApprovalDate        *time.Time          `json:"approval_date"`
	CreatedByID         int64               `json:"created_by_id"`
	CreatedAt           time.Time           `json:"created_at"`
}

// ScrapEntryView is a scrap entry joined with the job fields used for searching.
type ScrapEntryView struct {
	ScrapEntry
	JobOrderNo   string `json:"job_order_no"`
	OperatorName string `json:"operator_name"`
	MaterialCode string `json:"material_code"`
	MaterialName string `json:"material_name"`
	// Reason fields are nil when the entry has no reason code.
	ReasonCode        *string `json:"reason_code"`
	ReasonIsAvoidable *bool   `json:"reason_is_avoidable"`
}

type ScrapDecision struct {
	Status     ApprovalStatus
	ApproverID int64
	Notes      *string
	At         time.Time
}

func (d ScrapDecision) Apply(e *ScrapEntry) {
	at := d.At
	approver := d.ApproverID
	e.ApprovalStatus = d.Status
	e.ApprovedByID = &approver
	e.ApprovalNotes = d.Notes
	e.ApprovalDate = &at
}

type ScrapFilter struct {
	Status *ApprovalStatus
	Search string
	JobID  *uuid.UUID
}

// Matches applies the filter to a view. Search is a case-insensitive substring
// match over job order, operator and material.
func (f ScrapFilter) Matches(v ScrapEntryView) bool {
	if f.Status != nil && v.ApprovalStatus != *f.Status {
		return false
	}
	if f.JobID != nil && v.JobID != *f.JobID {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	for _, field := range []string{v.JobOrderNo, v.OperatorName, v.MaterialCode, v.MaterialName} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
