package cutting

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"cutting-tracker/internal/storage"
)

// Request types mirror the forms: every field is optional at the boundary.
// normalize turns "no value" (nil, empty or blank string) into the canonical
// absent value before validation runs.

type CreateJobRequest struct {
	JobOrderNo          *string  `json:"job_order_no"`
	MachineID           *int64   `json:"machine_id"`
	MaterialID          *int64   `json:"material_id"`
	SupervisorID        *int64   `json:"supervisor_id"`
	OperatorID          *int64   `json:"operator_id"`
	Shift               *string  `json:"shift"`
	RawMaterialWeightKg *float64 `json:"raw_material_weight_kg"`
	PlannedOutputQty    *int     `json:"planned_output_qty"`
	Notes               *string  `json:"notes"`
}

type PlanRevisionRequest struct {
	PlannedOutputQty    *int     `json:"planned_output_qty"`
	RawMaterialWeightKg *float64 `json:"raw_material_weight_kg"`
}

type OperationInput struct {
	InputLengthMm        *float64 `json:"input_length_mm"`
	InputWeightKg        *float64 `json:"input_weight_kg"`
	OutputPartsCount     *int     `json:"output_parts_count"`
	OutputPartsLengthMm  *float64 `json:"output_parts_length_mm"`
	OutputTotalWeightKg  *float64 `json:"output_total_weight_kg"`
	CutPiecesWeightKg    *float64 `json:"cut_pieces_weight_kg"`
	CutPiecesCount       *int     `json:"cut_pieces_count"`
	ScrapWeightKg        *float64 `json:"scrap_weight_kg"`
	EndPieceWeightKg     *float64 `json:"end_piece_weight_kg"`
	OperationTimeMinutes *float64 `json:"operation_time_minutes"`
	Notes                *string  `json:"notes"`

	// Classification of the scrap entry raised when ScrapWeightKg > 0.
	ScrapClassification *string `json:"scrap_classification"`
	ScrapType           *string `json:"scrap_type"`
	ScrapReasonID       *int64  `json:"scrap_reason_id"`
	ScrapQuantity       *int    `json:"scrap_quantity"`
	ScrapRecyclable     *bool   `json:"scrap_recyclable"`
}

type FinalMeasurements struct {
	ActualOutputQty       *int     `json:"actual_output_qty"`
	TotalOutputWeightKg   *float64 `json:"total_output_weight_kg"`
	TotalReusableWeightKg *float64 `json:"total_reusable_weight_kg"`
	TotalEndPieceWeightKg *float64 `json:"total_end_piece_weight_kg"`
	TotalScrapWeightKg    *float64 `json:"total_scrap_weight_kg"`
}

type ScrapInput struct {
	OperationID         *string  `json:"operation_id"`
	ScrapClassification *string  `json:"scrap_classification"`
	ScrapType           *string  `json:"scrap_type"`
	ReasonCodeID        *int64   `json:"reason_code_id"`
	ScrapWeightKg       *float64 `json:"scrap_weight_kg"`
	ScrapQuantity       *int     `json:"scrap_quantity"`
	IsRecyclable        *bool    `json:"is_recyclable"`
}

// problems collects validation failures so the caller sees all of them at once.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err(op string) error {
	if len(p) == 0 {
		return nil
	}
	return validationf(op, "%s", strings.Join(p, "; "))
}

func text(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func num(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func count(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// finite rejects NaN and ±Inf, which no comparison below would catch.
func finite(p *problems, name string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.addf("%s must be a finite number", name)
		return false
	}
	return true
}

func nonNegative(p *problems, name string, v float64) {
	if finite(p, name, v) && v < 0 {
		p.addf("%s must not be negative", name)
	}
}

func positive(p *problems, name string, v float64) {
	if finite(p, name, v) && v <= 0 {
		p.addf("%s must be greater than 0", name)
	}
}

type newJob struct {
	jobOrderNo   *string
	machineID    int64
	materialID   int64
	supervisorID int64
	operatorID   int64
	shift        storage.Shift
	inputKg      float64
	plannedQty   int
	notes        *string
}

func (r CreateJobRequest) normalize(op string) (newJob, error) {
	var p problems
	j := newJob{
		jobOrderNo: text(r.JobOrderNo),
		notes:      text(r.Notes),
	}

	requireID := func(name string, v *int64) int64 {
		if v == nil || *v <= 0 {
			p.addf("%s is required", name)
			return 0
		}
		return *v
	}
	j.machineID = requireID("machine_id", r.MachineID)
	j.materialID = requireID("material_id", r.MaterialID)
	j.supervisorID = requireID("supervisor_id", r.SupervisorID)
	j.operatorID = requireID("operator_id", r.OperatorID)

	j.shift = storage.ShiftDay
	if s := text(r.Shift); s != nil {
		j.shift = storage.Shift(strings.ToUpper(*s))
		if !j.shift.Valid() {
			p.addf("unknown shift %q", *s)
		}
	}

	if r.RawMaterialWeightKg == nil {
		p.addf("raw_material_weight_kg must be greater than 0")
	} else {
		positive(&p, "raw_material_weight_kg", *r.RawMaterialWeightKg)
		j.inputKg = *r.RawMaterialWeightKg
	}
	if r.PlannedOutputQty == nil || *r.PlannedOutputQty < 1 {
		p.addf("planned_output_qty must be at least 1")
	} else {
		j.plannedQty = *r.PlannedOutputQty
	}

	return j, p.err(op)
}

func (r PlanRevisionRequest) normalize(op string, job *storage.CuttingJob) (storage.PlanRevision, error) {
	var p problems
	rev := storage.PlanRevision{
		PlannedOutputQty:   job.PlannedOutputQty,
		TotalInputWeightKg: job.TotalInputWeightKg,
	}
	if r.PlannedOutputQty == nil && r.RawMaterialWeightKg == nil {
		p.addf("nothing to revise")
	}
	if r.PlannedOutputQty != nil {
		if *r.PlannedOutputQty < 1 {
			p.addf("planned_output_qty must be at least 1")
		}
		rev.PlannedOutputQty = *r.PlannedOutputQty
	}
	if r.RawMaterialWeightKg != nil {
		positive(&p, "raw_material_weight_kg", *r.RawMaterialWeightKg)
		rev.TotalInputWeightKg = *r.RawMaterialWeightKg
	}
	return rev, p.err(op)
}

// scrapSpec describes the scrap entry to raise next to a measurement.
type scrapSpec struct {
	classification storage.ScrapClassification
	scrapType      string
	reasonID       *int64
	quantity       int
	recyclable     bool
}

func parseScrapSpec(p *problems, classification, scrapType *string, reasonID *int64, quantity *int, recyclable *bool, defaultType string) scrapSpec {
	spec := scrapSpec{
		classification: storage.ScrapNonReusable,
		scrapType:      defaultType,
		reasonID:       reasonID,
		quantity:       1,
	}
	if c := text(classification); c != nil {
		spec.classification = storage.ScrapClassification(strings.ToUpper(*c))
		if !spec.classification.Valid() {
			p.addf("unknown scrap_classification %q", *c)
		}
	}
	if t := text(scrapType); t != nil {
		spec.scrapType = strings.ToUpper(*t)
	}
	if spec.scrapType == "" {
		p.addf("scrap_type is required")
	}
	if reasonID != nil && *reasonID <= 0 {
		spec.reasonID = nil
	}
	if quantity != nil {
		if *quantity < 0 {
			p.addf("scrap_quantity must not be negative")
		}
		spec.quantity = *quantity
	}
	if recyclable != nil {
		spec.recyclable = *recyclable
	}
	return spec
}

type measurement struct {
	op    storage.CuttingOperation
	scrap scrapSpec
}

func (in OperationInput) normalize(op string) (measurement, error) {
	var p problems
	m := measurement{op: storage.CuttingOperation{
		InputLengthMm:        num(in.InputLengthMm),
		InputWeightKg:        num(in.InputWeightKg),
		OutputPartsCount:     count(in.OutputPartsCount),
		OutputPartsLengthMm:  num(in.OutputPartsLengthMm),
		OutputTotalWeightKg:  num(in.OutputTotalWeightKg),
		CutPiecesWeightKg:    num(in.CutPiecesWeightKg),
		CutPiecesCount:       count(in.CutPiecesCount),
		ScrapWeightKg:        num(in.ScrapWeightKg),
		EndPieceWeightKg:     num(in.EndPieceWeightKg),
		OperationTimeMinutes: num(in.OperationTimeMinutes),
		Notes:                text(in.Notes),
	}}

	positive(&p, "input_weight_kg", m.op.InputWeightKg)
	if m.op.OutputPartsCount < 1 {
		p.addf("output_parts_count must be at least 1")
	}
	nonNegative(&p, "input_length_mm", m.op.InputLengthMm)
	nonNegative(&p, "output_parts_length_mm", m.op.OutputPartsLengthMm)
	nonNegative(&p, "output_total_weight_kg", m.op.OutputTotalWeightKg)
	nonNegative(&p, "cut_pieces_weight_kg", m.op.CutPiecesWeightKg)
	nonNegative(&p, "scrap_weight_kg", m.op.ScrapWeightKg)
	nonNegative(&p, "end_piece_weight_kg", m.op.EndPieceWeightKg)
	nonNegative(&p, "operation_time_minutes", m.op.OperationTimeMinutes)
	if m.op.CutPiecesCount < 0 {
		p.addf("cut_pieces_count must not be negative")
	}

	m.scrap = parseScrapSpec(&p, in.ScrapClassification, in.ScrapType, in.ScrapReasonID, in.ScrapQuantity, in.ScrapRecyclable, storage.ScrapTypeKerfLoss)

	return m, p.err(op)
}

type finalFigures struct {
	actualOutputQty int
	outputKg        float64
	reusableKg      float64
	endPieceKg      float64
	scrapKg         float64
}

func (f FinalMeasurements) normalize(op string) (finalFigures, error) {
	var p problems
	ff := finalFigures{
		actualOutputQty: count(f.ActualOutputQty),
		outputKg:        num(f.TotalOutputWeightKg),
		reusableKg:      num(f.TotalReusableWeightKg),
		endPieceKg:      num(f.TotalEndPieceWeightKg),
		scrapKg:         num(f.TotalScrapWeightKg),
	}
	if f.ActualOutputQty == nil {
		p.addf("actual_output_qty is required")
	} else if ff.actualOutputQty < 0 {
		p.addf("actual_output_qty must not be negative")
	}
	if f.TotalOutputWeightKg == nil {
		p.addf("total_output_weight_kg is required")
	}
	nonNegative(&p, "total_output_weight_kg", ff.outputKg)
	nonNegative(&p, "total_reusable_weight_kg", ff.reusableKg)
	nonNegative(&p, "total_end_piece_weight_kg", ff.endPieceKg)
	nonNegative(&p, "total_scrap_weight_kg", ff.scrapKg)
	return ff, p.err(op)
}

type newScrap struct {
	operationID *uuid.UUID
	weightKg    float64
	spec        scrapSpec
}

func (in ScrapInput) normalize(op string) (newScrap, error) {
	var p problems
	ns := newScrap{weightKg: num(in.ScrapWeightKg)}
	positive(&p, "scrap_weight_kg", ns.weightKg)
	if in.ReasonCodeID == nil || *in.ReasonCodeID <= 0 {
		p.addf("reason_code_id is required")
	}
	if s := text(in.OperationID); s != nil {
		id, err := uuid.Parse(*s)
		if err != nil {
			p.addf("invalid operation_id %q", *s)
		} else {
			ns.operationID = &id
		}
	}
	ns.spec = parseScrapSpec(&p, in.ScrapClassification, in.ScrapType, in.ReasonCodeID, in.ScrapQuantity, in.IsRecyclable, "")
	return ns, p.err(op)
}

// ParseScrapFilter builds a filter from query-string values.
func ParseScrapFilter(status, search, jobID string) (storage.ScrapFilter, error) {
	const op = "cutting.ParseScrapFilter"

	var p problems
	f := storage.ScrapFilter{Search: strings.TrimSpace(search)}
	if s := strings.ToUpper(strings.TrimSpace(status)); s != "" {
		st := storage.ApprovalStatus(s)
		if !st.Valid() {
			p.addf("unknown approval status %q", status)
		}
		f.Status = &st
	}
	if s := strings.TrimSpace(jobID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			p.addf("invalid job id %q", jobID)
		}
		f.JobID = &id
	}
	return f, p.err(op)
}

// ParseJobFilter builds a job list filter from query-string values.
func ParseJobFilter(status, search string) (storage.JobFilter, error) {
	const op = "cutting.ParseJobFilter"

	f := storage.JobFilter{Search: strings.TrimSpace(search)}
	if s := strings.ToUpper(strings.TrimSpace(status)); s != "" {
		f.Status = storage.JobStatus(s)
		if !f.Status.Valid() {
			return f, validationf(op, "unknown job status %q", status)
		}
	}
	return f, nil
}
