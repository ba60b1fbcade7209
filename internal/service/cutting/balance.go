package cutting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/storage"
)

// Completion thresholds. A job is balanced when the unaccounted weight is
// under BalanceToleranceKg. An unbalanced job may still complete as long as
// the variance stays at or below HardVariancePercent of the input.
const (
	BalanceToleranceKg  = 0.1
	HardVariancePercent = 1.0
	ScrapTargetPercent  = 5.0
)

var (
	balanceTolerance = decimal.NewFromFloat(BalanceToleranceKg)
	hardVariance     = decimal.NewFromFloat(HardVariancePercent)
	scrapTarget      = decimal.NewFromFloat(ScrapTargetPercent)
	hundred          = decimal.NewFromInt(100)
)

// BalanceReport is the outcome of reconciling a job's input weight against
// the final figures.
type BalanceReport struct {
	TotalInputWeightKg float64 `json:"total_input_weight_kg"`
	TotalAccountedKg   float64 `json:"total_accounted_kg"`
	VarianceKg         float64 `json:"variance_kg"`
	VariancePercentage float64 `json:"variance_percentage"`
	IsBalanced         bool    `json:"is_balanced"`
	ScrapPercentage    float64 `json:"scrap_percentage"`
	IsScrapAcceptable  bool    `json:"is_scrap_acceptable"`
	PlannedOutputQty   int     `json:"planned_output_qty"`
	ActualOutputQty    int     `json:"actual_output_qty"`
	OutputQtyVariance  int     `json:"output_qty_variance"`
	// Blocked means the variance is above the hard limit and the job cannot
	// complete with these figures.
	Blocked bool `json:"blocked"`
	// Overridden means the job is unbalanced but within the soft band.
	Overridden bool `json:"overridden"`
}

// reconcile compares the input weight with the sum of all accounted output
// categories. Arithmetic is decimal so the thresholds compare exactly.
func reconcile(inputKg float64, plannedQty int, f finalFigures) BalanceReport {
	in := decimal.NewFromFloat(inputKg)
	scrap := decimal.NewFromFloat(f.scrapKg)
	accounted := decimal.NewFromFloat(f.outputKg).
		Add(decimal.NewFromFloat(f.reusableKg)).
		Add(decimal.NewFromFloat(f.endPieceKg)).
		Add(scrap)
	variance := in.Sub(accounted)

	variancePct := decimal.Zero
	scrapPct := decimal.Zero
	if in.IsPositive() {
		variancePct = variance.Abs().Mul(hundred).Div(in)
		scrapPct = scrap.Mul(hundred).Div(in)
	}

	balanced := variance.Abs().LessThan(balanceTolerance)
	blocked := !balanced && variancePct.GreaterThan(hardVariance)

	return BalanceReport{
		TotalInputWeightKg: inputKg,
		TotalAccountedKg:   accounted.InexactFloat64(),
		VarianceKg:         variance.InexactFloat64(),
		VariancePercentage: variancePct.Round(6).InexactFloat64(),
		IsBalanced:         balanced,
		ScrapPercentage:    scrapPct.Round(6).InexactFloat64(),
		IsScrapAcceptable:  scrapPct.LessThanOrEqual(scrapTarget),
		PlannedOutputQty:   plannedQty,
		ActualOutputQty:    f.actualOutputQty,
		OutputQtyVariance:  f.actualOutputQty - plannedQty,
		Blocked:            blocked,
		Overridden:         !balanced && !blocked,
	}
}

func balanceErr(op string, job *storage.CuttingJob, r BalanceReport) error {
	return &Error{
		Kind: KindBalance,
		Op:   op,
		Msg: fmt.Sprintf("job %s: %.3f kg unaccounted (%.4f%% of %.3f kg input) exceeds the %.1f%% limit; re-weigh and resubmit",
			job.JobOrderNo, r.VarianceKg, r.VariancePercentage, r.TotalInputWeightKg, HardVariancePercent),
		Report: &r,
	}
}

type CompletionResult struct {
	Job             *storage.CuttingJob `json:"job"`
	Report          BalanceReport       `json:"report"`
	IsBalanced      bool                `json:"is_balanced"`
	ScrapAcceptable bool                `json:"scrap_acceptable"`
	Warning         string              `json:"warning,omitempty"`
	ScrapEntry      *storage.ScrapEntry `json:"scrap_entry,omitempty"`
}

// scrapEpsilonKg is the smallest unrecorded scrap that gets its own entry.
const scrapEpsilonKg = 0.001

// CompleteJob reconciles the final figures and, unless the variance is above
// the hard limit, closes the job. The final figures replace the ledger's
// running totals.
func (s *Service) CompleteJob(ctx context.Context, actor authz.Actor, jobID uuid.UUID, final FinalMeasurements) (*CompletionResult, error) {
	const op = "cutting.CompleteJob"

	if err := s.authorize(op, actor, authz.JobComplete); err != nil {
		return nil, err
	}
	f, err := final.normalize(op)
	if err != nil {
		return nil, err
	}

	var res CompletionResult
	err = s.withJob(ctx, op, jobID, func(tx storage.JobTx, job *storage.CuttingJob) error {
		if job.Status != storage.JobInProgress {
			return stateErr(op, KindInvalidTransition, "job %s cannot move from %s to %s", job.JobOrderNo, job.Status, storage.JobCompleted)
		}

		report := reconcile(job.TotalInputWeightKg, job.PlannedOutputQty, f)
		if report.Blocked {
			return balanceErr(op, job, report)
		}

		recorded, err := tx.ScrapWeightForJob(ctx, job.ID)
		if err != nil {
			return err
		}

		t := storage.Transition{
			From: storage.JobInProgress,
			To:   storage.JobCompleted,
			At:   s.now(),
			Completion: &storage.Completion{
				Totals: storage.JobTotals{
					ActualOutputQty:       f.actualOutputQty,
					TotalOutputWeightKg:   f.outputKg,
					TotalReusableWeightKg: f.reusableKg,
					TotalEndPieceWeightKg: f.endPieceKg,
					TotalScrapWeightKg:    f.scrapKg,
					ScrapPercentage:       report.ScrapPercentage,
				},
				VarianceKg:         report.VarianceKg,
				VariancePercentage: report.VariancePercentage,
				BalanceOverridden:  report.Overridden,
				ScrapValueEstimate: scrapValue(f.scrapKg, job.MaterialCostPerKg),
			},
		}
		if err := tx.TransitionJob(ctx, job.ID, t); err != nil {
			if errors.Is(err, storage.ErrStatusConflict) {
				return stateErr(op, KindInvalidTransition, "job %s changed status concurrently", job.JobOrderNo)
			}
			return err
		}

		if extra := f.scrapKg - recorded; extra > scrapEpsilonKg {
			spec := scrapSpec{
				classification: storage.ScrapNonReusable,
				scrapType:      storage.ScrapTypeFinalWeighing,
				quantity:       0,
			}
			entry := s.newScrapEntry(job, nil, extra, spec, actor.ID)
			if err := tx.InsertScrapEntry(ctx, entry); err != nil {
				return err
			}
			res.ScrapEntry = entry
		}

		t.Apply(job)
		res.Job = job
		res.Report = report
		res.IsBalanced = report.IsBalanced
		res.ScrapAcceptable = report.IsScrapAcceptable
		if report.Overridden {
			res.Warning = fmt.Sprintf("completed with %.3f kg unaccounted (%.4f%%), within the %.1f%% override band",
				report.VarianceKg, report.VariancePercentage, HardVariancePercent)
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindBalance {
			s.log.Warn("completion blocked by weight variance", slog.String("job_id", jobID.String()), slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.log.Info("job completed",
		slog.String("job_order_no", res.Job.JobOrderNo),
		slog.Bool("balanced", res.IsBalanced),
		slog.Float64("variance_kg", res.Report.VarianceKg),
		slog.Float64("scrap_pct", res.Report.ScrapPercentage),
	)
	return &res, nil
}

// PreviewCompletion reports what CompleteJob would decide, without writing.
func (s *Service) PreviewCompletion(ctx context.Context, jobID uuid.UUID, final FinalMeasurements) (*BalanceReport, error) {
	const op = "cutting.PreviewCompletion"

	f, err := final.normalize(op)
	if err != nil {
		return nil, err
	}
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	r := reconcile(job.TotalInputWeightKg, job.PlannedOutputQty, f)
	return &r, nil
}

// scrapValue is weight times cost per kg, rounded to cents.
func scrapValue(weightKg, costPerKg float64) float64 {
	return decimal.NewFromFloat(weightKg).Mul(decimal.NewFromFloat(costPerKg)).Round(2).InexactFloat64()
}
