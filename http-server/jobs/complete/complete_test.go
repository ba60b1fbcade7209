package complete

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cutting-tracker/http-server/respond"
	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/middleware/auth"
	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage"
)

type MockJobCompleter struct {
	mock.Mock
}

func (m *MockJobCompleter) CompleteJob(ctx context.Context, actor authz.Actor, jobID uuid.UUID, final cutting.FinalMeasurements) (*cutting.CompletionResult, error) {
	args := m.Called(ctx, actor, jobID, final)
	res, _ := args.Get(0).(*cutting.CompletionResult)
	return res, args.Error(1)
}

func (m *MockJobCompleter) PreviewCompletion(ctx context.Context, jobID uuid.UUID, final cutting.FinalMeasurements) (*cutting.BalanceReport, error) {
	args := m.Called(ctx, jobID, final)
	res, _ := args.Get(0).(*cutting.BalanceReport)
	return res, args.Error(1)
}

var supervisor = authz.Actor{ID: 2, Role: authz.RoleSupervisor}

func newRequest(jobID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+jobID+"/complete", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", jobID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(auth.WithActor(ctx, supervisor))
}

const finalBody = `{
	"actual_output_qty": 40,
	"total_output_weight_kg": 100,
	"total_reusable_weight_kg": 10,
	"total_end_piece_weight_kg": 5,
	"total_scrap_weight_kg": 5.3
}`

func TestCompleteJob_Success(t *testing.T) {
	jobs := new(MockJobCompleter)
	id := uuid.New()

	jobs.On("CompleteJob", mock.Anything, supervisor, id, mock.MatchedBy(func(f cutting.FinalMeasurements) bool {
		return f.ActualOutputQty != nil && *f.ActualOutputQty == 40 &&
			f.TotalScrapWeightKg != nil && *f.TotalScrapWeightKg == 5.3
	})).Return(&cutting.CompletionResult{
		Job:             &storage.CuttingJob{ID: id, JobOrderNo: "WO-2026-03-0001", Status: storage.JobCompleted},
		Report:          cutting.BalanceReport{TotalInputWeightKg: 125.5, IsBalanced: true},
		IsBalanced:      true,
		ScrapAcceptable: true,
	}, nil)

	rr := httptest.NewRecorder()
	CompleteJob(slog.Default(), jobs).ServeHTTP(rr, newRequest(id.String(), finalBody))

	require.Equal(t, http.StatusOK, rr.Code)

	var got cutting.CompletionResult
	require.NoError(t, render.DecodeJSON(rr.Body, &got))
	assert.True(t, got.IsBalanced)
	assert.Equal(t, storage.JobCompleted, got.Job.Status)
	jobs.AssertExpectations(t)
}

func TestCompleteJob_Blocked(t *testing.T) {
	jobs := new(MockJobCompleter)
	id := uuid.New()
	report := &cutting.BalanceReport{TotalInputWeightKg: 100, TotalAccountedKg: 90, VarianceKg: 10, VariancePercentage: 10, Blocked: true}

	jobs.On("CompleteJob", mock.Anything, supervisor, id, mock.Anything).
		Return(nil, &cutting.Error{Kind: cutting.KindBalance, Msg: "10.000 kg unaccounted", Report: report})

	rr := httptest.NewRecorder()
	CompleteJob(slog.Default(), jobs).ServeHTTP(rr, newRequest(id.String(), finalBody))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body respond.ErrorBody
	require.NoError(t, render.DecodeJSON(rr.Body, &body))
	require.NotNil(t, body.Report)
	assert.Equal(t, 10.0, body.Report.VarianceKg)
	assert.True(t, body.Report.Blocked)
	jobs.AssertExpectations(t)
}

func TestCompleteJob_WrongState(t *testing.T) {
	jobs := new(MockJobCompleter)
	id := uuid.New()
	jobs.On("CompleteJob", mock.Anything, supervisor, id, mock.Anything).
		Return(nil, &cutting.Error{Kind: cutting.KindInvalidTransition, Msg: "job is PLANNED"})

	rr := httptest.NewRecorder()
	CompleteJob(slog.Default(), jobs).ServeHTTP(rr, newRequest(id.String(), finalBody))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCompleteJob_BadID(t *testing.T) {
	jobs := new(MockJobCompleter)

	rr := httptest.NewRecorder()
	CompleteJob(slog.Default(), jobs).ServeHTTP(rr, newRequest("42", finalBody))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	jobs.AssertNotCalled(t, "CompleteJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPreviewCompletion(t *testing.T) {
	jobs := new(MockJobCompleter)
	id := uuid.New()
	jobs.On("PreviewCompletion", mock.Anything, id, mock.Anything).
		Return(&cutting.BalanceReport{VarianceKg: 0.2, VariancePercentage: 0.16, Overridden: true}, nil)

	rr := httptest.NewRecorder()
	PreviewCompletion(slog.Default(), jobs).ServeHTTP(rr, newRequest(id.String(), finalBody))

	require.Equal(t, http.StatusOK, rr.Code)
	var got cutting.BalanceReport
	require.NoError(t, render.DecodeJSON(rr.Body, &got))
	assert.True(t, got.Overridden)
	jobs.AssertNotCalled(t, "CompleteJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
