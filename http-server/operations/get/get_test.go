package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage"
)

type MockOperationProvider struct {
	mock.Mock
}

func (m *MockOperationProvider) ListOperations(ctx context.Context, jobID uuid.UUID) ([]storage.CuttingOperation, error) {
	args := m.Called(ctx, jobID)
	ops, _ := args.Get(0).([]storage.CuttingOperation)
	return ops, args.Error(1)
}

func newRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/operations", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestListOperations(t *testing.T) {
	ops := new(MockOperationProvider)
	jobID := uuid.New()
	ops.On("ListOperations", mock.Anything, jobID).Return([]storage.CuttingOperation{
		{ID: uuid.New(), JobID: jobID, Sequence: 1, InputWeightKg: 40, OutputTotalWeightKg: 36, ScrapWeightKg: 4, OutputPartsCount: 12},
		{ID: uuid.New(), JobID: jobID, Sequence: 2, InputWeightKg: 60, OutputTotalWeightKg: 55, ScrapWeightKg: 5, OutputPartsCount: 18},
	}, nil)

	rr := httptest.NewRecorder()
	ListOperations(slog.Default(), ops).ServeHTTP(rr, newRequest(jobID.String()))

	require.Equal(t, http.StatusOK, rr.Code)
	var got Response
	require.NoError(t, render.DecodeJSON(rr.Body, &got))
	require.Len(t, got.Operations, 2)
	assert.Equal(t, 1, got.Operations[0].Sequence)
	assert.Equal(t, 2, got.Totals.OperationCount)
	assert.Equal(t, 100.0, got.Totals.TotalInputWeight)
	assert.Equal(t, 30, got.Totals.TotalOutputParts)
	assert.InDelta(t, 9.0, got.Totals.CurrentScrapPercentage, 1e-9)
	ops.AssertExpectations(t)
}

func TestListOperations_EmptyLedger(t *testing.T) {
	ops := new(MockOperationProvider)
	jobID := uuid.New()
	ops.On("ListOperations", mock.Anything, jobID).Return(nil, nil)

	rr := httptest.NewRecorder()
	ListOperations(slog.Default(), ops).ServeHTTP(rr, newRequest(jobID.String()))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"operations":[]`)
	assert.Contains(t, rr.Body.String(), `"operation_count":0`)
}

func TestListOperations_Errors(t *testing.T) {
	t.Run("bad id", func(t *testing.T) {
		ops := new(MockOperationProvider)
		rr := httptest.NewRecorder()
		ListOperations(slog.Default(), ops).ServeHTTP(rr, newRequest("job-1"))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		ops.AssertNotCalled(t, "ListOperations", mock.Anything, mock.Anything)
	})

	t.Run("storage down", func(t *testing.T) {
		ops := new(MockOperationProvider)
		jobID := uuid.New()
		ops.On("ListOperations", mock.Anything, jobID).
			Return(nil, &cutting.Error{Kind: cutting.KindStorage, Msg: "storage failure", Err: errors.New("connection refused")})

		rr := httptest.NewRecorder()
		ListOperations(slog.Default(), ops).ServeHTTP(rr, newRequest(jobID.String()))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.NotContains(t, rr.Body.String(), "connection refused")
	})
}
