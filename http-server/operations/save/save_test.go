package save

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

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/middleware/auth"
	"cutting-tracker/internal/service/cutting"
	"cutting-tracker/internal/storage"
)

type MockOperationRecorder struct {
	mock.Mock
}

func (m *MockOperationRecorder) AddOperation(ctx context.Context, actor authz.Actor, jobID uuid.UUID, in cutting.OperationInput) (*cutting.OperationResult, error) {
	args := m.Called(ctx, actor, jobID, in)
	res, _ := args.Get(0).(*cutting.OperationResult)
	return res, args.Error(1)
}

func (m *MockOperationRecorder) PreviewOperation(in cutting.OperationInput) (*cutting.BalanceWarning, error) {
	args := m.Called(in)
	res, _ := args.Get(0).(*cutting.BalanceWarning)
	return res, args.Error(1)
}

var operator = authz.Actor{ID: 1, Role: authz.RoleOperator}

func TestAddOperation(t *testing.T) {
	rec := new(MockOperationRecorder)
	jobID := uuid.New()

	rec.On("AddOperation", mock.Anything, operator, jobID, mock.MatchedBy(func(in cutting.OperationInput) bool {
		return in.InputWeightKg != nil && *in.InputWeightKg == 62.5 &&
			in.ScrapWeightKg != nil && *in.ScrapWeightKg == 2.5
	})).Return(&cutting.OperationResult{
		Operation: storage.CuttingOperation{JobID: jobID, Sequence: 1, InputWeightKg: 62.5, ScrapWeightKg: 2.5},
		Totals:    cutting.RunningTotals{OperationCount: 1, TotalInputWeight: 62.5, TotalScrapWeight: 2.5, CurrentScrapPercentage: 4},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+jobID.String()+"/operations",
		strings.NewReader(`{"input_weight_kg":62.5,"output_parts_count":10,"output_total_weight_kg":55,"cut_pieces_weight_kg":3,"scrap_weight_kg":2.5,"end_piece_weight_kg":2}`))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", jobID.String())
	req = req.WithContext(auth.WithActor(context.WithValue(req.Context(), chi.RouteCtxKey, rctx), operator))

	rr := httptest.NewRecorder()
	AddOperation(slog.Default(), rec).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got cutting.OperationResult
	require.NoError(t, render.DecodeJSON(rr.Body, &got))
	assert.Equal(t, 1, got.Operation.Sequence)
	assert.Equal(t, 4.0, got.Totals.CurrentScrapPercentage)
	rec.AssertExpectations(t)
}

func TestCheckBalance(t *testing.T) {
	tests := []struct {
		name         string
		warning      *cutting.BalanceWarning
		err          error
		wantStatus   int
		wantBalanced bool
	}{
		{name: "balanced", wantStatus: http.StatusOK, wantBalanced: true},
		{name: "unbalanced", warning: &cutting.BalanceWarning{DifferenceKg: 0.5}, wantStatus: http.StatusOK},
		{name: "invalid", err: &cutting.Error{Kind: cutting.KindValidation, Msg: "input weight must be positive"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := new(MockOperationRecorder)
			rec.On("PreviewOperation", mock.Anything).Return(tt.warning, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/operations/balance-check", strings.NewReader(`{"input_weight_kg":10}`))
			rr := httptest.NewRecorder()
			CheckBalance(slog.Default(), rec).ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.err != nil {
				return
			}
			var got balanceResponse
			require.NoError(t, render.DecodeJSON(rr.Body, &got))
			assert.Equal(t, tt.wantBalanced, got.Balanced)
		})
	}
}
