package update

import (
	"context"
	"io"
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

type MockScrapApprover struct {
	mock.Mock
}

func (m *MockScrapApprover) ApproveScrap(ctx context.Context, actor authz.Actor, entryID uuid.UUID, notes *string) (*storage.ScrapEntryView, error) {
	args := m.Called(ctx, actor, entryID, notes)
	v, _ := args.Get(0).(*storage.ScrapEntryView)
	return v, args.Error(1)
}

func (m *MockScrapApprover) RejectScrap(ctx context.Context, actor authz.Actor, entryID uuid.UUID, notes string) (*storage.ScrapEntryView, error) {
	args := m.Called(ctx, actor, entryID, notes)
	v, _ := args.Get(0).(*storage.ScrapEntryView)
	return v, args.Error(1)
}

var supervisor = authz.Actor{ID: 2, Role: authz.RoleSupervisor}

func newRequest(actor authz.Actor, id uuid.UUID, body io.Reader) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/scrap/"+id.String()+"/approve", body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(auth.WithActor(ctx, actor))
}

func view(id uuid.UUID, status storage.ApprovalStatus) *storage.ScrapEntryView {
	v := &storage.ScrapEntryView{JobOrderNo: "WO-2026-03-0001"}
	v.ID = id
	v.ApprovalStatus = status
	return v
}

func TestApproveScrap_EmptyBody(t *testing.T) {
	approver := new(MockScrapApprover)
	id := uuid.New()
	approver.On("ApproveScrap", mock.Anything, supervisor, id, (*string)(nil)).
		Return(view(id, storage.ApprovalApproved), nil)

	rr := httptest.NewRecorder()
	ApproveScrap(slog.Default(), approver).ServeHTTP(rr, newRequest(supervisor, id, http.NoBody))

	require.Equal(t, http.StatusOK, rr.Code)
	var got storage.ScrapEntryView
	require.NoError(t, render.DecodeJSON(rr.Body, &got))
	assert.Equal(t, storage.ApprovalApproved, got.ApprovalStatus)
	approver.AssertExpectations(t)
}

func TestApproveScrap_WithNotes(t *testing.T) {
	approver := new(MockScrapApprover)
	id := uuid.New()
	approver.On("ApproveScrap", mock.Anything, supervisor, id, mock.MatchedBy(func(n *string) bool {
		return n != nil && *n == "weighed twice"
	})).Return(view(id, storage.ApprovalApproved), nil)

	rr := httptest.NewRecorder()
	ApproveScrap(slog.Default(), approver).ServeHTTP(rr, newRequest(supervisor, id, strings.NewReader(`{"notes":"weighed twice"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	approver.AssertExpectations(t)
}

func TestApproveScrap_Forbidden(t *testing.T) {
	approver := new(MockScrapApprover)
	operator := authz.Actor{ID: 1, Role: authz.RoleOperator}
	id := uuid.New()
	approver.On("ApproveScrap", mock.Anything, operator, id, mock.Anything).
		Return(nil, &cutting.Error{Kind: cutting.KindForbidden, Msg: `role "OPERATOR" may not approve scrap`})

	rr := httptest.NewRecorder()
	ApproveScrap(slog.Default(), approver).ServeHTTP(rr, newRequest(operator, id, http.NoBody))

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRejectScrap(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		body       string
		notes      string
		err        error
		wantStatus int
	}{
		{
			name:       "with notes",
			body:       `{"notes":"weight does not match the bin"}`,
			notes:      "weight does not match the bin",
			wantStatus: http.StatusOK,
		},
		{
			name:       "without notes",
			body:       `{}`,
			err:        &cutting.Error{Kind: cutting.KindValidation, Msg: "rejection notes are required"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "already decided",
			body:       `{"notes":"late"}`,
			notes:      "late",
			err:        &cutting.Error{Kind: cutting.KindInvalidTransition, Msg: "scrap entry is APPROVED"},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approver := new(MockScrapApprover)
			if tt.err != nil {
				approver.On("RejectScrap", mock.Anything, supervisor, id, tt.notes).Return(nil, tt.err)
			} else {
				approver.On("RejectScrap", mock.Anything, supervisor, id, tt.notes).Return(view(id, storage.ApprovalRejected), nil)
			}

			rr := httptest.NewRecorder()
			RejectScrap(slog.Default(), approver).ServeHTTP(rr, newRequest(supervisor, id, strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			approver.AssertExpectations(t)
		})
	}
}
