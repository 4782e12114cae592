package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outingrewards/internal/delivery/http/helpers"
	"outingrewards/internal/delivery/http/middleware"
	"outingrewards/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testOutingID        = "4f1c2b7e-8a55-4c1e-9d0a-2f6a5b3c9e10"
	testParticipationID = "9b2d7c1a-3e44-4f5b-8a6c-1d2e3f4a5b6c"
	testVoucherID       = "c3a1e2f4-5b6d-4c7e-8f90-a1b2c3d4e5f6"
)

// fakeParticipationService implements domain.ParticipationService for handler tests.
type fakeParticipationService struct {
	err      error
	result   *domain.Participation
	list     []*domain.Participation
	lastOp   string
	lastID   string
	lastUser string
}

func (f *fakeParticipationService) record(op, id, user string) (*domain.Participation, error) {
	f.lastOp, f.lastID, f.lastUser = op, id, user
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeParticipationService) Join(_ context.Context, outingID, userID string) (*domain.Participation, error) {
	return f.record("join", outingID, userID)
}

func (f *fakeParticipationService) Approve(_ context.Context, participationID, organizerID string) (*domain.Participation, error) {
	return f.record("approve", participationID, organizerID)
}

func (f *fakeParticipationService) Reject(_ context.Context, participationID, organizerID string) (*domain.Participation, error) {
	return f.record("reject", participationID, organizerID)
}

func (f *fakeParticipationService) Leave(_ context.Context, participationID, userID string) (*domain.Participation, error) {
	return f.record("leave", participationID, userID)
}

func (f *fakeParticipationService) ListByOuting(_ context.Context, outingID string) ([]*domain.Participation, error) {
	f.lastOp, f.lastID = "listByOuting", outingID
	return f.list, f.err
}

func (f *fakeParticipationService) ListByUser(_ context.Context, userID string) ([]*domain.Participation, error) {
	f.lastOp, f.lastUser = "listByUser", userID
	return f.list, f.err
}

func newRequest(method, target string, pathValues map[string]string, userID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	return req
}

func decodeEnvelope[T any](t *testing.T, rr *httptest.ResponseRecorder) (T, *helpers.APIError) {
	t.Helper()
	var body struct {
		Data  T                 `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Data, body.Error
}

func TestParticipationController_Join(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		outingID   string
		userID     string
		fakeErr    error
		wantStatus int
		wantCode   string
	}{
		{name: "created", outingID: testOutingID, userID: "user-1", wantStatus: http.StatusCreated},
		{name: "invalid outing id", outingID: "nope", userID: "user-1", wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "no user in context", outingID: testOutingID, wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
		{name: "outing full", outingID: testOutingID, userID: "user-1", fakeErr: domain.ErrCapacityExceeded, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeCapacityExceeded},
		{name: "self join", outingID: testOutingID, userID: "user-1", fakeErr: domain.ErrSelfJoin, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "already participating", outingID: testOutingID, userID: "user-1", fakeErr: domain.ErrAlreadyParticipating, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unknown outing", outingID: testOutingID, userID: "user-1", fakeErr: fmt.Errorf("outing: %w", domain.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: helpers.ErrCodeNotFound},
		{name: "transient conflict", outingID: testOutingID, userID: "user-1", fakeErr: domain.ErrTransientConflict, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeParticipationService{
				err:    tt.fakeErr,
				result: &domain.Participation{ID: testParticipationID, OutingID: testOutingID, UserID: "user-1", Status: domain.ParticipationPending, CreatedAt: now, UpdatedAt: now},
			}
			ctrl := NewParticipationController(testLogger, fake)
			req := newRequest(http.MethodPost, "/outings/"+tt.outingID+"/participations", map[string]string{"outingID": tt.outingID}, tt.userID)
			rr := httptest.NewRecorder()

			ctrl.Join(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			data, apiErr := decodeEnvelope[*domain.Participation](t, rr)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.Nil(t, apiErr)
			assert.Equal(t, testParticipationID, data.ID)
			assert.Equal(t, domain.ParticipationPending, data.Status)
			assert.Equal(t, "join", fake.lastOp)
			assert.Equal(t, testOutingID, fake.lastID)
			assert.Equal(t, "user-1", fake.lastUser)
		})
	}
}

func TestParticipationController_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		handler    func(c *ParticipationController) http.HandlerFunc
		method     string
		wantOp     string
		fakeErr    error
		wantStatus int
		wantCode   string
	}{
		{name: "approve", handler: func(c *ParticipationController) http.HandlerFunc { return c.Approve }, method: http.MethodPut, wantOp: "approve", wantStatus: http.StatusOK},
		{name: "approve by stranger", handler: func(c *ParticipationController) http.HandlerFunc { return c.Approve }, method: http.MethodPut, wantOp: "approve", fakeErr: domain.ErrNotOrganizer, wantStatus: http.StatusForbidden, wantCode: helpers.ErrCodeForbidden},
		{name: "approve resolved request", handler: func(c *ParticipationController) http.HandlerFunc { return c.Approve }, method: http.MethodPut, wantOp: "approve", fakeErr: domain.ErrNotPending, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeInvalidState},
		{name: "approve when full", handler: func(c *ParticipationController) http.HandlerFunc { return c.Approve }, method: http.MethodPut, wantOp: "approve", fakeErr: domain.ErrCapacityExceeded, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeCapacityExceeded},
		{name: "reject", handler: func(c *ParticipationController) http.HandlerFunc { return c.Reject }, method: http.MethodPut, wantOp: "reject", wantStatus: http.StatusOK},
		{name: "leave", handler: func(c *ParticipationController) http.HandlerFunc { return c.Leave }, method: http.MethodDelete, wantOp: "leave", wantStatus: http.StatusOK},
		{name: "leave someone else's", handler: func(c *ParticipationController) http.HandlerFunc { return c.Leave }, method: http.MethodDelete, wantOp: "leave", fakeErr: domain.ErrNotParticipant, wantStatus: http.StatusForbidden, wantCode: helpers.ErrCodeForbidden},
		{name: "internal error is hidden", handler: func(c *ParticipationController) http.HandlerFunc { return c.Reject }, method: http.MethodPut, wantOp: "reject", fakeErr: fmt.Errorf("db: connection reset"), wantStatus: http.StatusInternalServerError, wantCode: helpers.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeParticipationService{
				err:    tt.fakeErr,
				result: &domain.Participation{ID: testParticipationID, Status: domain.ParticipationApproved},
			}
			ctrl := NewParticipationController(testLogger, fake)
			req := newRequest(tt.method, "/participations/"+testParticipationID, map[string]string{"participationID": testParticipationID}, "org-1")
			rr := httptest.NewRecorder()

			tt.handler(ctrl)(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOp, fake.lastOp)
			assert.Equal(t, testParticipationID, fake.lastID)
			assert.Equal(t, "org-1", fake.lastUser)
			_, apiErr := decodeEnvelope[*domain.Participation](t, rr)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Nil(t, apiErr)
		})
	}
}

func TestParticipationController_ResolveInvalidID(t *testing.T) {
	fake := &fakeParticipationService{}
	ctrl := NewParticipationController(testLogger, fake)
	req := newRequest(http.MethodPut, "/participations/abc/approve", map[string]string{"participationID": "abc"}, "org-1")
	rr := httptest.NewRecorder()

	ctrl.Approve(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, fake.lastOp, "service must not be called")
}

func TestParticipationController_Lists(t *testing.T) {
	list := make([]*domain.Participation, 0, 5)
	for i := range 5 {
		list = append(list, &domain.Participation{ID: fmt.Sprintf("p-%d", i)})
	}

	t.Run("by outing paginated", func(t *testing.T) {
		fake := &fakeParticipationService{list: list}
		ctrl := NewParticipationController(testLogger, fake)
		req := newRequest(http.MethodGet, "/outings/"+testOutingID+"/participations?page=2&page_size=2", map[string]string{"outingID": testOutingID}, "user-1")
		rr := httptest.NewRecorder()

		ctrl.ListByOuting(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		data, apiErr := decodeEnvelope[ListParticipationsResponse](t, rr)
		require.Nil(t, apiErr)
		require.Len(t, data.Items, 2)
		assert.Equal(t, "p-2", data.Items[0].ID)
		assert.Equal(t, helpers.PaginationMeta{Page: 2, PageSize: 2, Total: 5, TotalPages: 3}, data.Pagination)
		assert.Equal(t, testOutingID, fake.lastID)
	})

	t.Run("by outing unknown", func(t *testing.T) {
		fake := &fakeParticipationService{err: domain.ErrNotFound}
		ctrl := NewParticipationController(testLogger, fake)
		req := newRequest(http.MethodGet, "/outings/"+testOutingID+"/participations", map[string]string{"outingID": testOutingID}, "user-1")
		rr := httptest.NewRecorder()

		ctrl.ListByOuting(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("mine", func(t *testing.T) {
		fake := &fakeParticipationService{list: []*domain.Participation{}}
		ctrl := NewParticipationController(testLogger, fake)
		req := newRequest(http.MethodGet, "/participations/my", nil, "user-1")
		rr := httptest.NewRecorder()

		ctrl.ListMine(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		data, _ := decodeEnvelope[ListParticipationsResponse](t, rr)
		assert.NotNil(t, data.Items)
		assert.Empty(t, data.Items)
		assert.Equal(t, "user-1", fake.lastUser)
	})

	t.Run("mine unauthenticated", func(t *testing.T) {
		ctrl := NewParticipationController(testLogger, &fakeParticipationService{})
		rr := httptest.NewRecorder()

		ctrl.ListMine(rr, newRequest(http.MethodGet, "/participations/my", nil, ""))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
