package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"shareit/internal/bookings/query"
	apperrors "shareit/pkg/errors"
	"shareit/pkg/logger"
	"shareit/pkg/model"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listCall struct {
	userID int64
	role   query.Role
	state  string
	page   model.Page
}

type mockBookingService struct {
	createFunc func(ctx context.Context, bookerID int64, input *model.BookingInput) (*model.BookingView, error)
	decideFunc func(ctx context.Context, ownerID, bookingID int64, approve bool) (*model.BookingView, error)
	getFunc    func(ctx context.Context, viewerID, bookingID int64) (*model.BookingView, error)
	listErr    error
	lastList   *listCall
}

func (m *mockBookingService) Create(ctx context.Context, bookerID int64, input *model.BookingInput) (*model.BookingView, error) {
	return m.createFunc(ctx, bookerID, input)
}

func (m *mockBookingService) Decide(ctx context.Context, ownerID, bookingID int64, approve bool) (*model.BookingView, error) {
	return m.decideFunc(ctx, ownerID, bookingID, approve)
}

func (m *mockBookingService) Cancel(ctx context.Context, bookerID, bookingID int64) (*model.BookingView, error) {
	return &model.BookingView{ID: bookingID, Status: model.StatusCanceled}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, viewerID, bookingID int64) (*model.BookingView, error) {
	return m.getFunc(ctx, viewerID, bookingID)
}

func (m *mockBookingService) List(ctx context.Context, subjectID int64, role query.Role, state string, page model.Page) ([]*model.BookingView, error) {
	m.lastList = &listCall{userID: subjectID, role: role, state: state, page: page}
	if m.listErr != nil {
		return nil, m.listErr
	}
	return []*model.BookingView{}, nil
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, logger.Discard(), 10, 50).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, target, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req.Header.Set("X-Sharer-User-Id", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestCreate(t *testing.T) {
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, bookerID int64, input *model.BookingInput) (*model.BookingView, error) {
			if *input.ItemID == 11 {
				return nil, apperrors.Forbidden("This is your thing")
			}
			return &model.BookingView{ID: 1, Status: model.StatusWaiting, Booker: model.UserRef{ID: bookerID}}, nil
		},
	}
	router := newRouter(svc)

	tests := []struct {
		name   string
		userID string
		body   string
		status int
		errMsg string
	}{
		{name: "created", userID: "2", body: `{"item_id":10,"start":"2030-01-01T10:00:00Z","end":"2030-01-01T12:00:00Z"}`, status: http.StatusCreated},
		{name: "missing user header", userID: "", body: `{"item_id":10}`, status: http.StatusBadRequest, errMsg: "Missing X-Sharer-User-Id header"},
		{name: "malformed body", userID: "2", body: `{"item_id":`, status: http.StatusBadRequest, errMsg: "Invalid request body"},
		{name: "own item", userID: "4", body: `{"item_id":11,"start":"2030-01-01T10:00:00Z","end":"2030-01-01T12:00:00Z"}`, status: http.StatusForbidden, errMsg: "This is your thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/bookings", tt.userID, tt.body)
			assert.Equal(t, tt.status, w.Code)
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, errorBody(t, w))
				return
			}
			var resp struct {
				Data model.BookingView `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, model.StatusWaiting, resp.Data.Status)
			assert.EqualValues(t, 2, resp.Data.Booker.ID)
		})
	}
}

func TestGetByID_DispatchesOwnerList(t *testing.T) {
	svc := &mockBookingService{
		getFunc: func(ctx context.Context, viewerID, bookingID int64) (*model.BookingView, error) {
			return nil, apperrors.Masked("Booking", bookingID)
		},
	}
	router := newRouter(svc)

	w := do(router, http.MethodGet, "/bookings/owner?state=WAITING&from=20&size=5", "1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastList)
	assert.Equal(t, query.RoleOwner, svc.lastList.role)
	assert.Equal(t, "WAITING", svc.lastList.state)
	assert.Equal(t, model.Page{From: 20, Size: 5}, svc.lastList.page)

	w = do(router, http.MethodGet, "/bookings/7", "3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Booking with id 7 not found", errorBody(t, w))

	w = do(router, http.MethodGet, "/bookings/abc", "3", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestList(t *testing.T) {
	svc := &mockBookingService{}
	router := newRouter(svc)

	w := do(router, http.MethodGet, "/bookings?size=500", "2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, query.RoleBooker, svc.lastList.role)
	assert.Equal(t, 50, svc.lastList.page.Size, "size is capped")
	assert.JSONEq(t, `{"data":[],"from":0,"size":50}`, w.Body.String())

	svc.listErr = apperrors.BadRequest("Unknown state: Frobnicate")
	w = do(router, http.MethodGet, "/bookings?state=Frobnicate", "2", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unknown state: Frobnicate", errorBody(t, w))

	w = do(router, http.MethodGet, "/bookings?from=-1", "2", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecide(t *testing.T) {
	var gotApprove *bool
	svc := &mockBookingService{
		decideFunc: func(ctx context.Context, ownerID, bookingID int64, approve bool) (*model.BookingView, error) {
			gotApprove = &approve
			if bookingID == 9 {
				return nil, apperrors.InvalidState("Booking with id 9 is already APPROVED")
			}
			return &model.BookingView{ID: bookingID, Status: model.StatusApproved}, nil
		},
	}
	router := newRouter(svc)

	tests := []struct {
		name    string
		target  string
		status  int
		approve *bool
	}{
		{name: "approve", target: "/bookings/1?approved=true", status: http.StatusOK, approve: boolPtr(true)},
		{name: "reject", target: "/bookings/1?approved=false", status: http.StatusOK, approve: boolPtr(false)},
		{name: "missing flag", target: "/bookings/1", status: http.StatusBadRequest},
		{name: "bad flag", target: "/bookings/1?approved=yes", status: http.StatusBadRequest},
		{name: "already decided", target: "/bookings/9?approved=true", status: http.StatusBadRequest, approve: boolPtr(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotApprove = nil
			w := do(router, http.MethodPatch, tt.target, "1", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.approve, gotApprove)
		})
	}
}

func TestCancel(t *testing.T) {
	router := newRouter(&mockBookingService{})

	w := do(router, http.MethodPost, "/bookings/3/cancel", "2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"CANCELED"`)
}

func boolPtr(v bool) *bool { return &v }
