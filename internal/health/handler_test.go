package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"shareit/pkg/logger"
)

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "liveness ignores dependency", path: "/health", pingErr: errors.New("down"), wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "ready when ping succeeds", path: "/ready", wantStatus: http.StatusOK, wantBody: `{"status":"ready","dependency":"mongo: ok"}`},
		{name: "unavailable when ping fails", path: "/ready", pingErr: errors.New("down"), wantStatus: http.StatusServiceUnavailable, wantBody: `{"status":"unavailable","dependency":"mongo: error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := CheckerFunc(func(ctx context.Context) error { return tt.pingErr })
			router := httprouter.New()
			NewHandler("mongo", checker, logger.Discard()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
