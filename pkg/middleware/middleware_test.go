package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"shareit/pkg/logger"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	t.Run("generates id when absent", func(t *testing.T) {
		var seen string
		h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("reuses inbound id", func(t *testing.T) {
		var seen string
		h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "abc-123", seen)
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "json post", method: http.MethodPost, body: `{}`, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "text post", method: http.MethodPost, body: `{}`, contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType},
		{name: "bodyless patch", method: http.MethodPatch, wantStatus: http.StatusOK},
		{name: "get ignored", method: http.MethodGet, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, "/items", strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, "/bookings/1?approved=true", nil)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			rec := httptest.NewRecorder()
			ContentTypeValidation(logger.Discard())(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"drill"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserRateLimiter(t *testing.T) {
	limiter := NewUserRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	h := UserRateLimit(limiter)(okHandler())
	send := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		if user != "" {
			req.Header.Set(sharerUserHeader, user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("1"))
	assert.Equal(t, http.StatusOK, send("1"))
	assert.Equal(t, http.StatusTooManyRequests, send("1"))
	assert.Equal(t, http.StatusOK, send("2"), "limits are per user")
	assert.Equal(t, http.StatusOK, send(""), "anonymous requests are not limited")
}

func TestUserRateLimiter_WindowSlides(t *testing.T) {
	limiter := NewUserRateLimiter(1, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("7"))
	assert.False(t, limiter.Allow("7"))

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("7"))
}

func TestIdempotency_ReplaysPerUser(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":1}}`))
	}))

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`))
		req.Header.Set(sharerUserHeader, user)
		req.Header.Set(DefaultIdempotencyHeader, "k1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("1")
	second := send("1")
	other := send("2")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.EqualValues(t, 2, calls.Load())
}

func TestIdempotency_FailuresAreNotCached(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		req.Header.Set(DefaultIdempotencyHeader, "k1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.EqualValues(t, 2, calls.Load())
}

func TestRedisIdempotencyStore_DegradesWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, time.Minute, logger.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	store.Set(ctx, "k", &CachedResponse{StatusCode: http.StatusCreated})
	cached, ok := store.Get(ctx, "k")

	require.False(t, ok)
	assert.Nil(t, cached)
}
