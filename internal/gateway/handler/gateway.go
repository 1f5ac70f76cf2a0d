// Package handler is the gateway front: it repeats input validation and
// relays accepted requests to the backend unchanged.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"shareit/internal/bookings/query"
	"shareit/pkg/client"
	apperrors "shareit/pkg/errors"
	httputil "shareit/pkg/http"
	"shareit/pkg/logger"
	"shareit/pkg/middleware"
	"shareit/pkg/model"
	"shareit/pkg/validator"

	"github.com/gorilla/mux"
)

// Backend is the forwarding target; *client.HttpClient satisfies it.
type Backend interface {
	Do(ctx context.Context, r client.Request) (*client.Response, error)
}

type check func(r *http.Request, body []byte) error

type Gateway struct {
	backend   Backend
	validator *validator.Validator
	log       *logger.Logger
}

func NewGateway(backend Backend, validator *validator.Validator, log *logger.Logger) *Gateway {
	return &Gateway{
		backend:   backend,
		validator: validator,
		log:       log,
	}
}

// Router registers every backend route. Static segments come before {id}.
func (g *Gateway) Router() *mux.Router {
	router := mux.NewRouter()

	router.Handle("/users", g.forward(g.body(func() any { return &model.UserInput{} }))).Methods(http.MethodPost)
	router.Handle("/users", g.forward()).Methods(http.MethodGet)
	router.Handle("/users/{id}", g.forward(pathID)).Methods(http.MethodGet, http.MethodDelete)
	router.Handle("/users/{id}", g.forward(pathID, g.body(func() any { return &model.UserUpdate{} }))).Methods(http.MethodPatch)

	router.Handle("/items", g.forward(userHeader, g.body(func() any { return &model.ItemInput{} }))).Methods(http.MethodPost)
	router.Handle("/items", g.forward(userHeader, page)).Methods(http.MethodGet)
	router.Handle("/items/search", g.forward(page)).Methods(http.MethodGet)
	router.Handle("/items/{id}", g.forward(userHeader, pathID)).Methods(http.MethodGet, http.MethodDelete)
	router.Handle("/items/{id}", g.forward(userHeader, pathID, g.body(func() any { return &model.ItemUpdate{} }))).Methods(http.MethodPatch)
	router.Handle("/items/{id}/comment", g.forward(userHeader, pathID, g.body(func() any { return &model.CommentInput{} }))).Methods(http.MethodPost)

	router.Handle("/bookings", g.forward(userHeader, g.body(func() any { return &model.BookingInput{} }))).Methods(http.MethodPost)
	router.Handle("/bookings", g.forward(userHeader, g.state, page)).Methods(http.MethodGet)
	router.Handle("/bookings/owner", g.forward(userHeader, g.state, page)).Methods(http.MethodGet)
	router.Handle("/bookings/{id}", g.forward(userHeader, pathID)).Methods(http.MethodGet)
	router.Handle("/bookings/{id}", g.forward(userHeader, pathID, g.approved)).Methods(http.MethodPatch)
	router.Handle("/bookings/{id}/cancel", g.forward(userHeader, pathID)).Methods(http.MethodPost)

	router.Handle("/requests", g.forward(userHeader, g.body(func() any { return &model.RequestInput{} }))).Methods(http.MethodPost)
	router.Handle("/requests", g.forward(userHeader)).Methods(http.MethodGet)
	router.Handle("/requests/all", g.forward(userHeader, page)).Methods(http.MethodGet)
	router.Handle("/requests/{id}", g.forward(userHeader, pathID)).Methods(http.MethodGet)

	return router
}

// forward runs the checks in order and relays the request when all pass.
func (g *Gateway) forward(checks ...check) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			g.writeError(w, apperrors.BadRequest("Failed to read request body"))
			return
		}

		for _, c := range checks {
			if err := c(r, body); err != nil {
				g.writeError(w, err)
				return
			}
		}

		g.relay(w, r, body)
	})
}

func (g *Gateway) relay(w http.ResponseWriter, r *http.Request, body []byte) {
	log := g.log.FromContext(r.Context())

	headers := map[string]string{}
	if v := r.Header.Get(httputil.UserIDHeader); v != "" {
		headers[httputil.UserIDHeader] = v
	}
	if v := logger.RequestID(r.Context()); v != "" {
		headers[middleware.RequestIDHeader] = v
	}

	req := client.Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: headers,
	}
	if len(body) > 0 {
		req.RawBody = body
	}

	resp, err := g.backend.Do(r.Context(), req)
	if err != nil {
		log.Error("Backend request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			g.writeError(w, apperrors.Timeout("Backend did not answer in time"))
			return
		}
		g.writeError(w, apperrors.Unavailable("Backend"))
		return
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Error("Backend returned server error", "method", r.Method, "path", r.URL.Path, "status", resp.StatusCode, "message", client.GetErrorMessage(resp))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		log.Error("failed to relay response", "handler", "Gateway", "operation", "Write", "error", err)
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		g.log.Error("failed to write error response", "handler", "Gateway", "operation", "WriteError", "error", writeErr)
	}
}

// body decodes into a fresh value from newInput and validates it.
func (g *Gateway) body(newInput func() any) check {
	return func(r *http.Request, raw []byte) error {
		target := newInput()
		if len(bytes.TrimSpace(raw)) == 0 {
			return apperrors.BadRequest("Request body is required")
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return apperrors.BadRequest("Invalid request body")
		}
		if err := g.validator.Struct(target); err != nil {
			g.log.FromContext(r.Context()).Warn("Gateway validation failed", "path", r.URL.Path, "error", err)
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return apperrors.Validation("Validation failed", verrs.Fields())
			}
			return apperrors.Validation("Validation failed", map[string]any{"error": err.Error()})
		}
		return nil
	}
}

func (g *Gateway) state(r *http.Request, _ []byte) error {
	raw := r.URL.Query().Get("state")
	if err := g.validator.Var("state", raw, query.StateTag()); err != nil {
		return apperrors.BadRequest(fmt.Sprintf("Unknown state: %s", raw))
	}
	return nil
}

func (g *Gateway) approved(r *http.Request, _ []byte) error {
	if err := g.validator.Var("approved", r.URL.Query().Get("approved"), "required,oneof=true false"); err != nil {
		return apperrors.BadRequest("approved must be true or false")
	}
	return nil
}

func userHeader(r *http.Request, _ []byte) error {
	_, err := httputil.ExtractUserID(r)
	return err
}

func pathID(r *http.Request, _ []byte) error {
	_, err := httputil.ParseID("path", mux.Vars(r)["id"])
	return err
}

func page(r *http.Request, _ []byte) error {
	_, err := httputil.ExtractPage(r, httputil.DefaultSize, 0)
	return err
}
