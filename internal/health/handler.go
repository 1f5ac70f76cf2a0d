package health

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	httputil "shareit/pkg/http"
	"shareit/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Checker is the dependency /ready probes: Mongo for the server, the
// backend for the gateway.
type Checker interface {
	Ping(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Response struct {
	Status     string `json:"status"`
	Dependency string `json:"dependency,omitempty"`
}

type Handler struct {
	name    string
	checker Checker
	log     *logger.Logger
}

func NewHandler(name string, checker Checker, log *logger.Logger) *Handler {
	return &Handler{
		name:    name,
		checker: checker,
		log:     log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.checker.Ping(ctx); err != nil {
		h.log.Error("dependency health check failed",
			"dependency", h.name,
			"error", err,
			"path", r.URL.Path,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, Response{
			Status:     "unavailable",
			Dependency: h.name + ": error",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, Response{
		Status:     "ready",
		Dependency: h.name + ": ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
