package handler

import (
	"encoding/json"
	"net/http"
	"shareit/internal/bookings/query"
	"shareit/internal/bookings/service"
	apperrors "shareit/pkg/errors"
	httputil "shareit/pkg/http"
	"shareit/pkg/logger"
	"shareit/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const ownerSegment = "owner"

type BookingHandler struct {
	service     service.BookingService
	log         *logger.Logger
	defaultSize int
	maxSize     int
}

func NewBookingHandler(service service.BookingService, log *logger.Logger, defaultSize, maxSize int) *BookingHandler {
	return &BookingHandler{
		service:     service,
		log:         log,
		defaultSize: defaultSize,
		maxSize:     maxSize,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var input model.BookingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Create(r.Context(), userID, &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

// GetByID also serves GET /bookings/owner; httprouter cannot register a
// static segment next to :id.
func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") == ownerSegment {
		h.list(w, r, query.RoleOwner, "ListOwner")
		return
	}

	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	bookingID, err := httputil.ParseID("booking", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), userID, bookingID)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, query.RoleBooker, "List")
}

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request, role query.Role, name string) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}
	page, err := httputil.ExtractPage(r, h.defaultSize, h.maxSize)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	bookings, err := h.service.List(r.Context(), userID, role, r.URL.Query().Get("state"), page)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WritePage(w, bookings, page.From, page.Size); err != nil {
		h.log.Error("failed to write page response", "handler", name, "operation", "WritePage", "error", err)
	}
}

// Decide handles PATCH /bookings/:id?approved=true|false.
func (h *BookingHandler) Decide(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "Decide", err)
		return
	}
	bookingID, err := httputil.ParseID("booking", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Decide", err)
		return
	}

	var approve bool
	switch raw := r.URL.Query().Get("approved"); raw {
	case "true":
		approve = true
	case "false":
		approve = false
	default:
		h.writeError(w, "Decide", apperrors.BadRequest("approved must be true or false"))
		return
	}

	booking, err := h.service.Decide(r.Context(), userID, bookingID, approve)
	if err != nil {
		h.writeError(w, "Decide", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Decide", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}
	bookingID, err := httputil.ParseID("booking", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), userID, bookingID)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/bookings", h.Create)
	router.GET("/bookings", h.List)
	router.GET("/bookings/:id", h.GetByID)
	router.PATCH("/bookings/:id", h.Decide)
	router.POST("/bookings/:id/cancel", h.Cancel)
}
