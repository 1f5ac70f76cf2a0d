package handler

import (
	"encoding/json"
	"net/http"
	"shareit/internal/requests/service"
	httputil "shareit/pkg/http"
	"shareit/pkg/logger"
	"shareit/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const allSegment = "all"

type RequestHandler struct {
	service     service.RequestService
	log         *logger.Logger
	defaultSize int
	maxSize     int
}

func NewRequestHandler(service service.RequestService, log *logger.Logger, defaultSize, maxSize int) *RequestHandler {
	return &RequestHandler{
		service:     service,
		log:         log,
		defaultSize: defaultSize,
		maxSize:     maxSize,
	}
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var input model.RequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	request, err := h.service.Create(r.Context(), userID, &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, request); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *RequestHandler) ListOwn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "ListOwn", err)
		return
	}

	requests, err := h.service.ListOwn(r.Context(), userID)
	if err != nil {
		h.writeError(w, "ListOwn", err)
		return
	}

	if err := httputil.WriteSuccess(w, requests); err != nil {
		h.log.Error("failed to write success response", "handler", "ListOwn", "operation", "WriteSuccess", "error", err)
	}
}

// GetByID also serves GET /requests/all.
func (h *RequestHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if ps.ByName("id") == allSegment {
		h.listOthers(w, r, userID)
		return
	}

	requestID, err := httputil.ParseID("request", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	request, err := h.service.GetByID(r.Context(), userID, requestID)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, request); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RequestHandler) listOthers(w http.ResponseWriter, r *http.Request, userID int64) {
	page, err := httputil.ExtractPage(r, h.defaultSize, h.maxSize)
	if err != nil {
		h.writeError(w, "ListOthers", err)
		return
	}

	requests, err := h.service.ListOthers(r.Context(), userID, page)
	if err != nil {
		h.writeError(w, "ListOthers", err)
		return
	}

	if err := httputil.WritePage(w, requests, page.From, page.Size); err != nil {
		h.log.Error("failed to write page response", "handler", "ListOthers", "operation", "WritePage", "error", err)
	}
}

func (h *RequestHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RequestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/requests", h.Create)
	router.GET("/requests", h.ListOwn)
	router.GET("/requests/:id", h.GetByID)
}
