package handler

import (
	"encoding/json"
	"net/http"
	"shareit/internal/items/service"
	httputil "shareit/pkg/http"
	"shareit/pkg/logger"
	"shareit/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const searchSegment = "search"

type ItemHandler struct {
	service     service.ItemService
	log         *logger.Logger
	defaultSize int
	maxSize     int
}

func NewItemHandler(service service.ItemService, log *logger.Logger, defaultSize, maxSize int) *ItemHandler {
	return &ItemHandler{
		service:     service,
		log:         log,
		defaultSize: defaultSize,
		maxSize:     maxSize,
	}
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var input model.ItemInput
	if !h.decode(w, r, "Create", &input) {
		return
	}

	item, err := h.service.Create(r.Context(), userID, &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, item); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

// GetByID also serves GET /items/search.
func (h *ItemHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") == searchSegment {
		h.search(w, r)
		return
	}

	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	itemID, err := httputil.ParseID("item", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	item, err := h.service.GetByID(r.Context(), userID, itemID)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, item); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	page, err := httputil.ExtractPage(r, h.defaultSize, h.maxSize)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	items, err := h.service.ListByOwner(r.Context(), userID, page)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePage(w, items, page.From, page.Size); err != nil {
		h.log.Error("failed to write page response", "handler", "List", "operation", "WritePage", "error", err)
	}
}

func (h *ItemHandler) search(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ExtractPage(r, h.defaultSize, h.maxSize)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	items, err := h.service.Search(r.Context(), r.URL.Query().Get("text"), page)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WritePage(w, items, page.From, page.Size); err != nil {
		h.log.Error("failed to write page response", "handler", "Search", "operation", "WritePage", "error", err)
	}
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}
	itemID, err := httputil.ParseID("item", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var update model.ItemUpdate
	if !h.decode(w, r, "Update", &update) {
		return
	}

	item, err := h.service.Update(r.Context(), userID, itemID, &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, item); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	itemID, err := httputil.ParseID("item", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), userID, itemID); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ItemHandler) AddComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := httputil.ExtractUserID(r)
	if err != nil {
		h.writeError(w, "AddComment", err)
		return
	}
	itemID, err := httputil.ParseID("item", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "AddComment", err)
		return
	}

	var input model.CommentInput
	if !h.decode(w, r, "AddComment", &input) {
		return
	}

	comment, err := h.service.AddComment(r.Context(), userID, itemID, &input)
	if err != nil {
		h.writeError(w, "AddComment", err)
		return
	}

	if err := httputil.WriteCreated(w, comment); err != nil {
		h.log.Error("failed to write created response", "handler", "AddComment", "operation", "WriteCreated", "error", err)
	}
}

func (h *ItemHandler) decode(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", name, "operation", "WriteJSON", "error", writeErr)
		}
		return false
	}
	return true
}

func (h *ItemHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ItemHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/items", h.Create)
	router.GET("/items", h.List)
	router.GET("/items/:id", h.GetByID)
	router.PATCH("/items/:id", h.Update)
	router.DELETE("/items/:id", h.Delete)
	router.POST("/items/:id/comment", h.AddComment)
}
