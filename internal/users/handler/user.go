package handler

import (
	"encoding/json"
	"net/http"
	"shareit/internal/users/service"
	httputil "shareit/pkg/http"
	"shareit/pkg/logger"
	"shareit/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type UserHandler struct {
	service service.UserService
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log,
	}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeBadBody(w, "Create")
		return
	}

	user, err := h.service.Create(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, user); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParseID("user", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	users, err := h.service.GetAll(r.Context())
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WriteSuccess(w, users); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParseID("user", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var update model.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeBadBody(w, "Update")
		return
	}

	user, err := h.service.Update(r.Context(), id, &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParseID("user", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *UserHandler) writeBadBody(w http.ResponseWriter, name string) {
	if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
		Error: "Invalid request body",
	}); writeErr != nil {
		h.log.Error("failed to write JSON response", "handler", name, "operation", "WriteJSON", "error", writeErr)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/users", h.Create)
	router.GET("/users", h.GetAll)
	router.GET("/users/:id", h.GetByID)
	router.PATCH("/users/:id", h.Update)
	router.DELETE("/users/:id", h.Delete)
}
