package http

import (
	"encoding/json"
	"net/http"
	apperrors "shareit/pkg/errors"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data"`
}

type PageResponse struct {
	Data any `json:"data"`
	From int `json:"from"`
	Size int `json:"size"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// StatusFor is the single place an error code becomes an HTTP status.
func StatusFor(code string) int {
	switch code {
	case apperrors.CodeBadRequest,
		apperrors.CodeInvalidInput,
		apperrors.CodeValidation,
		apperrors.CodeInvalidInterval,
		apperrors.CodeInvalidState,
		apperrors.CodeNoAccess:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeTimeout, apperrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, err error) error {
	if !apperrors.IsAppError(err) {
		return WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
		})
	}

	appErr := apperrors.AsAppError(err)
	resp := ErrorResponse{Error: appErr.Message, Details: appErr.Details}
	if appErr.Code == apperrors.CodeInternal {
		resp = ErrorResponse{Error: "Internal server error"}
	}
	return WriteJSON(w, StatusFor(appErr.Code), resp)
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WritePage(w http.ResponseWriter, data any, from, size int) error {
	return WriteJSON(w, http.StatusOK, PageResponse{Data: data, From: from, Size: size})
}
