package http

import (
	"fmt"
	"net/http"
	apperrors "shareit/pkg/errors"
	"shareit/pkg/model"
	"strconv"
	"strings"
)

// UserIDHeader carries the acting user on every resource call.
const UserIDHeader = "X-Sharer-User-Id"

const (
	DefaultFrom = 0
	DefaultSize = 10
)

// ExtractUserID reads the acting user from the caller identity header.
func ExtractUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return 0, apperrors.BadRequest(fmt.Sprintf("Missing %s header", UserIDHeader))
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest(fmt.Sprintf("Invalid %s header: %s", UserIDHeader, raw))
	}
	return id, nil
}

// ParseID parses a numeric path id.
func ParseID(resource, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("Invalid %s id: %s", resource, raw))
	}
	return id, nil
}

// ExtractPage reads from/size. from must be >= 0 and size > 0; size is capped at maxSize.
func ExtractPage(r *http.Request, defaultSize, maxSize int) (model.Page, error) {
	query := r.URL.Query()
	if defaultSize <= 0 {
		defaultSize = DefaultSize
	}

	page := model.Page{From: DefaultFrom, Size: defaultSize}

	if s := query.Get("from"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return model.Page{}, apperrors.InvalidInput("invalid from parameter: " + s)
		}
		if v < 0 {
			return model.Page{}, apperrors.InvalidInput("from must be greater than or equal to 0")
		}
		page.From = v
	}

	if s := query.Get("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return model.Page{}, apperrors.InvalidInput("invalid size parameter: " + s)
		}
		if v <= 0 {
			return model.Page{}, apperrors.InvalidInput("size must be greater than 0")
		}
		page.Size = v
	}

	if maxSize > 0 && page.Size > maxSize {
		page.Size = maxSize
	}
	return page, nil
}
