// Package handler contains the HTTP handlers for the ControlFit API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/controlfit/controlfit/internal/api/middleware"
	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/feedback"
	"github.com/controlfit/controlfit/internal/store"
)

// requireUserID pulls the authenticated user id from the request context. A
// missing id means the auth middleware did not run; that is a server bug, but
// the caller sees 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing authentication", nil)
	}
	return userID, ok
}

// uuidParam parses a uuid path parameter, writing a 400 on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}

// parseDate parses a YYYY-MM-DD value, writing a 400 naming the field on failure.
func parseDate(w http.ResponseWriter, field, value string) (time.Time, bool) {
	t, err := time.Parse(feedback.DateLayout, value)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", field+" must be a YYYY-MM-DD date", nil)
		return time.Time{}, false
	}
	return t, true
}

// dateRangeQuery reads optional start/end query parameters into a DateRange.
func dateRangeQuery(w http.ResponseWriter, r *http.Request) (store.DateRange, bool) {
	var dr store.DateRange
	if v := r.URL.Query().Get("start"); v != "" {
		t, ok := parseDate(w, "start", v)
		if !ok {
			return dr, false
		}
		dr.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, ok := parseDate(w, "end", v)
		if !ok {
			return dr, false
		}
		dr.End = t
	}
	return dr, true
}

// storeError maps store sentinel errors onto API responses.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "DUPLICATE", "Resource already exists", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
