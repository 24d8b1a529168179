// Package api implements the Larder HTTP API. It uses Chi as the router and
// exposes every resource under /api/v1. Each request under /api/v1 runs in
// its own database transaction and reaches storage only through a crud
// bridge.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/larder-io/larder/internal/crud"
)

// envelope is the JSON wrapper for all API responses.
//
// Success:  {"data": <payload>}
// Error:    {"detail": {"message": "...", "error": true, "exception": "..."}}
type envelope map[string]any

// JSON writes a JSON-encoded response with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Ok writes a 200 OK response with the payload wrapped in {"data": payload}.
func Ok(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusOK, envelope{"data": payload})
}

// Created writes a 201 Created response with the payload wrapped in {"data": payload}.
func Created(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusCreated, envelope{"data": payload})
}

func errJSON(w http.ResponseWriter, status int, detail crud.ErrorResponse) {
	JSON(w, status, envelope{"detail": detail})
}

// ErrBadRequest writes a 400 Bad Request error response.
func ErrBadRequest(w http.ResponseWriter, message, exception string) {
	errJSON(w, http.StatusBadRequest, crud.Respond(message, exception))
}

// ErrNotFound writes a 404 Not Found error response.
func ErrNotFound(w http.ResponseWriter) {
	errJSON(w, http.StatusNotFound, crud.Respond(crud.NotFoundMessage, ""))
}

// ErrInternal writes a 500 Internal Server Error response. The internal error
// detail is not exposed to the client.
func ErrInternal(w http.ResponseWriter) {
	errJSON(w, http.StatusInternalServerError, crud.Respond(crud.DefaultMessage, ""))
}

// ErrUnavailable writes a 503 Service Unavailable error response.
func ErrUnavailable(w http.ResponseWriter, message string) {
	errJSON(w, http.StatusServiceUnavailable, crud.Respond(message, ""))
}

// writeError writes err as returned by a crud bridge: an *HTTPError keeps its
// status and detail, anything else becomes a 500.
func writeError(w http.ResponseWriter, err error) {
	var httpErr *crud.HTTPError
	if errors.As(err, &httpErr) {
		errJSON(w, httpErr.Status, httpErr.Detail)
		return
	}
	ErrInternal(w)
}

// decodeJSON decodes the request body into dst. Returns false and writes an
// appropriate error response if decoding fails, so callers can early-return.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		ErrBadRequest(w, "Invalid request body.", err.Error())
		return false
	}
	return true
}
