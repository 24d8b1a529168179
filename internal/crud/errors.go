package crud

import (
	"errors"
	"net/http"
)

// ErrNotFound is returned by Repository.GetOne when no record matches.
// Repositories may wrap it; the bridge checks with errors.Is.
var ErrNotFound = errors.New("record not found")

// NotFoundMessage is the detail message of every 404 produced by the bridge.
const NotFoundMessage = "Not found."

// DefaultMessage is used when an error is neither a uniqueness violation nor
// handled by a MessageMapper.
const DefaultMessage = "An unexpected error occurred."

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Message   string `json:"message"`
	Error     bool   `json:"error"`
	Exception string `json:"exception,omitempty"`
}

// Respond builds an ErrorResponse. exception is the raw error text and may be
// empty.
func Respond(message, exception string) ErrorResponse {
	return ErrorResponse{Message: message, Error: true, Exception: exception}
}

// HTTPError terminates a request. Status is either 404 (not found) or 400
// (the repository rejected the operation).
type HTTPError struct {
	Status int
	Detail ErrorResponse

	err error
}

func (e *HTTPError) Error() string { return e.Detail.Message }

// Unwrap returns the storage error that caused a 400, or nil for a 404.
func (e *HTTPError) Unwrap() error { return e.err }

// NotFound returns the 404 error used when a lookup yields no record.
func NotFound() *HTTPError {
	return &HTTPError{
		Status: http.StatusNotFound,
		Detail: Respond(NotFoundMessage, ""),
	}
}

// BadRequest returns a 400 carrying message and the raw text of cause.
func BadRequest(message string, cause error) *HTTPError {
	exception := ""
	if cause != nil {
		exception = cause.Error()
	}
	return &HTTPError{
		Status: http.StatusBadRequest,
		Detail: Respond(message, exception),
		err:    cause,
	}
}

// IsNotFound reports whether err is a bridge 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}
