package errors

import (
	"net/http"
)

// HTTPStatusCode returns the appropriate HTTP status code for the given error.
// It maps error types to standard HTTP status codes:
//   - NotFoundError -> 404 Not Found
//   - InvalidInputError -> 400 Bad Request
//   - TemporaryError -> 503 Service Unavailable
//   - PermanentError, PanicError and unknown errors -> 500 Internal Server Error
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsTemporary(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTPError writes a plain-text error response with the status derived from err.
// Panic details are not exposed to the client.
func WriteHTTPError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	statusCode := HTTPStatusCode(err)
	msg := err.Error()
	if IsPanic(err) {
		msg = http.StatusText(statusCode)
	}
	http.Error(w, msg, statusCode)
}

// Reporter receives errors produced while serving a request, before the
// error response is written. The request logger uses it to attach error
// details to the access record.
type Reporter func(r *http.Request, err error)

// HandlerFunc is an HTTP handler that may fail.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts h to an http.Handler. A returned error is passed to reporter
// (if non-nil) and then written with WriteHTTPError.
func Handle(h HandlerFunc, reporter Reporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			if reporter != nil {
				reporter(r, err)
			}
			WriteHTTPError(w, err)
		}
	})
}
