// Package apperr defines the error taxonomy shared by the catalog, identity
// and session components. Callers match values with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrFetchFailed reports that a read from the document store failed.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrAlreadyExists reports a duplicate record, e.g. an email taken at sign-up.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound reports a missing identity or item.
	ErrNotFound = errors.New("not found")
	// ErrValidationFailed reports malformed caller input such as an unknown sort key.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUnauthorized reports rejected credentials or a caller acting on a record it does not own.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStoreFailed reports that a write to an external store failed.
	ErrStoreFailed = errors.New("store failed")
)

// Status maps an error from the taxonomy onto an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrFetchFailed), errors.Is(err, ErrStoreFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
