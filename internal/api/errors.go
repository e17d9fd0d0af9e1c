package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/recipe-forge/internal/store"
)

// API errors
var (
	// ErrInvalidIdentity is returned for item ids that cannot name an artifact
	ErrInvalidIdentity = errors.New("invalid item identity")

	// ErrArtifactNotFound is returned when no artifact exists for an id
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrLedgerDisabled is returned by ledger routes when no database is configured
	ErrLedgerDisabled = errors.New("run ledger is not enabled")
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidIdentity),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest
	case errors.Is(err, ErrArtifactNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrLedgerDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, ErrInvalidIdentity):
		return "Invalid item id"
	case errors.Is(err, ErrArtifactNotFound):
		return "Item not found"
	case errors.Is(err, store.ErrJobNotFound):
		return "Batch job not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrLedgerDisabled):
		return "Run ledger is not enabled"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"
	default:
		return "An unexpected error occurred"
	}
}
