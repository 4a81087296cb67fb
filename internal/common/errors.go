package common

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., username already exists
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")

	// ErrStructuralConflict marks a mutation that would violate a tree
	// invariant: deleting a node with live children, a parent of the wrong
	// kind, or a sub-question claimed under the wrong question.
	ErrStructuralConflict = errors.New("structural conflict")

	// ErrMalformedHierarchy marks a cycle detected while assembling a
	// sub-question forest. A cycle means store corruption, so assembly
	// fails closed instead of degrading.
	ErrMalformedHierarchy = errors.New("malformed hierarchy")

	// ErrTransientStore marks a lost connection or backend timeout. The
	// service never retries internally; callers may retry these and only
	// these.
	ErrTransientStore = errors.New("transient store failure")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrStructuralConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrTransientStore) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrMalformedHierarchy) {
		return http.StatusInternalServerError
	}

	// Check for pgx specific errors (example for unique constraint)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// ClassifyStoreError folds backend failures into the domain taxonomy so
// callers can tell a retryable outage apart from a structural rejection.
// Class 08 covers connection exceptions, 57 operator intervention
// (shutdown), 53 insufficient resources.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, ErrTransientStore)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 {
		switch pgErr.Code[:2] {
		case "08", "57", "53":
			return fmt.Errorf("%v: %w", err, ErrTransientStore)
		}
		if pgErr.Code == "23505" {
			return fmt.Errorf("%v: %w", err, ErrConflict)
		}
	}
	return err
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
