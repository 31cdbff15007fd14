// Package errors consolidates error definitions for the entire project.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Convenience re-exports of errors.Is / errors.As
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Ingestion errors
	ErrMalformedPoint = errors.New("malformed data point")
	ErrUnknownUtility = errors.New("unknown utility type")
	ErrUnknownKind    = errors.New("unknown data kind")

	// Vendor API errors
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNoAccessToken  = errors.New("no access token in auth response")
	ErrReportPending  = errors.New("usage report still pending")
	ErrUnexpectedBody = errors.New("unexpected response body")
	ErrRequestFailed  = errors.New("request failed")

	// Validation errors
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrInvalidZone     = errors.New("invalid civil zone")
	ErrMissingField    = errors.New("missing required field")

	// Storage errors
	ErrBackendClosed  = errors.New("backend is closed")
	ErrSnapshotFailed = errors.New("snapshot write failed")

	// State errors
	ErrAlreadyRunning = errors.New("already running")
	ErrNotRunning     = errors.New("not running")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsMalformed returns true if err marks a skippable bad data point.
// Malformed points never abort a batch; the caller counts and continues.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPoint)
}

// IsAuthError returns true if err is an authentication error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrNoAccessToken)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidZone) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnknownUtility) ||
		errors.Is(err, ErrUnknownKind)
}

// IsRetryable returns true if the fetch may succeed on a later cycle.
// Pending reports and transport failures resolve themselves; auth and
// validation failures do not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrReportPending) ||
		errors.Is(err, ErrRequestFailed)
}

// ============================================================================
// Validation error collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, fmt.Errorf("%w: %s", ErrMissingField, field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
