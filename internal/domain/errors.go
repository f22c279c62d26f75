package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session id has no stored dataset.
var ErrSessionNotFound = errors.New("session not found")

// ValidationError rejects a request whose inputs are structurally absent or
// do not designate anything (no orders uploaded, unknown override row, ...).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConfigurationError rejects calculation parameters before any computation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewConfigurationError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// WarningKind classifies recoverable data quality issues.
type WarningKind string

const (
	WarningDroppedRow       WarningKind = "dropped_row"
	WarningInvalidNumber    WarningKind = "invalid_number"
	WarningInvalidDate      WarningKind = "invalid_date"
	WarningUnknownPackaging WarningKind = "unknown_packaging"
	WarningExcludedDepot    WarningKind = "excluded_depot"
	WarningNoDateRange      WarningKind = "no_date_range"
	WarningNoInventory      WarningKind = "no_inventory"
	WarningTruncated        WarningKind = "truncated_warnings"
)

// Warning is a data quality issue recovered locally and reported with the result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Source  string      `json:"source,omitempty"`
	Row     int         `json:"row,omitempty"`
	Column  string      `json:"column,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Row > 0 {
		return fmt.Sprintf("%s row %d: %s", w.Source, w.Row, w.Message)
	}
	return w.Message
}
