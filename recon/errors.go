/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The api and attest packages map these to HTTP status codes and
  user-facing status messages.

ERROR CATEGORIES:
  1. Load errors - No header row, no surviving data rows
  2. Identity annotations - Ambiguous matches (never fatal)
  3. Workflow errors - Invalid periods, missing packages, bad events

USAGE:
  load, err := recon.LoadAssignments(wb)
  if errors.Is(err, recon.ErrHeaderNotFound) {
      // report "Unable to detect Assignment headers or columns."
  }

SEE ALSO:
  - locator.go: Returns HeaderNotFoundError
  - assignment.go, entry.go: Return NoRowsError
  - matcher.go: Produces AmbiguousIdentityError annotations
*/
package recon

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrHeaderNotFound is returned when no sheet/row satisfies the required
	// semantic columns and no fallback strategy applies.
	ErrHeaderNotFound = errors.New("header row not found")

	// ErrNoRowsFound is returned when a header was located but zero valid
	// data rows survived filtering.
	ErrNoRowsFound = errors.New("no rows found")

	// ErrNoAssignmentsFound is the assignment flavor of ErrNoRowsFound.
	ErrNoAssignmentsFound = errors.New("no assignment rows found")

	// ErrNoEntriesFound is the time detail flavor of ErrNoRowsFound.
	ErrNoEntriesFound = errors.New("no time detail rows found")

	// ErrAmbiguousIdentity marks a match whose identity key has more than one
	// candidate. It annotates results and never blocks computation.
	ErrAmbiguousIdentity = errors.New("ambiguous identity")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrNotReady is returned when a package or report is requested before
	// assignments, time entries and a period are all available.
	ErrNotReady = errors.New("reconciliation not ready")

	// ErrPackageNotFound is returned when no package has been published.
	ErrPackageNotFound = errors.New("no package published yet")

	// ErrInvalidPackage is returned when a package misses required fields.
	ErrInvalidPackage = errors.New("missing package fields")

	// ErrInvalidEvent is returned when an attestation event fails validation.
	ErrInvalidEvent = errors.New("invalid attestation event")

	// ErrEmployeeNotFound is returned when an assignment id is not part of
	// the published package.
	ErrEmployeeNotFound = errors.New("employee not found in package")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SheetKind names the kind of workbook a loader expected.
type SheetKind string

const (
	SheetAssignments SheetKind = "assignments"
	SheetTimeDetail  SheetKind = "time detail"
)

// HeaderNotFoundError reports which columns were required and which sheets
// were searched.
type HeaderNotFoundError struct {
	Kind     SheetKind
	Required Requirement
	Sheets   []string
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("%s: no header row with %s in sheets [%s]",
		ErrHeaderNotFound, e.Required, strings.Join(e.Sheets, ", "))
}

func (e *HeaderNotFoundError) Unwrap() error {
	return ErrHeaderNotFound
}

// NoRowsError reports a located sheet that produced no usable rows.
type NoRowsError struct {
	Kind      SheetKind
	SheetName string
	HeaderRow int
}

func (e *NoRowsError) Error() string {
	switch e.Kind {
	case SheetAssignments:
		return ErrNoAssignmentsFound.Error()
	case SheetTimeDetail:
		return ErrNoEntriesFound.Error()
	}
	return ErrNoRowsFound.Error()
}

func (e *NoRowsError) Is(target error) bool {
	switch target {
	case ErrNoRowsFound:
		return true
	case ErrNoAssignmentsFound:
		return e.Kind == SheetAssignments
	case ErrNoEntriesFound:
		return e.Kind == SheetTimeDetail
	}
	return false
}

// AmbiguousIdentityError describes why a match is unreliable.
type AmbiguousIdentityError struct {
	Key        string
	Reason     string
	Candidates int
}

func (e *AmbiguousIdentityError) Error() string {
	return fmt.Sprintf("%s: %s (%d candidates for %q)", ErrAmbiguousIdentity, e.Reason, e.Candidates, e.Key)
}

func (e *AmbiguousIdentityError) Unwrap() error {
	return ErrAmbiguousIdentity
}

// EventValidationError names the attestation field that failed validation.
type EventValidationError struct {
	Field   string
	Message string
}

func (e *EventValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *EventValidationError) Unwrap() error {
	return ErrInvalidEvent
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsLoadError returns true for failures a user can fix by uploading a
// different file.
func IsLoadError(err error) bool {
	return errors.Is(err, ErrHeaderNotFound) || errors.Is(err, ErrNoRowsFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return IsLoadError(err) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidPackage) ||
		errors.Is(err, ErrInvalidEvent)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPackageNotFound) || errors.Is(err, ErrEmployeeNotFound)
}
