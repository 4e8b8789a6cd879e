/*
store.go - Persistence interfaces for published packages and attestations

PURPOSE:
  Defines the boundary between the attestation workflow and the database.
  The reconciliation itself never touches storage: only the published
  package and the employee attestation log are persisted.

KEY INTERFACES:
  PackageStore:   Published packages (at most one is current)
  AttestationLog: Append-only Viewed/Attested events

APPEND-ONLY CONTRACT:
  AttestationLog has no Update or Delete. Deleting a package does not
  delete its events.

IMPLEMENTATIONS:
  - store/sqlite: SQLite (default)
  - store/postgres: PostgreSQL via pgx
  - recon/store: In-memory for tests and dev

SEE ALSO:
  - attest/service.go: Workflow over these interfaces
*/
package recon

import (
	"context"
	"time"
)

// PackageRecord is a stored package with its bookkeeping columns.
type PackageRecord struct {
	PackageID            string
	PeriodStart          string
	PeriodEnd            string
	GeneratedAt          time.Time
	EmployeeCount        int
	Payload              []byte // package JSON, verbatim
	CompletionNotifiedAt *time.Time
	CreatedAt            time.Time
}

// Package decodes the payload.
func (r PackageRecord) Package() (*Package, error) {
	return DecodePackage(r.Payload)
}

// PackageStore persists published packages.
type PackageStore interface {
	// ReplacePackage deletes every existing package and stores rec, atomically.
	ReplacePackage(ctx context.Context, rec PackageRecord) error

	// LatestPackage returns the most recently generated package, or
	// ErrPackageNotFound.
	LatestPackage(ctx context.Context) (*PackageRecord, error)

	// GetPackage returns a package by id, or ErrPackageNotFound.
	GetPackage(ctx context.Context, packageID string) (*PackageRecord, error)

	// DeleteLatestPackage deletes and returns the latest package id, or
	// ErrPackageNotFound.
	DeleteLatestPackage(ctx context.Context) (string, error)

	// DeleteAllPackages deletes every package and returns how many there were.
	DeleteAllPackages(ctx context.Context) (int, error)

	// MarkCompletionNotified sets completion_notified_at if it is not set yet.
	// Returns false when the package was already marked (or does not exist).
	// Only one concurrent caller can win, so it doubles as the claim taken
	// before the completion mail is sent.
	MarkCompletionNotified(ctx context.Context, packageID string, at time.Time) (bool, error)

	// ReleaseCompletionNotified clears completion_notified_at so a failed
	// send can be retried. Missing packages are not an error.
	ReleaseCompletionNotified(ctx context.Context, packageID string) error
}

// AttestationLog persists attestation events. Append-only.
type AttestationLog interface {
	Append(ctx context.Context, event AttestationEvent) error

	// Events returns the events of a package, oldest first.
	Events(ctx context.Context, packageID string) ([]AttestationEvent, error)

	// CountAttested returns the number of distinct employee keys with at
	// least one Attested event for the package.
	CountAttested(ctx context.Context, packageID string) (int, error)
}
