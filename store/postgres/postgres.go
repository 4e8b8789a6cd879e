/*
Package postgres provides a PostgreSQL-backed implementation of the storage
interfaces using a pgx connection pool.

Same tables as store/sqlite, with native TIMESTAMPTZ and JSON columns.
Concurrency is left to the database: ReplacePackage runs in a transaction
and MarkCompletionNotified is a conditional UPDATE, so only one caller
claims the completion mail.

USAGE:
  store, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warp/timesheet-recon/recon"
)

// Store implements recon.PackageStore and recon.AttestationLog.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and migrates the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url not set")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// NewWithPool wraps an existing pool. The schema is not migrated.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Truncate empties both tables. Used by tests against a scratch database.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE packages, attestation_events")
	return err
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS packages (
		package_id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		employee_count INTEGER NOT NULL DEFAULT 0,
		payload JSON NOT NULL, -- json, not jsonb: the payload text is kept verbatim
		completion_notified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS attestation_events (
		id TEXT PRIMARY KEY,
		package_id TEXT NOT NULL,
		employee_key TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		worker_id TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL CHECK (event_type IN ('Viewed', 'Attested')),
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_attestation_events_package
		ON attestation_events(package_id, created_at);
	`)
	return err
}

// =============================================================================
// PACKAGE STORE
// =============================================================================

func (s *Store) ReplacePackage(ctx context.Context, rec recon.PackageRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM packages"); err != nil {
			return fmt.Errorf("failed to clear packages: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO packages (package_id, period_start, period_end, generated_at, employee_count, payload, completion_notified_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.PackageID, rec.PeriodStart, rec.PeriodEnd, rec.GeneratedAt.UTC(),
			rec.EmployeeCount, string(rec.Payload), rec.CompletionNotifiedAt, createdAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert package: %w", err)
		}
		return nil
	})
}

const packageColumns = `package_id, period_start, period_end, generated_at, employee_count, payload::text, completion_notified_at, created_at`

func (s *Store) LatestPackage(ctx context.Context) (*recon.PackageRecord, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+packageColumns+" FROM packages ORDER BY generated_at DESC NULLS LAST, created_at DESC LIMIT 1")
	return scanPackage(row)
}

func (s *Store) GetPackage(ctx context.Context, packageID string) (*recon.PackageRecord, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+packageColumns+" FROM packages WHERE package_id = $1", packageID)
	return scanPackage(row)
}

func (s *Store) DeleteLatestPackage(ctx context.Context) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		DELETE FROM packages
		WHERE package_id = (
			SELECT package_id FROM packages
			ORDER BY generated_at DESC NULLS LAST, created_at DESC
			LIMIT 1
		)
		RETURNING package_id`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", recon.ErrPackageNotFound
	}
	return id, err
}

func (s *Store) DeleteAllPackages(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM packages")
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) MarkCompletionNotified(ctx context.Context, packageID string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE packages SET completion_notified_at = $1 WHERE package_id = $2 AND completion_notified_at IS NULL",
		at.UTC(), packageID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ReleaseCompletionNotified(ctx context.Context, packageID string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE packages SET completion_notified_at = NULL WHERE package_id = $1", packageID)
	return err
}

func scanPackage(row pgx.Row) (*recon.PackageRecord, error) {
	var (
		rec     recon.PackageRecord
		payload string
	)
	err := row.Scan(&rec.PackageID, &rec.PeriodStart, &rec.PeriodEnd, &rec.GeneratedAt,
		&rec.EmployeeCount, &payload, &rec.CompletionNotifiedAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, recon.ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Payload = []byte(payload)
	return &rec, nil
}

// =============================================================================
// ATTESTATION LOG
// =============================================================================

func (s *Store) Append(ctx context.Context, event recon.AttestationEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attestation_events (id, package_id, employee_key, employee_name, worker_id, event_type, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.PackageID, event.EmployeeKey, event.EmployeeName, event.WorkerID,
		string(event.EventType), event.Details, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert attestation event: %w", err)
	}
	return nil
}

func (s *Store) Events(ctx context.Context, packageID string) ([]recon.AttestationEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, package_id, employee_key, employee_name, worker_id, event_type, details, created_at
		FROM attestation_events
		WHERE package_id = $1
		ORDER BY created_at`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []recon.AttestationEvent
	for rows.Next() {
		var (
			e         recon.AttestationEvent
			eventType string
		)
		if err := rows.Scan(&e.ID, &e.PackageID, &e.EmployeeKey, &e.EmployeeName, &e.WorkerID,
			&eventType, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventType = recon.EventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) CountAttested(ctx context.Context, packageID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(DISTINCT employee_key) FROM attestation_events WHERE package_id = $1 AND event_type = 'Attested'",
		packageID).Scan(&n)
	return n, err
}

var (
	_ recon.PackageStore   = (*Store)(nil)
	_ recon.AttestationLog = (*Store)(nil)
)
