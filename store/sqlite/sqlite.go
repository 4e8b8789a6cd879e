/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements recon.PackageStore and recon.AttestationLog using SQLite.
  store/postgres carries the same schema for PostgreSQL.

KEY TABLES:
  packages:            Published packages (payload JSON stored verbatim)
  attestation_events:  Append-only Viewed/Attested log

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on attestation_events
  - packages rows are replaced on publish; events outlive their package

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus a single open connection so
  ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./recon.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := attest.NewService(store, store, attest.Options{})

SEE ALSO:
  - recon/store.go: Interface definitions
  - recon/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/timesheet-recon/recon"
)

// timeLayout is fixed-width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS packages (
		package_id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		employee_count INTEGER NOT NULL DEFAULT 0,
		payload_json TEXT NOT NULL,
		completion_notified_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_packages_generated_at
		ON packages(generated_at DESC, created_at DESC);

	-- Append-only
	CREATE TABLE IF NOT EXISTS attestation_events (
		id TEXT PRIMARY KEY,
		package_id TEXT NOT NULL,
		employee_key TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		worker_id TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL CHECK (event_type IN ('Viewed', 'Attested')),
		details TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attestation_events_package
		ON attestation_events(package_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_attestation_events_attested
		ON attestation_events(package_id, employee_key) WHERE event_type = 'Attested';
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PACKAGE STORE (recon.PackageStore interface)
// =============================================================================

// ReplacePackage deletes every package and inserts rec in one transaction.
func (s *Store) ReplacePackage(ctx context.Context, rec recon.PackageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM packages"); err != nil {
		return fmt.Errorf("failed to clear packages: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO packages (package_id, period_start, period_end, generated_at, employee_count, payload_json, completion_notified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PackageID, rec.PeriodStart, rec.PeriodEnd,
		rec.GeneratedAt.UTC().Format(timeLayout),
		rec.EmployeeCount, string(rec.Payload),
		formatNullableTime(rec.CompletionNotifiedAt),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert package: %w", err)
	}
	return sqlTx.Commit()
}

const packageColumns = `package_id, period_start, period_end, generated_at, employee_count, payload_json, completion_notified_at, created_at`

func (s *Store) LatestPackage(ctx context.Context) (*recon.PackageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+packageColumns+" FROM packages ORDER BY generated_at DESC, created_at DESC LIMIT 1")
	return scanPackage(row)
}

func (s *Store) GetPackage(ctx context.Context, packageID string) (*recon.PackageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+packageColumns+" FROM packages WHERE package_id = ?", packageID)
	return scanPackage(row)
}

func (s *Store) DeleteLatestPackage(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT package_id FROM packages ORDER BY generated_at DESC, created_at DESC LIMIT 1",
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", recon.ErrPackageNotFound
	}
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM packages WHERE package_id = ?", id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteAllPackages(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM packages")
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) MarkCompletionNotified(ctx context.Context, packageID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE packages SET completion_notified_at = ? WHERE package_id = ? AND completion_notified_at IS NULL",
		at.UTC().Format(timeLayout), packageID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ReleaseCompletionNotified(ctx context.Context, packageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE packages SET completion_notified_at = NULL WHERE package_id = ?", packageID)
	return err
}

func scanPackage(row *sql.Row) (*recon.PackageRecord, error) {
	var (
		rec                    recon.PackageRecord
		generatedAt, createdAt string
		payload                string
		notifiedAt             sql.NullString
	)
	err := row.Scan(&rec.PackageID, &rec.PeriodStart, &rec.PeriodEnd, &generatedAt,
		&rec.EmployeeCount, &payload, &notifiedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recon.ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Payload = []byte(payload)
	rec.GeneratedAt, _ = time.Parse(timeLayout, generatedAt)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if notifiedAt.Valid {
		t, _ := time.Parse(timeLayout, notifiedAt.String)
		rec.CompletionNotifiedAt = &t
	}
	return &rec, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// =============================================================================
// ATTESTATION LOG (recon.AttestationLog interface)
// =============================================================================

// Append adds an event. Append-only.
func (s *Store) Append(ctx context.Context, event recon.AttestationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attestation_events (id, package_id, employee_key, employee_name, worker_id, event_type, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.PackageID, event.EmployeeKey, event.EmployeeName, event.WorkerID,
		string(event.EventType), event.Details, createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert attestation event: %w", err)
	}
	return nil
}

func (s *Store) Events(ctx context.Context, packageID string) ([]recon.AttestationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, package_id, employee_key, employee_name, worker_id, event_type, details, created_at
		FROM attestation_events
		WHERE package_id = ?
		ORDER BY created_at, rowid`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []recon.AttestationEvent
	for rows.Next() {
		var (
			e         recon.AttestationEvent
			eventType string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.PackageID, &e.EmployeeKey, &e.EmployeeName, &e.WorkerID,
			&eventType, &e.Details, &createdAt); err != nil {
			return nil, err
		}
		e.EventType = recon.EventType(eventType)
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) CountAttested(ctx context.Context, packageID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT employee_key) FROM attestation_events WHERE package_id = ? AND event_type = 'Attested'",
		packageID,
	).Scan(&n)
	return n, err
}

var (
	_ recon.PackageStore   = (*Store)(nil)
	_ recon.AttestationLog = (*Store)(nil)
)
