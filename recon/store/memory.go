// Package store provides in-memory PackageStore and AttestationLog
// implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/timesheet-recon/recon"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	packages map[string]recon.PackageRecord
	events   []recon.AttestationEvent
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		packages: make(map[string]recon.PackageRecord),
		now:      time.Now,
	}
}

// ReplacePackage drops every stored package, then stores rec.
func (m *Memory) ReplacePackage(_ context.Context, rec recon.PackageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now().UTC()
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	m.packages = map[string]recon.PackageRecord{rec.PackageID: rec}
	return nil
}

func (m *Memory) LatestPackage(_ context.Context) (*recon.PackageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.latestLocked()
	if !ok {
		return nil, recon.ErrPackageNotFound
	}
	return &rec, nil
}

func (m *Memory) GetPackage(_ context.Context, packageID string) (*recon.PackageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.packages[packageID]
	if !ok {
		return nil, recon.ErrPackageNotFound
	}
	return &rec, nil
}

func (m *Memory) DeleteLatestPackage(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.latestLocked()
	if !ok {
		return "", recon.ErrPackageNotFound
	}
	delete(m.packages, rec.PackageID)
	return rec.PackageID, nil
}

func (m *Memory) DeleteAllPackages(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.packages)
	m.packages = make(map[string]recon.PackageRecord)
	return n, nil
}

func (m *Memory) MarkCompletionNotified(_ context.Context, packageID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.packages[packageID]
	if !ok || rec.CompletionNotifiedAt != nil {
		return false, nil
	}
	at = at.UTC()
	rec.CompletionNotifiedAt = &at
	m.packages[packageID] = rec
	return true, nil
}

func (m *Memory) ReleaseCompletionNotified(_ context.Context, packageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.packages[packageID]; ok {
		rec.CompletionNotifiedAt = nil
		m.packages[packageID] = rec
	}
	return nil
}

// latestLocked orders by generated_at desc, then created_at desc.
func (m *Memory) latestLocked() (recon.PackageRecord, bool) {
	var (
		best  recon.PackageRecord
		found bool
	)
	for _, rec := range m.packages {
		if !found ||
			rec.GeneratedAt.After(best.GeneratedAt) ||
			(rec.GeneratedAt.Equal(best.GeneratedAt) && rec.CreatedAt.After(best.CreatedAt)) {
			best, found = rec, true
		}
	}
	return best, found
}

// =============================================================================
// ATTESTATION LOG
// =============================================================================

// Append adds an event. Append-only.
func (m *Memory) Append(_ context.Context, event recon.AttestationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = m.now().UTC()
	}
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) Events(_ context.Context, packageID string) ([]recon.AttestationEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []recon.AttestationEvent
	for _, e := range m.events {
		if e.PackageID == packageID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountAttested(_ context.Context, packageID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make(map[string]struct{})
	for _, e := range m.events {
		if e.PackageID == packageID && e.EventType == recon.EventAttested {
			keys[e.EmployeeKey] = struct{}{}
		}
	}
	return len(keys), nil
}

// Compile-time interface checks
var (
	_ recon.PackageStore   = (*Memory)(nil)
	_ recon.AttestationLog = (*Memory)(nil)
)

// Close is a no-op, so Memory can stand in for the database stores.
func (m *Memory) Close() error { return nil }
