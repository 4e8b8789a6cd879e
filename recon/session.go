/*
session.go - Reconciliation session

PURPOSE:
  Owns the loaded assignments, time entries and period for one admin
  workflow, and the Result derived from them.

SNAPSHOTS:
  State is an immutable Snapshot. Every change (new assignments, new time
  entries, new period) builds a complete new Snapshot, recomputing the
  Result when all three inputs are present, and publishes it atomically.
  Readers call Snapshot() and never observe a partial update.

  A failed load returns the error and publishes nothing: the previous
  snapshot stays in place.

SEE ALSO:
  - engine.go: Reconcile
  - package.go: BuildPackage from a Snapshot
*/
package recon

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a consistent view of a session. Never modify a Snapshot
// obtained from a Session.
type Snapshot struct {
	Version     int
	Assignments []Assignment
	Index       *Index
	Entries     []TimeEntry
	Period      Period
	Result      *Result // nil until assignments, entries and period are all set

	AssignmentLocation Location
	EntryLocation      Location
	UpdatedAt          time.Time
}

// Ready reports whether a Result is available.
func (s *Snapshot) Ready() bool { return s != nil && s.Result != nil }

// Totals is a shortcut for Result.Totals, zero when not ready.
func (s *Snapshot) Totals() Totals {
	if !s.Ready() {
		return Totals{Employees: len(s.Assignments)}
	}
	return s.Result.Totals(len(s.Assignments))
}

// Session serializes writers and publishes snapshots to readers.
type Session struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
	now  func() time.Time
}

// NewSession starts with no data and the default period relative to now.
func NewSession(now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{now: now}
	s.snap.Store(&Snapshot{Period: DefaultPeriod(now()), UpdatedAt: now()})
	return s
}

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

// LoadAssignments replaces the session's assignments with those found in
// wb. On error the session is unchanged.
func (s *Session) LoadAssignments(wb Workbook) (AssignmentLoad, error) {
	load, err := LoadAssignments(wb)
	if err != nil {
		return AssignmentLoad{}, err
	}
	s.update(func(next *Snapshot) {
		next.Assignments = load.Assignments
		next.Index = NewIndex(load.Assignments)
		next.AssignmentLocation = load.Location
	})
	return load, nil
}

// LoadTimeEntries replaces the session's time entries with those found in
// wb. On error the session is unchanged.
func (s *Session) LoadTimeEntries(wb Workbook) (EntryLoad, error) {
	load, err := LoadTimeEntries(wb)
	if err != nil {
		return EntryLoad{}, err
	}
	s.update(func(next *Snapshot) {
		next.Entries = load.Entries
		next.EntryLocation = load.Location
	})
	return load, nil
}

// SetPeriod changes the reconciliation window.
func (s *Session) SetPeriod(p Period) *Snapshot {
	return s.update(func(next *Snapshot) {
		next.Period = p
	})
}

// Reset drops all loaded data.
func (s *Session) Reset() *Snapshot {
	return s.update(func(next *Snapshot) {
		*next = Snapshot{Version: next.Version, Period: DefaultPeriod(s.now())}
	})
}

func (s *Session) update(change func(next *Snapshot)) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.snap.Load()
	change(&next)
	next.Version++
	next.UpdatedAt = s.now()
	next.Result = nil
	if len(next.Assignments) > 0 && len(next.Entries) > 0 && !next.Period.IsZero() {
		res := ReconcileIndex(next.Index, next.Entries, next.Period)
		next.Result = &res
	}
	s.snap.Store(&next)
	return &next
}
