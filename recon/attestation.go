package recon

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// =============================================================================
// ATTESTATION EVENTS - Append-only employee acknowledgements
// =============================================================================

type EventType string

const (
	EventViewed   EventType = "Viewed"
	EventAttested EventType = "Attested"
)

// Valid reports whether the event type is accepted.
func (t EventType) Valid() bool {
	return t == EventViewed || t == EventAttested
}

// MaxDetailsLength bounds attestation notes, in characters.
const MaxDetailsLength = 256

// AttestationEvent is one Viewed or Attested record.
type AttestationEvent struct {
	ID           string    `json:"id"`
	PackageID    string    `json:"packageId"`
	EmployeeKey  string    `json:"employeeKey"`
	EmployeeName string    `json:"employeeName"`
	WorkerID     string    `json:"workerId"`
	EventType    EventType `json:"eventType"`
	Details      string    `json:"details"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Normalize trims free-text fields.
func (e AttestationEvent) Normalize() AttestationEvent {
	e.PackageID = strings.TrimSpace(e.PackageID)
	e.EmployeeKey = strings.TrimSpace(e.EmployeeKey)
	e.EmployeeName = strings.TrimSpace(e.EmployeeName)
	e.WorkerID = strings.TrimSpace(e.WorkerID)
	e.Details = strings.TrimSpace(e.Details)
	return e
}

// Validate checks required fields, event type and details length.
func (e AttestationEvent) Validate() error {
	if e.PackageID == "" || e.EmployeeKey == "" || e.EventType == "" {
		return &EventValidationError{Message: "Missing attestation fields"}
	}
	if !e.EventType.Valid() {
		return &EventValidationError{Field: "eventType", Message: "Invalid event type"}
	}
	if utf8.RuneCountInString(e.Details) > MaxDetailsLength {
		return &EventValidationError{Field: "details", Message: "Notes must be 256 characters or fewer"}
	}
	return nil
}

// =============================================================================
// STATUS - Latest activity per employee key
// =============================================================================

// StatusRow is the latest activity of one employee for a package.
type StatusRow struct {
	EmployeeKey      string     `json:"employeeKey"`
	EmployeeName     string     `json:"employeeName"`
	WorkerID         string     `json:"workerId"`
	LastViewed       *time.Time `json:"lastViewed"`
	LastAttested     *time.Time `json:"lastAttested"`
	AttestationNotes string     `json:"attestationNotes"`
}

// StatusRows folds events into one row per employee key, ordered by key.
func StatusRows(events []AttestationEvent) []StatusRow {
	byKey := make(map[string]*StatusRow)
	for _, e := range events {
		row, ok := byKey[e.EmployeeKey]
		if !ok {
			row = &StatusRow{EmployeeKey: e.EmployeeKey}
			byKey[e.EmployeeKey] = row
		}
		if e.EmployeeName != "" {
			row.EmployeeName = e.EmployeeName
		}
		if e.WorkerID != "" {
			row.WorkerID = e.WorkerID
		}
		at := e.CreatedAt
		switch e.EventType {
		case EventViewed:
			if row.LastViewed == nil || at.After(*row.LastViewed) {
				row.LastViewed = &at
			}
		case EventAttested:
			if row.LastAttested == nil || !at.Before(*row.LastAttested) {
				row.LastAttested = &at
				row.AttestationNotes = e.Details
			}
		}
	}
	out := make([]StatusRow, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeKey < out[j].EmployeeKey })
	return out
}

// LatestAttestations returns the latest Attested event per employee key,
// ordered by key.
func LatestAttestations(events []AttestationEvent) []AttestationEvent {
	latest := make(map[string]AttestationEvent)
	for _, e := range events {
		if e.EventType != EventAttested {
			continue
		}
		if prev, ok := latest[e.EmployeeKey]; !ok || !e.CreatedAt.Before(prev.CreatedAt) {
			latest[e.EmployeeKey] = e
		}
	}
	out := make([]AttestationEvent, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeKey < out[j].EmployeeKey })
	return out
}

// AttestationState is the display state of one employee.
type AttestationState string

const (
	StateNotStarted AttestationState = "Not Started"
	StateInProgress AttestationState = "In Progress"
	StateCompleted  AttestationState = "Completed"
)

// EmployeeStatus is an assignment annotated with its attestation activity.
type EmployeeStatus struct {
	Assignment       Assignment
	State            AttestationState
	LastViewed       *time.Time
	LastAttested     *time.Time
	AttestationNotes string
}

// AnnotateStatus pairs every assignment with its status row, ordered by
// name. Assignments without activity are Not Started.
func AnnotateStatus(assignments []Assignment, rows []StatusRow) []EmployeeStatus {
	byKey := make(map[string]StatusRow, len(rows))
	for _, row := range rows {
		byKey[row.EmployeeKey] = row
	}
	out := make([]EmployeeStatus, 0, len(assignments))
	for _, a := range assignments {
		st := EmployeeStatus{Assignment: a, State: StateNotStarted}
		if row, ok := byKey[a.EmployeeKey]; ok {
			st.LastViewed = row.LastViewed
			st.LastAttested = row.LastAttested
			st.AttestationNotes = row.AttestationNotes
		}
		switch {
		case st.LastAttested != nil:
			st.State = StateCompleted
		case st.LastViewed != nil:
			st.State = StateInProgress
		}
		out = append(out, st)
	}
	names := NewNameCollator()
	sort.SliceStable(out, func(i, j int) bool {
		return names.Compare(out[i].Assignment.Name, out[j].Assignment.Name) < 0
	})
	return out
}

// StatusCounts tallies employees per state.
func StatusCounts(statuses []EmployeeStatus) map[AttestationState]int {
	counts := map[AttestationState]int{
		StateCompleted:  0,
		StateInProgress: 0,
		StateNotStarted: 0,
	}
	for _, st := range statuses {
		counts[st.State]++
	}
	return counts
}

// StatusByKey indexes annotated statuses by employee key.
func StatusByKey(statuses []EmployeeStatus) map[string]EmployeeStatus {
	out := make(map[string]EmployeeStatus, len(statuses))
	for _, st := range statuses {
		out[st.Assignment.EmployeeKey] = st
	}
	return out
}
