/*
package.go - Published employee package

PURPOSE:
  The package is the hand-off from the admin reconciliation to the
  employee attestation flow. It is JSON, stored verbatim by the package
  store, and read back by the employee endpoints.

SHAPE:
  {
    "version": "1.0",
    "packageId": "...",
    "generatedAt": "2025-02-03T10:00:00Z",
    "period": {"start": "2025-01-01", "end": "2025-02-01"},
    "assignments": [{"id": "A1", "name": "...", ...}],
    "summaries": {"A1": {"entryCount": 3, "incorrectEntries": [...], ...}}
  }

  Every assignment has a summary, even with no entries in range.
  Internal fields (normalized service line, worker id key, row indices)
  are stripped.
*/
package recon

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const PackageVersion = "1.0"

// Employee view outcome messages.
const (
	OutcomeNoEntries    = "No time entries found for this date range."
	OutcomeAllCorrect   = "You are amazing, you don’t need any reconciliations."
	OutcomeHasIncorrect = "Please review the incorrect entries below."
)

// AttestationPrompt is shown above the attestation form.
const AttestationPrompt = "Please attest that you have checked both systems to update any incorrect hours and add missing memo entries."

type Package struct {
	Version     string                 `json:"version"`
	PackageID   string                 `json:"packageId"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Period      PeriodView             `json:"period"`
	Assignments []AssignmentView       `json:"assignments"`
	Summaries   map[string]SummaryView `json:"summaries"`
}

type PeriodView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type AssignmentView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WorkerIDRaw   string `json:"workerIdRaw"`
	ServiceLine   string `json:"serviceLine"`
	NameNorm      string `json:"nameNorm"`
	EmployeeKey   string `json:"employeeKey"`
	AmbiguousName bool   `json:"ambiguousName"`
}

type SummaryView struct {
	EntryCount       int         `json:"entryCount"`
	IncorrectEntries []EntryView `json:"incorrectEntries"`
	MissingMemos     []EntryView `json:"missingMemos"`
	Ambiguous        bool        `json:"ambiguous"`
}

type EntryView struct {
	Date     string `json:"date"`
	TaskDesc string `json:"taskDesc"`
	Project  string `json:"project"`
	Hours    string `json:"hours"`
	Memo     string `json:"memo"`
}

// BuildPackage freezes a ready snapshot into a package.
func BuildPackage(snap *Snapshot, packageID string, now time.Time) (*Package, error) {
	if !snap.Ready() {
		return nil, ErrNotReady
	}
	pkg := &Package{
		Version:     PackageVersion,
		PackageID:   packageID,
		GeneratedAt: now.UTC(),
		Period:      PeriodView{Start: snap.Period.StartISO(), End: snap.Period.EndISO()},
		Assignments: make([]AssignmentView, 0, len(snap.Assignments)),
		Summaries:   make(map[string]SummaryView, len(snap.Assignments)),
	}
	for _, a := range snap.Assignments {
		pkg.Assignments = append(pkg.Assignments, ViewAssignment(a))
		pkg.Summaries[a.ID] = ViewSummary(snap.Result.SummaryFor(a))
	}
	return pkg, nil
}

func ViewAssignment(a Assignment) AssignmentView {
	return AssignmentView{
		ID:            a.ID,
		Name:          a.Name,
		WorkerIDRaw:   a.WorkerIDRaw,
		ServiceLine:   a.ServiceLine,
		NameNorm:      a.NameNorm,
		EmployeeKey:   a.EmployeeKey,
		AmbiguousName: a.AmbiguousName,
	}
}

func ViewSummary(s Summary) SummaryView {
	return SummaryView{
		EntryCount:       s.EntryCount,
		IncorrectEntries: ViewEntries(s.IncorrectEntries),
		MissingMemos:     ViewEntries(s.MissingMemos),
		Ambiguous:        s.Ambiguous,
	}
}

// ViewEntries strips entries to their public fields. Never returns nil so
// the JSON carries [] rather than null.
func ViewEntries(entries []TimeEntry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryView{
			Date:     FormatISODate(e.Date),
			TaskDesc: e.TaskDesc,
			Project:  e.Project,
			Hours:    e.Hours.Trimmed(),
			Memo:     e.Memo,
		})
	}
	return out
}

// =============================================================================
// DECODING & VALIDATION
// =============================================================================

// DecodePackage parses and validates a package payload.
func DecodePackage(data []byte) (*Package, error) {
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Validate requires packageId, period bounds and generatedAt.
func (p *Package) Validate() error {
	var missing []string
	if strings.TrimSpace(p.PackageID) == "" {
		missing = append(missing, "packageId")
	}
	if p.Period.Start == "" {
		missing = append(missing, "period.start")
	}
	if p.Period.End == "" {
		missing = append(missing, "period.end")
	}
	if p.GeneratedAt.IsZero() {
		missing = append(missing, "generatedAt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPackage, strings.Join(missing, ", "))
	}
	return nil
}

// EmployeeCount is the number of assignments in the package.
func (p *Package) EmployeeCount() int { return len(p.Assignments) }

// Assignment looks up an assignment by id.
func (p *Package) Assignment(id string) (AssignmentView, bool) {
	for _, a := range p.Assignments {
		if a.ID == id {
			return a, true
		}
	}
	return AssignmentView{}, false
}

// RosterEntry is one line of the employee picker.
type RosterEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Roster lists assignments by name with worker id and ambiguity hints.
func (p *Package) Roster() []RosterEntry {
	sorted := append([]AssignmentView(nil), p.Assignments...)
	names := NewNameCollator()
	sort.SliceStable(sorted, func(i, j int) bool {
		return names.Compare(sorted[i].Name, sorted[j].Name) < 0
	})
	out := make([]RosterEntry, 0, len(sorted))
	for _, a := range sorted {
		label := a.Name
		if a.WorkerIDRaw != "" {
			label += " (" + a.WorkerIDRaw + ")"
		}
		if a.AmbiguousName {
			label += " [Ambiguous]"
		}
		out = append(out, RosterEntry{ID: a.ID, Label: label})
	}
	return out
}

// =============================================================================
// EMPLOYEE VIEW
// =============================================================================

// EmployeeView is what one employee sees for the published period.
type EmployeeView struct {
	PackageID        string         `json:"packageId"`
	Period           PeriodView     `json:"period"`
	Assignment       AssignmentView `json:"assignment"`
	EntryCount       int            `json:"entryCount"`
	IncorrectEntries []EntryView    `json:"incorrectEntries"`
	MissingMemos     []EntryView    `json:"missingMemos"`
	Ambiguous        bool           `json:"ambiguous"`
	Outcome          string         `json:"outcome"`
	Prompt           string         `json:"prompt"`
}

// EmployeeView builds the view for an assignment id.
func (p *Package) EmployeeView(id string) (EmployeeView, bool) {
	a, ok := p.Assignment(id)
	if !ok {
		return EmployeeView{}, false
	}
	s, ok := p.Summaries[id]
	if !ok {
		s = SummaryView{IncorrectEntries: []EntryView{}, MissingMemos: []EntryView{}, Ambiguous: a.AmbiguousName}
	}
	v := EmployeeView{
		PackageID:        p.PackageID,
		Period:           p.Period,
		Assignment:       a,
		EntryCount:       s.EntryCount,
		IncorrectEntries: s.IncorrectEntries,
		MissingMemos:     s.MissingMemos,
		Ambiguous:        s.Ambiguous,
		Prompt:           AttestationPrompt,
	}
	switch {
	case s.EntryCount == 0:
		v.Outcome = OutcomeNoEntries
	case len(s.IncorrectEntries) == 0:
		v.Outcome = OutcomeAllCorrect
	default:
		v.Outcome = OutcomeHasIncorrect
	}
	return v, true
}

// ViewedDetails is recorded with the Viewed event for this package.
func (p *Package) ViewedDetails() string {
	return fmt.Sprintf("Range %s to %s", p.Period.Start, p.Period.End)
}
