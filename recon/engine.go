/*
engine.go - Reconciliation Engine

PURPOSE:
  Pure function from (assignments, time entries, period) to per-employee
  discrepancy summaries. Nothing is cached or updated incrementally: every
  call recomputes from its inputs, and inputs are never modified.

CLASSIFICATION (per in-range, matched entry):
  incorrect     service line and task desc both present and different
                -> "Task Desc does not match Service Line"
                either one missing
                -> "Missing Service Line or Task Desc"
  missing memo  memo blank or whitespace-only (independent of the above)

  An entry can be both incorrect and missing a memo.

SEE ALSO:
  - matcher.go: identity resolution
  - session.go: snapshot that owns the latest Result
*/
package recon

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	ReasonTaskMismatch      = "Task Desc does not match Service Line"
	ReasonMissingTaskOrLine = "Missing Service Line or Task Desc"
)

// Summary is the per-assignment aggregate for one reconciliation.
type Summary struct {
	Assignment       Assignment
	EntryCount       int
	Hours            decimal.Decimal
	IncorrectEntries []TimeEntry
	MissingMemos     []TimeEntry
	Ambiguous        bool
}

// HasFindings reports incorrect entries or missing memos.
func (s Summary) HasFindings() bool {
	return len(s.IncorrectEntries) > 0 || len(s.MissingMemos) > 0
}

// FindingCount is incorrect entries plus missing memos.
func (s Summary) FindingCount() int {
	return len(s.IncorrectEntries) + len(s.MissingMemos)
}

// AmbiguousEntry is an entry whose match was unreliable.
type AmbiguousEntry struct {
	Entry        TimeEntry
	AssignmentID string
	Reason       string
}

// Result is the output of Reconcile.
type Result struct {
	Period    Period
	Summaries map[string]Summary // by assignment id; only assignments with in-range entries
	InRange   []TimeEntry
	Unmatched []TimeEntry
	Ambiguous []AmbiguousEntry
}

// Reconcile classifies every in-range entry. It never fails: each entry
// ends up unmatched or counted against exactly one assignment.
func Reconcile(assignments []Assignment, entries []TimeEntry, period Period) Result {
	return ReconcileIndex(NewIndex(assignments), entries, period)
}

// ReconcileIndex is Reconcile over a prebuilt index.
func ReconcileIndex(idx *Index, entries []TimeEntry, period Period) Result {
	res := Result{
		Period:    period,
		Summaries: make(map[string]Summary),
	}
	for _, e := range entries {
		if !period.Contains(e.Date) {
			continue
		}
		res.InRange = append(res.InRange, e)

		match := idx.Match(e)
		if !match.Matched() {
			res.Unmatched = append(res.Unmatched, e)
			continue
		}
		a := *match.Assignment
		summary, ok := res.Summaries[a.ID]
		if !ok {
			summary = Summary{Assignment: a, Hours: decimal.Zero}
		}
		summary.EntryCount++
		summary.Hours = summary.Hours.Add(e.HoursValue)
		if match.Ambiguous {
			summary.Ambiguous = true
			res.Ambiguous = append(res.Ambiguous, AmbiguousEntry{Entry: e, AssignmentID: a.ID, Reason: match.Reason})
		}

		classified := e
		classified.MismatchReason = Classify(a, e)
		if classified.MismatchReason != "" {
			summary.IncorrectEntries = append(summary.IncorrectEntries, classified)
		}
		if e.MemoMissing() {
			summary.MissingMemos = append(summary.MissingMemos, classified)
		}
		res.Summaries[a.ID] = summary
	}
	return res
}

// Classify returns the mismatch reason for an entry against its assignment,
// or "" when the entry is correctly classified.
func Classify(a Assignment, e TimeEntry) string {
	expected, actual := a.ServiceLineNorm, e.TaskDescNorm
	switch {
	case expected == "" || actual == "":
		return ReasonMissingTaskOrLine
	case expected != actual:
		return ReasonTaskMismatch
	default:
		return ""
	}
}

// =============================================================================
// RESULT VIEWS
// =============================================================================

// SummaryFor returns the summary for an assignment, or a zero summary whose
// Ambiguous flag falls back to the assignment's own AmbiguousName.
func (r Result) SummaryFor(a Assignment) Summary {
	if s, ok := r.Summaries[a.ID]; ok {
		return s
	}
	return Summary{Assignment: a, Hours: decimal.Zero, Ambiguous: a.AmbiguousName}
}

// Totals aggregates a result for dashboards.
type Totals struct {
	Employees            int
	EntriesInRange       int
	IncorrectEntries     int
	MissingMemos         int
	EmployeesIncorrect   int
	EmployeesMissingMemo int
	Unmatched            int
	Ambiguous            int
	Hours                decimal.Decimal
}

// Totals counts findings. employees is the number of loaded assignments.
func (r Result) Totals(employees int) Totals {
	t := Totals{
		Employees:      employees,
		EntriesInRange: len(r.InRange),
		Unmatched:      len(r.Unmatched),
		Ambiguous:      len(r.Ambiguous),
		Hours:          decimal.Zero,
	}
	for _, s := range r.Summaries {
		t.IncorrectEntries += len(s.IncorrectEntries)
		t.MissingMemos += len(s.MissingMemos)
		t.Hours = t.Hours.Add(s.Hours)
		if len(s.IncorrectEntries) > 0 {
			t.EmployeesIncorrect++
		}
		if len(s.MissingMemos) > 0 {
			t.EmployeesMissingMemo++
		}
	}
	return t
}

// IncorrectRanking lists summaries with incorrect entries, most first, then
// by name.
func (r Result) IncorrectRanking() []Summary {
	return r.rank(func(s Summary) int { return len(s.IncorrectEntries) })
}

// MissingMemoRanking lists summaries with missing memos, most first, then
// by name.
func (r Result) MissingMemoRanking() []Summary {
	return r.rank(func(s Summary) int { return len(s.MissingMemos) })
}

func (r Result) rank(count func(Summary) int) []Summary {
	var out []Summary
	for _, s := range r.Summaries {
		if count(s) > 0 {
			out = append(out, s)
		}
	}
	names := NewNameCollator()
	sort.Slice(out, func(i, j int) bool {
		ci, cj := count(out[i]), count(out[j])
		if ci != cj {
			return ci > cj
		}
		if c := names.Compare(out[i].Assignment.Name, out[j].Assignment.Name); c != 0 {
			return c < 0
		}
		return out[i].Assignment.ID < out[j].Assignment.ID
	})
	return out
}

// NameCollator orders display names the way people expect: case and accents
// are secondary to the letters themselves.
type NameCollator struct {
	c *collate.Collator
}

func NewNameCollator() NameCollator {
	return NameCollator{c: collate.New(language.English, collate.IgnoreCase)}
}

// Compare returns -1, 0 or 1.
func (n NameCollator) Compare(a, b string) int {
	return n.c.CompareString(a, b)
}
