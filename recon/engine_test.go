package recon_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-recon/recon"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func assignment(id, name, workerID, serviceLine string) recon.Assignment {
	a := recon.Assignment{
		ID:              id,
		Name:            name,
		ServiceLine:     serviceLine,
		ServiceLineNorm: recon.NormalizeText(serviceLine),
		WorkerIDRaw:     workerID,
		WorkerIDKey:     recon.NormalizeWorkerID(workerID),
		NameNorm:        recon.NormalizeName(name),
	}
	a.EmployeeKey = recon.EmployeeKey(a.WorkerIDKey, a.NameNorm)
	return a
}

func entry(row int, workerID, name string, day int, task, memo string, hours float64) recon.TimeEntry {
	e := recon.TimeEntry{
		RowIndex:       row,
		WorkerIDRaw:    workerID,
		WorkerIDKey:    recon.NormalizeWorkerID(workerID),
		WorkerName:     name,
		WorkerNameNorm: recon.NormalizeName(name),
		TaskDesc:       task,
		TaskDescNorm:   recon.NormalizeText(task),
		Memo:           memo,
		Hours:          recon.Number(hours),
		HoursValue:     decimal.NewFromFloat(hours),
	}
	if day != 0 {
		e.Date = recon.NewDay(2026, time.February, day)
	}
	return e
}

// =============================================================================
// MATCHER
// =============================================================================

func TestIndex_WorkerIDWinsOverName(t *testing.T) {
	idx := recon.NewIndex([]recon.Assignment{
		assignment("A1", "Jane Doe", "", "AML Testing"),
		assignment("A2", "Someone Else", "0007", "Internal Audit"),
	})

	m := idx.Match(entry(2, "7", "Jane Doe", 3, "x", "", 1))

	require.True(t, m.Matched())
	assert.Equal(t, "A2", m.Assignment.ID)
	assert.Equal(t, recon.MatchByWorkerID, m.Method)
	assert.False(t, m.Ambiguous)
	assert.NoError(t, m.Err("id:7"))
}

func TestIndex_FallsBackToName(t *testing.T) {
	idx := recon.NewIndex([]recon.Assignment{assignment("A1", "Doe, Jane", "0007", "AML Testing")})

	m := idx.Match(entry(2, "99", "Jane Doe", 3, "x", "", 1))

	require.True(t, m.Matched(), "unknown worker id falls back to name")
	assert.Equal(t, recon.MatchByName, m.Method)

	m = idx.Match(entry(3, "", "Pat Unknown", 3, "x", "", 1))
	assert.False(t, m.Matched())
	assert.Equal(t, recon.MatchNone, m.Method)
}

func TestIndex_AmbiguousBucketsPickFirst(t *testing.T) {
	idx := recon.NewIndex([]recon.Assignment{
		assignment("A1", "Kim, Alex", "", "AML Testing"),
		assignment("A2", "Alex Kim", "", "Internal Audit"),
		assignment("A3", "Lee, Dana", "0040", "Risk"),
		assignment("A4", "Dana R Lee", "40", "Audit"),
	})

	byName := idx.Match(entry(2, "", "alex kim", 3, "x", "", 1))
	assert.Equal(t, "A1", byName.Assignment.ID)
	assert.True(t, byName.Ambiguous)
	assert.Equal(t, recon.ReasonAmbiguousName, byName.Reason)
	assert.Equal(t, 2, byName.Candidates)

	byID := idx.Match(entry(3, "40", "", 3, "x", "", 1))
	assert.Equal(t, "A3", byID.Assignment.ID)
	assert.Equal(t, recon.ReasonDuplicateWorkerID, byID.Reason)
	err := byID.Err("id:40")
	assert.ErrorIs(t, err, recon.ErrAmbiguousIdentity)
}

// =============================================================================
// ENGINE
// =============================================================================

func TestClassify(t *testing.T) {
	a := assignment("A1", "Jane Doe", "7", "AML Testing")

	assert.Empty(t, recon.Classify(a, entry(2, "7", "", 3, "  aml   TESTING ", "", 1)))
	assert.Equal(t, recon.ReasonTaskMismatch, recon.Classify(a, entry(2, "7", "", 3, "Non-AML Testing", "", 1)))
	assert.Equal(t, recon.ReasonMissingTaskOrLine, recon.Classify(a, entry(2, "7", "", 3, "", "", 1)))

	blank := a
	blank.ServiceLineNorm = ""
	assert.Equal(t, recon.ReasonMissingTaskOrLine, recon.Classify(blank, entry(2, "7", "", 3, "AML Testing", "", 1)))
}

func TestReconcile(t *testing.T) {
	assignments := []recon.Assignment{
		assignment("A1", "Doe, Jane", "0007", "AML Testing"),
		assignment("A2", "Roe, John", "", "Internal Audit"),
		assignment("A3", "Park, Min", "0012", "Risk"),
	}
	entries := []recon.TimeEntry{
		entry(2, "7", "Jane Doe", 2, "AML Testing", "done", 8),
		entry(3, "7", "Jane Doe", 3, "Internal Audit", "", 4),  // incorrect + missing memo
		entry(4, "", "John Roe", 4, "Internal Audit", "", 6),   // missing memo only
		entry(5, "99", "Pat Unknown", 5, "AML Testing", "x", 2), // unmatched
		entry(6, "7", "Jane Doe", 1, "Internal Audit", "", 8),   // on the start day
		entry(7, "7", "Jane Doe", 0, "Internal Audit", "", 8),   // undated
	}

	res := recon.Reconcile(assignments, entries, february())

	assert.Len(t, res.InRange, 4)
	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, 5, res.Unmatched[0].RowIndex)
	assert.Empty(t, res.Ambiguous)

	jane := res.SummaryFor(assignments[0])
	assert.Equal(t, 2, jane.EntryCount)
	assert.True(t, decimal.NewFromInt(12).Equal(jane.Hours))
	require.Len(t, jane.IncorrectEntries, 1)
	assert.Equal(t, recon.ReasonTaskMismatch, jane.IncorrectEntries[0].MismatchReason)
	require.Len(t, jane.MissingMemos, 1)
	assert.Equal(t, 3, jane.MissingMemos[0].RowIndex, "an entry can be incorrect and missing a memo")

	john := res.SummaryFor(assignments[1])
	assert.Empty(t, john.IncorrectEntries)
	assert.Len(t, john.MissingMemos, 1)

	park := res.SummaryFor(assignments[2])
	assert.Zero(t, park.EntryCount)
	assert.False(t, park.HasFindings())

	totals := res.Totals(len(assignments))
	assert.Equal(t, recon.Totals{
		Employees:            3,
		EntriesInRange:       4,
		IncorrectEntries:     1,
		MissingMemos:         2,
		EmployeesIncorrect:   1,
		EmployeesMissingMemo: 2,
		Unmatched:            1,
		Hours:                totals.Hours,
	}, totals)
	assert.True(t, decimal.NewFromInt(18).Equal(totals.Hours))
}

func TestReconcile_Pure(t *testing.T) {
	// GIVEN: entries covering every outcome
	assignments := []recon.Assignment{
		assignment("A1", "Doe, Jane", "0007", "AML Testing"),
		assignment("A2", "Roe, John", "", "Internal Audit"),
	}
	entries := []recon.TimeEntry{
		entry(2, "7", "Jane Doe", 2, "AML Testing", "done", 8),
		entry(3, "7", "Jane Doe", 3, "Internal Audit", "", 4),
		entry(4, "", "John Roe", 4, "Internal Audit", "", 6),
		entry(5, "99", "Pat Unknown", 5, "AML Testing", "x", 2),
	}
	before := append([]recon.TimeEntry(nil), entries...)

	// WHEN: reconciling the same input twice
	first := recon.Reconcile(assignments, entries, february())
	second := recon.Reconcile(assignments, entries, february())

	// THEN: the results are identical and the input is untouched
	assert.Equal(t, first, second)
	assert.Equal(t, before, entries)
	for _, e := range entries {
		assert.Empty(t, e.MismatchReason, "row %d", e.RowIndex)
	}
	require.Len(t, first.SummaryFor(assignments[0]).IncorrectEntries, 1)
}

func TestReconcile_CaseInsensitiveMatchStillNeedsMemo(t *testing.T) {
	assignments := []recon.Assignment{assignment("A1", "Doe, Jane", "", "Audit")}
	entries := []recon.TimeEntry{entry(2, "", "Doe, Jane", 10, "audit", "", 7.5)}

	res := recon.Reconcile(assignments, entries, february())

	jane := res.SummaryFor(assignments[0])
	assert.Equal(t, 1, jane.EntryCount)
	assert.Empty(t, jane.IncorrectEntries, "task matches the service line ignoring case")
	require.Len(t, jane.MissingMemos, 1)
	assert.Equal(t, 2, jane.MissingMemos[0].RowIndex)
	assert.Empty(t, res.Unmatched)
}

func TestReconcile_AmbiguousEntriesStillCount(t *testing.T) {
	assignments := []recon.Assignment{
		assignment("A1", "Kim, Alex", "", "AML Testing"),
		assignment("A2", "Alex Kim", "", "Internal Audit"),
	}
	assignments = recon.MarkAmbiguous(assignments)

	res := recon.Reconcile(assignments, []recon.TimeEntry{
		entry(2, "", "Alex Kim", 4, "Internal Audit", "memo", 8),
	}, february())

	require.Len(t, res.Ambiguous, 1)
	assert.Equal(t, "A1", res.Ambiguous[0].AssignmentID)
	first := res.SummaryFor(assignments[0])
	assert.True(t, first.Ambiguous)
	assert.Len(t, first.IncorrectEntries, 1, "attributed to the first candidate")

	second := res.SummaryFor(assignments[1])
	assert.True(t, second.Ambiguous, "falls back to the assignment flag")
	assert.Zero(t, second.EntryCount)
}

func TestRankings(t *testing.T) {
	assignments := []recon.Assignment{
		assignment("A1", "Zed, Amy", "1", "AML Testing"),
		assignment("A2", "émile, Bo", "2", "AML Testing"),
		assignment("A3", "Able, Cy", "3", "AML Testing"),
	}
	entries := []recon.TimeEntry{
		entry(2, "1", "", 3, "Audit", "m", 1),
		entry(3, "2", "", 3, "Audit", "m", 1),
		entry(4, "3", "", 3, "Audit", "m", 1),
		entry(5, "3", "", 4, "Audit", "", 1),
	}

	res := recon.Reconcile(assignments, entries, february())

	ranking := res.IncorrectRanking()
	require.Len(t, ranking, 3)
	assert.Equal(t, "A3", ranking[0].Assignment.ID, "most incorrect first")
	assert.Equal(t, "A2", ranking[1].Assignment.ID, "accents do not push names to the end")
	assert.Equal(t, "A1", ranking[2].Assignment.ID)

	memos := res.MissingMemoRanking()
	require.Len(t, memos, 1)
	assert.Equal(t, "A3", memos[0].Assignment.ID)
}
