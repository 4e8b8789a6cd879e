package workbook

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet-recon/recon"
)

// Fixed report sheets, in workbook order.
const (
	SheetDashboard      = "Dashboard"
	SheetIncorrect      = "Incorrect Entries"
	SheetMissingMemos   = "Missing Memos"
	SheetUnmatched      = "Unmatched"
	SheetAttestationLog = "Attestation Log"
)

const (
	displayDate      = "1/2/2006"
	displayTimestamp = "1/2/2006, 3:04:05 PM"
)

var entryHeader = []any{"Date", "Task Desc", "Project", "Hours", "Memo"}

// Report is the input of WriteReport.
type Report struct {
	Snapshot *recon.Snapshot
	Statuses []recon.EmployeeStatus   // optional attestation annotations
	Events   []recon.AttestationEvent // optional attestation log
	Location *time.Location           // timestamps are rendered in this zone; UTC when nil
}

// ReportFilename names the admin report for a period.
func ReportFilename(p recon.Period) string {
	return fmt.Sprintf("Recon_Report_%s_%s.xlsx", p.StartISO(), p.EndISO())
}

// WriteReport renders the admin report as xlsx:
//
//	Dashboard          every employee with counts and attestation state
//	Incorrect Entries  employees with incorrect entries, most first
//	Missing Memos      employees with missing memos, most first
//	Unmatched          in-range entries with no assignment
//	Attestation Log    raw attestation events
//	<employee>         one sheet per employee, findings first
//
// Only Dashboard and the employee sheets are unconditional.
func WriteReport(w io.Writer, rep Report) error {
	snap := rep.Snapshot
	if !snap.Ready() {
		return recon.ErrNotReady
	}
	loc := rep.Location
	if loc == nil {
		loc = time.UTC
	}
	res := snap.Result
	statuses := recon.StatusByKey(rep.Statuses)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	b, err := newSheetBuilder(f)
	if err != nil {
		return err
	}

	// Dashboard
	dashboard := [][]any{{
		"Employee", "Worker ID", "Expected Service Line", "Incorrect Entries",
		"Missing Memos", "Attestation Status", "Last Viewed", "Last Attested",
	}}
	for _, a := range snap.Assignments {
		s := res.SummaryFor(a)
		st, ok := statuses[a.EmployeeKey]
		state := recon.StateNotStarted
		if ok {
			state = st.State
		}
		dashboard = append(dashboard, []any{
			a.Name, a.WorkerIDRaw, a.ServiceLine,
			len(s.IncorrectEntries), len(s.MissingMemos), string(state),
			formatTimestamp(st.LastViewed, loc), formatTimestamp(st.LastAttested, loc),
		})
	}
	if err := b.rename("Sheet1", SheetDashboard, dashboard); err != nil {
		return err
	}

	// Rankings
	rankingSheets := []struct {
		name    string
		heading string
		summary []recon.Summary
		count   func(recon.Summary) int
	}{
		{SheetIncorrect, "Incorrect Entries", res.IncorrectRanking(), func(s recon.Summary) int { return len(s.IncorrectEntries) }},
		{SheetMissingMemos, "Missing Memos", res.MissingMemoRanking(), func(s recon.Summary) int { return len(s.MissingMemos) }},
	}
	for _, rs := range rankingSheets {
		if len(rs.summary) == 0 {
			continue
		}
		rows := [][]any{{"Employee", "Worker ID", "Expected Service Line", rs.heading}}
		for _, s := range rs.summary {
			rows = append(rows, []any{s.Assignment.Name, s.Assignment.WorkerIDRaw, s.Assignment.ServiceLine, rs.count(s)})
		}
		if err := b.add(rs.name, rows); err != nil {
			return err
		}
	}

	// Unmatched
	if len(res.Unmatched) > 0 {
		rows := [][]any{{"Date", "Worker", "Worker ID", "Task Desc", "Project", "Hours", "Memo"}}
		for _, e := range res.Unmatched {
			rows = append(rows, []any{
				formatDate(e.Date), e.WorkerName, e.WorkerIDRaw, e.TaskDesc, e.Project, cellValue(e.Hours), e.Memo,
			})
		}
		if err := b.add(SheetUnmatched, rows); err != nil {
			return err
		}
	}

	// Attestation log
	if len(rep.Events) > 0 {
		rows := [][]any{{"Employee", "Worker ID", "Event", "Timestamp", "Details"}}
		for _, e := range rep.Events {
			at := e.CreatedAt
			rows = append(rows, []any{e.EmployeeName, e.WorkerID, string(e.EventType), formatTimestamp(&at, loc), e.Details})
		}
		if err := b.add(SheetAttestationLog, rows); err != nil {
			return err
		}
	}

	// Employee sheets
	namer := NewSheetNamer(SheetDashboard, SheetIncorrect, SheetMissingMemos, SheetUnmatched, SheetAttestationLog)
	dateRange := fmt.Sprintf("%s to %s (exclusive)", formatDate(snap.Period.Start), formatDate(snap.Period.End))
	for _, s := range EmployeeSheetOrder(res, snap.Assignments) {
		a := s.Assignment
		rows := [][]any{
			{"Employee", a.Name},
			{"Worker ID", a.WorkerIDRaw},
			{"Expected Service Line", a.ServiceLine},
			{"Date Range", dateRange},
			{},
		}
		if len(s.IncorrectEntries) == 0 {
			rows = append(rows, []any{recon.OutcomeAllCorrect})
		} else {
			rows = append(rows, []any{"Incorrect Entries"}, entryHeader)
			rows = append(rows, entryRows(s.IncorrectEntries)...)
		}
		if len(s.MissingMemos) > 0 {
			rows = append(rows, []any{}, []any{"Entries Missing Memos"}, entryHeader)
			rows = append(rows, entryRows(s.MissingMemos)...)
		}
		if err := b.addPlain(namer.Name(a.Name), rows); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

// EmployeeSheetOrder orders summaries for the per-employee sheets:
// employees with findings first (total desc, both kinds before one kind,
// incorrect desc, missing desc, name), then the rest by name.
func EmployeeSheetOrder(res *recon.Result, assignments []recon.Assignment) []recon.Summary {
	var withFindings, clean []recon.Summary
	for _, a := range assignments {
		s := res.SummaryFor(a)
		if s.HasFindings() {
			withFindings = append(withFindings, s)
		} else {
			clean = append(clean, s)
		}
	}
	names := recon.NewNameCollator()
	byName := func(a, b recon.Summary) bool {
		return names.Compare(a.Assignment.Name, b.Assignment.Name) < 0
	}
	sort.SliceStable(withFindings, func(i, j int) bool {
		a, b := withFindings[i], withFindings[j]
		if a.FindingCount() != b.FindingCount() {
			return a.FindingCount() > b.FindingCount()
		}
		aBoth := len(a.IncorrectEntries) > 0 && len(a.MissingMemos) > 0
		bBoth := len(b.IncorrectEntries) > 0 && len(b.MissingMemos) > 0
		if aBoth != bBoth {
			return aBoth
		}
		if len(a.IncorrectEntries) != len(b.IncorrectEntries) {
			return len(a.IncorrectEntries) > len(b.IncorrectEntries)
		}
		if len(a.MissingMemos) != len(b.MissingMemos) {
			return len(a.MissingMemos) > len(b.MissingMemos)
		}
		return byName(a, b)
	})
	sort.SliceStable(clean, func(i, j int) bool { return byName(clean[i], clean[j]) })
	return append(withFindings, clean...)
}

func entryRows(entries []recon.TimeEntry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{formatDate(e.Date), e.TaskDesc, e.Project, cellValue(e.Hours), e.Memo})
	}
	return rows
}

// =============================================================================
// SHEET BUILDER
// =============================================================================

type sheetBuilder struct {
	f      *excelize.File
	header int
}

func newSheetBuilder(f *excelize.File) (*sheetBuilder, error) {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	return &sheetBuilder{f: f, header: style}, nil
}

func (b *sheetBuilder) rename(from, to string, rows [][]any) error {
	if err := b.f.SetSheetName(from, to); err != nil {
		return err
	}
	return b.fill(to, rows, true)
}

func (b *sheetBuilder) add(name string, rows [][]any) error {
	if _, err := b.f.NewSheet(name); err != nil {
		return err
	}
	return b.fill(name, rows, true)
}

func (b *sheetBuilder) addPlain(name string, rows [][]any) error {
	if _, err := b.f.NewSheet(name); err != nil {
		return err
	}
	return b.fill(name, rows, false)
}

func (b *sheetBuilder) fill(sheet string, rows [][]any, boldHeader bool) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := b.f.SetSheetRow(sheet, ref, &values); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", sheet, i+1, err)
		}
	}
	if boldHeader && len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		return b.f.SetCellStyle(sheet, "A1", last, b.header)
	}
	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayDate)
}

func formatTimestamp(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(loc).Format(displayTimestamp)
}

// cellValue keeps numbers numeric in the output sheet.
func cellValue(c recon.Cell) any {
	switch c.Kind {
	case recon.CellNumber:
		return c.Number
	case recon.CellDate:
		return formatDate(c.Date)
	default:
		return c.Text
	}
}
