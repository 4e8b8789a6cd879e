package workbook_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet-recon/recon"
	"github.com/warp/timesheet-recon/workbook"
)

// =============================================================================
// SHEET NAMES
// =============================================================================

func TestSheetNamer(t *testing.T) {
	n := workbook.NewSheetNamer(workbook.SheetDashboard)

	assert.Equal(t, "dashboard_1", n.Name("dashboard"), "reserved names compare case-insensitively")
	assert.Equal(t, "Doe, Jane", n.Name("Doe, Jane"))
	assert.Equal(t, "DOE, JANE_1", n.Name("DOE, JANE"))
	assert.Equal(t, "Doe, Jane_2", n.Name("Doe, Jane"))
	assert.Equal(t, "AB", n.Name("A/B?"), "forbidden characters are dropped")
	assert.Equal(t, "Employee", n.Name("[]*"))
	assert.Equal(t, "Employee_1", n.Name(""))

	assert.Equal(t, "Neil, Pat", n.Name("'Neil, Pat'"), "apostrophes cannot open or close a sheet name")
	assert.Equal(t, "O'Brien, Pat", n.Name("O'Brien, Pat"))
	assert.Equal(t, "Employee_2", n.Name("''"))

	long := strings.Repeat("x", 40)
	first := n.Name(long)
	second := n.Name(long)
	assert.Len(t, []rune(first), workbook.MaxSheetNameLength)
	assert.Len(t, []rune(second), workbook.MaxSheetNameLength)
	assert.True(t, strings.HasSuffix(second, "_1"))
}

// =============================================================================
// DECODING
// =============================================================================

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want workbook.Format
	}{
		{"a.xlsx", nil, workbook.FormatXLSX},
		{"a.XLSM", nil, workbook.FormatXLSX},
		{"a.xls", nil, workbook.FormatXLS},
		{"a.csv", []byte("PK"), workbook.FormatCSV},
		{"upload", []byte("PK\x03\x04"), workbook.FormatXLSX},
		{"upload", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1}, workbook.FormatXLS},
		{"upload", []byte("Worker,Date"), workbook.FormatCSV},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, workbook.DetectFormat(tt.name, tt.head), tt.name)
	}
}

func TestDecode_CSV(t *testing.T) {
	data := "\xEF\xBB\xBFWorker ID,Worker\n0007,\"Doe, Jane\"\n,\n"

	wb, err := workbook.Decode(strings.NewReader(data), "uploads/time detail.csv")

	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	sheet := wb.Sheets[0]
	assert.Equal(t, "time detail", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Worker ID", sheet.Cell(0, 0).String(), "byte order mark is stripped")
	assert.Equal(t, recon.Text("0007"), sheet.Cell(1, 0), "csv cells stay text")
	assert.Equal(t, "Doe, Jane", sheet.Cell(1, 1).String())
	assert.True(t, sheet.Cell(2, 0).IsBlank())
}

func TestDecode_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Worker ID", "Date", "Hours", "Task Desc"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"0007", time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC), 7.5, "AML Testing"}))
	_, err := f.NewSheet("Second")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Second", "B2", "x"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	wb, err := workbook.Decode(&buf, "detail.xlsx")

	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Second"}, wb.SheetNames())
	sheet := wb.Sheets[0]
	assert.Equal(t, recon.Text("0007"), sheet.Cell(1, 0), "string cells keep leading zeros")
	day, ok := recon.ParseDate(sheet.Cell(1, 1))
	require.True(t, ok)
	assert.Equal(t, recon.NewDay(2026, time.February, 3), day)
	assert.Equal(t, recon.Number(7.5), sheet.Cell(1, 2))
	assert.Equal(t, "AML Testing", sheet.Cell(1, 3).String())

	second := wb.Sheets[1]
	assert.True(t, second.Cell(1, 0).IsBlank())
	assert.Equal(t, "x", second.Cell(1, 1).String())
}

func TestDecode_CorruptXLSX(t *testing.T) {
	_, err := workbook.Decode(strings.NewReader("PK not really a zip"), "broken.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.xlsx")
}

// =============================================================================
// REPORT
// =============================================================================

func reportSnapshot(t *testing.T) *recon.Snapshot {
	t.Helper()
	s := recon.NewSession(func() time.Time { return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC) })
	_, err := s.LoadAssignments(recon.Workbook{Sheets: []recon.Sheet{{Name: "A", Rows: [][]recon.Cell{
		recon.TextRow("Resource Name", "Worker ID", "Service Line"),
		recon.TextRow("Doe, Jane", "0007", "AML Testing"),
		recon.TextRow("Roe, John", "0021", "Internal Audit"),
		recon.TextRow("Park, Min", "0012", "Risk"),
	}}}})
	require.NoError(t, err)
	_, err = s.LoadTimeEntries(recon.Workbook{Sheets: []recon.Sheet{{Name: "D", Rows: [][]recon.Cell{
		recon.TextRow("Worker ID", "Worker", "Date", "Task Desc", "Hours", "Memo"),
		recon.TextRow("7", "Jane Doe", "2026-02-03", "Internal Audit", "4", ""),
		recon.TextRow("7", "Jane Doe", "2026-02-04", "AML Testing", "8", "ok"),
		recon.TextRow("21", "John Roe", "2026-02-05", "Internal Audit", "6", ""),
		recon.TextRow("99", "Pat Unknown", "2026-02-06", "AML Testing", "1", "x"),
	}}}})
	require.NoError(t, err)
	return s.Snapshot()
}

func openXLSX(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteReport(t *testing.T) {
	snap := reportSnapshot(t)
	attested := time.Date(2026, time.March, 3, 15, 4, 5, 0, time.UTC)
	events := []recon.AttestationEvent{{
		PackageID: "p", EmployeeKey: "id:7", EmployeeName: "Doe, Jane", WorkerID: "0007",
		EventType: recon.EventAttested, Details: "fixed", CreatedAt: attested,
	}}
	statuses := recon.AnnotateStatus(snap.Assignments, recon.StatusRows(events))

	var buf bytes.Buffer
	require.NoError(t, workbook.WriteReport(&buf, workbook.Report{
		Snapshot: snap,
		Statuses: statuses,
		Events:   events,
		Location: time.FixedZone("EST", -5*3600),
	}))

	f := openXLSX(t, buf.Bytes())
	assert.Equal(t, []string{
		workbook.SheetDashboard,
		workbook.SheetIncorrect,
		workbook.SheetMissingMemos,
		workbook.SheetUnmatched,
		workbook.SheetAttestationLog,
		"Doe, Jane", // incorrect and missing memo
		"Roe, John", // missing memo only
		"Park, Min", // no findings
	}, f.GetSheetList())

	dashboard, err := f.GetRows(workbook.SheetDashboard)
	require.NoError(t, err)
	require.Len(t, dashboard, 4)
	assert.Equal(t, []string{"Doe, Jane", "0007", "AML Testing", "1", "1", "Completed", "", "3/3/2026, 10:04:05 AM"}, dashboard[1])
	assert.Equal(t, "Not Started", dashboard[2][5])

	unmatched, err := f.GetRows(workbook.SheetUnmatched)
	require.NoError(t, err)
	require.Len(t, unmatched, 2)
	assert.Equal(t, []string{"2/6/2026", "Pat Unknown", "99", "AML Testing", "", "1", "x"}, unmatched[1])

	jane, err := f.GetRows("Doe, Jane")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date Range", "2/1/2026 to 3/1/2026 (exclusive)"}, jane[3])
	assert.Equal(t, []string{"Incorrect Entries"}, jane[5])

	park, err := f.GetRows("Park, Min")
	require.NoError(t, err)
	assert.Equal(t, []string{recon.OutcomeAllCorrect}, park[5])
}

func TestWriteReport_QuotedName(t *testing.T) {
	s := recon.NewSession(func() time.Time { return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC) })
	_, err := s.LoadAssignments(recon.Workbook{Sheets: []recon.Sheet{{Name: "A", Rows: [][]recon.Cell{
		recon.TextRow("Resource Name", "Worker ID", "Service Line"),
		recon.TextRow("'Neil, Pat'", "0031", "Risk"),
	}}}})
	require.NoError(t, err)
	_, err = s.LoadTimeEntries(recon.Workbook{Sheets: []recon.Sheet{{Name: "D", Rows: [][]recon.Cell{
		recon.TextRow("Worker ID", "Worker", "Date", "Task Desc", "Hours", "Memo"),
		recon.TextRow("31", "Pat Neil", "2026-02-03", "Risk", "4", "ok"),
	}}}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, workbook.WriteReport(&buf, workbook.Report{Snapshot: s.Snapshot()}))

	f := openXLSX(t, buf.Bytes())
	assert.Contains(t, f.GetSheetList(), "Neil, Pat")
}

func TestWriteReport_NotReady(t *testing.T) {
	snap := recon.NewSession(nil).Snapshot()
	err := workbook.WriteReport(&bytes.Buffer{}, workbook.Report{Snapshot: snap})
	assert.ErrorIs(t, err, recon.ErrNotReady)
}

func TestEmployeeSheetOrder(t *testing.T) {
	snap := reportSnapshot(t)

	order := workbook.EmployeeSheetOrder(snap.Result, snap.Assignments)

	names := make([]string, len(order))
	for i, s := range order {
		names[i] = s.Assignment.Name
	}
	assert.Equal(t, []string{"Doe, Jane", "Roe, John", "Park, Min"}, names)
}

func TestFilenames(t *testing.T) {
	p, err := recon.ParsePeriod("2026-02-01", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Recon_Report_2026-02-01_2026-03-01.xlsx", workbook.ReportFilename(p))
	assert.Equal(t, "Attestations_2026-02-01_2026-03-01.xlsx", workbook.AttestationsFilename("2026-02-01", "2026-03-01"))
}

// =============================================================================
// ATTESTATIONS ATTACHMENT
// =============================================================================

func TestWriteAttestations(t *testing.T) {
	events := []recon.AttestationEvent{
		{EmployeeKey: "name:john roe", EmployeeName: "Roe, John", EventType: recon.EventAttested, Details: "ok",
			CreatedAt: time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)},
		{EmployeeKey: "id:7", EmployeeName: "Doe, Jane", WorkerID: "0007", EventType: recon.EventAttested, Details: "first",
			CreatedAt: time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)},
		{EmployeeKey: "id:7", EmployeeName: "Doe, Jane", WorkerID: "0007", EventType: recon.EventViewed,
			CreatedAt: time.Date(2026, time.March, 3, 11, 0, 0, 0, time.UTC)},
		{EmployeeKey: "id:7", EmployeeName: "Doe, Jane", WorkerID: "0007", EventType: recon.EventAttested, Details: "second",
			CreatedAt: time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)},
	}

	data, err := workbook.WriteAttestations(events, nil)
	require.NoError(t, err)

	f := openXLSX(t, data)
	assert.Equal(t, []string{workbook.SheetAttestations}, f.GetSheetList())
	rows, err := f.GetRows(workbook.SheetAttestations)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Employee", "Worker ID", "Attested At", "Notes"},
		{"Doe, Jane", "0007", "3/3/2026, 12:00:00 PM", "second"},
		{"Roe, John", "", "3/3/2026, 9:00:00 AM", "ok"},
	}, rows)
}
