package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet-recon/recon"
	"github.com/warp/timesheet-recon/workbook"
)

const (
	assignmentsCSV = "Resource Name,Worker ID,Service Line\n" +
		"\"Doe, Jane\",0007,AML Testing\n" +
		"\"Alvarez, Sam\",0012,Internal Audit\n"
	timeDetailCSV = "Worker ID,Worker,Date,Task Desc,Hours,Memo\n" +
		"7,Jane Doe,2026-02-03,AML Testing,8,Testing\n" +
		"7,Jane Doe,2026-02-04,Internal Audit,4,\n" +
		"12,Sam Alvarez,2026-02-05,Internal Audit,6,Fieldwork\n" +
		"99,Pat Unknown,2026-02-06,AML Testing,2,Review\n"
)

func writeInputs(t *testing.T) (dir, assignments, detail string) {
	t.Helper()
	dir = t.TempDir()
	assignments = filepath.Join(dir, "assignments.csv")
	detail = filepath.Join(dir, "detail.csv")
	require.NoError(t, os.WriteFile(assignments, []byte(assignmentsCSV), 0o644))
	require.NoError(t, os.WriteFile(detail, []byte(timeDetailCSV), 0o644))
	return dir, assignments, detail
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRun_PrintsFindings(t *testing.T) {
	_, assignments, detail := writeInputs(t)

	out, err := execute(t, "run", "-a", assignments, "-t", detail, "--start", "2026-02-01", "--end", "2026-03-01")

	require.NoError(t, err)
	assert.Contains(t, out, "Period (2026-02-01, 2026-03-01)")
	assert.Contains(t, out, "2 assignments, 4 entries in range, 18 hours")
	assert.Contains(t, out, "Incorrect entries: 1 (1 employees)")
	assert.Contains(t, out, "Missing memos:     1 (1 employees)")
	assert.Contains(t, out, "Unmatched entries: 1")
	assert.Contains(t, out, "Pat Unknown")
}

func TestRun_WritesReport(t *testing.T) {
	dir, assignments, detail := writeInputs(t)
	reportPath := filepath.Join(dir, "report.xlsx")

	out, err := execute(t, "run", "-a", assignments, "-t", detail,
		"--start", "2026-02-01", "--end", "2026-03-01", "--report", reportPath)

	require.NoError(t, err)
	assert.Contains(t, out, "Report written to "+reportPath)
	f, err := excelize.OpenFile(reportPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, workbook.SheetDashboard, f.GetSheetList()[0])
}

func TestRun_BadPeriod(t *testing.T) {
	_, assignments, detail := writeInputs(t)

	_, err := execute(t, "run", "-a", assignments, "-t", detail, "--start", "2026-03-01", "--end", "2026-02-01")

	assert.Error(t, err)
}

func TestRun_MissingFlags(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestRun_UnreadableHeaders(t *testing.T) {
	dir, assignments, _ := writeInputs(t)
	junk := filepath.Join(dir, "junk.csv")
	require.NoError(t, os.WriteFile(junk, []byte("a,b\n1,2\n"), 0o644))

	_, err := execute(t, "run", "-a", assignments, "-t", junk)

	require.Error(t, err)
	assert.ErrorIs(t, err, recon.ErrHeaderNotFound)
}

func TestPackage_WritesJSON(t *testing.T) {
	dir, assignments, detail := writeInputs(t)
	output := filepath.Join(dir, "package.json")

	_, err := execute(t, "package", "-a", assignments, "-t", detail,
		"--start", "2026-02-01", "--end", "2026-03-01", "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	pkg, err := recon.DecodePackage(data)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", pkg.Period.Start)
	assert.Equal(t, 2, pkg.EmployeeCount())
	require.Contains(t, pkg.Summaries, "A1")
	assert.Len(t, pkg.Summaries["A1"].IncorrectEntries, 1)
}

func TestPackage_Stdout(t *testing.T) {
	_, assignments, detail := writeInputs(t)

	out, err := execute(t, "package", "-a", assignments, "-t", detail, "--start", "2026-02-01", "--end", "2026-03-01")

	require.NoError(t, err)
	var pkg recon.Package
	require.NoError(t, json.Unmarshal([]byte(out), &pkg))
	assert.NotEmpty(t, pkg.PackageID)
}
