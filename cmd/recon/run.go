package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/warp/timesheet-recon/recon"
	"github.com/warp/timesheet-recon/workbook"
)

func newRunCommand() *cobra.Command {
	var (
		in     inputFlags
		report string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile two workbooks and print the findings",
		Example: `  recon run -a staffing.xlsx -t detail.xlsx
  recon run -a staffing.xlsx -t detail.xlsx --start 2026-01-31 --end 2026-03-01 --report out.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := reconcile(cmd, in, time.Now)
			if err != nil {
				return err
			}
			if err := printSummary(cmd.OutOrStdout(), snap); err != nil {
				return err
			}
			if report == "" {
				return nil
			}
			if report == "-" || report == "." {
				report = workbook.ReportFilename(snap.Period)
			}
			var buf bytes.Buffer
			if err := workbook.WriteReport(&buf, workbook.Report{Snapshot: snap}); err != nil {
				return err
			}
			if err := os.WriteFile(report, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", report)
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&report, "report", "r", "", `write the xlsx report to this path ("." for the default name)`)
	return cmd
}

func printSummary(w io.Writer, snap *recon.Snapshot) error {
	totals := snap.Totals()
	fmt.Fprintf(w, "Period %s (both ends exclusive)\n", snap.Period)
	fmt.Fprintf(w, "%d assignments, %d entries in range, %s hours\n\n",
		totals.Employees, totals.EntriesInRange, totals.Hours.String())

	table := tablewriter.NewWriter(w)
	table.Header("Employee", "Worker ID", "Service Line", "Entries", "Hours", "Incorrect", "Missing Memo")
	for _, s := range workbook.EmployeeSheetOrder(snap.Result, snap.Assignments) {
		name := s.Assignment.DisplayName()
		if s.Ambiguous {
			name += " (ambiguous)"
		}
		if err := table.Append([]string{
			name,
			s.Assignment.WorkerIDRaw,
			s.Assignment.ServiceLine,
			strconv.Itoa(s.EntryCount),
			s.Hours.String(),
			strconv.Itoa(len(s.IncorrectEntries)),
			strconv.Itoa(len(s.MissingMemos)),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nIncorrect entries: %d (%d employees)\n", totals.IncorrectEntries, totals.EmployeesIncorrect)
	fmt.Fprintf(w, "Missing memos:     %d (%d employees)\n", totals.MissingMemos, totals.EmployeesMissingMemo)
	fmt.Fprintf(w, "Unmatched entries: %d\n", totals.Unmatched)
	fmt.Fprintf(w, "Ambiguous matches: %d\n", totals.Ambiguous)
	for _, e := range snap.Result.Unmatched {
		fmt.Fprintf(w, "  unmatched row %d: %s %s %s\n", e.RowIndex, recon.FormatISODate(e.Date), e.WorkerName, e.TaskDesc)
	}
	return nil
}
