package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/timesheet-recon/logging"
	"github.com/warp/timesheet-recon/recon"
	"github.com/warp/timesheet-recon/workbook"
)

// inputFlags are shared by every command that reconciles workbooks.
type inputFlags struct {
	assignments string
	timeDetail  string
	start       string
	end         string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.assignments, "assignments", "a", "", "assignments workbook (.xlsx, .xls or .csv)")
	cmd.Flags().StringVarP(&f.timeDetail, "time-detail", "t", "", "time detail workbook (.xlsx, .xls or .csv)")
	cmd.Flags().StringVar(&f.start, "start", "", "period start, exclusive (YYYY-MM-DD, default first day of last month)")
	cmd.Flags().StringVar(&f.end, "end", "", "period end, exclusive (YYYY-MM-DD, default first day of this month)")
	_ = cmd.MarkFlagRequired("assignments")
	_ = cmd.MarkFlagRequired("time-detail")
}

func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "recon",
		Short: "Timesheet reconciliation",
		Long: `Recon checks every time entry of a period against the service line the
worker is assigned to, and lists incorrect entries, missing memos and
entries that match no assignment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.Configure(logging.Config{
				Level:  logLevel,
				Format: "console",
				Output: "stderr",
			})
			cmd.SetContext(logging.WithLogger(cmd.Context(), &logger))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newRunCommand(), newPackageCommand())
	return root
}

// reconcile loads both workbooks into a fresh session and sets the period.
func reconcile(cmd *cobra.Command, in inputFlags, now func() time.Time) (*recon.Snapshot, error) {
	logger := logging.FromContext(cmd.Context())
	session := recon.NewSession(now)

	wb, err := readWorkbook(in.assignments)
	if err != nil {
		return nil, err
	}
	aload, err := session.LoadAssignments(wb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.assignments, err)
	}
	logEvent(logger.Info(), aload.Location).Int("assignments", len(aload.Assignments)).Msg("assignments loaded")

	wb, err = readWorkbook(in.timeDetail)
	if err != nil {
		return nil, err
	}
	eload, err := session.LoadTimeEntries(wb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.timeDetail, err)
	}
	logEvent(logger.Info(), eload.Location).
		Int("entries", len(eload.Entries)).
		Int("undated", eload.Undated()).
		Msg("time detail loaded")

	if in.start == "" && in.end == "" {
		return session.Snapshot(), nil
	}
	period := session.Snapshot().Period
	start, end := in.start, in.end
	if start == "" {
		start = period.StartISO()
	}
	if end == "" {
		end = period.EndISO()
	}
	p, err := recon.ParsePeriod(start, end)
	if err != nil {
		return nil, err
	}
	return session.SetPeriod(p), nil
}

func readWorkbook(path string) (recon.Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return recon.Workbook{}, err
	}
	defer f.Close()
	wb, err := workbook.Decode(f, path)
	if err != nil {
		return recon.Workbook{}, fmt.Errorf("%s: %w", path, err)
	}
	return wb, nil
}

func logEvent(e *zerolog.Event, loc recon.Location) *zerolog.Event {
	return e.Str("sheet", loc.SheetName()).
		Int("header_row", loc.HeaderRow+1).
		Str("method", string(loc.Method))
}
