// Command recon reconciles timesheet workbooks from the command line.
//
//	recon run --assignments staffing.xlsx --time-detail detail.xlsx --start 2026-02-01 --end 2026-03-01
//	recon package --assignments staffing.xlsx --time-detail detail.xlsx -o package.json
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
