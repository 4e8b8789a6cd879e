package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warp/timesheet-recon/recon"
)

func newPackageCommand() *cobra.Command {
	var (
		in     inputFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Write the attestation package JSON for two workbooks",
		Long: `Package reconciles the workbooks and writes the package that employees
attest against. Publish it with POST /api/packages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := reconcile(cmd, in, time.Now)
			if err != nil {
				return err
			}
			pkg, err := recon.BuildPackage(snap, uuid.NewString(), time.Now())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(pkg, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Package %s written to %s (%d employees)\n", pkg.PackageID, output, pkg.EmployeeCount())
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
