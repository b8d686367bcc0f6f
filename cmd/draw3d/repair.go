package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair [stl]",
	Short: "Repair an STL file in place",
	Long: `Run the repair steps (normals, inversion, winding, holes, cleanup) on an
STL file and overwrite it. A failing step leaves the model as it was before
that step; the remaining steps still run.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	svc := newService()
	defer svc.Close()

	report, err := svc.Optimize(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Repair Report")
	fmt.Fprintln(out, "=============")
	for _, step := range report.Steps {
		status := "applied"
		switch {
		case step.Skipped:
			status = "skipped"
		case step.Failed():
			status = "FAILED: " + step.Error
		}
		fmt.Fprintf(out, "  %-14s %-10s faces %d -> %d (%s)\n",
			step.Name, status, step.FacesBefore, step.FacesAfter, step.Duration)
	}
	fmt.Fprintf(out, "\nWatertight: %t\n", report.Watertight)
	fmt.Fprintf(out, "Winding consistent: %t\n", report.WindingConsistent)
	return nil
}
