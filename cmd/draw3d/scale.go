package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var scaleCmd = &cobra.Command{
	Use:   "scale [stl] [percent]",
	Short: "Resize an STL file in place",
	Long:  "Scale an STL file uniformly, e.g. 200 doubles every dimension and 50 halves it.",
	Args:  cobra.ExactArgs(2),
	RunE:  runScale,
}

func init() {
	rootCmd.AddCommand(scaleCmd)
}

func runScale(cmd *cobra.Command, args []string) error {
	percent, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid percent %q: %w", args[1], err)
	}

	svc := newService()
	defer svc.Close()

	if err := svc.Scale(cmd.Context(), args[0], percent); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Scaled %s to %g%%\n", args[0], percent)
	return nil
}
