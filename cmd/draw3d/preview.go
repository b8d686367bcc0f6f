package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var previewSize int

var previewCmd = &cobra.Command{
	Use:   "preview [model] [png]",
	Short: "Render a PNG thumbnail of a model",
	Long:  "Render a shaded thumbnail. Faces seen from inside, e.g. through a hole, are drawn in a warning color.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntVar(&previewSize, "size", 0, "Image size in pixels (default: preview.size from config)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	out := strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_preview.png"
	if len(args) == 2 {
		out = args[1]
	}
	size := app.cfg.Preview.Size
	if previewSize > 0 {
		size = previewSize
	}
	if size <= 0 {
		return fmt.Errorf("preview size must be positive")
	}

	svc := newService()
	defer svc.Close()

	if err := svc.Preview(cmd.Context(), args[0], out, size); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
