package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nQrChao/kids-draw-3d/pkg/analysis"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Report whether a model is printable",
	Long:  "Show watertightness, winding consistency, volume, dimensions and edge statistics of a model.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the report as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	svc := newService()
	defer svc.Close()

	report, err := svc.Check(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if checkJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd.OutOrStdout(), args[0], report)
	return nil
}

func printReport(w io.Writer, filename string, r *analysis.Report) {
	fmt.Fprintln(w, "Printability Report")
	fmt.Fprintln(w, "===================")
	fmt.Fprintf(w, "File: %s\n\n", filename)

	fmt.Fprintf(w, "Printable: %t\n", r.Printable)
	fmt.Fprintf(w, "  Watertight: %t\n", r.IsWatertight)
	fmt.Fprintf(w, "  Winding consistent: %t\n", r.IsWindingConsistent)
	fmt.Fprintf(w, "  Boundary edges: %d\n", r.BoundaryEdgeCount)
	fmt.Fprintf(w, "  Non-manifold edges: %d\n\n", r.NonManifoldEdgeCount)

	fmt.Fprintln(w, "Model Statistics:")
	fmt.Fprintf(w, "  Faces: %d\n", r.FaceCount)
	fmt.Fprintf(w, "  Vertices: %d\n", r.VertexCount)
	fmt.Fprintf(w, "  Surface Area: %s\n", analysis.FormatMeasurement(r.SurfaceArea, "mm²"))
	fmt.Fprintf(w, "  Volume: %s\n\n", analysis.FormatVolume(r.Volume))

	if !r.BoundingBox.IsEmpty() {
		fmt.Fprintln(w, "Bounding Box:")
		fmt.Fprintf(w, "  Min: %s\n", analysis.FormatVector(r.BoundingBox.Min))
		fmt.Fprintf(w, "  Max: %s\n", analysis.FormatVector(r.BoundingBox.Max))
		fmt.Fprintf(w, "  Center: %s\n\n", analysis.FormatVector(r.BoundingBox.Center()))
	}

	fmt.Fprintln(w, "Dimensions:")
	fmt.Fprintf(w, "  Width (X): %s\n", analysis.FormatMeasurement(r.Dimensions.X, "mm"))
	fmt.Fprintf(w, "  Depth (Y): %s\n", analysis.FormatMeasurement(r.Dimensions.Y, "mm"))
	fmt.Fprintf(w, "  Height (Z): %s\n\n", analysis.FormatMeasurement(r.Dimensions.Z, "mm"))

	fmt.Fprintln(w, "Edge Lengths:")
	fmt.Fprintf(w, "  Minimum: %s\n", analysis.FormatMeasurement(r.Edges.Min, "mm"))
	fmt.Fprintf(w, "  Maximum: %s\n", analysis.FormatMeasurement(r.Edges.Max, "mm"))
	fmt.Fprintf(w, "  Average: %s\n", analysis.FormatMeasurement(r.Edges.Avg, "mm"))
}
