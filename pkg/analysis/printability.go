// Package analysis reports the properties that decide whether a mesh can be printed.
package analysis

import (
	"fmt"
	"math"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/loader"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// Dimensions are the bounding-box side lengths
type Dimensions struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// EdgeStats summarizes edge lengths over every face corner pair
type EdgeStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

// Report is a read-only printability summary. Volume is nil when the mesh
// is not watertight, which is different from a zero volume.
type Report struct {
	IsWatertight         bool                 `json:"is_watertight"`
	IsWindingConsistent  bool                 `json:"is_winding_consistent"`
	Volume               *float64             `json:"volume"`
	Dimensions           Dimensions           `json:"dimensions"`
	FaceCount            int                  `json:"face_count"`
	VertexCount          int                  `json:"vertex_count"`
	Printable            bool                 `json:"printable"`
	SurfaceArea          float64              `json:"surface_area"`
	BoundaryEdgeCount    int                  `json:"boundary_edge_count"`
	NonManifoldEdgeCount int                  `json:"non_manifold_edge_count"`
	Edges                EdgeStats            `json:"edges"`
	BoundingBox          geometry.BoundingBox `json:"-"`
}

// Check computes the report without touching m
func Check(m *mesh.Mesh) *Report {
	bbox := m.Bounds()
	size := bbox.Size()
	report := &Report{
		IsWatertight:        m.IsWatertight(),
		IsWindingConsistent: m.IsWindingConsistent(),
		Dimensions:          Dimensions{X: size.X, Y: size.Y, Z: size.Z},
		FaceCount:           m.FaceCount(),
		VertexCount:         m.VertexCount(),
		SurfaceArea:         m.SurfaceArea(),
		BoundingBox:         bbox,
		Edges:               edgeStats(m),
	}
	report.Printable = report.IsWatertight && report.IsWindingConsistent

	if volume, err := m.Volume(); err == nil {
		report.Volume = &volume
	}

	for _, uses := range m.EdgeUses() {
		switch {
		case len(uses) == 1:
			report.BoundaryEdgeCount++
		case len(uses) > 2:
			report.NonManifoldEdgeCount++
		}
	}
	return report
}

// CheckFile loads path and checks it. It fails only when loading fails.
func CheckFile(path string) (*Report, error) {
	m, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return Check(m), nil
}

func edgeStats(m *mesh.Mesh) EdgeStats {
	if len(m.Faces) == 0 {
		return EdgeStats{}
	}
	stats := EdgeStats{Min: math.MaxFloat64}
	total := 0.0
	for i := range m.Faces {
		for _, length := range m.Triangle(i).EdgeLengths() {
			total += length
			stats.Min = math.Min(stats.Min, length)
			stats.Max = math.Max(stats.Max, length)
			stats.Count++
		}
	}
	stats.Avg = total / float64(stats.Count)
	return stats
}

// FormatVolume prints a volume or "undefined"
func FormatVolume(volume *float64) string {
	if volume == nil {
		return "undefined"
	}
	return FormatMeasurement(*volume, "mm³")
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.6f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
