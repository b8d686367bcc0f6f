// Package normalize fits a mesh to print dimensions: uniform scale to a
// target size, then centering on the origin.
package normalize

import (
	"fmt"
	"math"

	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// DefaultTarget is the longest bounding-box side after normalization, in millimetres
const DefaultTarget = 50.0

// DegenerateGeometryWarning is returned when the mesh has no extent to scale.
// It is not an error: centering still happened.
type DegenerateGeometryWarning struct {
	Vertices int
}

func (w *DegenerateGeometryWarning) Error() string {
	return fmt.Sprintf("degenerate geometry: %d vertices span zero extent, scaling skipped", w.Vertices)
}

// Normalize scales m in place so its longest bounding-box side equals target,
// then translates it so its centroid sits at the origin. A zero-extent mesh
// is only centered and a *DegenerateGeometryWarning is returned.
func Normalize(m *mesh.Mesh, target float64) (*DegenerateGeometryWarning, error) {
	if err := checkFactor("target size", target); err != nil {
		return nil, err
	}

	var warning *DegenerateGeometryWarning
	maxDim := m.Extents().MaxComponent()
	if maxDim == 0 || len(m.Vertices) == 0 {
		warning = &DegenerateGeometryWarning{Vertices: len(m.Vertices)}
	} else {
		m.Scale(target / maxDim)
	}

	m.Translate(m.Centroid().Mul(-1))
	return warning, nil
}

// Scale multiplies every vertex by factor about the origin
func Scale(m *mesh.Mesh, factor float64) error {
	if err := checkFactor("scale factor", factor); err != nil {
		return err
	}
	m.Scale(factor)
	return nil
}

// ScalePercent scales by percent/100; 100 leaves the mesh unchanged
func ScalePercent(m *mesh.Mesh, percent float64) error {
	if err := checkFactor("scale percent", percent); err != nil {
		return err
	}
	m.Scale(percent / 100)
	return nil
}

func checkFactor(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be positive and finite, got %v", what, v)
	}
	return nil
}
