// Package mesh holds the indexed triangle mesh every pipeline stage works on.
//
// Vertex order is meaningful: faces refer to vertices by position in Vertices.
// Bounds, centroid, volume and the topology flags are computed on demand from
// the current buffers and never cached, so they cannot go stale after a stage
// mutates the mesh.
package mesh

import (
	"errors"
	"fmt"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
)

// ErrUndefinedVolume is returned by Volume for meshes that are not watertight.
// It is distinct from a zero volume, which is a legitimate result.
var ErrUndefinedVolume = errors.New("volume undefined: mesh is not watertight")

// Face is a triangle given as three indices into Mesh.Vertices
type Face [3]int

// Reversed returns the face with opposite winding
func (f Face) Reversed() Face {
	return Face{f[0], f[2], f[1]}
}

// HasRepeatedIndex reports whether two corners share a vertex index
func (f Face) HasRepeatedIndex() bool {
	return f[0] == f[1] || f[1] == f[2] || f[2] == f[0]
}

// Mesh is an indexed triangle surface
type Mesh struct {
	Vertices []geometry.Vector3
	Faces    []Face
}

// New creates a mesh from vertex and face buffers. The slices are used as given.
func New(vertices []geometry.Vector3, faces []Face) *Mesh {
	return &Mesh{Vertices: vertices, Faces: faces}
}

// VertexCount returns the number of vertices
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of faces
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty reports whether the mesh has no faces
func (m *Mesh) IsEmpty() bool {
	return len(m.Faces) == 0
}

// Validate checks that every face index refers to an existing vertex
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	return nil
}

// Clone returns a deep copy that shares no buffers with m
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: make([]geometry.Vector3, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
	}
	copy(c.Vertices, m.Vertices)
	copy(c.Faces, m.Faces)
	return c
}

// Triangle returns face i as a geometry.Triangle with its winding normal
func (m *Mesh) Triangle(i int) geometry.Triangle {
	f := m.Faces[i]
	return geometry.NewTriangle(
		geometry.Vector3{},
		m.Vertices[f[0]],
		m.Vertices[f[1]],
		m.Vertices[f[2]],
	).Facet()
}

// FaceNormal returns the unit normal implied by the winding of face i
func (m *Mesh) FaceNormal(i int) geometry.Vector3 {
	return m.Triangle(i).Normal
}

// FaceArea returns the area of face i
func (m *Mesh) FaceArea(i int) float64 {
	return m.Triangle(i).Area()
}

// SurfaceArea returns the total area of all faces
func (m *Mesh) SurfaceArea() float64 {
	total := 0.0
	for i := range m.Faces {
		total += m.FaceArea(i)
	}
	return total
}

// Bounds returns the axis-aligned bounding box of all vertices
func (m *Mesh) Bounds() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, v := range m.Vertices {
		bbox.Extend(v)
	}
	return bbox
}

// Extents returns the bounding box side lengths
func (m *Mesh) Extents() geometry.Vector3 {
	return m.Bounds().Size()
}

// Centroid returns the area-weighted centroid of the surface.
// Meshes without area fall back to the mean vertex position.
func (m *Mesh) Centroid() geometry.Vector3 {
	var sum geometry.Vector3
	total := 0.0
	for i := range m.Faces {
		tri := m.Triangle(i)
		area := tri.Area()
		sum = sum.Add(tri.Center().Mul(area))
		total += area
	}
	if total > 0 {
		return sum.Mul(1 / total)
	}

	if len(m.Vertices) == 0 {
		return geometry.Vector3{}
	}
	for _, v := range m.Vertices {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(m.Vertices)))
}

// SignedVolume sums the signed tetrahedron volumes of all faces against the origin.
// The result is only meaningful as an enclosed volume for watertight meshes;
// its sign tells whether the faces wind outward (positive) or inward.
func (m *Mesh) SignedVolume() float64 {
	total := 0.0
	for i := range m.Faces {
		total += m.Triangle(i).SignedVolume()
	}
	return total
}

// Volume returns the enclosed volume, or ErrUndefinedVolume if the mesh is not watertight
func (m *Mesh) Volume() (float64, error) {
	if !m.IsWatertight() {
		return 0, ErrUndefinedVolume
	}
	return m.SignedVolume(), nil
}

// Transform moves every vertex through fn
func (m *Mesh) Transform(fn func(geometry.Vector3) geometry.Vector3) {
	for i, v := range m.Vertices {
		m.Vertices[i] = fn(v)
	}
}

// Translate moves every vertex by offset
func (m *Mesh) Translate(offset geometry.Vector3) {
	m.Transform(func(v geometry.Vector3) geometry.Vector3 { return v.Add(offset) })
}

// Scale multiplies every vertex by factor about the origin
func (m *Mesh) Scale(factor float64) {
	m.Transform(func(v geometry.Vector3) geometry.Vector3 { return v.Mul(factor) })
}

// Invert reverses the winding of every face
func (m *Mesh) Invert() {
	for i, f := range m.Faces {
		m.Faces[i] = f.Reversed()
	}
}
