package stl

import (
	"math"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// Model represents a complete STL model: a flat triangle soup with no shared vertices
type Model struct {
	Name      string
	Triangles []geometry.Triangle
}

// NewModel creates a new STL model
func NewModel(name string) *Model {
	return &Model{
		Name:      name,
		Triangles: make([]geometry.Triangle, 0),
	}
}

// AddTriangle adds a triangle to the model
func (m *Model) AddTriangle(triangle geometry.Triangle) {
	m.Triangles = append(m.Triangles, triangle)
}

// TriangleCount returns the number of triangles in the model
func (m *Model) TriangleCount() int {
	return len(m.Triangles)
}

// BoundingBox calculates the bounding box of the entire model
func (m *Model) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, triangle := range m.Triangles {
		bbox.Extend(triangle.V1)
		bbox.Extend(triangle.V2)
		bbox.Extend(triangle.V3)
	}
	return bbox
}

// vertexKey is a position rounded to the float32 precision STL stores
type vertexKey [3]float32

func keyOf(v geometry.Vector3) vertexKey {
	return vertexKey{float32(v.X), float32(v.Y), float32(v.Z)}
}

// ToMesh indexes the triangle soup. Corners with identical float32 positions
// become one vertex, numbered in first-seen order, so adjacency survives the
// round trip through the file format.
func (m *Model) ToMesh() *mesh.Mesh {
	index := make(map[vertexKey]int, len(m.Triangles))
	out := mesh.New(
		make([]geometry.Vector3, 0, len(m.Triangles)/2+3),
		make([]mesh.Face, 0, len(m.Triangles)),
	)

	lookup := func(v geometry.Vector3) int {
		k := keyOf(v)
		if idx, ok := index[k]; ok {
			return idx
		}
		idx := len(out.Vertices)
		index[k] = idx
		out.Vertices = append(out.Vertices, round32(v))
		return idx
	}

	for _, tri := range m.Triangles {
		out.Faces = append(out.Faces, mesh.Face{lookup(tri.V1), lookup(tri.V2), lookup(tri.V3)})
	}
	return out
}

// FromMesh expands an indexed mesh into facets. Vertices are rounded to the
// float32 values the file will hold before normals are recomputed from
// winding, so re-exporting a re-loaded file yields the same bytes.
func FromMesh(name string, m *mesh.Mesh) *Model {
	model := &Model{Name: name, Triangles: make([]geometry.Triangle, 0, len(m.Faces))}
	for _, f := range m.Faces {
		tri := geometry.NewTriangle(
			geometry.Vector3{},
			round32(m.Vertices[f[0]]),
			round32(m.Vertices[f[1]]),
			round32(m.Vertices[f[2]]),
		).Facet()
		if !tri.Normal.IsFinite() {
			tri.Normal = geometry.Vector3{}
		}
		model.AddTriangle(tri)
	}
	return model
}

func round32(v geometry.Vector3) geometry.Vector3 {
	k := keyOf(v)
	return geometry.NewVector3(float64(k[0]), float64(k[1]), float64(k[2]))
}

func isFinite32(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
