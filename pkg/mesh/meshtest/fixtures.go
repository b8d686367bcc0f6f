// Package meshtest provides small reference meshes for tests.
package meshtest

import (
	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// cubeFaces winds every face counter-clockwise seen from outside
var cubeFaces = []mesh.Face{
	{0, 2, 1}, {0, 3, 2}, // bottom
	{4, 5, 6}, {4, 6, 7}, // top
	{0, 1, 5}, {0, 5, 4}, // front
	{3, 7, 6}, {3, 6, 2}, // back
	{0, 4, 7}, {0, 7, 3}, // left
	{1, 2, 6}, {1, 6, 5}, // right
}

// Cube returns a closed, outward-wound axis-aligned cube with one corner at
// the origin: 8 vertices, 12 faces, volume size^3.
func Cube(size float64) *mesh.Mesh {
	s := size
	vertices := []geometry.Vector3{
		{X: 0, Y: 0, Z: 0}, {X: s, Y: 0, Z: 0}, {X: s, Y: s, Z: 0}, {X: 0, Y: s, Z: 0},
		{X: 0, Y: 0, Z: s}, {X: s, Y: 0, Z: s}, {X: s, Y: s, Z: s}, {X: 0, Y: s, Z: s},
	}
	faces := make([]mesh.Face, len(cubeFaces))
	copy(faces, cubeFaces)
	return mesh.New(vertices, faces)
}

// OpenBox returns Cube(size) without its top square, leaving one four-edge hole
func OpenBox(size float64) *mesh.Mesh {
	m := Cube(size)
	m.Faces = append(m.Faces[:2:2], m.Faces[4:]...)
	return m
}

// Tetrahedron returns a closed outward-wound tetrahedron with volume 1/6
func Tetrahedron() *mesh.Mesh {
	return mesh.New(
		[]geometry.Vector3{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		[]mesh.Face{
			{0, 2, 1},
			{0, 1, 3},
			{0, 3, 2},
			{1, 2, 3},
		},
	)
}

// Translated returns a copy of m moved by offset
func Translated(m *mesh.Mesh, offset geometry.Vector3) *mesh.Mesh {
	c := m.Clone()
	c.Translate(offset)
	return c
}
