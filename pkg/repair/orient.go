package repair

import (
	"errors"
	"math"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// ErrNonOrientable means no choice of face windings makes every shared edge consistent
var ErrNonOrientable = errors.New("surface is not orientable")

// link is one manifold edge seen from a face
type link struct {
	neighbor int
	forward  bool // this face runs the edge in canonical direction
	theirs   bool // the neighbor does
}

func manifoldLinks(m *mesh.Mesh) [][]link {
	links := make([][]link, len(m.Faces))
	uses := m.EdgeUses()
	for _, e := range uses.SortedEdges() {
		u := uses[e]
		if len(u) != 2 || u[0].Face == u[1].Face {
			continue
		}
		a, b := u[0], u[1]
		links[a.Face] = append(links[a.Face], link{neighbor: b.Face, forward: a.Forward, theirs: b.Forward})
		links[b.Face] = append(links[b.Face], link{neighbor: a.Face, forward: b.Forward, theirs: a.Forward})
	}
	return links
}

// propagate walks each connected component breadth first from its lowest
// face and decides which faces must be flipped so every manifold edge is
// traversed in opposite directions. It returns the flip flags and the
// components in visiting order.
func propagate(m *mesh.Mesh) ([]bool, [][]int, error) {
	links := manifoldLinks(m)
	flip := make([]bool, len(m.Faces))
	seen := make([]bool, len(m.Faces))
	var components [][]int

	for start := range m.Faces {
		if seen[start] {
			continue
		}
		seen[start] = true
		queue := []int{start}
		for q := 0; q < len(queue); q++ {
			f := queue[q]
			for _, l := range links[f] {
				mine := l.forward != flip[f]
				// neighbor must end up running the edge the other way
				want := l.theirs != !mine
				if !seen[l.neighbor] {
					seen[l.neighbor] = true
					flip[l.neighbor] = want
					queue = append(queue, l.neighbor)
				} else if flip[l.neighbor] != want {
					return nil, nil, ErrNonOrientable
				}
			}
		}
		components = append(components, queue)
	}
	return flip, components, nil
}

func applyFlips(m *mesh.Mesh, flip []bool) {
	for i, f := range flip {
		if f {
			m.Faces[i] = m.Faces[i].Reversed()
		}
	}
}

// FixWinding makes adjacent faces agree on edge direction across the whole
// surface. The lowest-index face of each component keeps its winding.
func FixWinding(m *mesh.Mesh) error {
	flip, _, err := propagate(m)
	if err != nil {
		return err
	}
	applyFlips(m, flip)
	return nil
}

// FixNormals makes each connected component consistently wound and then
// turns it outward. A closed component nested inside an odd number of other
// closed components bounds a cavity and must face inward (negative signed
// volume); any other closed component must face outward. Open components
// are flipped when their normals on balance point toward their centroid.
func FixNormals(m *mesh.Mesh) error {
	flip, components, err := propagate(m)
	if err != nil {
		return err
	}
	applyFlips(m, flip)

	parts := make([]*mesh.Mesh, len(components))
	closed := make([]bool, len(components))
	for i, faces := range components {
		parts[i] = m.Submesh(faces)
		closed[i] = parts[i].IsWatertight()
	}

	for i, faces := range components {
		var reverse bool
		if closed[i] {
			depth := 0
			for j := range components {
				if j != i && closed[j] && encloses(parts[j], parts[i]) {
					depth++
				}
			}
			cavity := depth%2 == 1
			reverse = (parts[i].SignedVolume() < 0) != cavity
		} else {
			reverse = openInward(parts[i])
		}
		if reverse {
			for _, fi := range faces {
				m.Faces[fi] = m.Faces[fi].Reversed()
			}
		}
	}
	return nil
}

func openInward(part *mesh.Mesh) bool {
	center := part.Centroid()
	score := 0.0
	for i := range part.Faces {
		tri := part.Triangle(i)
		score += tri.Area() * tri.Normal.Dot(tri.Center().Sub(center))
	}
	return score < 0
}

// encloses reports whether every vertex of inner lies inside the closed
// surface outer. Shells that merely intersect are not nested.
func encloses(outer, inner *mesh.Mesh) bool {
	ob, ib := outer.Bounds(), inner.Bounds()
	if ib.Min.X < ob.Min.X || ib.Min.Y < ob.Min.Y || ib.Min.Z < ob.Min.Z ||
		ib.Max.X > ob.Max.X || ib.Max.Y > ob.Max.Y || ib.Max.Z > ob.Max.Z {
		return false
	}
	for _, v := range inner.Vertices {
		if !contains(outer, v) {
			return false
		}
	}
	return true
}

// rayDir is skewed off the axes so rays rarely graze edges of axis-aligned models
var rayDir = geometry.NewVector3(1, 0.3137, 0.1729).Normalize()

// contains counts crossings of a ray from p with the closed surface m
func contains(m *mesh.Mesh, p geometry.Vector3) bool {
	const eps = 1e-12
	crossings := 0
	for i := range m.Faces {
		tri := m.Triangle(i)
		e1 := tri.V2.Sub(tri.V1)
		e2 := tri.V3.Sub(tri.V1)
		h := rayDir.Cross(e2)
		det := e1.Dot(h)
		if math.Abs(det) < eps {
			continue
		}
		inv := 1 / det
		s := p.Sub(tri.V1)
		u := s.Dot(h) * inv
		if u < 0 || u > 1 {
			continue
		}
		q := s.Cross(e1)
		v := rayDir.Dot(q) * inv
		if v < 0 || u+v > 1 {
			continue
		}
		if e2.Dot(q)*inv > eps {
			crossings++
		}
	}
	return crossings%2 == 1
}

// FixInversion reverses every face of a watertight mesh whose signed volume
// is negative. Meshes that are not watertight have no defined inside.
func FixInversion(m *mesh.Mesh) error {
	if !m.IsWatertight() {
		return ErrNotApplicable
	}
	if m.SignedVolume() < 0 {
		m.Invert()
	}
	return nil
}
