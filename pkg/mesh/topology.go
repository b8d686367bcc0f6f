package mesh

import "sort"

// Edge is a pair of vertex indices. Undirected edges are stored with Edge[0] < Edge[1].
type Edge [2]int

// undirected returns the canonical key for the edge a-b and whether a->b runs
// in canonical order
func undirected(a, b int) (Edge, bool) {
	if a < b {
		return Edge{a, b}, true
	}
	return Edge{b, a}, false
}

// EdgeUse records one face touching an undirected edge
type EdgeUse struct {
	Face    int
	Forward bool // face traverses the edge from Edge[0] to Edge[1]
}

// EdgeMap maps every undirected edge to the faces that use it
type EdgeMap map[Edge][]EdgeUse

// EdgeUses builds the undirected edge map for the current faces
func (m *Mesh) EdgeUses() EdgeMap {
	uses := make(EdgeMap, len(m.Faces)*3/2)
	for fi, f := range m.Faces {
		for k := 0; k < 3; k++ {
			e, fwd := undirected(f[k], f[(k+1)%3])
			uses[e] = append(uses[e], EdgeUse{Face: fi, Forward: fwd})
		}
	}
	return uses
}

// SortedEdges returns the map keys in a stable order
func (em EdgeMap) SortedEdges() []Edge {
	edges := make([]Edge, 0, len(em))
	for e := range em {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// IsWatertight reports whether every edge is shared by exactly two faces that
// traverse it in opposite directions. Empty meshes are not watertight.
func (m *Mesh) IsWatertight() bool {
	if len(m.Faces) == 0 {
		return false
	}
	for _, uses := range m.EdgeUses() {
		if len(uses) != 2 || uses[0].Forward == uses[1].Forward {
			return false
		}
	}
	return true
}

// IsWindingConsistent reports whether every edge shared by two faces is traversed
// in opposite directions. Boundary edges are ignored; an edge with more than two
// faces has no consistent orientation and makes the mesh inconsistent.
func (m *Mesh) IsWindingConsistent() bool {
	for _, uses := range m.EdgeUses() {
		switch len(uses) {
		case 1:
		case 2:
			if uses[0].Forward == uses[1].Forward {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// BoundaryEdges returns the directed edges used by exactly one face, in the
// direction that face traverses them, sorted for determinism
func (m *Mesh) BoundaryEdges() []Edge {
	uses := m.EdgeUses()
	var out []Edge
	for _, e := range uses.SortedEdges() {
		u := uses[e]
		if len(u) != 1 {
			continue
		}
		if u[0].Forward {
			out = append(out, e)
		} else {
			out = append(out, Edge{e[1], e[0]})
		}
	}
	return out
}

// FaceAdjacency lists, per face, the faces it shares a two-face edge with
func (m *Mesh) FaceAdjacency() [][]int {
	adj := make([][]int, len(m.Faces))
	uses := m.EdgeUses()
	for _, e := range uses.SortedEdges() {
		u := uses[e]
		if len(u) != 2 || u[0].Face == u[1].Face {
			continue
		}
		adj[u[0].Face] = append(adj[u[0].Face], u[1].Face)
		adj[u[1].Face] = append(adj[u[1].Face], u[0].Face)
	}
	return adj
}

// Components groups faces connected through manifold edges.
// Groups are ordered by their smallest face index.
func (m *Mesh) Components() [][]int {
	adj := m.FaceAdjacency()
	seen := make([]bool, len(m.Faces))
	var groups [][]int
	for start := range m.Faces {
		if seen[start] {
			continue
		}
		seen[start] = true
		group := []int{start}
		for q := 0; q < len(group); q++ {
			for _, n := range adj[group[q]] {
				if !seen[n] {
					seen[n] = true
					group = append(group, n)
				}
			}
		}
		sort.Ints(group)
		groups = append(groups, group)
	}
	return groups
}

// Submesh returns a new mesh holding only the given faces, with vertices
// renumbered in first-use order
func (m *Mesh) Submesh(faces []int) *Mesh {
	remap := make(map[int]int)
	out := &Mesh{Faces: make([]Face, 0, len(faces))}
	for _, fi := range faces {
		var nf Face
		for k, idx := range m.Faces[fi] {
			ni, ok := remap[idx]
			if !ok {
				ni = len(out.Vertices)
				remap[idx] = ni
				out.Vertices = append(out.Vertices, m.Vertices[idx])
			}
			nf[k] = ni
		}
		out.Faces = append(out.Faces, nf)
	}
	return out
}
