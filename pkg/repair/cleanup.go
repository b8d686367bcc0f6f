package repair

import (
	"math"
	"sort"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// CleanupStats counts what Cleanup removed
type CleanupStats struct {
	MergedVertices       int
	DegenerateFaces      int
	DuplicateFaces       int
	UnreferencedVertices int
}

// Cleanup merges near-coincident vertices, then drops degenerate faces,
// duplicate faces and vertices no face uses
func Cleanup(m *mesh.Mesh, opts Options) CleanupStats {
	var stats CleanupStats
	stats.MergedVertices = MergeVertices(m, opts.MergeTolerance)
	stats.DegenerateFaces = RemoveDegenerateFaces(m, opts.AreaEpsilon)
	stats.DuplicateFaces = RemoveDuplicateFaces(m)
	stats.UnreferencedVertices = RemoveUnreferencedVertices(m)
	return stats
}

type cell [3]int64

func cellOf(v geometry.Vector3, size float64) cell {
	return cell{
		int64(math.Floor(v.X / size)),
		int64(math.Floor(v.Y / size)),
		int64(math.Floor(v.Z / size)),
	}
}

// MergeVertices collapses vertices closer than tol onto the first one seen
// and rewrites faces to match. Surviving vertices keep their relative
// order. A non-positive tol merges exact duplicates only. Returns the
// number of vertices removed.
func MergeVertices(m *mesh.Mesh, tol float64) int {
	remap := make([]int, len(m.Vertices))
	kept := make([]geometry.Vector3, 0, len(m.Vertices))

	if tol <= 0 {
		exact := make(map[geometry.Vector3]int, len(m.Vertices))
		for i, v := range m.Vertices {
			if j, ok := exact[v]; ok {
				remap[i] = j
				continue
			}
			exact[v] = len(kept)
			remap[i] = len(kept)
			kept = append(kept, v)
		}
	} else {
		grid := make(map[cell][]int)
		for i, v := range m.Vertices {
			c := cellOf(v, tol)
			match := -1
		search:
			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for dz := int64(-1); dz <= 1; dz++ {
						for _, j := range grid[cell{c[0] + dx, c[1] + dy, c[2] + dz}] {
							if kept[j].Distance(v) <= tol {
								match = j
								break search
							}
						}
					}
				}
			}
			if match >= 0 {
				remap[i] = match
				continue
			}
			remap[i] = len(kept)
			grid[c] = append(grid[c], len(kept))
			kept = append(kept, v)
		}
	}

	removed := len(m.Vertices) - len(kept)
	if removed == 0 {
		return 0
	}
	for i, f := range m.Faces {
		m.Faces[i] = mesh.Face{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	m.Vertices = kept
	return removed
}

// RemoveDegenerateFaces drops faces that repeat a vertex index or whose
// area is at most eps. Returns the number of faces removed.
func RemoveDegenerateFaces(m *mesh.Mesh, eps float64) int {
	kept := m.Faces[:0]
	for i, f := range m.Faces {
		if f.HasRepeatedIndex() || m.FaceArea(i) <= eps {
			continue
		}
		kept = append(kept, f)
	}
	removed := len(m.Faces) - len(kept)
	m.Faces = kept
	return removed
}

// RemoveDuplicateFaces keeps the first of every group of faces over the
// same three vertices, regardless of corner order
func RemoveDuplicateFaces(m *mesh.Mesh) int {
	seen := make(map[mesh.Face]bool, len(m.Faces))
	kept := m.Faces[:0]
	for _, f := range m.Faces {
		key := f
		sort.Ints(key[:])
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, f)
	}
	removed := len(m.Faces) - len(kept)
	m.Faces = kept
	return removed
}

// RemoveUnreferencedVertices drops vertices no face uses, keeping the
// order of the rest
func RemoveUnreferencedVertices(m *mesh.Mesh) int {
	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		for _, idx := range f {
			used[idx] = true
		}
	}

	remap := make([]int, len(m.Vertices))
	kept := make([]geometry.Vector3, 0, len(m.Vertices))
	for i, v := range m.Vertices {
		if used[i] {
			remap[i] = len(kept)
			kept = append(kept, v)
		}
	}
	removed := len(m.Vertices) - len(kept)
	if removed == 0 {
		return 0
	}
	for i, f := range m.Faces {
		m.Faces[i] = mesh.Face{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	m.Vertices = kept
	return removed
}
