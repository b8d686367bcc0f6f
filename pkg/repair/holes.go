package repair

import (
	"math"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// FillHoles closes every simple boundary loop of a non-watertight mesh.
// Loops passing through a vertex shared by several holes are left open, so
// the result may still not be watertight; that counts as success.
func FillHoles(m *mesh.Mesh) error {
	if m.IsWatertight() {
		return ErrNotApplicable
	}
	loops, _ := BoundaryLoops(m)
	for _, loop := range loops {
		m.Faces = append(m.Faces, fillLoop(m, loop)...)
	}
	return nil
}

// BoundaryLoops returns the holes of m as vertex cycles, ordered so that a
// face (loop[i], loop[i+1], x) continues the winding of the surrounding
// surface. The second result counts boundary vertices that could not be
// assigned to a simple loop.
func BoundaryLoops(m *mesh.Mesh) ([][]int, int) {
	boundary := m.BoundaryEdges()
	next := make(map[int]int, len(boundary))
	in := make(map[int]int, len(boundary))
	out := make(map[int]int, len(boundary))
	for _, e := range boundary {
		// the hole runs against the face that owns the edge
		from, to := e[1], e[0]
		next[from] = to
		out[from]++
		in[to]++
	}
	bad := func(v int) bool { return in[v] > 1 || out[v] > 1 }

	visited := make(map[int]bool, len(boundary))
	var loops [][]int
	skipped := 0
	for _, e := range boundary {
		start := e[1]
		if visited[start] {
			continue
		}
		if bad(start) {
			visited[start] = true
			skipped++
			continue
		}

		var loop []int
		closed := false
		for v := start; ; {
			visited[v] = true
			loop = append(loop, v)
			n, ok := next[v]
			if !ok || bad(n) {
				break
			}
			if n == start {
				closed = true
				break
			}
			if visited[n] {
				break
			}
			v = n
		}
		if closed && len(loop) >= 3 {
			loops = append(loops, loop)
		} else {
			skipped += len(loop)
		}
	}
	return loops, skipped
}

func fillLoop(m *mesh.Mesh, loop []int) []mesh.Face {
	if len(loop) == 3 {
		return []mesh.Face{{loop[0], loop[1], loop[2]}}
	}
	if faces, ok := earClip(m.Vertices, loop); ok {
		return faces
	}
	return centroidFan(m, loop)
}

// newellNormal is the area-weighted normal of a possibly non-planar polygon
func newellNormal(points []geometry.Vector3) geometry.Vector3 {
	var n geometry.Vector3
	for i, a := range points {
		b := points[(i+1)%len(points)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

type point2 struct{ x, y float64 }

func cross2(o, a, b point2) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

func insideTriangle(p, a, b, c point2) bool {
	return cross2(a, b, p) >= 0 && cross2(b, c, p) >= 0 && cross2(c, a, p) >= 0
}

// earClip triangulates the loop in the plane of its Newell normal. It gives
// up on loops that are degenerate or self-overlapping in projection.
func earClip(vertices []geometry.Vector3, loop []int) ([]mesh.Face, bool) {
	points := make([]geometry.Vector3, len(loop))
	for i, v := range loop {
		points[i] = vertices[v]
	}
	normal := newellNormal(points)
	if normal.Length() == 0 || math.IsNaN(normal.Length()) {
		return nil, false
	}
	normal = normal.Normalize()

	axis := geometry.NewVector3(1, 0, 0)
	if math.Abs(normal.X) > 0.9 {
		axis = geometry.NewVector3(0, 1, 0)
	}
	u := normal.Cross(axis).Normalize()
	w := normal.Cross(u)

	flat := make([]point2, len(points))
	for i, p := range points {
		flat[i] = point2{p.Dot(u), p.Dot(w)}
	}

	remaining := make([]int, len(loop))
	for i := range remaining {
		remaining[i] = i
	}

	faces := make([]mesh.Face, 0, len(loop)-2)
	for len(remaining) > 3 {
		ear := -1
		for i := range remaining {
			prev := remaining[(i+len(remaining)-1)%len(remaining)]
			cur := remaining[i]
			nxt := remaining[(i+1)%len(remaining)]
			if cross2(flat[prev], flat[cur], flat[nxt]) <= 0 {
				continue
			}
			blocked := false
			for _, other := range remaining {
				if other == prev || other == cur || other == nxt {
					continue
				}
				if insideTriangle(flat[other], flat[prev], flat[cur], flat[nxt]) {
					blocked = true
					break
				}
			}
			if !blocked {
				ear = i
				break
			}
		}
		if ear < 0 {
			return nil, false
		}

		prev := remaining[(ear+len(remaining)-1)%len(remaining)]
		nxt := remaining[(ear+1)%len(remaining)]
		faces = append(faces, mesh.Face{loop[prev], loop[remaining[ear]], loop[nxt]})
		remaining = append(remaining[:ear], remaining[ear+1:]...)
	}
	faces = append(faces, mesh.Face{loop[remaining[0]], loop[remaining[1]], loop[remaining[2]]})
	return faces, true
}

// centroidFan adds one vertex at the loop's mean position and connects
// every loop edge to it
func centroidFan(m *mesh.Mesh, loop []int) []mesh.Face {
	var sum geometry.Vector3
	for _, v := range loop {
		sum = sum.Add(m.Vertices[v])
	}
	center := len(m.Vertices)
	m.Vertices = append(m.Vertices, sum.Mul(1/float64(len(loop))))

	faces := make([]mesh.Face, len(loop))
	for i, v := range loop {
		faces[i] = mesh.Face{v, loop[(i+1)%len(loop)], center}
	}
	return faces
}
