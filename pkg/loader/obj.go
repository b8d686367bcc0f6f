package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

const defaultGroup = "default"

func readOBJ(path string) (*mesh.Scene, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseOBJ(file)
}

// parseOBJ reads Wavefront OBJ geometry. Each o/g group becomes a scene
// member; points and lines are ignored, polygons are fan-triangulated.
func parseOBJ(r io.Reader) (*mesh.Scene, error) {
	all := &mesh.Mesh{}
	groups := map[string][]int{}
	var order []string
	current := defaultGroup

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNum)
			}
			var c [3]float64
			for k := range c {
				v, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				c[k] = v
			}
			vertex := geometry.NewVector3(c[0], c[1], c[2])
			if !vertex.IsFinite() {
				return nil, fmt.Errorf("line %d: vertex is not finite", lineNum)
			}
			all.Vertices = append(all.Vertices, vertex)

		case "o", "g":
			current = defaultGroup
			if len(fields) > 1 {
				current = strings.Join(fields[1:], " ")
			}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNum)
			}
			poly := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := resolveIndex(ref, len(all.Vertices))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				poly = append(poly, idx)
			}
			if _, seen := groups[current]; !seen {
				order = append(order, current)
			}
			for k := 1; k+1 < len(poly); k++ {
				groups[current] = append(groups[current], len(all.Faces))
				all.Faces = append(all.Faces, mesh.Face{poly[0], poly[k], poly[k+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	scene := mesh.NewScene()
	for _, name := range order {
		scene.Add(name, all.Submesh(groups[name]))
	}
	return scene, nil
}

// resolveIndex turns "7", "7/1" or "-2//3" into a zero-based vertex index
func resolveIndex(ref string, count int) (int, error) {
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		ref = ref[:i]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("bad vertex reference %q", ref)
	}

	var idx int
	switch {
	case n > 0:
		idx = n - 1
	case n < 0:
		idx = count + n
	default:
		return 0, fmt.Errorf("vertex index 0 is invalid")
	}
	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("vertex index %d out of range", n)
	}
	return idx, nil
}
