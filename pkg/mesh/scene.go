package mesh

import (
	"errors"
	"fmt"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
)

// ErrEmptyScene is returned when flattening a scene with no usable geometry
var ErrEmptyScene = errors.New("scene contains no triangulated geometry")

// Scene is a transient, ordered collection of named meshes read from a
// multi-object file. It exists only until Flatten merges it.
type Scene struct {
	names  []string
	meshes map[string]*Mesh
}

// NewScene creates an empty scene
func NewScene() *Scene {
	return &Scene{meshes: make(map[string]*Mesh)}
}

// Add stores a mesh under name. Duplicate names get a numeric suffix so no
// member is silently replaced.
func (s *Scene) Add(name string, m *Mesh) string {
	key := name
	for i := 1; ; i++ {
		if _, exists := s.meshes[key]; !exists {
			break
		}
		key = fmt.Sprintf("%s.%d", name, i)
	}
	s.names = append(s.names, key)
	s.meshes[key] = m
	return key
}

// Names returns member names in insertion order
func (s *Scene) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns the mesh stored under name
func (s *Scene) Get(name string) (*Mesh, bool) {
	m, ok := s.meshes[name]
	return m, ok
}

// Len returns the number of members
func (s *Scene) Len() int {
	return len(s.names)
}

// Flatten unions every member with faces into one mesh, in insertion order.
// Members without faces (points, curves) are skipped.
func (s *Scene) Flatten() (*Mesh, error) {
	var parts []*Mesh
	for _, name := range s.names {
		m := s.meshes[name]
		if m == nil || m.IsEmpty() {
			continue
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("scene member %q: %w", name, err)
		}
		parts = append(parts, m)
	}
	if len(parts) == 0 {
		return nil, ErrEmptyScene
	}
	return Concatenate(parts...), nil
}

// Concatenate joins meshes into a new mesh, offsetting each part's face
// indices by the number of vertices that precede it
func Concatenate(parts ...*Mesh) *Mesh {
	nv, nf := 0, 0
	for _, p := range parts {
		nv += len(p.Vertices)
		nf += len(p.Faces)
	}

	out := &Mesh{
		Vertices: make([]geometry.Vector3, 0, nv),
		Faces:    make([]Face, 0, nf),
	}
	for _, p := range parts {
		offset := len(out.Vertices)
		out.Vertices = append(out.Vertices, p.Vertices...)
		for _, f := range p.Faces {
			out.Faces = append(out.Faces, Face{f[0] + offset, f[1] + offset, f[2] + offset})
		}
	}
	return out
}
