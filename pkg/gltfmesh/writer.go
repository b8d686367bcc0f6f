package gltfmesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"

	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// Generator is recorded in the asset block of written documents
const Generator = "draw3d"

// BuildDocument packs every scene member into a single-buffer glTF document,
// one node per member. Indices are uint32, positions float32.
func BuildDocument(scene *mesh.Scene) (*gltf.Document, error) {
	doc := &gltf.Document{
		Asset:  gltf.Asset{Version: "2.0", Generator: Generator},
		Scene:  uint32Ptr(0),
		Scenes: []*gltf.Scene{{Name: "scene"}},
	}

	var buf bytes.Buffer
	for _, name := range scene.Names() {
		m, _ := scene.Get(name)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}
		if m.IsEmpty() {
			continue
		}

		// Indices
		idxView := appendView(doc, &buf, func(w *bytes.Buffer) {
			for _, f := range m.Faces {
				for _, i := range f {
					binary.Write(w, binary.LittleEndian, uint32(i))
				}
			}
		})
		idxAcc := uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    uint32Ptr(idxView),
			ComponentType: gltf.ComponentUint,
			Count:         uint32(len(m.Faces) * 3),
			Type:          gltf.AccessorScalar,
		})

		// Positions
		posView := appendView(doc, &buf, func(w *bytes.Buffer) {
			for _, v := range m.Vertices {
				for _, c := range [3]float64{v.X, v.Y, v.Z} {
					binary.Write(w, binary.LittleEndian, math.Float32bits(float32(c)))
				}
			}
		})
		posAcc := uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    uint32Ptr(posView),
			ComponentType: gltf.ComponentFloat,
			Count:         uint32(len(m.Vertices)),
			Type:          gltf.AccessorVec3,
		})

		meshIdx := uint32(len(doc.Meshes))
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name: name,
			Primitives: []*gltf.Primitive{{
				Attributes: gltf.Attribute{"POSITION": posAcc},
				Indices:    uint32Ptr(idxAcc),
				Mode:       gltf.PrimitiveTriangles,
			}},
		})
		node := &gltf.Node{Name: name, Mesh: uint32Ptr(meshIdx)}
		identityTransform(node)
		doc.Nodes = append(doc.Nodes, node)
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	}

	doc.Buffers = []*gltf.Buffer{{ByteLength: uint32(buf.Len()), Data: buf.Bytes()}}
	return doc, nil
}

// appendView writes one block into the shared buffer, 4-byte aligned, and
// returns the index of the buffer view covering it
func appendView(doc *gltf.Document, buf *bytes.Buffer, fill func(*bytes.Buffer)) uint32 {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	offset := buf.Len()
	fill(buf)
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(offset),
		ByteLength: uint32(buf.Len() - offset),
	})
	return uint32(len(doc.BufferViews) - 1)
}

// WriteGLB writes the scene as a binary glTF file, replacing path atomically
func WriteGLB(path string, scene *mesh.Scene) error {
	doc, err := BuildDocument(scene)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	encoder := gltf.NewEncoder(tmp)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode glTF: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// WriteMeshGLB writes a single mesh as a one-node GLB
func WriteMeshGLB(path, name string, m *mesh.Mesh) error {
	scene := mesh.NewScene()
	scene.Add(name, m)
	return WriteGLB(path, scene)
}

// identityTransform spells out the glTF defaults so the encoder can omit them
func identityTransform(n *gltf.Node) {
	for i := 0; i < 16; i += 5 {
		n.Matrix[i] = 1
	}
	n.Rotation[3] = 1
	n.Scale[0], n.Scale[1], n.Scale[2] = 1, 1, 1
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}
