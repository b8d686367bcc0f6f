// Package gltfmesh converts between glTF 2.0 documents and indexed meshes.
package gltfmesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// maxNodeDepth bounds the scene graph walk so a cyclic document cannot recurse forever
const maxNodeDepth = 64

// ReadScene opens a .gltf or .glb file and returns one scene member per
// mesh instance, with node transforms baked into the vertex positions.
// Primitives that are points or lines are dropped.
func ReadScene(path string) (*mesh.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open glTF: %w", err)
	}
	return DocumentScene(doc)
}

// DocumentScene converts an already decoded document
func DocumentScene(doc *gltf.Document) (*mesh.Scene, error) {
	scene := mesh.NewScene()
	r := &reader{doc: doc, scene: scene}

	roots, ok := r.rootNodes()
	if !ok {
		// No scene graph: take every mesh as-is
		for i := range doc.Meshes {
			if err := r.addMesh(uint32(i), "", geometry.Identity()); err != nil {
				return nil, err
			}
		}
		return scene, nil
	}

	for _, n := range roots {
		if err := r.walk(n, geometry.Identity(), 0); err != nil {
			return nil, err
		}
	}
	return scene, nil
}

type reader struct {
	doc   *gltf.Document
	scene *mesh.Scene
}

func (r *reader) rootNodes() ([]uint32, bool) {
	if len(r.doc.Scenes) == 0 {
		return nil, false
	}
	idx := uint32(0)
	if r.doc.Scene != nil && int(*r.doc.Scene) < len(r.doc.Scenes) {
		idx = *r.doc.Scene
	}
	return r.doc.Scenes[idx].Nodes, true
}

func (r *reader) walk(nodeIdx uint32, parent geometry.Matrix4, depth int) error {
	if depth > maxNodeDepth {
		return fmt.Errorf("node hierarchy deeper than %d levels", maxNodeDepth)
	}
	if int(nodeIdx) >= len(r.doc.Nodes) {
		return fmt.Errorf("scene references missing node %d", nodeIdx)
	}
	node := r.doc.Nodes[nodeIdx]
	world := parent.Mul(localTransform(node))

	if node.Mesh != nil {
		if err := r.addMesh(*node.Mesh, node.Name, world); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := r.walk(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) addMesh(meshIdx uint32, nodeName string, world geometry.Matrix4) error {
	if int(meshIdx) >= len(r.doc.Meshes) {
		return fmt.Errorf("node references missing mesh %d", meshIdx)
	}
	gm := r.doc.Meshes[meshIdx]

	var parts []*mesh.Mesh
	for pi, prim := range gm.Primitives {
		part, err := r.primitive(prim)
		if err != nil {
			return fmt.Errorf("mesh %d primitive %d: %w", meshIdx, pi, err)
		}
		if part != nil {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	m := mesh.Concatenate(parts...)
	m.Transform(world.TransformPoint)
	if world.Determinant3() < 0 {
		m.Invert()
	}

	name := gm.Name
	if name == "" {
		name = nodeName
	}
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIdx)
	}
	r.scene.Add(name, m)
	return nil
}

// primitive returns nil for primitives that are not triangle surfaces
func (r *reader) primitive(prim *gltf.Primitive) (*mesh.Mesh, error) {
	switch prim.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return nil, nil
	}

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil
	}
	positions, err := r.readPositions(posIdx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = r.readIndices(*prim.Indices); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, fmt.Errorf("index %d out of range for %d positions", idx, len(positions))
		}
	}

	faces := triangulate(prim.Mode, indices)
	if len(faces) == 0 {
		return nil, nil
	}
	return mesh.New(positions, faces), nil
}

func triangulate(mode gltf.PrimitiveMode, idx []uint32) []mesh.Face {
	var faces []mesh.Face
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				faces = append(faces, mesh.Face{int(idx[i]), int(idx[i+1]), int(idx[i+2])})
			} else {
				faces = append(faces, mesh.Face{int(idx[i+1]), int(idx[i]), int(idx[i+2])})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			faces = append(faces, mesh.Face{int(idx[0]), int(idx[i]), int(idx[i+1])})
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			faces = append(faces, mesh.Face{int(idx[i]), int(idx[i+1]), int(idx[i+2])})
		}
	}
	return faces
}

// accessorData returns the bytes backing an accessor and the distance between elements
func (r *reader) accessorData(accIdx uint32, elemSize int) (*gltf.Accessor, []byte, int, error) {
	if int(accIdx) >= len(r.doc.Accessors) {
		return nil, nil, 0, fmt.Errorf("missing accessor %d", accIdx)
	}
	acc := r.doc.Accessors[accIdx]
	if acc.Sparse != nil {
		return nil, nil, 0, fmt.Errorf("sparse accessor %d is not supported", accIdx)
	}
	if acc.BufferView == nil {
		return nil, nil, 0, fmt.Errorf("accessor %d has no buffer view", accIdx)
	}
	if int(*acc.BufferView) >= len(r.doc.BufferViews) {
		return nil, nil, 0, fmt.Errorf("accessor %d references missing buffer view", accIdx)
	}
	view := r.doc.BufferViews[*acc.BufferView]
	if int(view.Buffer) >= len(r.doc.Buffers) {
		return nil, nil, 0, fmt.Errorf("buffer view references missing buffer %d", view.Buffer)
	}
	buf := r.doc.Buffers[view.Buffer].Data

	stride := int(view.ByteStride)
	if stride == 0 {
		stride = elemSize
	}
	start := int(view.ByteOffset) + int(acc.ByteOffset)
	viewEnd := int(view.ByteOffset) + int(view.ByteLength)
	if acc.Count > 0 {
		last := start + (int(acc.Count)-1)*stride + elemSize
		if last > viewEnd || viewEnd > len(buf) {
			return nil, nil, 0, fmt.Errorf("accessor %d overruns its buffer", accIdx)
		}
	}
	return acc, buf[start:min(viewEnd, len(buf))], stride, nil
}

func (r *reader) readPositions(accIdx uint32) ([]geometry.Vector3, error) {
	if int(accIdx) >= len(r.doc.Accessors) {
		return nil, fmt.Errorf("missing accessor %d", accIdx)
	}
	if a := r.doc.Accessors[accIdx]; a.Type != gltf.AccessorVec3 || a.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("positions must be float VEC3")
	}
	acc, data, stride, err := r.accessorData(accIdx, 12)
	if err != nil {
		return nil, err
	}

	out := make([]geometry.Vector3, acc.Count)
	for i := range out {
		o := i * stride
		v := geometry.NewVector3(
			float64(math.Float32frombits(binary.LittleEndian.Uint32(data[o:]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(data[o+4:]))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(data[o+8:]))),
		)
		if !v.IsFinite() {
			return nil, fmt.Errorf("position %d is not finite", i)
		}
		out[i] = v
	}
	return out, nil
}

func (r *reader) readIndices(accIdx uint32) ([]uint32, error) {
	if int(accIdx) >= len(r.doc.Accessors) {
		return nil, fmt.Errorf("missing accessor %d", accIdx)
	}
	var size int
	switch r.doc.Accessors[accIdx].ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unsupported index component type")
	}

	acc, data, stride, err := r.accessorData(accIdx, size)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, acc.Count)
	for i := range out {
		o := i * stride
		switch size {
		case 1:
			out[i] = uint32(data[o])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(data[o:]))
		default:
			out[i] = binary.LittleEndian.Uint32(data[o:])
		}
	}
	return out, nil
}

// localTransform prefers an explicit matrix and falls back to TRS.
// Unset fields (all zero) are read as their glTF defaults.
func localTransform(node *gltf.Node) geometry.Matrix4 {
	m := toMatrix(node.Matrix)
	if !m.IsZero() && m != geometry.Identity() {
		return m
	}

	t := toVector(node.Translation)
	q := toQuat(node.Rotation)
	if q == [4]float64{} {
		q = [4]float64{0, 0, 0, 1}
	}
	s := toVector(node.Scale)
	if s == (geometry.Vector3{}) {
		s = geometry.NewVector3(1, 1, 1)
	}
	return geometry.FromTRS(t, q, s)
}

func toVector[T float32 | float64](a [3]T) geometry.Vector3 {
	return geometry.NewVector3(float64(a[0]), float64(a[1]), float64(a[2]))
}

func toQuat[T float32 | float64](a [4]T) [4]float64 {
	return [4]float64{float64(a[0]), float64(a[1]), float64(a[2]), float64(a[3])}
}

func toMatrix[T float32 | float64](a [16]T) geometry.Matrix4 {
	var m geometry.Matrix4
	for i, v := range a {
		m[i] = float64(v)
	}
	return m
}
