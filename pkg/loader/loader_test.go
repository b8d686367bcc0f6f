package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/gltfmesh"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh/meshtest"
	"github.com/nQrChao/kids-draw-3d/pkg/stl"
)

const twoObjects = `# two tetrahedra
o first
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
f 1 3 2
f 1 2 4
f 1 4 3
f 2 3 4
o second
v 5 0 0
v 6 0 0
v 5 1 0
v 5 0 1
f -4 -2 -3
f -4 -3 -1
f -4 -1 -2
f -3 -2 -1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFlattensScene(t *testing.T) {
	path := writeFile(t, "pair.obj", twoObjects)

	scene, err := LoadScene(path)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, scene.Names())
	first, _ := scene.Get("first")
	second, _ := scene.Get("second")
	f1, f2 := first.FaceCount(), second.FaceCount()

	m, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, f1+f2, m.FaceCount())
	assert.Equal(t, 8, m.VertexCount())

	// second object's faces are offset past the first object's vertices
	for _, f := range m.Faces[f1:] {
		for _, idx := range f {
			assert.GreaterOrEqual(t, idx, first.VertexCount())
		}
	}
	assert.True(t, m.IsWatertight())
	assert.Len(t, m.Components(), 2)
}

func TestOBJPolygonsAndPrimitives(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
p 1
l 1 2
f 1/1/1 2/2/1 3/3/1 4/4/1
`
	m, err := Load(writeFile(t, "quad.obj", src))
	require.NoError(t, err)
	assert.Equal(t, []mesh.Face{{0, 1, 2}, {0, 2, 3}}, m.Faces)
}

func TestOBJOnlyPointsIsEmptyScene(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\np 1 2\nl 1 2\n"
	_, err := Load(writeFile(t, "points.obj", src))

	var emptyErr *EmptySceneError
	require.True(t, errors.As(err, &emptyErr))
	assert.True(t, errors.Is(err, mesh.ErrEmptyScene))
}

func TestOBJRejectsBadIndices(t *testing.T) {
	for name, src := range map[string]string{
		"zero":    "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"range":   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n",
		"short":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"garbage": "v 0 zero 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, name+".obj", src))
			var loadErr *LoadError
			assert.True(t, errors.As(err, &loadErr))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.glb"))

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(writeFile(t, "model.fbx", "binary"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.False(t, Supported("model.fbx"))
	assert.True(t, Supported("MODEL.GLB"))
}

func TestLoadCorruptSTL(t *testing.T) {
	_, err := Load(writeFile(t, "bad.stl", strings.Repeat("x", 20)))
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoadASCIISTLWithNaNFails(t *testing.T) {
	doc := "solid nan\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex nan 0 0\nvertex 0 1 0\nendloop\nendfacet\nendsolid nan\n"
	_, err := Load(writeFile(t, "nan.stl", doc))
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestLoadSTLPassesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, stl.WriteFile(path, meshtest.Cube(3)))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, m.FaceCount())
	assert.Equal(t, 8, m.VertexCount())
	assert.True(t, m.IsWatertight())
}

func TestLoadGLBScene(t *testing.T) {
	scene := mesh.NewScene()
	scene.Add("a", meshtest.Cube(1))
	scene.Add("b", meshtest.Translated(meshtest.Cube(1), geometry.NewVector3(3, 0, 0)))
	path := filepath.Join(t.TempDir(), "scene.glb")
	require.NoError(t, gltfmesh.WriteGLB(path, scene))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 24, m.FaceCount())
	assert.Equal(t, 16, m.VertexCount())
	assert.InDelta(t, 4.0, m.Extents().X, 1e-6)
}
