package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/loader"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh/meshtest"
	"github.com/nQrChao/kids-draw-3d/pkg/stl"
)

func TestCheckCube(t *testing.T) {
	report := Check(meshtest.Cube(2))

	assert.True(t, report.IsWatertight)
	assert.True(t, report.IsWindingConsistent)
	assert.True(t, report.Printable)
	require.NotNil(t, report.Volume)
	assert.InDelta(t, 8.0, *report.Volume, 1e-9)
	assert.Equal(t, Dimensions{X: 2, Y: 2, Z: 2}, report.Dimensions)
	assert.Equal(t, 12, report.FaceCount)
	assert.Equal(t, 8, report.VertexCount)
	assert.InDelta(t, 24.0, report.SurfaceArea, 1e-9)
	assert.Zero(t, report.BoundaryEdgeCount)
	assert.Equal(t, 36, report.Edges.Count)
	assert.InDelta(t, 2.0, report.Edges.Min, 1e-12)
}

func TestCheckOpenBox(t *testing.T) {
	report := Check(meshtest.OpenBox(1))

	assert.False(t, report.IsWatertight)
	assert.False(t, report.Printable)
	assert.Nil(t, report.Volume)
	assert.Equal(t, 4, report.BoundaryEdgeCount)
	assert.Equal(t, "undefined", FormatVolume(report.Volume))

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	volume, present := decoded["volume"]
	assert.True(t, present)
	assert.Nil(t, volume)
}

func TestCheckDoesNotMutate(t *testing.T) {
	m := meshtest.Translated(meshtest.Cube(1), geometry.NewVector3(1, 2, 3))
	before := m.Clone()

	Check(m)
	assert.Equal(t, before, m)
}

func TestCheckEmptyMesh(t *testing.T) {
	report := Check(mesh.New(nil, nil))
	assert.False(t, report.Printable)
	assert.Nil(t, report.Volume)
	assert.Equal(t, Dimensions{}, report.Dimensions)
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cube.stl")
	require.NoError(t, stl.WriteFile(path, meshtest.Cube(10)))

	first, err := CheckFile(path)
	require.NoError(t, err)
	second, err := CheckFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, first.Printable)

	_, err = CheckFile(filepath.Join(dir, "missing.stl"))
	var loadErr *loader.LoadError
	assert.ErrorAs(t, err, &loadErr)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.stl"), []byte("nope"), 0644))
	_, err = CheckFile(filepath.Join(dir, "junk.stl"))
	assert.ErrorAs(t, err, &loadErr)
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "(1.000000, 2.500000, -3.000000)", FormatVector(geometry.NewVector3(1, 2.5, -3)))
}
