package repair

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh/meshtest"
)

func newEngine() *Engine {
	return NewEngine(DefaultOptions(), zap.NewNop())
}

func TestEngineFillsOpenBox(t *testing.T) {
	m := meshtest.OpenBox(1)
	require.False(t, m.IsWatertight())

	report := newEngine().Run(m)

	assert.True(t, report.Watertight)
	assert.True(t, m.IsWatertight())
	assert.Empty(t, report.Failures())
	assert.Equal(t, 12, m.FaceCount())

	volume, err := m.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, volume, 1e-9)
}

func TestEngineFixesInvertedCube(t *testing.T) {
	m := meshtest.Cube(2)
	m.Invert()
	require.Less(t, m.SignedVolume(), 0.0)

	report := newEngine().Run(m)

	assert.True(t, report.Watertight)
	volume, err := m.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 8.0, volume, 1e-9)
}

// hollowCube is a 3 mm cube with a 1 mm cavity in the middle. The cavity
// faces point into the void, so the solid volume is 26.
func hollowCube() *mesh.Mesh {
	inner := meshtest.Translated(meshtest.Cube(1), geometry.NewVector3(1, 1, 1))
	inner.Invert()
	return mesh.Concatenate(meshtest.Cube(3), inner)
}

func TestEngineKeepsCavityInward(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *mesh.Mesh)
	}{
		{"correct", func(*mesh.Mesh) {}},
		{"cavity facing out", func(m *mesh.Mesh) {
			for i := 12; i < 24; i++ {
				m.Faces[i] = m.Faces[i].Reversed()
			}
		}},
		{"whole solid inverted", func(m *mesh.Mesh) { m.Invert() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := hollowCube()
			tt.setup(m)

			report := newEngine().Run(m)

			assert.Empty(t, report.Failures())
			assert.True(t, report.Watertight)
			volume, err := m.Volume()
			require.NoError(t, err)
			assert.InDelta(t, 26.0, volume, 1e-9)
		})
	}
}

func TestFixNormalsOrientsIntersectingShellsOutward(t *testing.T) {
	second := meshtest.Translated(meshtest.Cube(2), geometry.NewVector3(1, 1, 1))
	second.Invert()
	m := mesh.Concatenate(meshtest.Cube(2), second)

	require.NoError(t, FixNormals(m))

	assert.Greater(t, m.Submesh([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}).SignedVolume(), 0.0)
	assert.InDelta(t, 16.0, m.SignedVolume(), 1e-9)
}

func TestEngineFixesFlippedFace(t *testing.T) {
	m := meshtest.Cube(1)
	m.Faces[5] = m.Faces[5].Reversed()
	require.False(t, m.IsWindingConsistent())

	report := newEngine().Run(m)

	assert.True(t, report.WindingConsistent)
	assert.True(t, report.Watertight)
	assert.Greater(t, m.SignedVolume(), 0.0)
}

func TestFixWindingKeepsSeedFace(t *testing.T) {
	m := meshtest.Cube(1)
	m.Faces[0] = m.Faces[0].Reversed()

	require.NoError(t, FixWinding(m))
	assert.True(t, m.IsWindingConsistent())
	// the seed was wrong, so the whole cube now winds inward
	assert.Less(t, m.SignedVolume(), 0.0)

	require.NoError(t, FixInversion(m))
	assert.Greater(t, m.SignedVolume(), 0.0)
}

func TestFixInversionNeedsWatertight(t *testing.T) {
	err := FixInversion(meshtest.OpenBox(1))
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestFixNormalsOrientsOpenSurfaceOutward(t *testing.T) {
	m := meshtest.OpenBox(2)
	m.Invert()

	require.NoError(t, FixNormals(m))
	for i := range m.Faces {
		tri := m.Triangle(i)
		outward := tri.Center().Sub(geometry.NewVector3(1, 1, 1))
		assert.Greater(t, tri.Normal.Dot(outward), 0.0, "face %d", i)
	}
}

func TestFillHolesSkipsWatertight(t *testing.T) {
	assert.ErrorIs(t, FillHoles(meshtest.Cube(1)), ErrNotApplicable)
}

func TestBoundaryLoops(t *testing.T) {
	loops, skipped := BoundaryLoops(meshtest.OpenBox(1))
	require.Len(t, loops, 1)
	assert.Len(t, loops[0], 4)
	assert.Zero(t, skipped)
	assert.ElementsMatch(t, []int{4, 5, 6, 7}, loops[0])
}

func TestFillLoopFallsBackToFan(t *testing.T) {
	m := mesh.New([]geometry.Vector3{
		{X: 0}, {X: 1}, {X: 2}, {X: 3},
	}, nil)
	loop := []int{0, 1, 2, 3}

	faces := fillLoop(m, loop)
	assert.Len(t, faces, 4)
	assert.Equal(t, 5, m.VertexCount())
	assert.InDelta(t, 1.5, m.Vertices[4].X, 1e-12)
}

func TestEarClipConcaveLoop(t *testing.T) {
	// an L-shaped hexagon, counter-clockwise seen from +Z
	vertices := []geometry.Vector3{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1},
		{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2},
	}
	faces, ok := earClip(vertices, []int{0, 1, 2, 3, 4, 5})
	require.True(t, ok)
	require.Len(t, faces, 4)

	m := mesh.New(vertices, faces)
	assert.InDelta(t, 3.0, m.SurfaceArea(), 1e-12)
	for i := range m.Faces {
		assert.Greater(t, m.FaceNormal(i).Z, 0.0)
	}
}

func TestCleanupRemovesDegenerateFace(t *testing.T) {
	m := meshtest.Cube(1)
	m.Vertices = append(m.Vertices, m.Vertices[0])
	m.Faces = append(m.Faces, mesh.Face{0, 8, 1})

	stats := Cleanup(m, DefaultOptions())

	assert.Equal(t, 1, stats.MergedVertices)
	assert.Equal(t, 1, stats.DegenerateFaces)
	assert.Equal(t, 12, m.FaceCount())
	require.NoError(t, m.Validate())
	assert.True(t, m.IsWatertight())
}

func TestEngineRemovesDegenerateFace(t *testing.T) {
	m := meshtest.Cube(1)
	m.Vertices = append(m.Vertices, m.Vertices[1])
	m.Faces = append(m.Faces, mesh.Face{0, 1, 8})
	before := m.FaceCount()

	newEngine().Run(m)

	assert.LessOrEqual(t, m.FaceCount(), before-1)
	require.NoError(t, m.Validate())
}

func TestRemoveDuplicateFaces(t *testing.T) {
	m := meshtest.Cube(1)
	m.Faces = append(m.Faces, m.Faces[3], mesh.Face{m.Faces[0][1], m.Faces[0][2], m.Faces[0][0]})

	assert.Equal(t, 2, RemoveDuplicateFaces(m))
	assert.Equal(t, 12, m.FaceCount())
	assert.True(t, m.IsWatertight())
}

func TestMergeVerticesTolerance(t *testing.T) {
	m := mesh.New([]geometry.Vector3{
		{X: 0}, {X: 1e-9}, {X: 1e-6}, {X: 1}, {Y: 1},
	}, []mesh.Face{{0, 3, 4}, {1, 3, 4}, {2, 3, 4}})

	assert.Equal(t, 1, MergeVertices(m, 1e-8))
	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, m.Faces[0], m.Faces[1])
	assert.NotEqual(t, m.Faces[0], m.Faces[2])
}

func TestRemoveUnreferencedVertices(t *testing.T) {
	m := meshtest.Cube(1)
	m.Vertices = append([]geometry.Vector3{{X: 9}}, m.Vertices...)
	for i, f := range m.Faces {
		m.Faces[i] = mesh.Face{f[0] + 1, f[1] + 1, f[2] + 1}
	}

	assert.Equal(t, 1, RemoveUnreferencedVertices(m))
	assert.Equal(t, meshtest.Cube(1).Vertices, m.Vertices)
	assert.Equal(t, meshtest.Cube(1).Faces, m.Faces)
}

// mobius is a three-quad Möbius strip, which no winding can make consistent
func mobius() *mesh.Mesh {
	const a0, a1, a2, b0, b1, b2 = 0, 1, 2, 3, 4, 5
	quads := [][4]int{{a0, a1, b1, b0}, {a1, a2, b2, b1}, {a2, b0, a0, b2}}
	m := mesh.New(make([]geometry.Vector3, 6), nil)
	for i := range m.Vertices {
		m.Vertices[i] = geometry.NewVector3(float64(i), float64(i*i), float64(i%2))
	}
	for _, q := range quads {
		m.Faces = append(m.Faces, mesh.Face{q[0], q[1], q[2]}, mesh.Face{q[0], q[2], q[3]})
	}
	return m
}

func TestNonOrientableSurface(t *testing.T) {
	assert.ErrorIs(t, FixWinding(mobius()), ErrNonOrientable)
	assert.ErrorIs(t, FixNormals(mobius()), ErrNonOrientable)
}

func TestEngineRollsBackFailedSteps(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	boom := errors.New("boom")
	steps := []Step{
		{Name: "corrupt_then_fail", Apply: func(m *mesh.Mesh) error {
			m.Faces = m.Faces[:1]
			m.Vertices[0] = geometry.NewVector3(100, 100, 100)
			return boom
		}},
		{Name: "panics", Apply: func(m *mesh.Mesh) error {
			m.Faces = nil
			panic("index out of range")
		}},
		{Name: "bad_indices", Apply: func(m *mesh.Mesh) error {
			m.Faces[0] = mesh.Face{0, 1, 99}
			return nil
		}},
		{Name: "not_applicable", Apply: func(*mesh.Mesh) error { return ErrNotApplicable }},
		{Name: "scale", Apply: func(m *mesh.Mesh) error {
			m.Scale(2)
			return nil
		}},
	}
	m := meshtest.Cube(1)

	report := NewEngineWithSteps(steps, zap.New(core)).Run(m)

	require.Len(t, report.Steps, 5)
	failures := report.Failures()
	require.Len(t, failures, 3)
	assert.Equal(t, "corrupt_then_fail", failures[0].Step)
	assert.ErrorIs(t, failures[0], boom)
	assert.Equal(t, "panics", failures[1].Step)
	assert.Equal(t, "bad_indices", failures[2].Step)
	assert.True(t, report.Steps[3].Skipped)
	assert.False(t, report.Steps[4].Failed())

	assert.Equal(t, 12, m.FaceCount())
	assert.True(t, report.Watertight)
	assert.InDelta(t, 2.0, m.Extents().X, 1e-12)
	assert.Equal(t, 3, logs.FilterMessage("repair step failed, mesh left unchanged").Len())
}

func TestEngineNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nv := rapid.IntRange(3, 10).Draw(t, "vertices")
		coord := rapid.Float64Range(-10, 10)
		vertices := make([]geometry.Vector3, nv)
		for i := range vertices {
			vertices[i] = geometry.NewVector3(coord.Draw(t, "x"), coord.Draw(t, "y"), coord.Draw(t, "z"))
		}
		idx := rapid.IntRange(0, nv-1)
		nf := rapid.IntRange(0, 16).Draw(t, "faces")
		faces := make([]mesh.Face, nf)
		for i := range faces {
			faces[i] = mesh.Face{idx.Draw(t, "a"), idx.Draw(t, "b"), idx.Draw(t, "c")}
		}
		m := mesh.New(vertices, faces)

		report := newEngine().Run(m)
		if err := m.Validate(); err != nil {
			t.Fatalf("invalid mesh after repair: %v", err)
		}
		if report.Watertight != m.IsWatertight() {
			t.Fatalf("report disagrees with mesh")
		}
	})
}
