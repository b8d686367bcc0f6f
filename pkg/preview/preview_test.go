package preview

import (
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh/meshtest"
)

func TestCameraProjectsTargetToCenter(t *testing.T) {
	bbox := meshtest.Cube(2).Bounds()
	cam := NewCamera(bbox)

	x, y, depth := cam.Project(bbox.Center(), 100, 100)
	if math.Abs(x-50) > 1e-9 || math.Abs(y-50) > 1e-9 {
		t.Errorf("Project(center) = (%f, %f), want (50, 50)", x, y)
	}
	if math.Abs(depth-cam.Distance) > 1e-9 {
		t.Errorf("depth = %f, want %f", depth, cam.Distance)
	}
}

func TestCameraFramesBoundingBox(t *testing.T) {
	m := meshtest.Cube(10)
	cam := NewCamera(m.Bounds())

	for _, v := range m.Vertices {
		x, y, depth := cam.Project(v, 200, 200)
		assert.Greater(t, depth, 0.0)
		assert.True(t, x >= 0 && x <= 200, "x = %f", x)
		assert.True(t, y >= 0 && y <= 200, "y = %f", y)
	}
}

func TestCameraRotateClampsPitch(t *testing.T) {
	cam := NewCamera(meshtest.Cube(1).Bounds())
	cam.Rotate(10, 0)
	if cam.Pitch >= math.Pi/2 {
		t.Errorf("Pitch = %f, want below pi/2", cam.Pitch)
	}
}

func TestRenderCube(t *testing.T) {
	opts := DefaultOptions()
	opts.Size = 64
	img := Render(meshtest.Cube(1), opts)

	require.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, opts.Background, img.RGBAAt(1, 1))
	center := img.RGBAAt(32, 32)
	assert.NotEqual(t, opts.Background, center)
	assert.Greater(t, center.B, center.R, "closed cube should show front faces")
}

func TestRenderShowsInsideThroughHole(t *testing.T) {
	opts := DefaultOptions()
	opts.Size = 64
	opts.Supersample = 1

	closed := Render(meshtest.Cube(1), opts)
	open := Render(meshtest.OpenBox(1), opts)
	assert.NotEqual(t, closed.Pix, open.Pix)
}

func TestRenderEmptyMesh(t *testing.T) {
	opts := DefaultOptions()
	opts.Size = 8
	img := Render(mesh.New(nil, nil), opts)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := img.RGBAAt(x, y); got != opts.Background {
				t.Fatalf("pixel (%d, %d) = %v, want background", x, y, got)
			}
		}
	}
}

func TestFillDepthTest(t *testing.T) {
	bg := color.RGBA{A: 255}
	near := color.RGBA{R: 255, A: 255}
	far := color.RGBA{G: 255, A: 255}
	c := newCanvas(10, 10, bg)

	c.fill(point{0, 0, 1}, point{10, 0, 1}, point{0, 10, 1}, near)
	c.fill(point{0, 0, 5}, point{10, 0, 5}, point{0, 10, 5}, far)

	assert.Equal(t, near, c.img.RGBAAt(1, 1))
	assert.Equal(t, bg, c.img.RGBAAt(9, 9))
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.png")
	opts := DefaultOptions()
	opts.Size = 32

	m := meshtest.Translated(meshtest.Tetrahedron(), geometry.NewVector3(5, 5, 5))
	require.NoError(t, WritePNG(path, m, opts))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	opts.Size = 0
	assert.Error(t, WritePNG(path, m, opts))
}
