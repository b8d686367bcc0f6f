package generator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nQrChao/kids-draw-3d/pkg/loader"
)

// writeDrawing saves a white canvas with a black square in the middle
func writeDrawing(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x > w/4 && x < 3*w/4 && y > h/4 && y < 3*h/4 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, "drawing.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestReliefIsClosed(t *testing.T) {
	const n = 4
	heights := make([]float64, n*n)
	for i := range heights {
		heights[i] = 1 + float64(i%3)
	}

	m := Relief(heights, n, 0.5)

	require.NoError(t, m.Validate())
	assert.True(t, m.IsWatertight())
	assert.True(t, m.IsWindingConsistent())
	assert.Equal(t, 2*n*n, m.VertexCount())
	assert.Equal(t, 4*(n-1)*(n-1)+8*(n-1), m.FaceCount())
	assert.Greater(t, m.SignedVolume(), 0.0)
}

func TestFlatReliefVolume(t *testing.T) {
	const n = 3
	heights := []float64{2, 2, 2, 2, 2, 2, 2, 2, 2}

	m := Relief(heights, n, 1)
	volume, err := m.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 2*2*2.0, volume, 1e-9)
}

func TestHeightmapGeneratorProducesLoadableSolid(t *testing.T) {
	dir := t.TempDir()
	img := writeDrawing(t, dir, 40, 20)
	out := filepath.Join(dir, "task_model.glb")

	g := NewHeightmapGenerator(16, 0.1, 10, 1)
	require.NoError(t, g.Generate(context.Background(), img, out))

	m, err := loader.Load(out)
	require.NoError(t, err)
	assert.True(t, m.IsWatertight())

	b := m.Bounds()
	assert.InDelta(t, 1.5, b.Size().X, 1e-6)
	assert.InDelta(t, 1.5, b.Size().Y, 1e-6)
	assert.InDelta(t, 0.0, b.Min.Z, 1e-6)
	assert.Greater(t, b.Max.Z, 5.0)
	assert.LessOrEqual(t, b.Max.Z, 11.0+1e-6)
}

func TestHeightsInvertBrightness(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint8(255)
			if x < 4 {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	heights := NewHeightmapGenerator(8, 1, 10, 1).Heights(img)
	assert.InDelta(t, 11.0, heights[0], 0.5) // dark, left
	assert.InDelta(t, 1.0, heights[7], 0.5)  // white, right
}

func TestHeightmapRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "drawing.png")
	require.NoError(t, os.WriteFile(img, []byte("not an image"), 0644))

	err := NewHeightmapGenerator(8, 0.1, 10, 1).Generate(context.Background(), img, filepath.Join(dir, "out.glb"))
	assert.Error(t, err)
}

func TestCommandGeneratorUnavailable(t *testing.T) {
	g := NewCommandGenerator("definitely-not-a-real-generator", nil, 0, "")
	err := g.Generate(context.Background(), "in.png", "out.glb")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.ErrorIs(t, NewCommandGenerator("", nil, 0, "").Available(), ErrUnavailable)
}

func TestCommandGeneratorRuns(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(in, []byte("model"), 0644))
	out := filepath.Join(dir, "copy.glb")

	g := NewCommandGenerator("cp", []string{"{input}", "{output}"}, 0, dir)
	require.NoError(t, g.Generate(context.Background(), in, out))
	assert.FileExists(t, out)
}

func TestCommandGeneratorReportsFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	g := NewCommandGenerator("false", nil, 0, "")
	err := g.Generate(context.Background(), "in.png", filepath.Join(t.TempDir(), "out.glb"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

type stubGenerator struct {
	name  string
	err   error
	calls int
}

func (s *stubGenerator) Name() string { return s.name }

func (s *stubGenerator) Generate(_ context.Context, _, out string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(out, []byte(s.name), 0644)
}

type countingRecorder map[string]int

func (r countingRecorder) RecordGenerator(name, status string) { r[name+"/"+status]++ }

func TestChainFallsBack(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.glb")
	primary := &stubGenerator{name: "primary", err: errors.New("service down")}
	fallback := &stubGenerator{name: "fallback"}
	rec := countingRecorder{}

	chain := NewChain(primary, fallback, zap.NewNop(), rec)
	require.NoError(t, chain.Generate(context.Background(), "in.png", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "fallback", string(data))
	assert.Equal(t, 1, rec["primary/error"])
	assert.Equal(t, 1, rec["fallback/success"])
}

func TestChainPrefersPrimary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.glb")
	primary := &stubGenerator{name: "primary"}
	fallback := &stubGenerator{name: "fallback"}

	require.NoError(t, NewChain(primary, fallback, nil, nil).Generate(context.Background(), "in.png", out))
	assert.Equal(t, 0, fallback.calls)
}

func TestChainWithoutPrimary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.glb")
	fallback := &stubGenerator{name: "fallback"}

	require.NoError(t, NewChain(nil, fallback, nil, nil).Generate(context.Background(), "in.png", out))
	assert.Equal(t, 1, fallback.calls)

	assert.ErrorIs(t, NewChain(nil, nil, nil, nil).Generate(context.Background(), "in.png", out), ErrUnavailable)
}

func TestChainBothFail(t *testing.T) {
	boom := errors.New("relief failed")
	chain := NewChain(&stubGenerator{name: "p", err: errors.New("down")}, &stubGenerator{name: "f", err: boom}, nil, nil)
	assert.ErrorIs(t, chain.Generate(context.Background(), "in.png", filepath.Join(t.TempDir(), "x.glb")), boom)
}
