// Package preview renders a shaded thumbnail of a mesh without a GPU.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// Options control the rendered image
type Options struct {
	Size        int // width and height in pixels
	Supersample int
	Background  color.RGBA
	Front       color.RGBA // faces whose outward side faces the camera
	Back        color.RGBA // faces seen from inside, e.g. through a hole
}

// DefaultOptions renders a 256 pixel square
func DefaultOptions() Options {
	return Options{
		Size:        256,
		Supersample: 2,
		Background:  color.RGBA{R: 245, G: 245, B: 245, A: 255},
		Front:       color.RGBA{R: 90, G: 150, B: 230, A: 255},
		Back:        color.RGBA{R: 230, G: 110, B: 90, A: 255},
	}
}

// Render draws m seen from a camera framing its bounding box. Lighting
// follows the camera so visible front faces are never black.
func Render(m *mesh.Mesh, opts Options) *image.RGBA {
	ss := max(opts.Supersample, 1)
	size := opts.Size * ss
	c := newCanvas(size, size, opts.Background)

	if len(m.Faces) > 0 {
		cam := NewCamera(m.Bounds())
		drawMesh(c, m, cam, opts)
	}
	if ss == 1 {
		return c.img
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	draw.CatmullRom.Scale(out, out.Bounds(), c.img, c.img.Bounds(), draw.Src, nil)
	return out
}

func drawMesh(c *canvas, m *mesh.Mesh, cam *Camera, opts Options) {
	w := float64(c.img.Bounds().Dx())
	h := float64(c.img.Bounds().Dy())
	eye := cam.Position()

	projected := make([]point, len(m.Vertices))
	for i, v := range m.Vertices {
		x, y, z := cam.Project(v, w, h)
		projected[i] = point{x, y, z}
	}

	for i, f := range m.Faces {
		a, b, p := projected[f[0]], projected[f[1]], projected[f[2]]
		if a.z <= 0 || b.z <= 0 || p.z <= 0 {
			continue
		}

		normal := m.FaceNormal(i)
		toEye := eye.Sub(m.Triangle(i).Center()).Normalize()
		facing := normal.Dot(toEye)

		base := opts.Front
		if facing < 0 {
			base = opts.Back
			facing = -facing
		}
		c.fill(a, b, p, shade(base, 0.35+0.65*facing))
	}
}

func shade(col color.RGBA, intensity float64) color.RGBA {
	k := math.Max(0, math.Min(1, intensity))
	return color.RGBA{
		R: uint8(float64(col.R) * k),
		G: uint8(float64(col.G) * k),
		B: uint8(float64(col.B) * k),
		A: col.A,
	}
}

// WritePNG renders m and writes it to path through a temporary file
func WritePNG(path string, m *mesh.Mesh, opts Options) error {
	if opts.Size <= 0 {
		return fmt.Errorf("preview size must be positive, got %d", opts.Size)
	}
	img := Render(m, opts)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create preview: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
