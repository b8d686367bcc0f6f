package preview

import (
	"image"
	"image/color"
	"math"
)

// canvas is an image with a depth buffer
type canvas struct {
	img   *image.RGBA
	depth []float64
}

func newCanvas(w, h int, background color.RGBA) *canvas {
	c := &canvas{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		depth: make([]float64, w*h),
	}
	for i := range c.depth {
		c.depth[i] = math.Inf(1)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c.img.SetRGBA(x, y, background)
		}
	}
	return c
}

// point is a projected vertex: pixel position plus view depth
type point struct{ x, y, z float64 }

// fill rasterizes a triangle with depth testing. Pixels are covered when
// their center lies inside the triangle, in either winding.
func (c *canvas) fill(a, b, p point, col color.RGBA) {
	bounds := c.img.Bounds()
	minX := max(int(math.Floor(min(a.x, b.x, p.x))), bounds.Min.X)
	maxX := min(int(math.Ceil(max(a.x, b.x, p.x))), bounds.Max.X-1)
	minY := max(int(math.Floor(min(a.y, b.y, p.y))), bounds.Min.Y)
	maxY := min(int(math.Ceil(max(a.y, b.y, p.y))), bounds.Max.Y-1)

	area := edge(a, b, p.x, p.y)
	if area == 0 {
		return
	}

	width := bounds.Dx()
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b, p, px, py) / area
			w1 := edge(p, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*a.z + w1*b.z + w2*p.z
			idx := y*width + x
			if z < c.depth[idx] {
				c.depth[idx] = z
				c.img.SetRGBA(x, y, col)
			}
		}
	}
}

// edge is twice the signed area of (a, b, (x, y))
func edge(a, b point, x, y float64) float64 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}
