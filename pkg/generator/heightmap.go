package generator

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
	"github.com/nQrChao/kids-draw-3d/pkg/gltfmesh"
	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// HeightmapGenerator extrudes a grayscale relief from the drawing: dark
// strokes stand up from a flat base plate. It needs no external service and
// always produces a closed solid.
type HeightmapGenerator struct {
	Resolution int
	PixelSize  float64
	MaxHeight  float64
	BaseHeight float64
}

// NewHeightmapGenerator creates a relief generator sampling the image on a
// resolution x resolution grid
func NewHeightmapGenerator(resolution int, pixelSize, maxHeight, baseHeight float64) *HeightmapGenerator {
	return &HeightmapGenerator{
		Resolution: resolution,
		PixelSize:  pixelSize,
		MaxHeight:  maxHeight,
		BaseHeight: baseHeight,
	}
}

// Name identifies the generator in logs and metrics
func (g *HeightmapGenerator) Name() string {
	return "heightmap"
}

// Generate writes the relief for imagePath as GLB to outputPath
func (g *HeightmapGenerator) Generate(ctx context.Context, imagePath, outputPath string) error {
	if g.Resolution < 2 {
		return fmt.Errorf("heightmap resolution must be at least 2, got %d", g.Resolution)
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", imagePath, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	heights := g.Heights(img)
	m := Relief(heights, g.Resolution, g.PixelSize)
	return gltfmesh.WriteMeshGLB(outputPath, "relief", m)
}

// Heights samples img into Resolution^2 heights, row 0 at the top of the
// image. The image is padded to a square on white first so the drawing
// keeps its proportions.
func (g *HeightmapGenerator) Heights(img image.Image) []float64 {
	b := img.Bounds()
	side := max(b.Dx(), b.Dy(), 1)
	square := image.NewRGBA(image.Rect(0, 0, side, side))
	xdraw.Draw(square, square.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	offset := image.Pt((side-b.Dx())/2, (side-b.Dy())/2)
	xdraw.Draw(square, b.Sub(b.Min).Add(offset), img, b.Min, xdraw.Over)

	n := g.Resolution
	gray := image.NewGray(image.Rect(0, 0, n, n))
	xdraw.CatmullRom.Scale(gray, gray.Bounds(), square, square.Bounds(), xdraw.Src, nil)

	heights := make([]float64, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			darkness := float64(255-gray.GrayAt(col, row).Y) / 255
			heights[row*n+col] = g.BaseHeight + darkness*g.MaxHeight
		}
	}
	return heights
}

// Relief builds a closed solid from an n x n height grid: the height field
// on top, a flat plate at z=0 below and vertical walls around the edge.
// Row 0 of the grid becomes the far (+Y) edge.
func Relief(heights []float64, n int, pixelSize float64) *mesh.Mesh {
	top := &mesh.Mesh{Vertices: make([]geometry.Vector3, 0, n*n)}
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			top.Vertices = append(top.Vertices, geometry.NewVector3(
				float64(col)*pixelSize,
				float64(n-1-row)*pixelSize,
				heights[row*n+col],
			))
		}
	}

	// vertex (col, y) where y counts up from the near edge
	at := func(col, y int) int { return (n-1-y)*n + col }
	for y := 0; y+1 < n; y++ {
		for col := 0; col+1 < n; col++ {
			a, b, c, d := at(col, y), at(col+1, y), at(col+1, y+1), at(col, y+1)
			top.Faces = append(top.Faces, mesh.Face{a, b, c}, mesh.Face{a, c, d})
		}
	}
	boundary := top.BoundaryEdges()

	m := top.Clone()
	base := len(m.Vertices)
	for _, v := range top.Vertices {
		m.Vertices = append(m.Vertices, geometry.NewVector3(v.X, v.Y, 0))
	}
	for _, f := range top.Faces {
		m.Faces = append(m.Faces, mesh.Face{f[0] + base, f[2] + base, f[1] + base})
	}
	for _, e := range boundary {
		p, q := e[0], e[1]
		m.Faces = append(m.Faces,
			mesh.Face{q, p, p + base},
			mesh.Face{q, p + base, q + base},
		)
	}
	return m
}
