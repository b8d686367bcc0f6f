package preview

import (
	"math"

	"github.com/nQrChao/kids-draw-3d/pkg/geometry"
)

// Camera orbits a target point at a fixed distance
type Camera struct {
	Target   geometry.Vector3
	Up       geometry.Vector3
	FOV      float64 // radians
	Distance float64
	Pitch    float64 // elevation above the XY plane
	Yaw      float64 // rotation about Z
}

// NewCamera frames bbox from above and in front, looking down at the model
// the way it will sit on the print bed
func NewCamera(bbox geometry.BoundingBox) *Camera {
	fov := math.Pi / 4
	radius := bbox.Diagonal() / 2
	if radius == 0 {
		radius = 1
	}
	return &Camera{
		Target:   bbox.Center(),
		Up:       geometry.NewVector3(0, 0, 1),
		FOV:      fov,
		Distance: radius / math.Sin(fov/2) * 1.05,
		Pitch:    math.Pi / 6,
		Yaw:      -math.Pi / 4,
	}
}

// Position returns the eye point
func (c *Camera) Position() geometry.Vector3 {
	x := c.Distance * math.Cos(c.Pitch) * math.Sin(c.Yaw)
	y := -c.Distance * math.Cos(c.Pitch) * math.Cos(c.Yaw)
	z := c.Distance * math.Sin(c.Pitch)
	return c.Target.Add(geometry.NewVector3(x, y, z))
}

// Rotate changes the orbit angles. Pitch stays short of the poles.
func (c *Camera) Rotate(deltaPitch, deltaYaw float64) {
	c.Pitch += deltaPitch
	c.Yaw += deltaYaw

	maxAngle := math.Pi/2 - 0.1
	c.Pitch = math.Max(-maxAngle, math.Min(maxAngle, c.Pitch))
}

// basis returns the camera's right, up and forward axes
func (c *Camera) basis() (right, up, forward geometry.Vector3) {
	forward = c.Target.Sub(c.Position()).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward).Normalize()
	return right, up, forward
}

// Project maps a point to pixel coordinates and its depth along the view
// direction. Points behind the eye get a depth <= 0.
func (c *Camera) Project(p geometry.Vector3, width, height float64) (x, y, depth float64) {
	right, up, forward := c.basis()
	rel := p.Sub(c.Position())
	depth = rel.Dot(forward)
	if depth <= 1e-9 {
		return 0, 0, depth
	}

	scale := math.Tan(c.FOV / 2)
	aspect := width / height
	x = rel.Dot(right)/(depth*scale*aspect)*(width/2) + width/2
	y = -rel.Dot(up)/(depth*scale)*(height/2) + height/2
	return x, y, depth
}
