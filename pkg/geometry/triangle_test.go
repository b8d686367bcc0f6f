package geometry

import (
	"math"
	"testing"
)

// rightTriangle has legs 3 and 4 along X and Y
func rightTriangle() Triangle {
	return NewTriangle(Vector3{Z: 1}, Vector3{}, Vector3{X: 3}, Vector3{Y: 4})
}

func TestTriangleMeasures(t *testing.T) {
	tri := rightTriangle()
	lengths := tri.EdgeLengths()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"area", tri.Area(), 6},
		{"perimeter", tri.Perimeter(), 12},
		{"edge v1-v2", lengths[0], 3},
		{"edge v2-v3", lengths[1], 5},
		{"edge v3-v1", lengths[2], 4},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-10 {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestTriangleCenter(t *testing.T) {
	tri := NewTriangle(Vector3{}, Vector3{}, Vector3{X: 3}, Vector3{Y: 3})
	if got, want := tri.Center(), (Vector3{X: 1, Y: 1}); got != want {
		t.Errorf("Center: got %v, want %v", got, want)
	}
}

func TestTriangleCalculateNormal(t *testing.T) {
	tri := NewTriangle(
		Vector3{},
		NewVector3(0, 0, 0),
		NewVector3(1, 0, 0),
		NewVector3(0, 1, 0),
	)

	normal := tri.CalculateNormal()
	expected := NewVector3(0, 0, 1)
	if normal != expected {
		t.Errorf("CalculateNormal failed: expected %v, got %v", expected, normal)
	}

	// Reversed winding flips the normal
	flipped := NewTriangle(Vector3{}, tri.V1, tri.V3, tri.V2).CalculateNormal()
	if flipped != expected.Mul(-1) {
		t.Errorf("CalculateNormal on reversed winding: expected %v, got %v", expected.Mul(-1), flipped)
	}
}

func TestTriangleDegenerateNormal(t *testing.T) {
	tri := NewTriangle(
		Vector3{},
		NewVector3(0, 0, 0),
		NewVector3(1, 1, 1),
		NewVector3(2, 2, 2),
	)

	if n := tri.CalculateNormal(); n != (Vector3{}) {
		t.Errorf("expected zero normal for collinear triangle, got %v", n)
	}
	if a := tri.Area(); a != 0 {
		t.Errorf("expected zero area for collinear triangle, got %v", a)
	}
}

func TestTriangleSignedVolume(t *testing.T) {
	// Unit right tetrahedron with the origin as fourth vertex
	tri := NewTriangle(
		Vector3{},
		NewVector3(1, 0, 0),
		NewVector3(0, 1, 0),
		NewVector3(0, 0, 1),
	)

	expected := 1.0 / 6.0
	if math.Abs(tri.SignedVolume()-expected) > 1e-12 {
		t.Errorf("SignedVolume failed: expected %v, got %v", expected, tri.SignedVolume())
	}
}
