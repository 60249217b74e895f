package geometry

import (
	"math"
	"testing"
)

func TestQuantizeAngle(t *testing.T) {
	tests := []struct {
		name   string
		dy, dx float64
		want   int
	}{
		{"east", 0, 10, 0},
		{"west", 0, -10, 4},
		{"north", 10, 0, 2},
		{"south", -10, 0, -2},
		{"shallow east", 4.9, 10, 0},
		{"threshold is not atan2 rounding", 4.5, 10, 0},
		{"exact half goes diagonal", 5, 10, 1},
		{"northeast", 10, 10, 1},
		{"northwest", 10, -10, 3},
		{"southwest", -10, -10, -3},
		{"southeast", -10, 10, -1},
		{"steep north", 10, 4.9, 2},
		{"steep south west", -10, -4.9, -2},
		{"zero vector", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuantizeAngle(tt.dy, tt.dx); got != tt.want {
				t.Errorf("QuantizeAngle(%v, %v) = %d, want %d", tt.dy, tt.dx, got, tt.want)
			}
		})
	}
}

func TestCardinal(t *testing.T) {
	want := map[int]int{-4: 0, -3: 1, -2: 2, -1: 3, 0: 0, 1: 1, 2: 2, 3: 3, 4: 0}
	for octant, expected := range want {
		if got := Cardinal(octant); got != expected {
			t.Errorf("Cardinal(%d) = %d, want %d", octant, got, expected)
		}
	}
}

func TestOctantVector(t *testing.T) {
	tests := []struct {
		angle int
		wantX float64
		wantY float64
	}{
		{0, 2, 0},
		{1, 2 * Sqrt1_2, 2 * Sqrt1_2},
		{2, 0, 2},
		{4, -2, 0},
		{6, 0, -2},
		{7, 2 * Sqrt1_2, -2 * Sqrt1_2},
		{-1, 2 * Sqrt1_2, -2 * Sqrt1_2},
		{-4, -2, 0},
		{10, 0, 2},
	}

	for _, tt := range tests {
		x, y := OctantVector(tt.angle, 2)
		if !almostEqual(x, tt.wantX) || !almostEqual(y, tt.wantY) {
			t.Errorf("OctantVector(%d, 2) = (%v, %v), want (%v, %v)", tt.angle, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestRotateByOctant(t *testing.T) {
	x, z := RotateByOctant(10, 0, 2)
	if !almostEqual(x, 0) || !almostEqual(z, 10) {
		t.Errorf("rotate by 90 degrees = (%v, %v), want (0, 10)", x, z)
	}

	x, z = RotateByOctant(10, 0, 1)
	if !almostEqual(x, 10*Sqrt1_2) || !almostEqual(z, 10*Sqrt1_2) {
		t.Errorf("rotate by 45 degrees = (%v, %v)", x, z)
	}

	// A full turn in eight steps returns to the start
	x, z = 3, -7
	for i := 0; i < 8; i++ {
		x, z = RotateByOctant(x, z, 1)
	}
	if !almostEqual(x, 3) || !almostEqual(z, -7) {
		t.Errorf("eight 45 degree rotations = (%v, %v), want (3, -7)", x, z)
	}

	// Rotating there and back is the identity
	x, z = RotateByOctant(5, 2, 3)
	x, z = RotateByOctant(x, z, -3)
	if !almostEqual(x, 5) || !almostEqual(z, 2) {
		t.Errorf("inverse rotation = (%v, %v), want (5, 2)", x, z)
	}
}

func TestIsOctilinear(t *testing.T) {
	if !IsOctilinear(10, 0, 1e-9) || !IsOctilinear(0, -3, 1e-9) || !IsOctilinear(-4, 4, 1e-9) {
		t.Error("axis and diagonal vectors should be octilinear")
	}
	if IsOctilinear(10, 3, 1e-9) {
		t.Error("(10, 3) should not be octilinear")
	}
}

func TestManhattanDistance(t *testing.T) {
	if got := ManhattanDistance(1, 2, -3, 5); got != 7 {
		t.Errorf("ManhattanDistance = %v, want 7", got)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
