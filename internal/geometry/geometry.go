package geometry

import "math"

// Sqrt1_2 is the component length of a unit diagonal
const Sqrt1_2 = math.Sqrt2 / 2

// QuantizeAngle snaps the vector (dx, dy) to the nearest octant, returning a value in [-4, 4].
// The thresholds are |dy| < |dx|/2 for horizontal and |dx| < |dy|/2 for vertical,
// which is deliberately not the same as rounding atan2 to the nearest 45 degrees.
func QuantizeAngle(dy, dx float64) int {
	absX := math.Abs(dx)
	absY := math.Abs(dy)

	if absY < absX/2 {
		if dx < 0 {
			return 4
		}
		return 0
	}
	if absX < absY/2 {
		if dy < 0 {
			return -2
		}
		return 2
	}
	if dy < 0 {
		if dx < 0 {
			return -3
		}
		return -1
	}
	if dx < 0 {
		return 3
	}
	return 1
}

// Cardinal collapses an octant to its undirected axis (0-3)
func Cardinal(octant int) int {
	return NormalizeOctant(octant) % 4
}

// NormalizeOctant maps any integer to [0, 8)
func NormalizeOctant(angle int) int {
	return (angle%8 + 8) % 8
}

// OctantVector returns the vector of length scale pointing along the given octant.
// 0 is +x, 2 is +y, 4 is -x and 6 is -y.
func OctantVector(angle int, scale float64) (float64, float64) {
	switch NormalizeOctant(angle) {
	case 0:
		return scale, 0
	case 1:
		return Sqrt1_2 * scale, Sqrt1_2 * scale
	case 2:
		return 0, scale
	case 3:
		return -Sqrt1_2 * scale, Sqrt1_2 * scale
	case 4:
		return -scale, 0
	case 5:
		return -Sqrt1_2 * scale, -Sqrt1_2 * scale
	case 6:
		return 0, -scale
	default:
		return Sqrt1_2 * scale, -Sqrt1_2 * scale
	}
}

// RotateByOctant rotates (x, z) counterclockwise by angle * 45 degrees
func RotateByOctant(x, z float64, angle int) (float64, float64) {
	cos, sin := OctantVector(angle, 1)
	return x*cos - z*sin, x*sin + z*cos
}

// OctantRadians converts an octant to radians
func OctantRadians(angle int) float64 {
	return float64(NormalizeOctant(angle)) * math.Pi / 4
}

// ManhattanDistance returns |x2-x1| + |z2-z1|
func ManhattanDistance(x1, z1, x2, z2 float64) float64 {
	return math.Abs(x2-x1) + math.Abs(z2-z1)
}

// IsOctilinear reports whether the vector (dx, dy) lies on an axis or an exact diagonal
func IsOctilinear(dx, dy, epsilon float64) bool {
	absX := math.Abs(dx)
	absY := math.Abs(dy)
	return absX <= epsilon || absY <= epsilon || math.Abs(absX-absY) <= epsilon
}

// Sign returns -1, 0 or 1
func Sign(v float64) float64 {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
