package pathing

import (
	"math"

	"github.com/mini-rodalies-3d/metromap/internal/geometry"
)

const epsilon = 1e-6

// ControlPoint is a point of a path before snapping. Start45 applies to the
// leg leaving the point: true puts the diagonal first.
type ControlPoint struct {
	Point
	Start45 bool `json:"start45"`
}

// Corner45 returns the single corner that joins p1 to p2 with one axis leg
// and one diagonal leg. The longer-minus-shorter slack goes to the axis leg.
func Corner45(p1, p2 Point, start45 bool) Point {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	absX, absY := math.Abs(dx), math.Abs(dy)
	sx, sy := geometry.Sign(dx), geometry.Sign(dy)

	var diagonal, axis Point
	if absX >= absY {
		diagonal = Point{X: sx * absY, Y: sy * absY}
		axis = Point{X: sx * (absX - absY)}
	} else {
		diagonal = Point{X: sx * absX, Y: sy * absX}
		axis = Point{Y: sy * (absY - absX)}
	}

	if start45 {
		return Point{X: p1.X + diagonal.X, Y: p1.Y + diagonal.Y}
	}
	return Point{X: p1.X + axis.X, Y: p1.Y + axis.Y}
}

// ConnectWith45 expands control points into a polyline of axis and diagonal
// segments only. Zero-length legs and collinear interior points are dropped.
func ConnectWith45(control []ControlPoint) []Point {
	if len(control) == 0 {
		return nil
	}

	points := make([]Point, 1, len(control)*2)
	points[0] = control[0].Point
	for i := 0; i+1 < len(control); i++ {
		points = appendPoint(points, Corner45(control[i].Point, control[i+1].Point, control[i].Start45))
		points = appendPoint(points, control[i+1].Point)
	}
	return points
}

func appendPoint(points []Point, p Point) []Point {
	last := points[len(points)-1]
	if nearlyEqual(last, p) {
		return points
	}

	if len(points) >= 2 {
		before := points[len(points)-2]
		ax, ay := last.X-before.X, last.Y-before.Y
		bx, by := p.X-last.X, p.Y-last.Y
		cross := ax*by - ay*bx
		dot := ax*bx + ay*by
		if math.Abs(cross) <= epsilon*math.Hypot(ax, ay)*math.Hypot(bx, by) && dot > 0 {
			points[len(points)-1] = p
			return points
		}
	}

	return append(points, p)
}

func nearlyEqual(a, b Point) bool {
	return math.Abs(a.X-b.X) <= epsilon && math.Abs(a.Y-b.Y) <= epsilon
}
