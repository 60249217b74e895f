package pathing

import (
	"log"
	"math"

	"github.com/mini-rodalies-3d/metromap/internal/geometry"
)

// Request describes one line to synthesize, already in canvas coordinates
type Request struct {
	Start      Point
	End        Point
	Direction1 int // axis 0-3 at Start
	Direction2 int // axis 0-3 at End

	// Offset1 and Offset2 are lateral shifts in canvas units, applied perpendicular to each direction
	Offset1 float64
	Offset2 float64

	// Stagger moves the jog of a straight connection along the start axis,
	// separating the jogs of parallel lines
	Stagger float64

	OneWay int
}

func (r Request) swapped() Request {
	return Request{
		Start:      r.End,
		End:        r.Start,
		Direction1: r.Direction2,
		Direction2: r.Direction1,
		Offset1:    r.Offset2,
		Offset2:    r.Offset1,
		Stagger:    -r.Stagger,
		OneWay:     r.OneWay,
	}
}

// Arrow is a one-way marker placed on a segment
type Arrow struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"` // radians, canvas orientation
}

// Path is the synthesized polyline of one line.
// Control holds the unsnapped points with their start45 flags; Segments holds
// the snapped polyline split into the runs that survive viewport culling.
type Path struct {
	Control  []ControlPoint `json:"control"`
	Segments [][]Point      `json:"segments"`
	Arrows   []Arrow        `json:"arrows,omitempty"`
	Swapped  bool           `json:"swapped"`
}

// Empty reports whether nothing of the path is drawn
func (p Path) Empty() bool {
	return len(p.Segments) == 0
}

// Synthesize builds the 45-degree path for one request.
// If the start cannot leave along its own axis the endpoints are swapped and
// planning is tried exactly once more; if that fails too the path is empty.
func Synthesize(req Request, view Viewport, opts Options) Path {
	opts = opts.withDefaults()
	for attempt := 0; attempt < 2; attempt++ {
		swapped := attempt == 1
		current := req
		if swapped {
			current = req.swapped()
		}

		control := plan(current)
		if len(control) == 0 {
			continue
		}

		path := Path{Control: control, Swapped: swapped}
		path.Segments = Cull(ConnectWith45(control), view)
		if req.OneWay != 0 {
			path.Arrows = placeArrows(path.Segments, opts.ArrowSpacing*view.Zoom, (req.OneWay < 0) != swapped)
		}
		return path
	}

	log.Printf("Warning: line not drawn, no 45-degree path from (%.1f, %.1f) dir %d to (%.1f, %.1f) dir %d",
		req.Start.X, req.Start.Y, req.Direction1, req.End.X, req.End.Y, req.Direction2)
	return Path{}
}

// plan returns the control points for a request, or nil when the start
// direction cannot reach the end
func plan(req Request) []ControlPoint {
	direction1 := geometry.Cardinal(req.Direction1)
	direction2 := geometry.Cardinal(req.Direction2)

	ox, oy := geometry.OctantVector(direction1+2, req.Offset1)
	a := Point{X: req.Start.X + ox, Y: req.Start.Y + oy}
	ox, oy = geometry.OctantVector(direction2+2, req.Offset2)
	b := Point{X: req.End.X + ox, Y: req.End.Y + oy}

	// local frame: start axis along +x with the end ahead of the start
	rotation := direction1
	x, y := geometry.RotateByOctant(b.X-a.X, b.Y-a.Y, -rotation)
	if x < 0 {
		rotation += 4
		x, y = -x, -y
	}
	steep := math.Abs(y) > x+epsilon
	flip := rotation%2 != 0

	switch (direction2 - direction1 + 4) % 4 {
	case 0:
		if math.Abs(y) <= epsilon {
			return []ControlPoint{{Point: a}, {Point: b}}
		}
		sx, sy := geometry.OctantVector(rotation, req.Stagger)
		middle := Point{X: (a.X+b.X)/2 + sx, Y: (a.Y+b.Y)/2 + sy}
		return []ControlPoint{
			{Point: a, Start45: steep != flip},
			{Point: middle, Start45: !steep != flip},
			{Point: b},
		}
	default:
		// L-bend (perpendicular axes) and direct diagonal (45 degrees apart)
		// both leave along the start axis and finish on the diagonal
		if steep {
			return nil
		}
		return []ControlPoint{{Point: a, Start45: flip}, {Point: b}}
	}
}
