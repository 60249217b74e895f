package pathing

import (
	"github.com/mini-rodalies-3d/metromap/internal/layout"
)

// PartPath is the synthesized path of one route key along a line connection
type PartPath struct {
	Part layout.LineConnectionPart `json:"part"`
	Path
}

// SynthesizeConnection builds the paths of every part of a line connection
func SynthesizeConnection(conn *layout.LineConnection, view Viewport, opts Options) []PartPath {
	opts = opts.withDefaults()
	spacing := opts.LineSpacing * view.Zoom
	start := view.ToCanvas(conn.X1, conn.Z1)
	end := view.ToCanvas(conn.X2, conn.Z2)

	n := len(conn.Parts)
	paths := make([]PartPath, 0, n)
	for i, part := range conn.Parts {
		req := Request{
			Start:      start,
			End:        end,
			Direction1: conn.Direction1,
			Direction2: conn.Direction2,
			Offset1:    part.Offset1 * spacing,
			Offset2:    part.Offset2 * spacing,
			Stagger:    (float64(i) - float64(n-1)/2) * spacing,
			OneWay:     part.OneWay,
		}
		paths = append(paths, PartPath{Part: part, Path: Synthesize(req, view, opts)})
	}
	return paths
}

// StationConnector returns the snapped two-leg path of an interchange indicator
func StationConnector(conn *layout.StationConnection, view Viewport) []Point {
	start := view.ToCanvas(conn.X1, conn.Z1)
	end := view.ToCanvas(conn.X2, conn.Z2)
	return ConnectWith45([]ControlPoint{{Point: start, Start45: conn.Start45}, {Point: end}})
}
