// Package draw converts a layout result into renderer-agnostic primitives for
// one viewport: coloured polylines, station shapes, interchange connectors
// and one-way arrows.
package draw

import (
	"math"

	"github.com/mini-rodalies-3d/metromap/internal/layout"
	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

// Options controls the emitted geometry
type Options struct {
	Path pathing.Options

	// StationPadding is added around every station footprint at zoom 1
	StationPadding float64
}

// DefaultOptions returns the stock drawing settings
func DefaultOptions() Options {
	return Options{Path: pathing.DefaultOptions(), StationPadding: 4}
}

// Line is one route key drawn between two stations
type Line struct {
	Station1 string            `json:"station1"`
	Station2 string            `json:"station2"`
	Key      layout.RouteKey   `json:"key"`
	Color    string            `json:"color"`
	Style    models.Visibility `json:"style"`
	Z        int               `json:"z"`
	Segments [][]pathing.Point `json:"segments"`
}

// Station is a station footprint on the canvas
type Station struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Rotation   float64 `json:"rotation"` // radians
	RouteCount int     `json:"routeCount"`
}

// Connector is an interchange indicator between two stations
type Connector struct {
	Station1  string          `json:"station1"`
	Station2  string          `json:"station2"`
	Points    []pathing.Point `json:"points"`
	Thickness float64         `json:"thickness"`
}

// Arrow is a one-way marker in the colour of its line
type Arrow struct {
	pathing.Arrow
	Color string `json:"color"`
}

// Frame holds everything a renderer needs to paint one viewport
type Frame struct {
	Viewport   pathing.Viewport `json:"viewport"`
	LineWidth  float64          `json:"lineWidth"`
	Lines      []Line           `json:"lines"`
	Stations   []Station        `json:"stations"`
	Connectors []Connector      `json:"connectors"`
	Arrows     []Arrow          `json:"arrows"`
	Skipped    int              `json:"skipped"` // lines with no drawable path
}

// Emit synthesizes every line connection of the result for the viewport.
// Connections keep the layout order so longer ones sit underneath.
func Emit(result *layout.Result, view pathing.Viewport, opts Options) *Frame {
	spacing := opts.Path.LineSpacing
	if spacing <= 0 {
		spacing = pathing.DefaultOptions().LineSpacing
	}

	frame := &Frame{
		Viewport:   view,
		LineWidth:  spacing * view.Zoom * 0.8,
		Lines:      []Line{},
		Stations:   []Station{},
		Connectors: []Connector{},
		Arrows:     []Arrow{},
	}

	for i := range result.LineConnections {
		conn := &result.LineConnections[i]
		for _, part := range pathing.SynthesizeConnection(conn, view, opts.Path) {
			if part.Empty() {
				if len(part.Control) == 0 {
					frame.Skipped++
				}
				continue
			}

			color := models.HexColor(part.Part.Color)
			frame.Lines = append(frame.Lines, Line{
				Station1: conn.Station1,
				Station2: conn.Station2,
				Key:      part.Part.Key,
				Color:    color,
				Style:    part.Part.Style,
				Z:        i,
				Segments: part.Segments,
			})
			for _, arrow := range part.Arrows {
				frame.Arrows = append(frame.Arrows, Arrow{Arrow: arrow, Color: color})
			}
		}
	}

	for i := range result.StationConnections {
		conn := &result.StationConnections[i]
		points := pathing.StationConnector(conn, view)
		if len(pathing.Cull(points, view)) == 0 {
			continue
		}
		frame.Connectors = append(frame.Connectors, Connector{
			Station1:  conn.Station1,
			Station2:  conn.Station2,
			Points:    points,
			Thickness: conn.Aspect * spacing * view.Zoom,
		})
	}

	for _, station := range result.Stations {
		if station.RouteCount == 0 {
			continue
		}

		center := view.ToCanvas(station.Position.X, station.Position.Z)
		shape := Station{
			ID:         station.ID,
			Name:       station.Name,
			X:          center.X,
			Y:          center.Y,
			Width:      (station.Width*spacing + 2*opts.StationPadding) * view.Zoom,
			Height:     (station.Height*spacing + 2*opts.StationPadding) * view.Zoom,
			RouteCount: station.RouteCount,
		}
		if station.Rotate {
			shape.Rotation = math.Pi / 4
		}
		if !shape.visible(view) {
			continue
		}
		frame.Stations = append(frame.Stations, shape)
	}

	return frame
}

func (s Station) visible(view pathing.Viewport) bool {
	reach := math.Hypot(s.Width, s.Height) / 2
	return s.X+reach >= 0 && s.X-reach <= view.Width && s.Y+reach >= 0 && s.Y-reach <= view.Height
}
