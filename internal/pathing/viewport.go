// Package pathing turns line connections into 45-degree polylines on a canvas.
// Everything here is a pure function of (connection, viewport, options) and is
// recomputed whenever the camera moves.
package pathing

import (
	"errors"
	"math"
)

// Point is a canvas coordinate (y grows downwards)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport maps world coordinates onto a Width x Height canvas
type Viewport struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Zoom    float64 `json:"zoom"`
}

// ErrInvalidViewport is returned for viewports with no area or a non-positive zoom
var ErrInvalidViewport = errors.New("viewport needs positive width, height and zoom")

// Validate checks that the viewport can be drawn into
func (v Viewport) Validate() error {
	if !(v.Width > 0) || !(v.Height > 0) || !(v.Zoom > 0) {
		return ErrInvalidViewport
	}
	for _, value := range []float64{v.CenterX, v.CenterY, v.Width, v.Height, v.Zoom} {
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return ErrInvalidViewport
		}
	}
	return nil
}

// ToCanvas projects a world (x, z) position onto the canvas
func (v Viewport) ToCanvas(x, z float64) Point {
	return Point{
		X: (x-v.CenterX)*v.Zoom + v.Width/2,
		Y: (z-v.CenterY)*v.Zoom + v.Height/2,
	}
}

// Contains reports whether p lies inside the canvas, borders included
func (v Viewport) Contains(p Point) bool {
	return p.X >= 0 && p.X <= v.Width && p.Y >= 0 && p.Y <= v.Height
}

// Options are the drawing settings path synthesis depends on
type Options struct {
	// LineSpacing is the distance between parallel lines at zoom 1
	LineSpacing float64

	// ArrowSpacing is the distance between one-way arrows at zoom 1
	ArrowSpacing float64
}

// DefaultOptions returns the stock spacing values
func DefaultOptions() Options {
	return Options{LineSpacing: 6, ArrowSpacing: 80}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.LineSpacing <= 0 {
		o.LineSpacing = defaults.LineSpacing
	}
	if o.ArrowSpacing <= 0 {
		o.ArrowSpacing = defaults.ArrowSpacing
	}
	return o
}
