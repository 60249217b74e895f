// Package layout turns stations and routes into a schematic map layout:
// direction bundles and footprints per station, and offset-annotated line
// connections between adjacent stations.
package layout

import (
	"fmt"

	"github.com/mini-rodalies-3d/metromap/internal/models"
)

// RouteKey identifies a drawn line by color and route type ("ff0000|train_normal").
// Lexicographic order on RouteKey is the bundle order everywhere.
type RouteKey string

// NewRouteKey builds the color+type composite key
func NewRouteKey(color int, routeType string) RouteKey {
	return RouteKey(fmt.Sprintf("%06x|%s", color&0xFFFFFF, routeType))
}

// PairKey is an unordered station pair stored in canonical order (A < B)
type PairKey struct {
	A string
	B string
}

// CanonicalPair orders two station ids. swapped reports whether a and b were exchanged.
func CanonicalPair(a, b string) (key PairKey, swapped bool) {
	if b < a {
		return PairKey{A: b, B: a}, true
	}
	return PairKey{A: a, B: b}, false
}

// String returns "a:b"
func (k PairKey) String() string {
	return k.A + ":" + k.B
}

// Input is the pure input of a layout pass
type Input struct {
	Stations    []models.Station
	Routes      []models.Route
	Visibility  map[string]models.Visibility
	Connections []models.StationLink
}

// Options holds the settings a layout pass depends on
type Options struct {
	// DefaultVisibility applies to route types missing from Input.Visibility
	DefaultVisibility models.Visibility
}

// StationLayout is a station with its footprint for the current pass
type StationLayout struct {
	models.Station
	RouteIDs   []string `json:"routeIds"`
	RouteCount int      `json:"routeCount"`
	Rotate     bool     `json:"rotate"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
}

// LineConnectionPart is one route key drawn along a line connection
type LineConnectionPart struct {
	Key     RouteKey          `json:"key"`
	Color   int               `json:"color"`
	Type    string            `json:"type"`
	Style   models.Visibility `json:"style"`
	OneWay  int               `json:"oneWay"` // -1 backward only, 0 both ways, +1 forward only
	Offset1 float64           `json:"offset1"`
	Offset2 float64           `json:"offset2"`
}

// LineConnection is the undirected edge between two adjacent stations.
// Index 1 always refers to Station1, the lexicographically smaller id.
type LineConnection struct {
	Station1   string               `json:"station1"`
	Station2   string               `json:"station2"`
	Direction1 int                  `json:"direction1"`
	Direction2 int                  `json:"direction2"`
	X1         float64              `json:"x1"`
	Z1         float64              `json:"z1"`
	X2         float64              `json:"x2"`
	Z2         float64              `json:"z2"`
	Length     float64              `json:"length"`
	Parts      []LineConnectionPart `json:"parts"`

	has1 bool
	has2 bool
}

// Key returns the canonical station pair of the connection
func (c *LineConnection) Key() PairKey {
	return PairKey{A: c.Station1, B: c.Station2}
}

func (c *LineConnection) part(key RouteKey) *LineConnectionPart {
	for i := range c.Parts {
		if c.Parts[i].Key == key {
			return &c.Parts[i]
		}
	}
	c.Parts = append(c.Parts, LineConnectionPart{Key: key})
	return &c.Parts[len(c.Parts)-1]
}

// StationConnection is an interchange indicator between two explicitly connected stations
type StationConnection struct {
	Station1 string  `json:"station1"`
	Station2 string  `json:"station2"`
	X1       float64 `json:"x1"`
	Z1       float64 `json:"z1"`
	X2       float64 `json:"x2"`
	Z2       float64 `json:"z2"`
	Aspect   float64 `json:"aspect"`  // thickness indicator, always >= 1
	Start45  bool    `json:"start45"` // whether the snap from (X1, Z1) begins with the diagonal leg
}

// Result is the immutable output of one layout pass
type Result struct {
	Stations                []StationLayout     `json:"stations"`
	LineConnections         []LineConnection    `json:"lineConnections"`
	StationConnections      []StationConnection `json:"stationConnections"`
	CenterX                 float64             `json:"centerX"`
	CenterY                 float64             `json:"centerY"`
	MaxLineConnectionLength float64             `json:"maxLineConnectionLength"`
	Warnings                []string            `json:"warnings,omitempty"`
}

// Station looks up a station layout by id
func (r *Result) Station(id string) (*StationLayout, bool) {
	for i := range r.Stations {
		if r.Stations[i].ID == id {
			return &r.Stations[i], true
		}
	}
	return nil, false
}
