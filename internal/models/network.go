package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CircularState describes whether a route loops back on itself
type CircularState string

const (
	CircularNone          CircularState = "NONE"
	CircularClockwise     CircularState = "CLOCKWISE"
	CircularAnticlockwise CircularState = "ANTICLOCKWISE"
)

// VariationSeparator splits a route name into its base and variation parts ("L1||Airport")
const VariationSeparator = "||"

// Position is a point in the network's local coordinate space (y is elevation)
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Station represents a station as delivered by the data source
type Station struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Color    int      `json:"color" yaml:"color"`
	Zone1    int      `json:"zone1" yaml:"zone1"`
	Zone2    int      `json:"zone2" yaml:"zone2"`
	Zone3    int      `json:"zone3" yaml:"zone3"`
	Position Position `json:"position" yaml:"position"`

	// Connections lists explicitly connected (interchange) stations, not route neighbours
	Connections []string `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// RoutePlatform is one stop of a route, in travel order
type RoutePlatform struct {
	StationID      string  `json:"stationId" yaml:"station"`
	X              float64 `json:"x" yaml:"x"`
	Y              float64 `json:"y" yaml:"y"`
	Z              float64 `json:"z" yaml:"z"`
	DwellTime      int     `json:"dwellTime" yaml:"dwellTime"`
	DurationToNext int     `json:"durationToNext" yaml:"durationToNext"` // 0 for the last platform
}

// Route represents one route pattern (a base route may have several variations)
type Route struct {
	ID            string          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Color         int             `json:"color" yaml:"color"`
	Number        string          `json:"number" yaml:"number"`
	Type          string          `json:"type" yaml:"type"`
	CircularState CircularState   `json:"circularState" yaml:"circularState"`
	Depots        []string        `json:"depots,omitempty" yaml:"depots,omitempty"`
	Platforms     []RoutePlatform `json:"platforms" yaml:"platforms"`
}

// BaseName returns the part of the name before the variation separator
func (r *Route) BaseName() string {
	base, _, _ := strings.Cut(r.Name, VariationSeparator)
	return base
}

// Variation returns the part of the name after the variation separator, if any
func (r *Route) Variation() string {
	_, variation, _ := strings.Cut(r.Name, VariationSeparator)
	return variation
}

// HexColor returns the route color as #rrggbb
func (r *Route) HexColor() string {
	return HexColor(r.Color)
}

// HexColor formats a packed 24-bit RGB value as #rrggbb
func HexColor(color int) string {
	return fmt.Sprintf("#%06x", color&0xFFFFFF)
}

// StationLink is an explicit, undirected station-to-station connection
type StationLink struct {
	StationA string `json:"stationA" yaml:"a"`
	StationB string `json:"stationB" yaml:"b"`
}

// Network is everything the layout engine consumes
type Network struct {
	Stations    []Station     `json:"stations" yaml:"stations"`
	Routes      []Route       `json:"routes" yaml:"routes"`
	Connections []StationLink `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// ExplicitConnections returns every explicit station link exactly once, in canonical order.
// Links come from both Network.Connections and each station's Connections list.
func (n *Network) ExplicitConnections() []StationLink {
	seen := make(map[[2]string]bool)
	var links []StationLink

	add := func(a, b string) {
		if a == "" || b == "" || a == b {
			return
		}
		if b < a {
			a, b = b, a
		}
		key := [2]string{a, b}
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, StationLink{StationA: a, StationB: b})
	}

	for _, link := range n.Connections {
		add(link.StationA, link.StationB)
	}
	for _, station := range n.Stations {
		for _, other := range station.Connections {
			add(station.ID, other)
		}
	}

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].StationA != links[j].StationA {
			return links[i].StationA < links[j].StationA
		}
		return links[i].StationB < links[j].StationB
	})
	return links
}

// Validate checks the shape of the network. It rejects malformed input
// (missing or duplicate ids), not dangling references, which layout tolerates.
func (n *Network) Validate() error {
	ids := make(map[string]bool, len(n.Stations))
	for i, station := range n.Stations {
		if station.ID == "" {
			return fmt.Errorf("station %d: id is required", i)
		}
		if ids[station.ID] {
			return fmt.Errorf("duplicate station id %q", station.ID)
		}
		ids[station.ID] = true
	}

	routeIDs := make(map[string]bool, len(n.Routes))
	for i, route := range n.Routes {
		if route.ID == "" {
			return fmt.Errorf("route %d: id is required", i)
		}
		if routeIDs[route.ID] {
			return fmt.Errorf("duplicate route id %q", route.ID)
		}
		routeIDs[route.ID] = true
		if route.Type == "" {
			return fmt.Errorf("route %q: type is required", route.ID)
		}
		if route.Color < 0 || route.Color > 0xFFFFFF {
			return fmt.Errorf("route %q: color %d is not a 24-bit RGB value", route.ID, route.Color)
		}
	}

	return nil
}

// ErrEmptyNetwork is returned when a network has no stations at all
var ErrEmptyNetwork = errors.New("network has no stations")
