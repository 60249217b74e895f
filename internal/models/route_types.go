package models

import (
	"fmt"
	"sort"
	"strings"
)

// Visibility controls whether and how routes of one type are drawn
type Visibility string

const (
	VisibilityHidden Visibility = "HIDDEN"
	VisibilitySolid  Visibility = "SOLID"
	VisibilityHollow Visibility = "HOLLOW"
	VisibilityDashed Visibility = "DASHED"
)

// ParseVisibility accepts any casing of the four visibility values
func ParseVisibility(value string) (Visibility, error) {
	switch v := Visibility(strings.ToUpper(strings.TrimSpace(value))); v {
	case VisibilityHidden, VisibilitySolid, VisibilityHollow, VisibilityDashed:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", value)
	}
}

// RouteType is one entry of the route-type catalog
type RouteType struct {
	Key        string     `json:"key" yaml:"key"`
	Name       string     `json:"name" yaml:"name"`
	Icon       string     `json:"icon" yaml:"icon"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
}

// RouteTypeCatalog maps route-type keys to display metadata
type RouteTypeCatalog struct {
	Types []RouteType `json:"types" yaml:"types"`
}

// DefaultRouteTypes is used when no catalog file is configured
func DefaultRouteTypes() *RouteTypeCatalog {
	return &RouteTypeCatalog{Types: []RouteType{
		{Key: "train_normal", Name: "Train", Icon: "train", Visibility: VisibilitySolid},
		{Key: "train_light_rail", Name: "Light Rail", Icon: "tram", Visibility: VisibilityHollow},
		{Key: "train_high_speed", Name: "High Speed", Icon: "high_speed", Visibility: VisibilitySolid},
		{Key: "boat_normal", Name: "Ferry", Icon: "ferry", Visibility: VisibilityDashed},
		{Key: "bus_normal", Name: "Bus", Icon: "bus", Visibility: VisibilityHidden},
		{Key: "cable_car_normal", Name: "Cable Car", Icon: "cable_car", Visibility: VisibilityDashed},
		{Key: "airplane_normal", Name: "Airplane", Icon: "plane", Visibility: VisibilityHidden},
	}}
}

// Find returns the catalog entry for a key
func (c *RouteTypeCatalog) Find(key string) (RouteType, bool) {
	for _, t := range c.Types {
		if t.Key == key {
			return t, true
		}
	}
	return RouteType{}, false
}

// VisibilityMap returns the visibility of every catalogued type
func (c *RouteTypeCatalog) VisibilityMap() map[string]Visibility {
	visibility := make(map[string]Visibility, len(c.Types))
	for _, t := range c.Types {
		visibility[t.Key] = t.Visibility
	}
	return visibility
}

// Validate checks keys are unique and visibilities known
func (c *RouteTypeCatalog) Validate() error {
	seen := make(map[string]bool, len(c.Types))
	for i, t := range c.Types {
		if t.Key == "" {
			return fmt.Errorf("route type %d: key is required", i)
		}
		if seen[t.Key] {
			return fmt.Errorf("duplicate route type %q", t.Key)
		}
		seen[t.Key] = true
		if _, err := ParseVisibility(string(t.Visibility)); err != nil {
			return fmt.Errorf("route type %q: %w", t.Key, err)
		}
	}
	return nil
}

// Merge adds types from other that are not catalogued yet, keeping existing entries
func (c *RouteTypeCatalog) Merge(other []RouteType) {
	for _, t := range other {
		if _, ok := c.Find(t.Key); !ok {
			c.Types = append(c.Types, t)
		}
	}
	sort.SliceStable(c.Types, func(i, j int) bool { return c.Types[i].Key < c.Types[j].Key })
}
