package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRouteNameVariation(t *testing.T) {
	r := Route{Name: "L1||Airport"}
	if r.BaseName() != "L1" {
		t.Errorf("BaseName() = %q, want L1", r.BaseName())
	}
	if r.Variation() != "Airport" {
		t.Errorf("Variation() = %q, want Airport", r.Variation())
	}

	plain := Route{Name: "Circle"}
	if plain.BaseName() != "Circle" || plain.Variation() != "" {
		t.Errorf("plain route name split into %q / %q", plain.BaseName(), plain.Variation())
	}
}

func TestHexColor(t *testing.T) {
	if got := HexColor(0xE2001A); got != "#e2001a" {
		t.Errorf("HexColor = %q, want #e2001a", got)
	}
	if got := HexColor(0x00FF); got != "#0000ff" {
		t.Errorf("HexColor = %q, want #0000ff", got)
	}
}

func TestExplicitConnectionsDeduplicates(t *testing.T) {
	network := Network{
		Stations: []Station{
			{ID: "b", Connections: []string{"a", "c"}},
			{ID: "a", Connections: []string{"b"}},
			{ID: "c", Connections: []string{"c"}},
		},
		Connections: []StationLink{{StationA: "c", StationB: "b"}},
	}

	links := network.ExplicitConnections()
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d: %v", len(links), links)
	}
	if links[0] != (StationLink{StationA: "a", StationB: "b"}) {
		t.Errorf("first link = %v, want a-b", links[0])
	}
	if links[1] != (StationLink{StationA: "b", StationB: "c"}) {
		t.Errorf("second link = %v, want b-c", links[1])
	}
}

func TestNetworkValidate(t *testing.T) {
	valid := Network{
		Stations: []Station{{ID: "a"}, {ID: "b"}},
		Routes:   []Route{{ID: "r1", Type: "train_normal", Color: 0xFF0000}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid network rejected: %v", err)
	}

	tests := []struct {
		name    string
		network Network
	}{
		{"duplicate station", Network{Stations: []Station{{ID: "a"}, {ID: "a"}}}},
		{"missing station id", Network{Stations: []Station{{Name: "nameless"}}}},
		{"missing route type", Network{Routes: []Route{{ID: "r1"}}}},
		{"color out of range", Network{Routes: []Route{{ID: "r1", Type: "t", Color: 0x1000000}}}},
		{"duplicate route", Network{Routes: []Route{{ID: "r1", Type: "t"}, {ID: "r1", Type: "t"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.network.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility(" hollow ")
	if err != nil || v != VisibilityHollow {
		t.Errorf("ParseVisibility(hollow) = %q, %v", v, err)
	}
	if _, err := ParseVisibility("invisible"); err == nil {
		t.Error("expected error for unknown visibility")
	}
}

func TestCatalogMergeKeepsExisting(t *testing.T) {
	catalog := &RouteTypeCatalog{Types: []RouteType{{Key: "b", Visibility: VisibilityHidden}}}
	catalog.Merge([]RouteType{{Key: "b", Visibility: VisibilitySolid}, {Key: "a", Visibility: VisibilityDashed}})

	if len(catalog.Types) != 2 || catalog.Types[0].Key != "a" {
		t.Fatalf("unexpected merged catalog: %+v", catalog.Types)
	}
	b, _ := catalog.Find("b")
	if b.Visibility != VisibilityHidden {
		t.Errorf("existing entry overwritten: %q", b.Visibility)
	}
}

func TestLoadNetworkYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.yaml")
	content := `
stations:
  - id: a
    name: Alpha
    position: {x: 0, y: 0, z: 0}
  - id: b
    name: Beta
    position: {x: 100, y: 0, z: 0}
    connections: [a]
routes:
  - id: r1
    name: "Red||Express"
    color: 16711680
    type: train_normal
    circularState: NONE
    platforms:
      - {station: a, x: 0, z: 0, durationToNext: 60}
      - {station: b, x: 100, z: 0}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	network, err := LoadNetwork(path)
	if err != nil {
		t.Fatalf("LoadNetwork failed: %v", err)
	}
	if len(network.Stations) != 2 || len(network.Routes) != 1 {
		t.Fatalf("unexpected network size: %d stations, %d routes", len(network.Stations), len(network.Routes))
	}
	route := network.Routes[0]
	if route.Color != 0xFF0000 || route.BaseName() != "Red" {
		t.Errorf("unexpected route: %+v", route)
	}
	if route.Platforms[0].StationID != "a" || route.Platforms[0].DurationToNext != 60 {
		t.Errorf("unexpected first platform: %+v", route.Platforms[0])
	}
	if len(network.ExplicitConnections()) != 1 {
		t.Errorf("expected one explicit connection")
	}
}

func TestLoadRouteTypesRejectsUnknownVisibility(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	os.WriteFile(path, []byte("types:\n  - key: train\n    visibility: SPARKLY\n"), 0644)

	if _, err := LoadRouteTypes(path); err == nil {
		t.Error("expected error for unknown visibility")
	}
}
