package draw

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/mini-rodalies-3d/metromap/internal/layout"
	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

func testResult(t *testing.T) *layout.Result {
	t.Helper()
	stations := []models.Station{
		{ID: "a", Name: "Alpha", Position: models.Position{X: 0}},
		{ID: "b", Name: "Beta", Position: models.Position{X: 100}},
		{ID: "c", Name: "Gamma", Position: models.Position{X: 200}},
		{ID: "d", Name: "Delta", Position: models.Position{X: 100, Z: 40}},
	}
	r := models.Route{ID: "red", Color: 0xFF0000, Type: "train_normal"}
	for _, s := range stations[:3] {
		r.Platforms = append(r.Platforms, models.RoutePlatform{StationID: s.ID, X: s.Position.X, Z: s.Position.Z})
	}

	return layout.Compute(layout.Input{
		Stations:    stations,
		Routes:      []models.Route{r},
		Connections: []models.StationLink{{StationA: "b", StationB: "d"}},
	}, layout.Options{})
}

func testView(result *layout.Result) pathing.Viewport {
	return pathing.Viewport{CenterX: result.CenterX, CenterY: result.CenterY, Width: 400, Height: 200, Zoom: 1}
}

func TestEmit(t *testing.T) {
	result := testResult(t)
	frame := Emit(result, testView(result), DefaultOptions())

	if len(frame.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(frame.Lines))
	}
	for i, line := range frame.Lines {
		if line.Color != "#ff0000" || line.Style != models.VisibilitySolid {
			t.Errorf("line %d: color %s style %s", i, line.Color, line.Style)
		}
		if line.Z != i {
			t.Errorf("line %d has z %d", i, line.Z)
		}
		if len(line.Segments) != 1 || len(line.Segments[0]) != 2 {
			t.Errorf("line %d: expected one straight run, got %v", i, line.Segments)
		}
	}

	if len(frame.Arrows) != 2 {
		t.Errorf("one-way route should get an arrow per connection, got %d", len(frame.Arrows))
	}
	if len(frame.Stations) != 3 {
		t.Errorf("expected 3 stations with routes, got %d", len(frame.Stations))
	}
	for _, station := range frame.Stations {
		if station.Width != 8 || station.Height != 8 {
			t.Errorf("station %s size %vx%v, want 8x8", station.ID, station.Width, station.Height)
		}
	}
	if len(frame.Connectors) != 1 || frame.Connectors[0].Station2 != "d" {
		t.Errorf("unexpected connectors %+v", frame.Connectors)
	}
	if frame.Skipped != 0 {
		t.Errorf("no line should be skipped, got %d", frame.Skipped)
	}
}

func TestEmitCullsOffscreen(t *testing.T) {
	result := testResult(t)
	view := testView(result)
	view.CenterX = 10000

	frame := Emit(result, view, DefaultOptions())
	if len(frame.Lines) != 0 || len(frame.Stations) != 0 || len(frame.Connectors) != 0 {
		t.Errorf("offscreen frame not empty: %d lines, %d stations, %d connectors",
			len(frame.Lines), len(frame.Stations), len(frame.Connectors))
	}
}

func TestWritePNG(t *testing.T) {
	result := testResult(t)
	frame := Emit(result, testView(result), DefaultOptions())

	var buf bytes.Buffer
	if err := WritePNG(&buf, frame, DefaultPNGOptions()); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 200 {
		t.Errorf("image size %v, want 400x200", img.Bounds())
	}

	// a point on the a-b line, clear of stations and arrows
	r, g, b, _ := img.At(120, 100).RGBA()
	if r>>8 < 200 || g>>8 > 80 || b>>8 > 80 {
		t.Errorf("expected red at (120, 100), got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestWritePNGRejectsEmptyViewport(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, &Frame{}, DefaultPNGOptions()); err == nil {
		t.Error("expected an error for a zero-size frame")
	}
}

func TestWritePNGRejectsOversizedViewport(t *testing.T) {
	tests := []struct {
		name   string
		width  float64
		height float64
	}{
		{"too wide", DefaultMaxCanvasSize + 1, 100},
		{"too tall", 100, 60000},
		{"infinite", math.Inf(1), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := &Frame{Viewport: pathing.Viewport{Width: tt.width, Height: tt.height, Zoom: 1}}
			var buf bytes.Buffer
			if err := WritePNG(&buf, frame, DefaultPNGOptions()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
