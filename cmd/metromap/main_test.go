package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mini-rodalies-3d/metromap/internal/config"
	"github.com/mini-rodalies-3d/metromap/internal/draw"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("SQLITE_DATABASE", filepath.Join(t.TempDir(), "data", "metromap.db"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ROUTE_TYPES_FILE", "")
	return config.Load()
}

func TestImportThenLayout(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	if err := runImport(ctx, cfg, "testdata/network.yaml", true); err != nil {
		t.Fatalf("runImport failed: %v", err)
	}

	_, snapshot, err := loadSnapshot(ctx, cfg, "")
	if err != nil {
		t.Fatalf("loadSnapshot failed: %v", err)
	}

	result := snapshot.Result
	if len(result.Stations) != 4 {
		t.Errorf("expected 4 stations, got %d", len(result.Stations))
	}
	// sants:catalunya is shared by both routes
	if len(result.LineConnections) != 3 {
		t.Errorf("expected 3 line connections, got %d", len(result.LineConnections))
	}
	if len(result.StationConnections) != 1 {
		t.Errorf("expected 1 station connection, got %d", len(result.StationConnections))
	}
}

func TestLoadSnapshotFromFixture(t *testing.T) {
	cfg := testConfig(t)

	svc, snapshot, err := loadSnapshot(context.Background(), cfg, "testdata/network.yaml")
	if err != nil {
		t.Fatalf("loadSnapshot failed: %v", err)
	}

	frame, _, err := svc.Frame(pathing.Viewport{
		CenterX: snapshot.Result.CenterX,
		CenterY: snapshot.Result.CenterY,
		Width:   800,
		Height:  600,
		Zoom:    1,
	})
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if len(frame.Lines) == 0 || len(frame.Stations) != 4 {
		t.Errorf("unexpected frame: %d lines, %d stations", len(frame.Lines), len(frame.Stations))
	}

	out := filepath.Join(t.TempDir(), "map.png")
	if err := draw.SavePNG(out, frame, draw.DefaultPNGOptions()); err != nil {
		t.Errorf("SavePNG failed: %v", err)
	}
}

func TestLoadSnapshot_MissingFixture(t *testing.T) {
	cfg := testConfig(t)

	if _, _, err := loadSnapshot(context.Background(), cfg, "testdata/missing.yaml"); err == nil {
		t.Error("expected an error for a missing fixture")
	}
}

func TestImportIsStale(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	stale, err := importIsStale(ctx, cfg, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("importIsStale failed: %v", err)
	}
	if !stale {
		t.Error("expected an empty store to be stale")
	}

	if err := runImport(ctx, cfg, "testdata/network.yaml", true); err != nil {
		t.Fatalf("runImport failed: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"fresh", time.Now(), false},
		{"expired", time.Now().Add(48 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stale, err := importIsStale(ctx, cfg, 24*time.Hour, tt.now)
			if err != nil {
				t.Fatalf("importIsStale failed: %v", err)
			}
			if stale != tt.want {
				t.Errorf("stale = %v, want %v", stale, tt.want)
			}
		})
	}
}
