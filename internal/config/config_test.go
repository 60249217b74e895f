package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mini-rodalies-3d/metromap/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SQLITE_DATABASE", "DATABASE_URL", "PORT", "LINE_SPACING", "DEFAULT_VISIBILITY", "PATH_CACHE_TTL_SECONDS", "MAX_CANVAS_SIZE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DatabasePath != "data/metromap.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Port != "8081" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.UsePostgres() {
		t.Error("Postgres should be off without DATABASE_URL")
	}
	if cfg.LineSpacing != 6 || cfg.ArrowSpacing != 80 {
		t.Errorf("spacing = %v/%v", cfg.LineSpacing, cfg.ArrowSpacing)
	}
	if cfg.DefaultVisibility != models.VisibilitySolid {
		t.Errorf("DefaultVisibility = %q", cfg.DefaultVisibility)
	}
	if cfg.PathCacheTTL != 5*time.Minute {
		t.Errorf("PathCacheTTL = %v", cfg.PathCacheTTL)
	}
	if cfg.MaxCanvasSize != 4096 || cfg.PNGOptions().MaxSize != 4096 {
		t.Errorf("MaxCanvasSize = %d", cfg.MaxCanvasSize)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/metromap")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("LINE_SPACING", "8.5")
	t.Setenv("ARROW_SPACING", "-3")
	t.Setenv("DEFAULT_VISIBILITY", "dashed")
	t.Setenv("PATH_CACHE_SIZE", "not-a-number")
	t.Setenv("MAX_CANVAS_SIZE", "-1")

	cfg := Load()
	if !cfg.UsePostgres() {
		t.Error("expected Postgres to be selected")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LineSpacing != 8.5 {
		t.Errorf("LineSpacing = %v", cfg.LineSpacing)
	}
	if cfg.ArrowSpacing != 80 {
		t.Errorf("negative ARROW_SPACING should fall back to the default, got %v", cfg.ArrowSpacing)
	}
	if cfg.DefaultVisibility != models.VisibilityDashed {
		t.Errorf("DefaultVisibility = %q", cfg.DefaultVisibility)
	}
	if cfg.PathCacheSize != 256 {
		t.Errorf("PathCacheSize = %d", cfg.PathCacheSize)
	}
	if cfg.MaxCanvasSize != 4096 {
		t.Errorf("non-positive MAX_CANVAS_SIZE should fall back to the default, got %d", cfg.MaxCanvasSize)
	}

	if got := cfg.DrawOptions().Path.LineSpacing; got != 8.5 {
		t.Errorf("draw options line spacing = %v", got)
	}
	if got := cfg.LayoutOptions().DefaultVisibility; got != models.VisibilityDashed {
		t.Errorf("layout options visibility = %q", got)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9000\nSTATIC_DIR=/srv/base\n"), 0644)
	os.WriteFile(filepath.Join(dir, ".env.local"), []byte("STATIC_DIR=/srv/local\n"), 0644)

	t.Setenv("PORT", "")
	t.Setenv("STATIC_DIR", "")
	os.Unsetenv("PORT")
	os.Unsetenv("STATIC_DIR")

	LoadEnvFiles(dir)
	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000 from .env", cfg.Port)
	}
	if cfg.StaticDir != "/srv/local" {
		t.Errorf("StaticDir = %q, want .env.local to override", cfg.StaticDir)
	}
}
