package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mini-rodalies-3d/metromap/internal/draw"
	"github.com/mini-rodalies-3d/metromap/internal/layout"
	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

// Config holds all configuration for the map service and CLI
type Config struct {
	// Database
	DatabasePath string
	DatabaseURL  string // Postgres is used instead of SQLite when set

	// HTTP
	Port        string
	CORSOrigins []string
	StaticDir   string

	// Route types
	RouteTypesFile    string
	DefaultVisibility models.Visibility

	// Drawing
	LineSpacing    float64
	ArrowSpacing   float64
	StationPadding float64
	MaxCanvasSize  int // largest canvas side, in pixels, that frames and PNGs accept

	// Path frame cache
	PathCacheSize int
	PathCacheTTL  time.Duration
}

// LoadEnvFiles loads .env, then .env.local which overrides it. Missing files are ignored.
func LoadEnvFiles(dir string) {
	_ = godotenv.Load(dir + "/.env")
	_ = godotenv.Overload(dir + "/.env.local")
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	cfg := &Config{
		// Database
		DatabasePath: getEnv("SQLITE_DATABASE", "data/metromap.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		// HTTP
		Port:        getEnv("PORT", "8081"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		StaticDir:   getEnv("STATIC_DIR", ""),

		// Route types
		RouteTypesFile: getEnv("ROUTE_TYPES_FILE", ""),

		// Drawing
		LineSpacing:    getEnvFloat("LINE_SPACING", 6),
		ArrowSpacing:   getEnvFloat("ARROW_SPACING", 80),
		StationPadding: getEnvFloat("STATION_PADDING", 4),
		MaxCanvasSize:  getEnvInt("MAX_CANVAS_SIZE", draw.DefaultMaxCanvasSize),

		// Path frame cache
		PathCacheSize: getEnvInt("PATH_CACHE_SIZE", 256),
		PathCacheTTL:  time.Duration(getEnvInt("PATH_CACHE_TTL_SECONDS", 300)) * time.Second,
	}

	visibility, err := models.ParseVisibility(getEnv("DEFAULT_VISIBILITY", string(models.VisibilitySolid)))
	if err != nil {
		log.Printf("Warning: %v, using %s", err, models.VisibilitySolid)
		visibility = models.VisibilitySolid
	}
	cfg.DefaultVisibility = visibility

	if cfg.MaxCanvasSize <= 0 {
		log.Printf("Warning: MAX_CANVAS_SIZE must be positive, using %d", draw.DefaultMaxCanvasSize)
		cfg.MaxCanvasSize = draw.DefaultMaxCanvasSize
	}

	return cfg
}

// PNGOptions returns raster settings bounded by MaxCanvasSize
func (c *Config) PNGOptions() draw.PNGOptions {
	opts := draw.DefaultPNGOptions()
	opts.MaxSize = c.MaxCanvasSize
	return opts
}

// LayoutOptions returns the settings of a layout pass
func (c *Config) LayoutOptions() layout.Options {
	return layout.Options{DefaultVisibility: c.DefaultVisibility}
}

// PathOptions returns the settings of path synthesis
func (c *Config) PathOptions() pathing.Options {
	return pathing.Options{LineSpacing: c.LineSpacing, ArrowSpacing: c.ArrowSpacing}
}

// DrawOptions returns the settings of the draw-data emitter
func (c *Config) DrawOptions() draw.Options {
	return draw.Options{Path: c.PathOptions(), StationPadding: c.StationPadding}
}

// UsePostgres reports whether DATABASE_URL selects the Postgres repository
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil && floatValue > 0 {
			return floatValue
		}
		log.Printf("Warning: invalid %s=%q, using %g", key, value, defaultValue)
	}
	return defaultValue
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
