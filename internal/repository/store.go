package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/metromap/internal/models"
)

// schemaSQL is the single source of truth for the database schema of both stores.
//
//go:embed schema.sql
var schemaSQL string

// timestampLayout is fixed width so stored timestamps sort as text
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a keyed row does not exist
var ErrNotFound = errors.New("not found")

// ImportRecord describes one network written by SaveNetwork
type ImportRecord struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	ImportedAt   time.Time `json:"importedAt"`
	StationCount int       `json:"stationCount"`
	RouteCount   int       `json:"routeCount"`
}

// Store is the method set shared by the SQLite and Postgres stores
type Store interface {
	SaveNetwork(ctx context.Context, network *models.Network, source string) (*ImportRecord, error)
	LoadNetwork(ctx context.Context) (*models.Network, error)
	LatestImport(ctx context.Context) (*ImportRecord, error)
	LoadRouteTypes(ctx context.Context) ([]models.RouteType, error)
	SeedRouteTypes(ctx context.Context, types []models.RouteType) error
	SetVisibility(ctx context.Context, key string, visibility models.Visibility) error
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to Postgres when databaseURL is set, otherwise to the SQLite file at dbPath
func Open(ctx context.Context, databaseURL, dbPath string) (Store, error) {
	if databaseURL != "" {
		log.Println("Using Postgres repository")
		store, err := NewPostgresStore(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := NewSQLiteStore(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newImportRecord(network *models.Network, source string) ImportRecord {
	return ImportRecord{
		ID:           uuid.New().String(),
		Source:       source,
		ImportedAt:   time.Now().UTC(),
		StationCount: len(network.Stations),
		RouteCount:   len(network.Routes),
	}
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(timestampLayout, value)
}

const (
	deleteNetworkSQL = `
		DELETE FROM route_platforms;
		DELETE FROM routes;
		DELETE FROM station_connections;
		DELETE FROM stations;
	`

	insertStationSQL = `
		INSERT INTO stations (id, seq, name, color, zone1, zone2, zone3, x, y, z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertConnectionSQL = `
		INSERT INTO station_connections (station_a, station_b) VALUES (?, ?)
	`

	insertRouteSQL = `
		INSERT INTO routes (id, seq, name, color, number, type, circular_state, depots)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertPlatformSQL = `
		INSERT INTO route_platforms (route_id, seq, station_id, x, y, z, dwell_time, duration_to_next)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertImportSQL = `
		INSERT INTO network_imports (id, source, imported_at, station_count, route_count)
		VALUES (?, ?, ?, ?, ?)
	`

	selectStationsSQL = `
		SELECT id, name, color, zone1, zone2, zone3, x, y, z
		FROM stations
		ORDER BY seq
	`

	selectConnectionsSQL = `
		SELECT station_a, station_b
		FROM station_connections
		ORDER BY station_a, station_b
	`

	selectRoutesSQL = `
		SELECT id, name, color, number, type, circular_state, depots
		FROM routes
		ORDER BY seq
	`

	selectPlatformsSQL = `
		SELECT route_id, station_id, x, y, z, dwell_time, duration_to_next
		FROM route_platforms
		ORDER BY route_id, seq
	`

	selectLatestImportSQL = `
		SELECT id, source, imported_at, station_count, route_count
		FROM network_imports
		ORDER BY imported_at DESC
		LIMIT 1
	`

	selectRouteTypesSQL = `
		SELECT key, name, icon, visibility
		FROM route_types
		ORDER BY key
	`

	seedRouteTypeSQL = `
		INSERT INTO route_types (key, name, icon, visibility)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO NOTHING
	`

	updateVisibilitySQL = `
		UPDATE route_types SET visibility = ? WHERE key = ?
	`
)

// rebind rewrites ? placeholders to Postgres' $n form
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func joinDepots(depots []string) string {
	return strings.Join(depots, ",")
}

func splitDepots(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// attachPlatforms distributes platform rows onto their routes, keeping route order
func attachPlatforms(routes []models.Route, platforms map[string][]models.RoutePlatform) {
	for i := range routes {
		routes[i].Platforms = platforms[routes[i].ID]
		if routes[i].Platforms == nil {
			routes[i].Platforms = []models.RoutePlatform{}
		}
	}
}
