package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mini-rodalies-3d/metromap/internal/models"
)

// SQLiteStore keeps networks and the route-type catalog in a SQLite file
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // SQLite allows a single writer
}

// NewSQLiteStore opens (and creates if needed) a SQLite database with WAL mode enabled
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Connected to SQLite database: %s", dbPath)
	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates tables if they don't exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveNetwork replaces the stored network in one transaction
func (s *SQLiteStore) SaveNetwork(ctx context.Context, network *models.Network, source string) (*ImportRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteNetworkSQL); err != nil {
		return nil, fmt.Errorf("failed to clear network: %w", err)
	}

	stationStmt, err := tx.PrepareContext(ctx, insertStationSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer stationStmt.Close()

	for i, st := range network.Stations {
		_, err := stationStmt.ExecContext(ctx, st.ID, i, st.Name, st.Color, st.Zone1, st.Zone2, st.Zone3,
			st.Position.X, st.Position.Y, st.Position.Z)
		if err != nil {
			return nil, fmt.Errorf("failed to insert station %s: %w", st.ID, err)
		}
	}

	for _, link := range network.ExplicitConnections() {
		if _, err := tx.ExecContext(ctx, insertConnectionSQL, link.StationA, link.StationB); err != nil {
			return nil, fmt.Errorf("failed to insert connection %s-%s: %w", link.StationA, link.StationB, err)
		}
	}

	platformStmt, err := tx.PrepareContext(ctx, insertPlatformSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare platform insert: %w", err)
	}
	defer platformStmt.Close()

	for i, route := range network.Routes {
		_, err := tx.ExecContext(ctx, insertRouteSQL, route.ID, i, route.Name, route.Color, route.Number,
			route.Type, string(route.CircularState), joinDepots(route.Depots))
		if err != nil {
			return nil, fmt.Errorf("failed to insert route %s: %w", route.ID, err)
		}

		for seq, p := range route.Platforms {
			_, err := platformStmt.ExecContext(ctx, route.ID, seq, p.StationID, p.X, p.Y, p.Z, p.DwellTime, p.DurationToNext)
			if err != nil {
				return nil, fmt.Errorf("failed to insert platform %d of route %s: %w", seq, route.ID, err)
			}
		}
	}

	record := newImportRecord(network, source)
	_, err = tx.ExecContext(ctx, insertImportSQL, record.ID, record.Source,
		record.ImportedAt.Format(timestampLayout), record.StationCount, record.RouteCount)
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit network: %w", err)
	}

	return &record, nil
}

// LoadNetwork reads the stored network in its saved order
func (s *SQLiteStore) LoadNetwork(ctx context.Context) (*models.Network, error) {
	// Each query closes its rows before the next one: the pool holds a single connection
	stations, err := s.loadStations(ctx)
	if err != nil {
		return nil, err
	}
	connections, err := s.loadConnections(ctx)
	if err != nil {
		return nil, err
	}
	routes, err := s.loadRoutes(ctx)
	if err != nil {
		return nil, err
	}
	platforms, err := s.loadPlatforms(ctx)
	if err != nil {
		return nil, err
	}

	attachPlatforms(routes, platforms)
	return &models.Network{Stations: stations, Routes: routes, Connections: connections}, nil
}

func (s *SQLiteStore) loadStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.db.QueryContext(ctx, selectStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Color, &st.Zone1, &st.Zone2, &st.Zone3,
			&st.Position.X, &st.Position.Y, &st.Position.Z); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}
	return stations, nil
}

func (s *SQLiteStore) loadConnections(ctx context.Context) ([]models.StationLink, error) {
	rows, err := s.db.QueryContext(ctx, selectConnectionsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query station connections: %w", err)
	}
	defer rows.Close()

	links := []models.StationLink{}
	for rows.Next() {
		var link models.StationLink
		if err := rows.Scan(&link.StationA, &link.StationB); err != nil {
			return nil, fmt.Errorf("failed to scan connection row: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connection rows: %w", err)
	}
	return links, nil
}

func (s *SQLiteStore) loadRoutes(ctx context.Context) ([]models.Route, error) {
	rows, err := s.db.QueryContext(ctx, selectRoutesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	routes := []models.Route{}
	for rows.Next() {
		var route models.Route
		var circular, depots string
		if err := rows.Scan(&route.ID, &route.Name, &route.Color, &route.Number, &route.Type, &circular, &depots); err != nil {
			return nil, fmt.Errorf("failed to scan route row: %w", err)
		}
		route.CircularState = models.CircularState(circular)
		route.Depots = splitDepots(depots)
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating route rows: %w", err)
	}
	return routes, nil
}

func (s *SQLiteStore) loadPlatforms(ctx context.Context) (map[string][]models.RoutePlatform, error) {
	rows, err := s.db.QueryContext(ctx, selectPlatformsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query route platforms: %w", err)
	}
	defer rows.Close()

	platforms := make(map[string][]models.RoutePlatform)
	for rows.Next() {
		var routeID string
		var p models.RoutePlatform
		if err := rows.Scan(&routeID, &p.StationID, &p.X, &p.Y, &p.Z, &p.DwellTime, &p.DurationToNext); err != nil {
			return nil, fmt.Errorf("failed to scan platform row: %w", err)
		}
		platforms[routeID] = append(platforms[routeID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform rows: %w", err)
	}
	return platforms, nil
}

// LatestImport returns the most recent SaveNetwork record
func (s *SQLiteStore) LatestImport(ctx context.Context) (*ImportRecord, error) {
	var record ImportRecord
	var importedAt string
	err := s.db.QueryRowContext(ctx, selectLatestImportSQL).Scan(
		&record.ID, &record.Source, &importedAt, &record.StationCount, &record.RouteCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest import: %w", err)
	}

	record.ImportedAt, _ = parseTimestamp(importedAt)
	return &record, nil
}

// LoadRouteTypes returns the stored route-type catalog sorted by key
func (s *SQLiteStore) LoadRouteTypes(ctx context.Context) ([]models.RouteType, error) {
	rows, err := s.db.QueryContext(ctx, selectRouteTypesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query route types: %w", err)
	}
	defer rows.Close()

	types := []models.RouteType{}
	for rows.Next() {
		var rt models.RouteType
		var visibility string
		if err := rows.Scan(&rt.Key, &rt.Name, &rt.Icon, &visibility); err != nil {
			return nil, fmt.Errorf("failed to scan route type row: %w", err)
		}
		rt.Visibility = models.Visibility(visibility)
		types = append(types, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating route type rows: %w", err)
	}

	return types, nil
}

// SeedRouteTypes inserts catalog entries that are not stored yet; existing rows keep their visibility
func (s *SQLiteStore) SeedRouteTypes(ctx context.Context, types []models.RouteType) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rt := range types {
		if _, err := tx.ExecContext(ctx, seedRouteTypeSQL, rt.Key, rt.Name, rt.Icon, string(rt.Visibility)); err != nil {
			return fmt.Errorf("failed to seed route type %s: %w", rt.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit route types: %w", err)
	}
	return nil
}

// SetVisibility updates the visibility of one route type
func (s *SQLiteStore) SetVisibility(ctx context.Context, key string, visibility models.Visibility) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, updateVisibilitySQL, string(visibility), key)
	if err != nil {
		return fmt.Errorf("failed to update visibility of %s: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("route type %s: %w", key, ErrNotFound)
	}
	return nil
}
