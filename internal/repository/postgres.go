package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-rodalies-3d/metromap/internal/models"
)

// PostgresStore keeps networks and the route-type catalog in Postgres
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates tables if they don't exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveNetwork replaces the stored network in one transaction
func (s *PostgresStore) SaveNetwork(ctx context.Context, network *models.Network, source string) (*ImportRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteNetworkSQL); err != nil {
		return nil, fmt.Errorf("failed to clear network: %w", err)
	}

	stationRows := make([][]interface{}, len(network.Stations))
	for i, st := range network.Stations {
		stationRows[i] = []interface{}{st.ID, i, st.Name, st.Color, st.Zone1, st.Zone2, st.Zone3,
			st.Position.X, st.Position.Y, st.Position.Z}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"stations"},
		[]string{"id", "seq", "name", "color", "zone1", "zone2", "zone3", "x", "y", "z"},
		pgx.CopyFromRows(stationRows)); err != nil {
		return nil, fmt.Errorf("failed to copy stations: %w", err)
	}

	links := network.ExplicitConnections()
	linkRows := make([][]interface{}, len(links))
	for i, link := range links {
		linkRows[i] = []interface{}{link.StationA, link.StationB}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"station_connections"},
		[]string{"station_a", "station_b"}, pgx.CopyFromRows(linkRows)); err != nil {
		return nil, fmt.Errorf("failed to copy station connections: %w", err)
	}

	routeRows := make([][]interface{}, len(network.Routes))
	var platformRows [][]interface{}
	for i, route := range network.Routes {
		routeRows[i] = []interface{}{route.ID, i, route.Name, route.Color, route.Number, route.Type,
			string(route.CircularState), joinDepots(route.Depots)}
		for seq, p := range route.Platforms {
			platformRows = append(platformRows, []interface{}{route.ID, seq, p.StationID, p.X, p.Y, p.Z,
				p.DwellTime, p.DurationToNext})
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"routes"},
		[]string{"id", "seq", "name", "color", "number", "type", "circular_state", "depots"},
		pgx.CopyFromRows(routeRows)); err != nil {
		return nil, fmt.Errorf("failed to copy routes: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"route_platforms"},
		[]string{"route_id", "seq", "station_id", "x", "y", "z", "dwell_time", "duration_to_next"},
		pgx.CopyFromRows(platformRows)); err != nil {
		return nil, fmt.Errorf("failed to copy route platforms: %w", err)
	}

	record := newImportRecord(network, source)
	if _, err := tx.Exec(ctx, rebind(insertImportSQL), record.ID, record.Source,
		record.ImportedAt.Format(timestampLayout), record.StationCount, record.RouteCount); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit network: %w", err)
	}

	return &record, nil
}

// LoadNetwork reads the stored network in its saved order
func (s *PostgresStore) LoadNetwork(ctx context.Context) (*models.Network, error) {
	network := &models.Network{
		Stations:    []models.Station{},
		Routes:      []models.Route{},
		Connections: []models.StationLink{},
	}

	rows, err := s.pool.Query(ctx, selectStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	network.Stations, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Station, error) {
		var st models.Station
		err := row.Scan(&st.ID, &st.Name, &st.Color, &st.Zone1, &st.Zone2, &st.Zone3,
			&st.Position.X, &st.Position.Y, &st.Position.Z)
		return st, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan station rows: %w", err)
	}

	rows, err = s.pool.Query(ctx, selectConnectionsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query station connections: %w", err)
	}
	network.Connections, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StationLink, error) {
		var link models.StationLink
		err := row.Scan(&link.StationA, &link.StationB)
		return link, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection rows: %w", err)
	}

	rows, err = s.pool.Query(ctx, selectRoutesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	network.Routes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Route, error) {
		var route models.Route
		var circular, depots string
		err := row.Scan(&route.ID, &route.Name, &route.Color, &route.Number, &route.Type, &circular, &depots)
		route.CircularState = models.CircularState(circular)
		route.Depots = splitDepots(depots)
		return route, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan route rows: %w", err)
	}

	rows, err = s.pool.Query(ctx, selectPlatformsSQL)
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

	attachPlatforms(network.Routes, platforms)
	return network, nil
}

// LatestImport returns the most recent SaveNetwork record
func (s *PostgresStore) LatestImport(ctx context.Context) (*ImportRecord, error) {
	var record ImportRecord
	var importedAt string
	err := s.pool.QueryRow(ctx, selectLatestImportSQL).Scan(
		&record.ID, &record.Source, &importedAt, &record.StationCount, &record.RouteCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest import: %w", err)
	}

	record.ImportedAt, _ = parseTimestamp(importedAt)
	return &record, nil
}

// LoadRouteTypes returns the stored route-type catalog sorted by key
func (s *PostgresStore) LoadRouteTypes(ctx context.Context) ([]models.RouteType, error) {
	rows, err := s.pool.Query(ctx, selectRouteTypesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query route types: %w", err)
	}
	types, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RouteType, error) {
		var rt models.RouteType
		var visibility string
		err := row.Scan(&rt.Key, &rt.Name, &rt.Icon, &visibility)
		rt.Visibility = models.Visibility(visibility)
		return rt, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan route type rows: %w", err)
	}
	if types == nil {
		types = []models.RouteType{}
	}
	return types, nil
}

// SeedRouteTypes inserts catalog entries that are not stored yet; existing rows keep their visibility
func (s *PostgresStore) SeedRouteTypes(ctx context.Context, types []models.RouteType) error {
	batch := &pgx.Batch{}
	query := rebind(seedRouteTypeSQL)
	for _, rt := range types {
		batch.Queue(query, rt.Key, rt.Name, rt.Icon, string(rt.Visibility))
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed route types: %w", err)
	}
	return nil
}

// SetVisibility updates the visibility of one route type
func (s *PostgresStore) SetVisibility(ctx context.Context, key string, visibility models.Visibility) error {
	tag, err := s.pool.Exec(ctx, rebind(updateVisibilitySQL), string(visibility), key)
	if err != nil {
		return fmt.Errorf("failed to update visibility of %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("route type %s: %w", key, ErrNotFound)
	}
	return nil
}
