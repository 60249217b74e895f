// Package service owns the current layout snapshot. It reloads networks from
// the repository, relayouts on visibility changes and caches synthesized frames.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/metromap/internal/draw"
	"github.com/mini-rodalies-3d/metromap/internal/layout"
	"github.com/mini-rodalies-3d/metromap/internal/models"
	"github.com/mini-rodalies-3d/metromap/internal/pathing"
)

var (
	// ErrNoSnapshot is returned before the first successful layout pass
	ErrNoSnapshot = errors.New("no layout available yet")

	// ErrUnknownRouteType is returned when toggling a type the catalog does not know
	ErrUnknownRouteType = errors.New("unknown route type")

	// ErrConnectionNotFound is returned for connection indexes outside the snapshot
	ErrConnectionNotFound = errors.New("line connection not found")
)

// Repository is the storage the service reads networks and the catalog from
type Repository interface {
	LoadNetwork(ctx context.Context) (*models.Network, error)
	LoadRouteTypes(ctx context.Context) ([]models.RouteType, error)
	SeedRouteTypes(ctx context.Context, types []models.RouteType) error
	SetVisibility(ctx context.Context, key string, visibility models.Visibility) error
	Ping(ctx context.Context) error
}

// Snapshot is one published layout pass. It is never modified after publishing.
type Snapshot struct {
	ID          string                       `json:"snapshotId"`
	Generation  uint64                       `json:"generation"`
	GeneratedAt time.Time                    `json:"generatedAt"`
	Result      *layout.Result               `json:"-"`
	RouteTypes  []models.RouteType           `json:"-"`
	Network     *models.Network              `json:"-"`
	Visibility  map[string]models.Visibility `json:"-"`
}

// Options configures a Service
type Options struct {
	Layout    layout.Options
	Draw      draw.Options
	Catalog   *models.RouteTypeCatalog // base catalog, seeded into the repository
	CacheSize int
	CacheTTL  time.Duration
}

// Service publishes layout snapshots and serves frames for them
type Service struct {
	repo Repository
	opts Options

	// mu serializes changes to the layout inputs
	mu      sync.Mutex
	network *models.Network
	catalog *models.RouteTypeCatalog

	generation atomic.Uint64
	current    atomic.Pointer[Snapshot]

	frames gcache.Cache
	timer  passTimer
}

// New creates a service. repo may be nil for networks loaded from files.
func New(repo Repository, opts Options) *Service {
	if opts.Catalog == nil {
		opts.Catalog = models.DefaultRouteTypes()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}

	builder := gcache.New(opts.CacheSize).LRU()
	if opts.CacheTTL > 0 {
		builder = builder.Expiration(opts.CacheTTL)
	}

	catalog := &models.RouteTypeCatalog{Types: append([]models.RouteType(nil), opts.Catalog.Types...)}
	return &Service{
		repo:    repo,
		opts:    opts,
		catalog: catalog,
		frames:  builder.Build(),
	}
}

// Snapshot returns the latest published snapshot, or nil before the first pass
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// RouteTypes returns the catalog with the visibility currently applied
func (s *Service) RouteTypes() []models.RouteType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RouteType(nil), s.catalog.Types...)
}

// Ping checks the repository
func (s *Service) Ping(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Ping(ctx)
}

// Refresh reloads the network and the route-type catalog from the repository and relayouts
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	if s.repo == nil {
		return nil, errors.New("no repository configured")
	}

	if err := s.repo.SeedRouteTypes(ctx, s.opts.Catalog.Types); err != nil {
		return nil, fmt.Errorf("failed to seed route types: %w", err)
	}
	stored, err := s.repo.LoadRouteTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load route types: %w", err)
	}
	network, err := s.repo.LoadNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}

	catalog := &models.RouteTypeCatalog{Types: stored}
	catalog.Merge(s.opts.Catalog.Types)

	s.mu.Lock()
	s.network = network
	s.catalog = catalog
	s.mu.Unlock()

	return s.relayout(), nil
}

// Load installs a network directly (fixtures, CLI) and relayouts
func (s *Service) Load(network *models.Network) *Snapshot {
	s.mu.Lock()
	s.network = network
	s.mu.Unlock()

	return s.relayout()
}

// SetVisibility changes how routes of one type are drawn and relayouts
func (s *Service) SetVisibility(ctx context.Context, key string, visibility models.Visibility) (*Snapshot, error) {
	s.mu.Lock()
	_, known := s.catalog.Find(key)
	s.mu.Unlock()

	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRouteType, key)
	}

	if s.repo != nil {
		if err := s.repo.SetVisibility(ctx, key, visibility); err != nil {
			return nil, fmt.Errorf("failed to store visibility: %w", err)
		}
	}

	s.mu.Lock()
	types := append([]models.RouteType(nil), s.catalog.Types...)
	for i := range types {
		if types[i].Key == key {
			types[i].Visibility = visibility
		}
	}
	s.catalog = &models.RouteTypeCatalog{Types: types}
	s.mu.Unlock()

	log.Printf("Route type %s set to %s", key, visibility)
	return s.relayout(), nil
}

// relayout runs a layout pass over the current inputs and publishes it unless
// a newer pass has already been published
func (s *Service) relayout() *Snapshot {
	// Inputs and generation are taken together so a higher generation
	// always sees inputs at least as new
	s.mu.Lock()
	network := s.network
	catalog := s.catalog
	generation := s.generation.Add(1)
	s.mu.Unlock()

	if network == nil {
		network = &models.Network{}
	}

	visibility := catalog.VisibilityMap()
	start := time.Now()
	result := layout.Compute(layout.Input{
		Stations:    network.Stations,
		Routes:      network.Routes,
		Visibility:  visibility,
		Connections: network.Connections,
	}, s.opts.Layout)

	snapshot := &Snapshot{
		ID:          uuid.New().String(),
		Generation:  generation,
		GeneratedAt: time.Now().UTC(),
		Result:      result,
		RouteTypes:  catalog.Types,
		Network:     network,
		Visibility:  visibility,
	}

	for {
		current := s.current.Load()
		if current != nil && current.Generation > generation {
			s.timer.observe(time.Since(start), false)
			log.Printf("Layout pass %d superseded by %d, discarding", generation, current.Generation)
			return current
		}
		if s.current.CompareAndSwap(current, snapshot) {
			break
		}
	}

	s.timer.observe(time.Since(start), true)
	log.Printf("Layout %d: %d stations, %d line connections, %d station connections in %v",
		generation, len(result.Stations), len(result.LineConnections), len(result.StationConnections),
		time.Since(start).Round(time.Millisecond))
	return snapshot
}

// Stats returns running statistics of layout pass durations
func (s *Service) Stats() PassStats {
	return s.timer.stats()
}

func frameKey(id string, view pathing.Viewport) string {
	return fmt.Sprintf("%s|%g|%g|%g|%g|%g", id, view.CenterX, view.CenterY, view.Width, view.Height, view.Zoom)
}

// Frame returns draw primitives of the current snapshot for a viewport
func (s *Service) Frame(view pathing.Viewport) (*draw.Frame, *Snapshot, error) {
	snapshot := s.current.Load()
	if snapshot == nil {
		return nil, nil, ErrNoSnapshot
	}
	if err := view.Validate(); err != nil {
		return nil, nil, err
	}

	key := frameKey(snapshot.ID, view)
	if cached, err := s.frames.Get(key); err == nil {
		return cached.(*draw.Frame), snapshot, nil
	}

	frame := draw.Emit(snapshot.Result, view, s.opts.Draw)
	if err := s.frames.Set(key, frame); err != nil {
		log.Printf("Warning: failed to cache frame: %v", err)
	}
	return frame, snapshot, nil
}

// ConnectionPath synthesizes every part of one line connection of the current snapshot
func (s *Service) ConnectionPath(index int, view pathing.Viewport) (*layout.LineConnection, []pathing.PartPath, error) {
	snapshot := s.current.Load()
	if snapshot == nil {
		return nil, nil, ErrNoSnapshot
	}
	if err := view.Validate(); err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(snapshot.Result.LineConnections) {
		return nil, nil, fmt.Errorf("%w: %d", ErrConnectionNotFound, index)
	}

	conn := &snapshot.Result.LineConnections[index]
	return conn, pathing.SynthesizeConnection(conn, view, s.opts.Draw.Path), nil
}
