package layout

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/mini-rodalies-3d/metromap/internal/geometry"
	"github.com/mini-rodalies-3d/metromap/internal/models"
)

const (
	trafficForward  = 1 << iota // seen travelling Station1 -> Station2
	trafficBackward             // seen travelling Station2 -> Station1
)

type keyInfo struct {
	color     int
	routeType string
	style     models.Visibility
}

type stationState struct {
	groups       map[string][]RouteKey
	observations map[RouteKey][]int
	routeIDs     map[string]bool
	bundles      *StationBundles
}

func (s *stationState) addGroup(neighbor string, key RouteKey) {
	for _, existing := range s.groups[neighbor] {
		if existing == key {
			return
		}
	}
	s.groups[neighbor] = append(s.groups[neighbor], key)
}

type trafficKey struct {
	pair PairKey
	key  RouteKey
}

type builder struct {
	input   Input
	options Options

	stationIndex map[string]int
	positions    []models.Position
	states       map[string]*stationState
	keys         map[RouteKey]keyInfo
	traffic      map[trafficKey]uint8

	connections     []*LineConnection
	connectionIndex map[PairKey]*LineConnection

	warnings []string
}

// Compute runs a full layout pass. It is a pure function of its arguments:
// identical inputs produce identical output, including every ordering.
func Compute(input Input, options Options) *Result {
	if options.DefaultVisibility == "" {
		options.DefaultVisibility = models.VisibilitySolid
	}

	b := &builder{
		input:           input,
		options:         options,
		stationIndex:    make(map[string]int, len(input.Stations)),
		states:          make(map[string]*stationState),
		keys:            make(map[RouteKey]keyInfo),
		traffic:         make(map[trafficKey]uint8),
		connectionIndex: make(map[PairKey]*LineConnection),
	}

	b.indexStations()
	for i := range input.Routes {
		b.addRoute(&input.Routes[i])
	}
	b.resolveStations()

	result := &Result{
		Stations:        b.stationLayouts(),
		LineConnections: b.lineConnections(),
	}
	result.StationConnections = b.stationConnections(result)
	result.CenterX, result.CenterY = center(result.Stations)
	for i := range result.LineConnections {
		result.MaxLineConnectionLength = math.Max(result.MaxLineConnectionLength, result.LineConnections[i].Length)
	}
	result.Warnings = b.warnings

	return result
}

func (b *builder) warnf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	log.Printf("Warning: layout: %s", message)
	b.warnings = append(b.warnings, message)
}

// indexStations also averages each station's position over every platform
// that references it, across all routes regardless of visibility
func (b *builder) indexStations() {
	b.positions = make([]models.Position, len(b.input.Stations))
	for i, station := range b.input.Stations {
		b.stationIndex[station.ID] = i
		b.positions[i] = station.Position
	}

	sums := make([]models.Position, len(b.input.Stations))
	counts := make([]int, len(b.input.Stations))
	for _, route := range b.input.Routes {
		for _, platform := range route.Platforms {
			index, ok := b.stationIndex[platform.StationID]
			if !ok {
				continue
			}
			sums[index].X += platform.X
			sums[index].Y += platform.Y
			sums[index].Z += platform.Z
			counts[index]++
		}
	}

	for i, count := range counts {
		if count == 0 {
			continue
		}
		n := float64(count)
		b.positions[i] = models.Position{X: sums[i].X / n, Y: sums[i].Y / n, Z: sums[i].Z / n}
	}
}

func (b *builder) visibility(routeType string) models.Visibility {
	if v, ok := b.input.Visibility[routeType]; ok && v != "" {
		return v
	}
	return b.options.DefaultVisibility
}

// stationSequence drops platforms of unknown stations and consecutive repeats
func (b *builder) stationSequence(route *models.Route) []string {
	ids := make([]string, 0, len(route.Platforms))
	dropped := 0
	for _, platform := range route.Platforms {
		if _, ok := b.stationIndex[platform.StationID]; !ok {
			dropped++
			continue
		}
		if len(ids) > 0 && ids[len(ids)-1] == platform.StationID {
			continue
		}
		ids = append(ids, platform.StationID)
	}
	if dropped > 0 {
		b.warnf("route %s references %d unknown station(s)", route.ID, dropped)
	}
	return ids
}

func (b *builder) addRoute(route *models.Route) {
	style := b.visibility(route.Type)
	if style == models.VisibilityHidden {
		return
	}

	ids := b.stationSequence(route)
	if len(ids) < 2 {
		return
	}

	key := NewRouteKey(route.Color, route.Type)
	if _, ok := b.keys[key]; !ok {
		b.keys[key] = keyInfo{color: route.Color & 0xFFFFFF, routeType: route.Type, style: style}
	}

	b.walk(route.ID, ids, key, true)
	b.walk(route.ID, ids, key, false)
}

func (b *builder) state(id string) *stationState {
	state, ok := b.states[id]
	if !ok {
		state = &stationState{
			groups:       make(map[string][]RouteKey),
			observations: make(map[RouteKey][]int),
			routeIDs:     make(map[string]bool),
		}
		b.states[id] = state
	}
	return state
}

func (b *builder) walk(routeID string, ids []string, key RouteKey, forwards bool) {
	n := len(ids)
	for i := 0; i < n; i++ {
		index := i
		if !forwards {
			index = n - 1 - i
		}
		current := ids[index]

		previous, next := current, current
		if index > 0 {
			previous = ids[index-1]
		}
		if index < n-1 {
			next = ids[index+1]
		}

		state := b.state(current)
		state.routeIDs[routeID] = true
		state.observations[key] = append(state.observations[key], b.direction(current, previous, next))

		var following string
		if forwards && index < n-1 {
			following = ids[index+1]
		} else if !forwards && index > 0 {
			following = ids[index-1]
		}
		if following == "" {
			continue
		}

		state.addGroup(following, key)

		// Only the forward pass is real traffic; the backward pass exists for symmetry
		if forwards {
			pair, swapped := CanonicalPair(current, following)
			if swapped {
				b.traffic[trafficKey{pair, key}] |= trafficBackward
			} else {
				b.traffic[trafficKey{pair, key}] |= trafficForward
			}
		}
	}
}

// direction is the axis (0-3) of the line through a station, taken from its neighbours.
// At the ends of a route, or when both neighbours coincide, the vector to the
// next station is used instead.
func (b *builder) direction(current, previous, next string) int {
	from := b.positions[b.stationIndex[previous]]
	to := b.positions[b.stationIndex[next]]
	dx, dz := to.X-from.X, to.Z-from.Z

	if dx == 0 && dz == 0 {
		here := b.positions[b.stationIndex[current]]
		dx, dz = to.X-here.X, to.Z-here.Z
		if dx == 0 && dz == 0 {
			return 0
		}
	}

	return geometry.Cardinal(geometry.QuantizeAngle(dz, dx))
}

func (b *builder) resolveStations() {
	for _, station := range b.input.Stations {
		state, ok := b.states[station.ID]
		if !ok || len(state.groups) == 0 {
			continue
		}

		bundles, err := ResolveBundles(state.groups, state.observations)
		if err != nil {
			b.warnf("station %s: %v, falling back to a single bundle", station.ID, err)
			bundles = FallbackBundles(state.groups, state.observations)
		}
		state.bundles = bundles
	}
}

func (b *builder) stationLayouts() []StationLayout {
	layouts := make([]StationLayout, len(b.input.Stations))
	for i, station := range b.input.Stations {
		station.Position = b.positions[i]
		layouts[i] = StationLayout{Station: station, RouteIDs: []string{}}

		state, ok := b.states[station.ID]
		if !ok || state.bundles == nil {
			continue
		}

		for routeID := range state.routeIDs {
			layouts[i].RouteIDs = append(layouts[i].RouteIDs, routeID)
		}
		sort.Strings(layouts[i].RouteIDs)

		layouts[i].RouteCount = len(state.bundles.Directions)
		layouts[i].Rotate = state.bundles.Rotate
		layouts[i].Width = state.bundles.Width
		layouts[i].Height = state.bundles.Height
	}
	return layouts
}

func (b *builder) connection(pair PairKey) *LineConnection {
	if conn, ok := b.connectionIndex[pair]; ok {
		return conn
	}
	conn := &LineConnection{Station1: pair.A, Station2: pair.B}
	b.connectionIndex[pair] = conn
	b.connections = append(b.connections, conn)
	return conn
}

func (b *builder) lineConnections() []LineConnection {
	for _, station := range b.input.Stations {
		state, ok := b.states[station.ID]
		if !ok || state.bundles == nil {
			continue
		}
		position := b.positions[b.stationIndex[station.ID]]

		neighbors := make([]string, 0, len(state.groups))
		for neighbor := range state.groups {
			neighbors = append(neighbors, neighbor)
		}
		sort.Strings(neighbors)

		for _, neighbor := range neighbors {
			keys := uniqueSorted(state.groups[neighbor])
			pair, swapped := CanonicalPair(station.ID, neighbor)
			conn := b.connection(pair)

			direction, _, _ := state.bundles.Offset(keys[0])
			if !swapped {
				conn.Direction1, conn.X1, conn.Z1, conn.has1 = direction, position.X, position.Z, true
			} else {
				conn.Direction2, conn.X2, conn.Z2, conn.has2 = direction, position.X, position.Z, true
			}

			for _, key := range keys {
				_, offset, ok := state.bundles.Offset(key)
				if !ok {
					b.warnf("station %s: route key %s has no offset", station.ID, key)
				}

				part := conn.part(key)
				info := b.keys[key]
				part.Color, part.Type, part.Style = info.color, info.routeType, info.style
				part.OneWay = oneWay(b.traffic[trafficKey{pair, key}])
				if !swapped {
					part.Offset1 = offset
				} else {
					part.Offset2 = offset
				}
			}
		}
	}

	connections := make([]LineConnection, 0, len(b.connections))
	for _, conn := range b.connections {
		if !conn.has1 || !conn.has2 {
			b.warnf("line connection %s is missing an endpoint, skipping", conn.Key())
			continue
		}
		conn.Length = geometry.ManhattanDistance(conn.X1, conn.Z1, conn.X2, conn.Z2)
		sort.Slice(conn.Parts, func(i, j int) bool { return conn.Parts[i].Key < conn.Parts[j].Key })
		connections = append(connections, *conn)
	}

	// Longer connections are drawn first, underneath shorter ones
	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].Length > connections[j].Length
	})
	return connections
}

func oneWay(traffic uint8) int {
	switch traffic {
	case trafficForward:
		return 1
	case trafficBackward:
		return -1
	default:
		return 0
	}
}

// explicitLinks joins network-level links with those declared on stations
func (b *builder) explicitLinks() []models.StationLink {
	links := append([]models.StationLink(nil), b.input.Connections...)
	for _, station := range b.input.Stations {
		for _, other := range station.Connections {
			links = append(links, models.StationLink{StationA: station.ID, StationB: other})
		}
	}
	return links
}

func (b *builder) stationConnections(result *Result) []StationConnection {
	links := b.explicitLinks()
	seen := make(map[PairKey]bool, len(links))
	connections := make([]StationConnection, 0, len(links))

	for _, link := range links {
		pair, _ := CanonicalPair(link.StationA, link.StationB)
		if pair.A == pair.B || seen[pair] {
			continue
		}
		seen[pair] = true

		station1, ok1 := result.Station(pair.A)
		station2, ok2 := result.Station(pair.B)
		if !ok1 || !ok2 {
			b.warnf("station connection %s references an unknown station, skipping", pair)
			continue
		}

		chosen, reversed := station1, false
		if aspect(station2) > aspect(station1) {
			chosen, reversed = station2, true
		}

		connections = append(connections, StationConnection{
			Station1: pair.A,
			Station2: pair.B,
			X1:       station1.Position.X,
			Z1:       station1.Position.Z,
			X2:       station2.Position.X,
			Z2:       station2.Position.Z,
			Aspect:   aspect(chosen),
			Start45:  reversed != chosen.Rotate,
		})
	}

	return connections
}

func aspect(station *StationLayout) float64 {
	long := math.Max(station.Width, station.Height)
	short := math.Min(station.Width, station.Height)
	return (long + 1) / (short + 1)
}

// center returns the middle of the bounding box of stations that carry routes,
// or of every station when none do
func center(stations []StationLayout) (float64, float64) {
	var bound orb.Bound
	found := false

	extend := func(onlyRouted bool) {
		for _, station := range stations {
			if onlyRouted && station.RouteCount == 0 {
				continue
			}
			point := orb.Point{station.Position.X, station.Position.Z}
			if !found {
				bound = point.Bound()
				found = true
				continue
			}
			bound = bound.Extend(point)
		}
	}

	extend(true)
	if !found {
		extend(false)
	}
	if !found {
		return 0, 0
	}

	c := bound.Center()
	return c.X(), c.Y()
}
