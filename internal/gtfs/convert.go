package gtfs

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/mini-rodalies-3d/metromap/internal/models"
)

// defaultRouteColor is used when routes.txt has no usable route_color
const defaultRouteColor = 0x808080

// RouteTypeKey maps a GTFS route_type (basic or extended) to a route-type catalog key
func RouteTypeKey(routeType int) string {
	switch {
	case routeType == 0 || routeType == 12 || (routeType >= 900 && routeType < 1000):
		return "train_light_rail"
	case routeType == 101:
		return "train_high_speed"
	case routeType == 1 || routeType == 2 || (routeType >= 100 && routeType < 200) || (routeType >= 400 && routeType < 500):
		return "train_normal"
	case routeType == 3 || routeType == 11 || (routeType >= 200 && routeType < 300) || (routeType >= 700 && routeType < 900):
		return "bus_normal"
	case routeType == 4 || (routeType >= 1000 && routeType < 1100) || (routeType >= 1200 && routeType < 1300):
		return "boat_normal"
	case routeType == 5 || routeType == 6 || routeType == 7 || (routeType >= 1300 && routeType < 1500):
		return "cable_car_normal"
	case routeType >= 1100 && routeType < 1200:
		return "airplane_normal"
	default:
		return "train_normal"
	}
}

// parseColor reads a 6-digit hex color with or without a leading '#'
func parseColor(hex string) int {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return defaultRouteColor
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return defaultRouteColor
	}
	return int(v)
}

// ToNetwork converts a parsed feed into the network the layout engine consumes.
// Stops are merged into their parent station, positions are Web Mercator metres
// relative to the centre of the feed (x east, z south), and every distinct stop
// pattern of a GTFS route becomes its own route.
func ToNetwork(feed *Feed) (*models.Network, error) {
	stations, parentOf := convertStations(feed.Stops)
	if len(stations) == 0 {
		return nil, models.ErrEmptyNetwork
	}

	stationIndex := make(map[string]int, len(stations))
	for i, st := range stations {
		stationIndex[st.ID] = i
	}

	resolve := func(stopID string) (string, bool) {
		id, ok := parentOf[stopID]
		if !ok {
			return "", false
		}
		_, ok = stationIndex[id]
		return id, ok
	}

	network := &models.Network{Stations: stations}
	network.Routes = convertRoutes(feed, stations, stationIndex, resolve)

	seen := make(map[[2]string]bool)
	for _, t := range feed.Transfers {
		if t.TransferType == transferNotPossible {
			continue
		}
		a, okA := resolve(t.FromStopID)
		b, okB := resolve(t.ToStopID)
		if !okA || !okB || a == b {
			continue
		}
		if b < a {
			a, b = b, a
		}
		if seen[[2]string{a, b}] {
			continue
		}
		seen[[2]string{a, b}] = true
		network.Connections = append(network.Connections, models.StationLink{StationA: a, StationB: b})
	}

	if err := network.Validate(); err != nil {
		return nil, fmt.Errorf("failed to convert feed: %w", err)
	}

	log.Printf("GTFS converted: %d stations, %d routes, %d station connections",
		len(network.Stations), len(network.Routes), len(network.Connections))

	return network, nil
}

// convertStations returns one station per parent station (or parentless stop)
// and a map from every stop id to the station id it belongs to
func convertStations(stops []Stop) ([]models.Station, map[string]string) {
	byID := make(map[string]*Stop, len(stops))
	for i := range stops {
		byID[stops[i].StopID] = &stops[i]
	}

	parentOf := make(map[string]string, len(stops))
	var roots []*Stop
	for i := range stops {
		stop := &stops[i]
		if stop.LocationType > LocationStation {
			continue
		}
		if parent, ok := byID[stop.ParentStation]; ok && stop.LocationType == LocationStop {
			parentOf[stop.StopID] = parent.StopID
			continue
		}
		parentOf[stop.StopID] = stop.StopID
		roots = append(roots, stop)
	}

	mercator := make([]orb.Point, len(roots))
	var bound orb.Bound
	for i, stop := range roots {
		mercator[i] = project.WGS84.ToMercator(orb.Point{stop.StopLon, stop.StopLat})
		if i == 0 {
			bound = mercator[i].Bound()
		} else {
			bound = bound.Extend(mercator[i])
		}
	}
	center := bound.Center()

	stations := make([]models.Station, len(roots))
	for i, stop := range roots {
		zone, _ := strconv.Atoi(stop.ZoneID)
		stations[i] = models.Station{
			ID:    stop.StopID,
			Name:  stop.StopName,
			Zone1: zone,
			Position: models.Position{
				X: mercator[i][0] - center[0],
				Z: center[1] - mercator[i][1],
			},
		}
	}
	return stations, parentOf
}

type pattern struct {
	trip      *Trip
	stopTimes []StopTime
	stations  []string
}

func convertRoutes(feed *Feed, stations []models.Station, stationIndex map[string]int, resolve func(string) (string, bool)) []models.Route {
	stopTimes := make(map[string][]StopTime)
	for _, st := range feed.StopTimes {
		stopTimes[st.TripID] = append(stopTimes[st.TripID], st)
	}

	tripsByRoute := make(map[string][]*Trip)
	for i := range feed.Trips {
		trip := &feed.Trips[i]
		tripsByRoute[trip.RouteID] = append(tripsByRoute[trip.RouteID], trip)
	}

	var routes []models.Route
	for _, gr := range feed.Routes {
		trips := tripsByRoute[gr.RouteID]
		sort.Slice(trips, func(i, j int) bool { return trips[i].TripID < trips[j].TripID })

		var patterns []pattern
		known := make(map[string]bool)
		for _, trip := range trips {
			times := stopTimes[trip.TripID]
			sort.Slice(times, func(i, j int) bool { return times[i].StopSequence < times[j].StopSequence })

			p := pattern{trip: trip}
			for _, st := range times {
				id, ok := resolve(st.StopID)
				if !ok {
					continue
				}
				p.stations = append(p.stations, id)
				p.stopTimes = append(p.stopTimes, st)
			}
			if len(p.stations) < 2 {
				continue
			}

			signature := strings.Join(p.stations, ",")
			if known[signature] {
				continue
			}
			known[signature] = true
			patterns = append(patterns, p)
		}

		if len(patterns) == 0 {
			log.Printf("Warning: route %s has no trip with two known stops, skipping", gr.RouteID)
			continue
		}

		number := gr.RouteShortName
		if number == "" {
			number = gr.RouteLongName
		}

		for i, p := range patterns {
			name := number
			if p.trip.TripHeadsign != "" {
				name = number + models.VariationSeparator + p.trip.TripHeadsign
			}
			routes = append(routes, models.Route{
				ID:            fmt.Sprintf("%s-%d", gr.RouteID, i+1),
				Name:          name,
				Color:         parseColor(gr.RouteColor),
				Number:        number,
				Type:          RouteTypeKey(gr.RouteType),
				CircularState: circularState(p.stations, stations, stationIndex),
				Platforms:     platforms(p, stations, stationIndex),
			})
		}
	}
	return routes
}

func platforms(p pattern, stations []models.Station, stationIndex map[string]int) []models.RoutePlatform {
	result := make([]models.RoutePlatform, len(p.stations))
	for i, id := range p.stations {
		pos := stations[stationIndex[id]].Position
		st := p.stopTimes[i]

		arrival := parseTimeToSeconds(st.ArrivalTime)
		departure := parseTimeToSeconds(st.DepartureTime)
		if st.DepartureTime == "" {
			departure = arrival
		}

		platform := models.RoutePlatform{StationID: id, X: pos.X, Y: pos.Y, Z: pos.Z}
		if departure > arrival {
			platform.DwellTime = departure - arrival
		}
		if i+1 < len(p.stations) {
			next := parseTimeToSeconds(p.stopTimes[i+1].ArrivalTime)
			if next > departure {
				platform.DurationToNext = next - departure
			}
		}
		result[i] = platform
	}
	return result
}

// circularState reports the winding of patterns that end where they start.
// With z pointing south a positive shoelace sum is clockwise on the map.
func circularState(ids []string, stations []models.Station, stationIndex map[string]int) models.CircularState {
	if len(ids) < 4 || ids[0] != ids[len(ids)-1] {
		return models.CircularNone
	}

	var area float64
	for i := 0; i+1 < len(ids); i++ {
		a := stations[stationIndex[ids[i]]].Position
		b := stations[stationIndex[ids[i+1]]].Position
		area += a.X*b.Z - b.X*a.Z
	}

	switch {
	case area > 0:
		return models.CircularClockwise
	case area < 0:
		return models.CircularAnticlockwise
	default:
		return models.CircularNone
	}
}
