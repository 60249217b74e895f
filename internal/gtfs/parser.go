package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// ErrMissingFile is returned when a required feed file is absent
var ErrMissingFile = errors.New("required GTFS file missing")

// row gives named access to one CSV record
type row struct {
	record []string
	index  map[string]int
}

func (r row) get(field string) string {
	if i, ok := r.index[field]; ok && i < len(r.record) {
		return strings.TrimSpace(r.record[i])
	}
	return ""
}

func (r row) int(field string) int {
	v, _ := strconv.Atoi(r.get(field))
	return v
}

func (r row) float(field string) float64 {
	v, _ := strconv.ParseFloat(r.get(field), 64)
	return v
}

// Parse reads a GTFS zip file. routes.txt, stops.txt, trips.txt and
// stop_times.txt are required; transfers.txt is optional.
func Parse(zipPath string) (*Feed, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	files := make(map[string]*zip.File)
	for _, f := range r.File {
		// Some feeds nest everything in a single folder
		name := f.Name[strings.LastIndex(f.Name, "/")+1:]
		files[name] = f
	}

	feed := &Feed{}
	required := []struct {
		name  string
		parse func(row)
	}{
		{"routes.txt", func(r row) {
			feed.Routes = append(feed.Routes, Route{
				RouteID:        r.get("route_id"),
				RouteShortName: r.get("route_short_name"),
				RouteLongName:  r.get("route_long_name"),
				RouteType:      r.int("route_type"),
				RouteColor:     r.get("route_color"),
			})
		}},
		{"stops.txt", func(r row) {
			feed.Stops = append(feed.Stops, Stop{
				StopID:        r.get("stop_id"),
				StopName:      r.get("stop_name"),
				StopLat:       r.float("stop_lat"),
				StopLon:       r.float("stop_lon"),
				LocationType:  r.int("location_type"),
				ParentStation: r.get("parent_station"),
				ZoneID:        r.get("zone_id"),
			})
		}},
		{"trips.txt", func(r row) {
			feed.Trips = append(feed.Trips, Trip{
				RouteID:      r.get("route_id"),
				TripID:       r.get("trip_id"),
				TripHeadsign: r.get("trip_headsign"),
				DirectionID:  r.int("direction_id"),
			})
		}},
		{"stop_times.txt", func(r row) {
			feed.StopTimes = append(feed.StopTimes, StopTime{
				TripID:        r.get("trip_id"),
				ArrivalTime:   r.get("arrival_time"),
				DepartureTime: r.get("departure_time"),
				StopID:        r.get("stop_id"),
				StopSequence:  r.int("stop_sequence"),
			})
		}},
	}

	for _, file := range required {
		f, ok := files[file.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, file.name)
		}
		if err := readCSV(f, file.parse); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file.name, err)
		}
	}

	if f, ok := files["transfers.txt"]; ok {
		err := readCSV(f, func(r row) {
			feed.Transfers = append(feed.Transfers, Transfer{
				FromStopID:   r.get("from_stop_id"),
				ToStopID:     r.get("to_stop_id"),
				TransferType: r.int("transfer_type"),
			})
		})
		if err != nil {
			log.Printf("Warning: failed to parse transfers.txt: %v", err)
		}
	}

	log.Printf("GTFS parsed: %d routes, %d stops, %d trips, %d stop times, %d transfers",
		len(feed.Routes), len(feed.Stops), len(feed.Trips), len(feed.StopTimes), len(feed.Transfers))

	return feed, nil
}

// readCSV calls fn for every data row of a feed file. Malformed rows are skipped.
func readCSV(f *zip.File, fn func(row)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return err
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		fn(row{record: record, index: index})
	}

	if skipped > 0 {
		log.Printf("Warning: skipped %d malformed rows in %s", skipped, f.Name)
	}
	return nil
}

// parseTimeToSeconds converts GTFS time format (HH:MM:SS, hours may exceed 23) to seconds since midnight
func parseTimeToSeconds(timeStr string) int {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 {
		return 0
	}

	seconds := 0
	for i, unit := range []int{3600, 60, 1} {
		if i >= len(parts) {
			break
		}
		value, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0
		}
		seconds += value * unit
	}
	return seconds
}
