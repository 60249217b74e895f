package gtfs

// Feed holds the parts of a static GTFS feed the map needs
type Feed struct {
	Routes    []Route
	Stops     []Stop
	Trips     []Trip
	StopTimes []StopTime
	Transfers []Transfer
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
	RouteType      int
	RouteColor     string
}

// Location types from stops.txt
const (
	LocationStop     = 0
	LocationStation  = 1
	LocationEntrance = 2
)

// Stop represents a stop from stops.txt
type Stop struct {
	StopID        string
	StopName      string
	StopLat       float64
	StopLon       float64
	LocationType  int
	ParentStation string
	ZoneID        string
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID      string
	TripID       string
	TripHeadsign string
	DirectionID  int
}

// StopTime represents a stop time from stop_times.txt
type StopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
}

// Transfer represents a row of transfers.txt
type Transfer struct {
	FromStopID   string
	ToStopID     string
	TransferType int
}

// transferNotPossible marks transfers.txt rows that forbid changing
const transferNotPossible = 3
