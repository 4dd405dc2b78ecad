package emergency

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRequested  = "requested"
	StatusDispatched = "dispatched"
	StatusEnRoute    = "en_route"
	StatusArrived    = "arrived"
	StatusCancelled  = "cancelled"
)

// Progress thresholds at which the dispatch status advances.
const (
	dispatchedAt = 0.1
	enRouteAt    = 0.3
	arrivedAt    = 1.0
)

// statusRank orders statuses; a request only ever moves to a higher rank.
// Cancellation outranks everything but is refused once a request is terminal.
var statusRank = map[string]int{
	StatusRequested:  0,
	StatusDispatched: 1,
	StatusEnRoute:    2,
	StatusArrived:    3,
	StatusCancelled:  4,
}

// StatusFor maps progress in [0,1] to the dispatch status.
func StatusFor(progress float64) string {
	switch {
	case progress >= arrivedAt:
		return StatusArrived
	case progress >= enRouteAt:
		return StatusEnRoute
	case progress >= dispatchedAt:
		return StatusDispatched
	default:
		return StatusRequested
	}
}

// LowerBound is the smallest progress that yields status. Used to resume
// trackers after a restart.
func LowerBound(status string) float64 {
	switch status {
	case StatusDispatched:
		return dispatchedAt
	case StatusEnRoute:
		return enRouteAt
	case StatusArrived:
		return arrivedAt
	default:
		return 0
	}
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(status string) bool {
	return status == StatusArrived || status == StatusCancelled
}

// advances reports whether moving from one status to next goes forward.
func advances(from, to string) bool {
	return statusRank[to] > statusRank[from]
}

// CanTransition reports whether a request in status from may be moved to to.
func CanTransition(from, to string) bool {
	return !IsTerminal(from) && advances(from, to)
}

const (
	TypeCardiac   = "cardiac"
	TypeAccident  = "accident"
	TypeBreathing = "breathing"
	TypeStroke    = "stroke"
	TypeOther     = "other"
)

var validTypes = map[string]bool{
	TypeCardiac: true, TypeAccident: true, TypeBreathing: true, TypeStroke: true, TypeOther: true,
}

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// The ambulance starts this far from the caller.
const (
	startOffsetLat = 0.02
	startOffsetLng = 0.015
)

// StartFor is where the ambulance sets off for a caller at user.
func StartFor(user Coordinate) Coordinate {
	return Coordinate{Latitude: user.Latitude + startOffsetLat, Longitude: user.Longitude + startOffsetLng}
}

// Interpolate returns the point at progress p on the straight line from
// start to end. p is clamped to [0,1].
func Interpolate(start, end Coordinate, p float64) Coordinate {
	p = clamp(p)
	return Coordinate{
		Latitude:  start.Latitude + (end.Latitude-start.Latitude)*p,
		Longitude: start.Longitude + (end.Longitude-start.Longitude)*p,
	}
}

// RemainingETA is the minutes left of eta at progress p.
func RemainingETA(eta int, p float64) int {
	return int(math.Ceil(float64(eta) * (1 - clamp(p))))
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// Request maps to the emergency_requests table.
type Request struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	PatientID           uuid.UUID `db:"patient_id" json:"patient_id"`
	Latitude            float64   `db:"latitude" json:"latitude"`
	Longitude           float64   `db:"longitude" json:"longitude"`
	LocationApproximate bool      `db:"location_approximate" json:"location_approximate"`
	EmergencyType       string    `db:"emergency_type" json:"emergency_type"`
	Status              string    `db:"status" json:"status"`
	EstimatedArrival    int       `db:"estimated_arrival" json:"estimated_arrival"`
	Progress            float64   `db:"progress" json:"progress"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

func (r *Request) Location() Coordinate {
	return Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
}

// StatusChange maps to the emergency_status_history table.
type StatusChange struct {
	ID        int64     `db:"id" json:"id"`
	RequestID uuid.UUID `db:"request_id" json:"request_id"`
	Status    string    `db:"status" json:"status"`
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
}

// Tracking is the live state pushed to clients.
type Tracking struct {
	RequestID        uuid.UUID  `json:"request_id"`
	Status           string     `json:"status"`
	Progress         float64    `json:"progress"`
	Ambulance        Coordinate `json:"ambulance"`
	Destination      Coordinate `json:"destination"`
	EstimatedArrival int        `json:"estimated_arrival"`
	RemainingMinutes int        `json:"remaining_minutes"`
	Approximate      bool       `json:"location_approximate"`
}

// TrackingFor derives the live state of r at progress p.
func TrackingFor(r *Request, status string, p float64) Tracking {
	dest := r.Location()
	return Tracking{
		RequestID:        r.ID,
		Status:           status,
		Progress:         clamp(p),
		Ambulance:        Interpolate(StartFor(dest), dest, p),
		Destination:      dest,
		EstimatedArrival: r.EstimatedArrival,
		RemainingMinutes: RemainingETA(r.EstimatedArrival, p),
		Approximate:      r.LocationApproximate,
	}
}

// NearbyHospital is a facility offered on the emergency screen.
type NearbyHospital struct {
	Name       string     `json:"name"`
	Location   Coordinate `json:"location"`
	DistanceKM float64    `json:"distance_km"`
	ETAMinutes int        `json:"eta_minutes"`
}

type nearbyOffset struct {
	name       string
	dLat, dLng float64
	km         float64
	minutes    int
}

var nearbyOffsets = []nearbyOffset{
	{"City General Hospital", 0.008, 0.005, 1.2, 5},
	{"Metro Medical Center", -0.01, 0.012, 2.5, 8},
	{"Community Health Center", 0.015, -0.008, 3.1, 12},
}

// Nearby lists the facilities around c, nearest first.
func Nearby(c Coordinate) []NearbyHospital {
	out := make([]NearbyHospital, 0, len(nearbyOffsets))
	for _, o := range nearbyOffsets {
		out = append(out, NearbyHospital{
			Name:       o.name,
			Location:   Coordinate{Latitude: c.Latitude + o.dLat, Longitude: c.Longitude + o.dLng},
			DistanceKM: o.km,
			ETAMinutes: o.minutes,
		})
	}
	return out
}
