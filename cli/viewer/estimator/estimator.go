package estimator

import (
	"math"
	"sort"
	"time"

	"github.com/unibus/tracker/libs/live"
)

const (
	EarthRadiusKm    = 6371.0
	MinMovingKph     = 5.0
	FallbackSpeedKph = 20.0
)

// Point is a WGS84 position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// EffectiveSpeed treats a near-stationary bus as moving at the fallback speed.
func EffectiveSpeed(kph float64) float64 {
	if kph > MinMovingKph {
		return kph
	}
	return FallbackSpeedKph
}

func ETAMinutes(distKm, kph float64) int {
	return int(math.Round(distKm / EffectiveSpeed(kph) * 60))
}

type Label string

const (
	Live   Label = "live"
	Recent Label = "recent"
	Stale  Label = "stale"
)

func Classify(age time.Duration, f live.Freshness) Label {
	switch {
	case age < f.LiveWindow:
		return Live
	case age <= f.StaleWindow:
		return Recent
	default:
		return Stale
	}
}

// Ranked is one display row.
type Ranked struct {
	Event       live.LocationEvent
	HasDistance bool
	DistanceKm  float64
	ETAMinutes  int
	Age         time.Duration
	Freshness   Label
}

// Rank annotates entries and, when the viewer position is known, orders them
// nearest first. Ties and the no-position case keep the input order.
func Rank(viewer *Point, entries []live.LocationEvent, now time.Time, f live.Freshness) []Ranked {
	out := make([]Ranked, 0, len(entries))
	for _, ev := range entries {
		age := now.Sub(ev.Time)
		if age < 0 {
			age = 0
		}
		r := Ranked{Event: ev, Age: age, Freshness: Classify(age, f)}
		if viewer != nil {
			r.HasDistance = true
			r.DistanceKm = Haversine(*viewer, Point{Lat: ev.Lat, Lng: ev.Lng})
			r.ETAMinutes = ETAMinutes(r.DistanceKm, ev.Speed)
		}
		out = append(out, r)
	}

	if viewer != nil {
		sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	}
	return out
}
