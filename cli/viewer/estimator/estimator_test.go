package estimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/unibus/tracker/libs/live"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"same point", Point{12.97, 77.59}, Point{12.97, 77.59}, 0},
		{"0.1 degree of longitude at the equator", Point{0, 0}, Point{0, 0.1}, 11.1195},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.1949},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Haversine(tt.a, tt.b), 1e-3)
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a, b := Point{12.97, 77.59}, Point{13.02, 77.64}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-12)
}

func TestEffectiveSpeed(t *testing.T) {
	assert.Equal(t, 20.0, EffectiveSpeed(0))
	assert.Equal(t, 20.0, EffectiveSpeed(5))
	assert.Equal(t, 5.5, EffectiveSpeed(5.5))
	assert.Equal(t, 40.0, EffectiveSpeed(40))
}

func TestETAMinutesDeterministic(t *testing.T) {
	d := Haversine(Point{0, 0}, Point{0, 0.1})
	assert.Equal(t, 33, ETAMinutes(d, 0))
	assert.Equal(t, 33, ETAMinutes(d, 3))
	assert.Equal(t, 17, ETAMinutes(d, 40))
	assert.Equal(t, 0, ETAMinutes(0, 0))
}

func TestClassify(t *testing.T) {
	f := live.DefaultFreshness()
	tests := []struct {
		age  time.Duration
		want Label
	}{
		{0, Live},
		{29 * time.Second, Live},
		{30 * time.Second, Recent},
		{120 * time.Second, Recent},
		{121 * time.Second, Stale},
	}
	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.age, f))
		})
	}
}

func TestRankNearestFirst(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	viewer := &Point{0, 0}
	entries := []live.LocationEvent{
		{BusID: "far", Lat: 0, Lng: 0.3, Time: now},
		{BusID: "near", Lat: 0, Lng: 0.1, Time: now.Add(-45 * time.Second)},
		{BusID: "mid", Lat: 0, Lng: 0.2, Time: now.Add(-5 * time.Minute)},
		{BusID: "near-twin", Lat: 0, Lng: -0.1, Time: now},
	}

	ranked := Rank(viewer, entries, now, live.DefaultFreshness())

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Event.BusID
	}
	assert.Equal(t, []string{"near", "near-twin", "mid", "far"}, ids)

	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].DistanceKm, ranked[i].DistanceKm)
	}
	assert.Equal(t, 33, ranked[0].ETAMinutes)
	assert.Equal(t, Recent, ranked[0].Freshness)
	assert.Equal(t, Stale, ranked[2].Freshness)
}

func TestRankWithoutViewerKeepsOrder(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []live.LocationEvent{
		{BusID: "b", Lat: 0, Lng: 0.3, Time: now},
		{BusID: "a", Lat: 0, Lng: 0.1, Time: now},
	}

	ranked := Rank(nil, entries, now, live.DefaultFreshness())
	assert.Equal(t, "b", ranked[0].Event.BusID)
	assert.False(t, ranked[0].HasDistance)
	assert.Equal(t, Live, ranked[0].Freshness)
}
