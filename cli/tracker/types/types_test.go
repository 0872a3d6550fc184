package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/unibus/tracker/libs/live"
)

func TestIsWellFormedRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"64f0c0ffee00000000000007", true},
		{"64F0C0FFEE00000000000007", true},
		{"0b5f0c6e-3c1f-4d8a-9d51-0f3b0c1a2e44", true},
		{"64f0c0ffee0000000000000", false},
		{"64f0c0ffee0000000000000z", false},
		{"route-7", false},
		{"", false},
		{"{0b5f0c6e-3c1f-4d8a-9d51-0f3b0c1a2e44}", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWellFormedRef(tt.ref))
		})
	}
}

func TestLocationMergeKeepsRoute(t *testing.T) {
	stored := Location{BusRef: "b", RouteRef: "64f0c0ffee000000000000a1", Latitude: 1}
	incoming := Location{BusRef: "b", Latitude: 2}

	merged := stored.Merge(incoming)
	assert.Equal(t, "64f0c0ffee000000000000a1", merged.RouteRef)
	assert.Equal(t, 2.0, merged.Latitude)

	incoming.RouteRef = "64f0c0ffee000000000000a2"
	assert.Equal(t, "64f0c0ffee000000000000a2", stored.Merge(incoming).RouteRef)
}

func TestLocationToSnapshot(t *testing.T) {
	captured := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := Location{BusRef: "64f0c0ffee00000000000007", BusCode: "B12", Latitude: 1, Longitude: 2, Status: live.StatusRunning, CapturedAt: captured}

	e := l.ToSnapshot("Campus Loop")
	assert.Equal(t, "B12", e.BusCode)
	assert.Equal(t, "Campus Loop", e.BusName)
	if assert.NotNil(t, e.CapturedAt) {
		assert.Equal(t, captured, *e.CapturedAt)
	}
	assert.Nil(t, e.UpdatedAt)
}

func TestBusDisplayName(t *testing.T) {
	assert.Equal(t, "Campus Loop", Bus{Code: "B12", Name: "Campus Loop"}.DisplayName())
	assert.Equal(t, "B12", Bus{Code: "B12"}.DisplayName())
}
