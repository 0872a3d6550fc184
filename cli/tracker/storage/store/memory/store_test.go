package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

func TestUpsertKeepsRouteWhenOmitted(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, types.Location{BusRef: "b1", RouteRef: "64f0c0ffee000000000000a1", Latitude: 1}))
	require.NoError(t, s.Upsert(ctx, types.Location{BusRef: "b1", Latitude: 2}))

	loc, err := s.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "64f0c0ffee000000000000a1", loc.RouteRef)
	assert.Equal(t, 2.0, loc.Latitude)
}

func TestUpdateStatusLeavesPosition(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	s := New()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, types.Location{BusRef: "b1", Latitude: 12.9, Longitude: 77.5, Status: live.StatusRunning}))

	at := fixed.Add(time.Minute)
	require.NoError(t, s.UpdateStatus(ctx, "b1", live.StatusPaused, at))

	loc, err := s.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, live.StatusPaused, loc.Status)
	assert.Equal(t, at, loc.CapturedAt)
	assert.Equal(t, 12.9, loc.Latitude)
	assert.Equal(t, 77.5, loc.Longitude)
	assert.Equal(t, fixed, loc.UpdatedAt)
}

func TestConcurrentUpsertsDifferentBuses(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = s.Upsert(ctx, types.Location{BusRef: fmt.Sprintf("bus-%02d", i), Latitude: float64(j)})
			}
		}(i)
	}
	wg.Wait()

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
	assert.Equal(t, "bus-00", all[0].BusRef)
}

func TestGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), "nope")
	assert.Equal(t, types.ErrLocationNotFound, err)
}
