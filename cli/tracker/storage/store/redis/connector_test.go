package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

func newTestConnector(t *testing.T) (*Connector, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &Connector{}
	require.NoError(t, c.attach(redis.NewClient(&redis.Options{Addr: mr.Addr()})))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestUpsertKeepsStoredRoute(t *testing.T) {
	c, mr := newTestConnector(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, types.Location{BusRef: "b1", BusCode: "bus_7", RouteRef: "64f0c0ffee000000000000a1", Latitude: 1}))
	require.NoError(t, c.Upsert(ctx, types.Location{BusRef: "b1", BusCode: "bus_7", Latitude: 2}))

	loc, err := c.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "64f0c0ffee000000000000a1", loc.RouteRef)
	assert.Equal(t, 2.0, loc.Latitude)

	keys, err := mr.HKeys(defaultKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, keys)
}

func TestUpdateStatusDoesNotCreate(t *testing.T) {
	c, mr := newTestConnector(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := c.UpdateStatus(ctx, "b1", live.StatusPaused, at)
	assert.ErrorIs(t, err, types.ErrLocationNotFound)
	assert.False(t, mr.Exists(defaultKey))

	require.NoError(t, c.Upsert(ctx, types.Location{BusRef: "b1", Latitude: 12.9, Longitude: 77.5, Status: live.StatusRunning}))
	require.NoError(t, c.UpdateStatus(ctx, "b1", live.StatusPaused, at))

	loc, err := c.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, live.StatusPaused, loc.Status)
	assert.True(t, at.Equal(loc.CapturedAt))
	assert.Equal(t, 12.9, loc.Latitude)
}

func TestList(t *testing.T) {
	c, _ := newTestConnector(t)
	ctx := context.Background()

	for _, ref := range []string{"b1", "b2"} {
		require.NoError(t, c.Upsert(ctx, types.Location{BusRef: ref, Status: live.StatusRunning}))
	}
	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
