package storage

import (
	"context"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

func TestLoadStore(t *testing.T) {
	log.SetOutput(io.Discard)

	tests := []struct {
		name    string
		backend string
		wantErr error
	}{
		{"memory", "memory", nil},
		{"empty backend", "", ErrInvalidStorage},
		{"unknown backend", "mongodb", ErrUnknownStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := LoadStore(tt.backend, nil)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Nil(t, s)
				return
			}
			if assert.NoError(t, err) {
				assert.NoError(t, s.Close())
			}
		})
	}
}

func TestMemoryStoreAtMostOneLocationPerBus(t *testing.T) {
	s, err := LoadStore("memory", nil)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Upsert(ctx, types.Location{
			BusRef:     "64f0c0ffee00000000000007",
			BusCode:    "bus_7",
			Latitude:   12.9 + float64(i)/100,
			Longitude:  77.5,
			Status:     live.StatusRunning,
			CapturedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	if assert.Len(t, all, 1) {
		assert.InDelta(t, 12.94, all[0].Latitude, 1e-9)
		assert.Equal(t, base.Add(4*time.Second), all[0].CapturedAt)
	}
}

func TestMemoryStoreUpdateStatusDoesNotCreate(t *testing.T) {
	s, err := LoadStore("memory", nil)
	require.NoError(t, err)
	ctx := context.Background()

	err = s.UpdateStatus(ctx, "64f0c0ffee00000000000007", live.StatusPaused, time.Now())
	assert.Equal(t, ErrNotFound, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
