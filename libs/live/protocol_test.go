package live

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		event   string
		wantErr error
	}{
		{"send location", `{"event":"sendLocation","data":{"busId":"B12","lat":1,"lng":2}}`, EventSendLocation, nil},
		{"join route", `{"event":"joinRoute","data":{"routeId":"r1"}}`, EventJoinRoute, nil},
		{"unknown event", `{"event":"teleport","data":{}}`, "teleport", ErrUnknownEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.frame))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.event, env.Event)
		})
	}
}

func TestParseEnvelopeMalformed(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"event":`))
	assert.Error(t, err)
}

func TestDecodeSendLocation(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"sendLocation","data":{"busId":"B12","routeId":"r","lat":12.97,"lng":77.59,"speed":18.5,"status":"paused"}}`))
	if !assert.NoError(t, err) {
		return
	}

	var msg SendLocation
	if assert.NoError(t, env.Decode(&msg)) {
		assert.Equal(t, "B12", msg.BusID)
		assert.Equal(t, 18.5, msg.SpeedOrZero())
		assert.Equal(t, StatusPaused, msg.Status)
	}
}

func TestDecodeOptionalFieldsAbsent(t *testing.T) {
	env := Envelope{Event: EventSendLocation, Data: []byte(`{"busId":"B12","lat":1,"lng":2}`)}

	var msg SendLocation
	if assert.NoError(t, env.Decode(&msg)) {
		assert.Nil(t, msg.Speed)
		assert.Equal(t, 0.0, msg.SpeedOrZero())
		assert.Equal(t, Status(""), msg.Status)
		assert.Equal(t, StatusRunning, msg.Status.OrDefault())
	}
}

func TestDecodeRejectsUnknownStatus(t *testing.T) {
	env := Envelope{Event: EventBusStatus, Data: []byte(`{"busId":"B12","status":"flying"}`)}

	var msg BusStatus
	assert.Error(t, env.Decode(&msg))
}

func TestEncodeRoundTripsEventName(t *testing.T) {
	b, err := Encode(EventReceiveBusStatus, StatusEvent{BusID: "B12", Status: StatusStopped})
	if !assert.NoError(t, err) {
		return
	}
	assert.JSONEq(t, `{"event":"receiveBusStatus","data":{"busId":"B12","status":"stopped"}}`, string(b))
}

func TestSnapshotEntryTimestamp(t *testing.T) {
	captured := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := captured.Add(time.Minute)

	assert.Equal(t, captured, SnapshotEntry{CapturedAt: &captured, UpdatedAt: &updated}.Timestamp())
	assert.Equal(t, updated, SnapshotEntry{UpdatedAt: &updated}.Timestamp())
	assert.True(t, SnapshotEntry{}.Timestamp().IsZero())
}

func TestSnapshotEntryToEvent(t *testing.T) {
	captured := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	e := SnapshotEntry{Bus: "64f0c0ffee00000000000007", BusCode: "B12", Route: "r1", Latitude: 1, Longitude: 2, Status: StatusRunning, CapturedAt: &captured}

	ev := e.ToEvent()
	assert.Equal(t, "B12", ev.BusID)
	assert.Equal(t, "B12", ev.BusName)
	assert.Equal(t, "r1", ev.RouteID)
	assert.Equal(t, captured, ev.Time)
}

func TestFreshnessIsFresh(t *testing.T) {
	f := DefaultFreshness()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, f.IsFresh(now.Add(-2*time.Minute), now))
	assert.False(t, f.IsFresh(now.Add(-2*time.Minute-time.Second), now))
}
