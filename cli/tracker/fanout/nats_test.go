package fanout

import (
	"context"
	"io"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibus/tracker/libs/live"
)

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestNATSBridgeDeliversToEveryInstanceOnce(t *testing.T) {
	log.SetOutput(io.Discard)
	s := natsserver.RunRandClientPortServer()
	defer s.Shutdown()

	localA, localB := &recorder{}, &recorder{}
	a, err := NewNATSBridge(s.ClientURL(), "", localA)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewNATSBridge(s.ClientURL(), "", localB)
	require.NoError(t, err)
	defer b.Close()

	env, err := live.NewEnvelope(live.EventReceiveLocation, live.LocationEvent{BusID: "bus_7", Lat: 1, Lng: 2})
	require.NoError(t, err)
	require.NoError(t, a.Publish(context.Background(), All, env))

	require.Eventually(t, func() bool {
		return len(localA.Events()) == 1 && len(localB.Events()) == 1
	}, 3*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{live.EventReceiveLocation}, localA.Events())
	assert.Equal(t, []string{live.EventReceiveLocation}, localB.Events())
}

func TestNATSBridgeConnectFailure(t *testing.T) {
	log.SetOutput(io.Discard)
	_, err := NewNATSBridge("nats://127.0.0.1:1", "", &recorder{})
	assert.Error(t, err)
}
