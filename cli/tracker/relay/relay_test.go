package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibus/tracker/cli/tracker/fanout"
	"github.com/unibus/tracker/libs/live"
	"gopkg.in/vmihailenco/msgpack.v2"
)

// mockSaver records every encoded payload.
type mockSaver struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	block    chan struct{}
}

func (ms *mockSaver) Save(m interface{ Encode(string) ([]byte, error) }) error {
	if ms.block != nil {
		<-ms.block
	}
	b, err := m.Encode(FormatJSON)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.payloads = append(ms.payloads, b)
	return ms.err
}

func (ms *mockSaver) Count() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.payloads)
}

type errorCounter struct {
	mu    sync.Mutex
	sinks []string
	drops int
}

func (e *errorCounter) RelayError(sink string) {
	e.mu.Lock()
	e.sinks = append(e.sinks, sink)
	e.mu.Unlock()
}

func (e *errorCounter) RelayDrop() {
	e.mu.Lock()
	e.drops++
	e.mu.Unlock()
}

func statusEvent(t *testing.T) Event {
	t.Helper()
	env, err := live.NewEnvelope(live.EventReceiveBusStatus, live.StatusEvent{BusID: "bus_7", Status: live.StatusStopped})
	require.NoError(t, err)
	return Event{Envelope: env, At: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func TestEventEncode(t *testing.T) {
	ev := statusEvent(t)

	j, err := ev.Encode(FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"receiveBusStatus","data":{"busId":"bus_7","status":"stopped"}}`, string(j))

	m, err := ev.Encode(FormatMsgpack)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(m, &decoded))
	assert.Equal(t, "receiveBusStatus", decoded["event"])
	assert.Equal(t, "2024-03-01T10:00:00Z", decoded["at"])

	_, err = ev.Encode("xml")
	assert.Error(t, err)
}

func TestRepositorySaveContinuesAfterFailure(t *testing.T) {
	log.SetOutput(io.Discard)
	obs := &errorCounter{}
	failing := &mockSaver{err: errors.New("broker down")}
	ok := &mockSaver{}

	r := NewRepository(obs)
	r.AddSink("rabbitmq", failing)
	r.AddSink("redis", ok)

	err := r.Save(statusEvent(t))
	assert.Error(t, err)
	assert.Equal(t, 1, ok.Count())
	assert.Equal(t, []string{"rabbitmq"}, obs.sinks)
}

func TestLoadSinksErrors(t *testing.T) {
	r := NewRepository(nil)
	assert.Equal(t, ErrInvalidSink, r.LoadSinks(nil))
	assert.Equal(t, ErrUnknownSink, r.LoadSinks(map[string]map[string]string{"kafka": {}}))
}

func TestAsyncRepositoryDelivers(t *testing.T) {
	log.SetOutput(io.Discard)
	saver := &mockSaver{}
	r := NewRepository(nil)
	r.AddSink("mock", saver)

	a := NewAsyncRepository(r, 10, 2, nil)
	env := statusEvent(t).Envelope
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Publish(context.Background(), fanout.All, env))
	}
	a.Close()

	assert.Equal(t, 5, saver.Count())
	assert.Equal(t, ErrClosed, a.Save(statusEvent(t)))
}

func TestAsyncRepositoryDropsWhenFull(t *testing.T) {
	log.SetOutput(io.Discard)
	saver := &mockSaver{block: make(chan struct{})}
	r := NewRepository(nil)
	r.AddSink("mock", saver)
	obs := &errorCounter{}

	a := NewAsyncRepository(r, 1, 1, obs)

	// the single worker takes the first message and blocks on it
	require.NoError(t, a.Save(statusEvent(t)))
	require.Eventually(t, func() bool { return len(a.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, a.Save(statusEvent(t)))

	assert.Equal(t, ErrQueueFull, a.Save(statusEvent(t)))
	assert.Equal(t, 1, obs.drops)

	close(saver.block)
	a.Close()
	assert.Equal(t, 2, saver.Count())
}
