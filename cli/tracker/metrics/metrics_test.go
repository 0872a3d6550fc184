package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorExposesCounters(t *testing.T) {
	c := NewCollector()
	c.LocationReceived()
	c.LocationReceived()
	c.SessionOpened()
	c.Broadcast("receiveLocation")
	c.RelayError("rabbitmq")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, "bustrack_location_events_total 2")
	assert.Contains(t, text, "bustrack_sessions 1")
	assert.Contains(t, text, `bustrack_broadcasts_total{event="receiveLocation"} 1`)
	assert.Contains(t, text, `bustrack_relay_errors_total{sink="rabbitmq"} 1`)
}
