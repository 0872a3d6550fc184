package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the tracker counters on its own registry.
type Collector struct {
	reg *prometheus.Registry

	LocationEvents prometheus.Counter
	StatusEvents   prometheus.Counter
	UnknownBuses   prometheus.Counter
	PersistErrors  prometheus.Counter
	RejectedEvents prometheus.Counter
	RouteJoins     prometheus.Counter

	Broadcasts *prometheus.CounterVec // event label
	Sessions   prometheus.Gauge

	RelayErrors  *prometheus.CounterVec // sink label
	RelayDropped prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		LocationEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_location_events_total",
			Help: "Total sendLocation events accepted.",
		}),
		StatusEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_status_events_total",
			Help: "Total busStatus events accepted.",
		}),
		UnknownBuses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_unknown_bus_total",
			Help: "Location reports whose bus code did not resolve.",
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_persist_errors_total",
			Help: "Location store or directory failures.",
		}),
		RejectedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_rejected_events_total",
			Help: "Driver events dropped by the authorizer.",
		}),
		RouteJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_route_joins_total",
			Help: "joinRoute requests received.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bustrack_broadcasts_total",
			Help: "Envelopes delivered to the local hub.",
		}, []string{"event"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bustrack_sessions",
			Help: "Currently connected websocket sessions.",
		}),
		RelayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bustrack_relay_errors_total",
			Help: "Relay sink failures.",
		}, []string{"sink"}),
		RelayDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_relay_dropped_total",
			Help: "Envelopes dropped because the relay queue was full.",
		}),
	}

	reg.MustRegister(
		c.LocationEvents, c.StatusEvents, c.UnknownBuses, c.PersistErrors,
		c.RejectedEvents, c.RouteJoins, c.Broadcasts, c.Sessions,
		c.RelayErrors, c.RelayDropped,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) LocationReceived() { c.LocationEvents.Inc() }
func (c *Collector) StatusReceived()   { c.StatusEvents.Inc() }
func (c *Collector) UnknownBus()       { c.UnknownBuses.Inc() }
func (c *Collector) PersistError()     { c.PersistErrors.Inc() }
func (c *Collector) Rejected()         { c.RejectedEvents.Inc() }
func (c *Collector) RouteJoined()      { c.RouteJoins.Inc() }

func (c *Collector) SessionOpened()         { c.Sessions.Inc() }
func (c *Collector) SessionClosed()         { c.Sessions.Dec() }
func (c *Collector) Broadcast(event string) { c.Broadcasts.WithLabelValues(event).Inc() }

func (c *Collector) RelayError(sink string) { c.RelayErrors.WithLabelValues(sink).Inc() }
func (c *Collector) RelayDrop()             { c.RelayDropped.Inc() }
