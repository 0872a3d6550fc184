package aggregator

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/viewer/estimator"
	"github.com/unibus/tracker/libs/live"
)

var now = time.Now

// GeoState tracks whether a viewer position is available.
type GeoState int

const (
	GeoPending GeoState = iota
	GeoGranted
	GeoDenied
)

func (s GeoState) String() string {
	switch s {
	case GeoGranted:
		return "granted"
	case GeoDenied:
		return "permission required"
	default:
		return "locating"
	}
}

// Fix is one geolocation sample or the reason none is available.
type Fix struct {
	Point estimator.Point
	Err   error
}

// Sources are the independent inputs of the viewer loop.
type Sources struct {
	Hydrate   func(ctx context.Context) ([]live.SnapshotEntry, error)
	Positions <-chan Fix
	Events    <-chan live.Envelope
	States    <-chan live.ConnState
}

// View is what the renderer gets after every change.
type View struct {
	Rows   []estimator.Ranked
	Conn   live.ConnState
	Geo    GeoState
	Viewer *estimator.Point
	At     time.Time
}

// Run owns the working set until ctx is cancelled. Hydration runs in its own
// goroutine; position fixes, socket events and ticks are handled in order.
func (a *Aggregator) Run(ctx context.Context, src Sources, render func(View)) error {
	hydrated := make(chan []live.SnapshotEntry, 1)
	if src.Hydrate != nil {
		go func() {
			entries, err := src.Hydrate(ctx)
			if err != nil {
				log.WithField("err", err).Warn("Не удалось получить начальный список автобусов")
				entries = nil
			}
			select {
			case hydrated <- entries:
			case <-ctx.Done():
			}
		}()
	}

	defaults := live.DefaultFreshness()
	sweepEvery, recomputeEvery := a.freshness.SweepInterval, a.freshness.RecomputeInterval
	if sweepEvery <= 0 {
		sweepEvery = defaults.SweepInterval
	}
	if recomputeEvery <= 0 {
		recomputeEvery = defaults.RecomputeInterval
	}
	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()
	recompute := time.NewTicker(recomputeEvery)
	defer recompute.Stop()

	var (
		viewer *estimator.Point
		geo    = GeoPending
		conn   = live.Connecting
	)
	emit := func() {
		if render == nil {
			return
		}
		t := now()
		render(View{Rows: a.Ranked(viewer, t), Conn: conn, Geo: geo, Viewer: viewer, At: t})
	}

	positions, events, states := src.Positions, src.Events, src.States
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entries := <-hydrated:
			n := a.Hydrate(entries, now())
			log.WithField("count", n).Debug("Начальный список загружен")
			emit()

		case fix, ok := <-positions:
			if !ok {
				positions = nil
				continue
			}
			if fix.Err != nil {
				geo = GeoDenied
				viewer = nil
			} else {
				p := fix.Point
				viewer, geo = &p, GeoGranted
			}
			emit()

		case env, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if a.apply(env) {
				emit()
			}

		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			conn = st
			emit()

		case <-sweep.C:
			if a.Sweep(now()) > 0 {
				emit()
			}

		case <-recompute.C:
			emit()
		}
	}
}

func (a *Aggregator) apply(env live.Envelope) bool {
	switch env.Event {
	case live.EventReceiveLocation:
		var ev live.LocationEvent
		if err := env.Decode(&ev); err != nil {
			log.WithField("err", err).Warn("Некорректный receiveLocation")
			return false
		}
		return a.ApplyLocation(ev)
	case live.EventReceiveBusStatus:
		var ev live.StatusEvent
		if err := env.Decode(&ev); err != nil {
			log.WithField("err", err).Warn("Некорректный receiveBusStatus")
			return false
		}
		return a.ApplyStatus(ev, now())
	default:
		return false
	}
}
