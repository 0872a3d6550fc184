package aggregator

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/viewer/estimator"
	"github.com/unibus/tracker/libs/live"
)

// Order selects how a location event interacts with the stored entry.
type Order int

const (
	// LastWriteWins replaces the stored entry with whatever arrives last.
	LastWriteWins Order = iota
	// RejectOlder drops an event whose time is before the stored entry's.
	RejectOlder
)

type entry struct {
	event live.LocationEvent
	seq   uint64
}

// WorkingSet is the viewer's current set of buses, at most one entry per bus.
// Buses removed by a stopped status keep a tombstone with the removal time.
type WorkingSet struct {
	entries map[string]entry
	stopped map[string]time.Time
	nextSeq uint64
}

func NewWorkingSet() *WorkingSet {
	return &WorkingSet{entries: make(map[string]entry), stopped: make(map[string]time.Time)}
}

func (w *WorkingSet) Len() int { return len(w.entries) }

func (w *WorkingSet) Get(busID string) (live.LocationEvent, bool) {
	e, ok := w.entries[busID]
	return e.event, ok
}

func (w *WorkingSet) put(ev live.LocationEvent) {
	e, ok := w.entries[ev.BusID]
	if !ok {
		e.seq = w.nextSeq
		w.nextSeq++
	}
	e.event = ev
	w.entries[ev.BusID] = e
}

// Events returns the entries in insertion order.
func (w *WorkingSet) Events() []live.LocationEvent {
	all := make([]entry, 0, len(w.entries))
	for _, e := range w.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	out := make([]live.LocationEvent, len(all))
	for i, e := range all {
		out[i] = e.event
	}
	return out
}

// Aggregator merges the REST snapshot with the live stream.
type Aggregator struct {
	mu        sync.Mutex
	set       *WorkingSet
	freshness live.Freshness
	order     Order
}

func New(freshness live.Freshness, order Order) *Aggregator {
	return &Aggregator{set: NewWorkingSet(), freshness: freshness, order: order}
}

// Hydrate seeds the working set from the snapshot, keeping running buses
// captured inside the purge window. Entries already updated by the live
// stream are left alone unless the snapshot is newer, and so are buses stopped
// after the snapshot row was captured.
func (a *Aggregator) Hydrate(snapshot []live.SnapshotEntry, now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, s := range FilterActive(snapshot, now, a.freshness) {
		ev := s.ToEvent()
		if cur, ok := a.set.Get(ev.BusID); ok && !ev.Time.After(cur.Time) {
			continue
		}
		if at, ok := a.set.stopped[ev.BusID]; ok && !ev.Time.After(at) {
			continue
		}
		a.set.put(ev)
		added++
	}
	return added
}

// FilterActive keeps snapshot entries that are running and fresh.
func FilterActive(snapshot []live.SnapshotEntry, now time.Time, f live.Freshness) []live.SnapshotEntry {
	out := make([]live.SnapshotEntry, 0, len(snapshot))
	for _, s := range snapshot {
		if s.Status != live.StatusRunning {
			continue
		}
		ts := s.Timestamp()
		if ts.IsZero() || !f.IsFresh(ts, now) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ApplyLocation inserts or replaces the bus entry. It reports whether the set changed.
func (a *Aggregator) ApplyLocation(ev live.LocationEvent) bool {
	if ev.BusID == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.order == RejectOlder {
		if cur, ok := a.set.Get(ev.BusID); ok && ev.Time.Before(cur.Time) {
			log.WithField("bus", ev.BusID).Debug("Устаревшее событие отброшено")
			return false
		}
	}
	delete(a.set.stopped, ev.BusID)
	a.set.put(ev)
	return true
}

// ApplyStatus removes a stopped bus or updates the status of a known one.
// A stopped bus is tombstoned at at so an older snapshot cannot bring it back.
func (a *Aggregator) ApplyStatus(ev live.StatusEvent, at time.Time) bool {
	if !ev.Status.IsValid() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.set.Get(ev.BusID)
	if ev.Status == live.StatusStopped {
		if ok && cur.Time.After(at) {
			at = cur.Time
		}
		a.set.stopped[ev.BusID] = at
	}
	if !ok {
		return false
	}
	if ev.Status == live.StatusStopped {
		delete(a.set.entries, ev.BusID)
		return true
	}
	cur.Status = ev.Status
	a.set.put(cur)
	return true
}

// Sweep drops entries older than the purge window regardless of status.
func (a *Aggregator) Sweep(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for id, e := range a.set.entries {
		if !a.freshness.IsFresh(e.event.Time, now) {
			delete(a.set.entries, id)
			removed++
		}
	}
	for id, at := range a.set.stopped {
		if !a.freshness.IsFresh(at, now) {
			delete(a.set.stopped, id)
		}
	}
	return removed
}

// Snapshot returns the current entries in insertion order.
func (a *Aggregator) Snapshot() []live.LocationEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.Events()
}

// Ranked runs the estimator over the current entries.
func (a *Aggregator) Ranked(viewer *estimator.Point, now time.Time) []estimator.Ranked {
	return estimator.Rank(viewer, a.Snapshot(), now, a.freshness)
}
