package live

import "time"

// Freshness holds the time windows shared by the server snapshot and viewers.
type Freshness struct {
	LiveWindow        time.Duration
	StaleWindow       time.Duration
	PurgeWindow       time.Duration
	SweepInterval     time.Duration
	RecomputeInterval time.Duration
}

func DefaultFreshness() Freshness {
	return Freshness{
		LiveWindow:        30 * time.Second,
		StaleWindow:       2 * time.Minute,
		PurgeWindow:       2 * time.Minute,
		SweepInterval:     30 * time.Second,
		RecomputeInterval: 15 * time.Second,
	}
}

// IsFresh reports whether a fix captured at t is still inside the purge window.
func (f Freshness) IsFresh(t, now time.Time) bool {
	return now.Sub(t) <= f.PurgeWindow
}
