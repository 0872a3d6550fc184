package domain

// Metrics counts handler outcomes.
type Metrics interface {
	LocationReceived()
	StatusReceived()
	UnknownBus()
	PersistError()
	Rejected()
}

type nopMetrics struct{}

func (nopMetrics) LocationReceived() {}
func (nopMetrics) StatusReceived()   {}
func (nopMetrics) UnknownBus()       {}
func (nopMetrics) PersistError()     {}
func (nopMetrics) Rejected()         {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
