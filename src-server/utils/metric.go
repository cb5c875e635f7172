package utils

import "sync/atomic"

const (
	LOAD_RESULT_OK    = "ok"
	LOAD_RESULT_ERROR = "error"
)

// Metric carries samples from the request path to the collectors in
// package metric. Sends never block; a full channel drops the sample.
type Metric struct {
	DatabaseRead          chan float64
	DatabaseWrite         chan float64
	CalendarLoad          chan string
	CalendarLoadLatency   chan float64
	StaleLoadDiscarded    chan struct{}
	PreferenceSaveFailure chan struct{}

	liveSessions atomic.Int64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:          make(chan float64, 64),
		DatabaseWrite:         make(chan float64, 64),
		CalendarLoad:          make(chan string, 64),
		CalendarLoadLatency:   make(chan float64, 64),
		StaleLoadDiscarded:    make(chan struct{}, 64),
		PreferenceSaveFailure: make(chan struct{}, 64),
	}
}

func trySend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func (m *Metric) ObserveDatabaseRead(microsec float64) { trySend(m.DatabaseRead, microsec) }
func (m *Metric) ObserveDatabaseWrite(microsec float64) { trySend(m.DatabaseWrite, microsec) }

// ObserveCalendarLoad records one applied load; result is LOAD_RESULT_*.
func (m *Metric) ObserveCalendarLoad(result string, microsec float64) {
	trySend(m.CalendarLoad, result)
	trySend(m.CalendarLoadLatency, microsec)
}

func (m *Metric) ObserveStaleLoad() { trySend(m.StaleLoadDiscarded, struct{}{}) }
func (m *Metric) ObservePreferenceSaveFailure() { trySend(m.PreferenceSaveFailure, struct{}{}) }

// AddLiveSessions adds delta (+1 on open, -1 on close) and returns the count.
func (m *Metric) AddLiveSessions(delta int64) int64 { return m.liveSessions.Add(delta) }

func (m *Metric) LiveSessions() int64 { return m.liveSessions.Load() }
