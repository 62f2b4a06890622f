package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsApplied  atomic.Uint64
	framesDropped  atomic.Uint64
	decodeFailures atomic.Uint64
	redraws        atomic.Uint64
	redrawsSkipped atomic.Uint64
	alertsFired    atomic.Uint64
	apiCalls       atomic.Uint64
	apiRetries     atomic.Uint64

	// Gauges
	streamConnected atomic.Int32 // 1 = connected
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEventApplied records one push update applied to the market store.
func (m *Metrics) RecordEventApplied() { m.eventsApplied.Add(1) }

// RecordFrameDropped records a push frame dropped because a consumer was full.
func (m *Metrics) RecordFrameDropped() { m.framesDropped.Add(1) }

// RecordDecodeFailure records a malformed push frame.
func (m *Metrics) RecordDecodeFailure() { m.decodeFailures.Add(1) }

// RecordRedraw records a completed render pass.
func (m *Metrics) RecordRedraw() { m.redraws.Add(1) }

// RecordRedrawSkipped records a tick where nothing was dirty.
func (m *Metrics) RecordRedrawSkipped() { m.redrawsSkipped.Add(1) }

// RecordAlertFired records one alert event.
func (m *Metrics) RecordAlertFired() { m.alertsFired.Add(1) }

// RecordAPICall records one outbound rate-governed call.
func (m *Metrics) RecordAPICall() { m.apiCalls.Add(1) }

// RecordAPIRetry records one rate-limit retry.
func (m *Metrics) RecordAPIRetry() { m.apiRetries.Add(1) }

// SetStreamConnected sets the push stream connection gauge.
func (m *Metrics) SetStreamConnected(connected bool) {
	if connected {
		m.streamConnected.Store(1)
	} else {
		m.streamConnected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsApplied   uint64
	FramesDropped   uint64
	DecodeFailures  uint64
	Redraws         uint64
	RedrawsSkipped  uint64
	AlertsFired     uint64
	APICalls        uint64
	APIRetries      uint64
	StreamConnected bool
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		EventsApplied:   m.eventsApplied.Load(),
		FramesDropped:   m.framesDropped.Load(),
		DecodeFailures:  m.decodeFailures.Load(),
		Redraws:         m.redraws.Load(),
		RedrawsSkipped:  m.redrawsSkipped.Load(),
		AlertsFired:     m.alertsFired.Load(),
		APICalls:        m.apiCalls.Load(),
		APIRetries:      m.apiRetries.Load(),
		StreamConnected: m.streamConnected.Load() == 1,
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsApplied.Store(0)
	m.framesDropped.Store(0)
	m.decodeFailures.Store(0)
	m.redraws.Store(0)
	m.redrawsSkipped.Store(0)
	m.alertsFired.Store(0)
	m.apiCalls.Store(0)
	m.apiRetries.Store(0)
	m.streamConnected.Store(0)
}
