package quantvec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operation-level measurements from the index.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordAdd is called once per Add batch.
	RecordAdd(count, failed int, duration time.Duration)

	// RecordSearch is called once per Search batch.
	RecordSearch(queries, k int, duration time.Duration, err error)

	// RecordDelete is called once per Delete.
	RecordDelete(duration time.Duration, err error)

	// RecordSnapshot is called once per Save or Load, with op "save" or "load".
	RecordSnapshot(op string, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector discards all measurements.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(count, failed int, duration time.Duration)         {}
func (NoopMetricsCollector) RecordSearch(queries, k int, duration time.Duration, e error) {}
func (NoopMetricsCollector) RecordDelete(duration time.Duration, err error)              {}
func (NoopMetricsCollector) RecordSnapshot(op string, b int64, d time.Duration, e error) {}

// BasicMetrics accumulates counters and cumulative latencies with atomics.
type BasicMetrics struct {
	addBatches    atomic.Int64
	addVectors    atomic.Int64
	addFailed     atomic.Int64
	addNanos      atomic.Int64
	searchBatches atomic.Int64
	searchQueries atomic.Int64
	searchErrors  atomic.Int64
	searchNanos   atomic.Int64
	deletes       atomic.Int64
	deleteErrors  atomic.Int64
	saves         atomic.Int64
	loads         atomic.Int64
	snapshotBytes atomic.Int64
}

// NewBasicMetrics creates an empty BasicMetrics.
func NewBasicMetrics() *BasicMetrics {
	return &BasicMetrics{}
}

func (m *BasicMetrics) RecordAdd(count, failed int, duration time.Duration) {
	m.addBatches.Add(1)
	m.addVectors.Add(int64(count))
	m.addFailed.Add(int64(failed))
	m.addNanos.Add(int64(duration))
}

func (m *BasicMetrics) RecordSearch(queries, k int, duration time.Duration, err error) {
	m.searchBatches.Add(1)
	m.searchQueries.Add(int64(queries))
	if err != nil {
		m.searchErrors.Add(1)
	}
	m.searchNanos.Add(int64(duration))
}

func (m *BasicMetrics) RecordDelete(duration time.Duration, err error) {
	m.deletes.Add(1)
	if err != nil {
		m.deleteErrors.Add(1)
	}
}

func (m *BasicMetrics) RecordSnapshot(op string, bytes int64, duration time.Duration, err error) {
	if err != nil {
		return
	}
	switch op {
	case "save":
		m.saves.Add(1)
	case "load":
		m.loads.Add(1)
	}
	m.snapshotBytes.Add(bytes)
}

// MetricsSnapshot is a point-in-time copy of accumulated metrics.
type MetricsSnapshot struct {
	AddBatches    int64
	AddVectors    int64
	AddFailed     int64
	AddLatency    time.Duration
	SearchBatches int64
	SearchQueries int64
	SearchErrors  int64
	SearchLatency time.Duration
	Deletes       int64
	DeleteErrors  int64
	Saves         int64
	Loads         int64
	SnapshotBytes int64
}

// Snapshot returns the current counter values.
func (m *BasicMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		AddBatches:    m.addBatches.Load(),
		AddVectors:    m.addVectors.Load(),
		AddFailed:     m.addFailed.Load(),
		AddLatency:    time.Duration(m.addNanos.Load()),
		SearchBatches: m.searchBatches.Load(),
		SearchQueries: m.searchQueries.Load(),
		SearchErrors:  m.searchErrors.Load(),
		SearchLatency: time.Duration(m.searchNanos.Load()),
		Deletes:       m.deletes.Load(),
		DeleteErrors:  m.deleteErrors.Load(),
		Saves:         m.saves.Load(),
		Loads:         m.loads.Load(),
		SnapshotBytes: m.snapshotBytes.Load(),
	}
}
