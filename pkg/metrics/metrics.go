package metrics

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Metrics collects counters for split and extract runs
type Metrics struct {
	mu sync.RWMutex

	// Part metrics
	PartsWrittenTotal int64
	PartsReadTotal    int64
	BytesWrittenTotal int64
	BytesReadTotal    int64
	PartBytes         map[string]int64 // by part name

	// Operation metrics
	SplitCountTotal   int64
	SplitDurationNs   int64
	ExtractCountTotal int64
	ExtractDurationNs int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		PartBytes: make(map[string]int64),
	}
}

// RecordPartWritten records a completed part during split
func (m *Metrics) RecordPartWritten(name string, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PartsWrittenTotal++
	m.BytesWrittenTotal += bytes
	m.PartBytes[name] = bytes

	log.Debug().
		Str("part", name).
		Int64("bytes", bytes).
		Int64("total_parts", m.PartsWrittenTotal).
		Msg("part written")
}

// RecordPartRead records a part consumed during extract
func (m *Metrics) RecordPartRead(name string, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PartsReadTotal++
	m.BytesReadTotal += bytes
	m.PartBytes[name] = bytes

	log.Debug().
		Str("part", name).
		Int64("bytes", bytes).
		Int64("total_parts", m.PartsReadTotal).
		Msg("part read")
}

func (m *Metrics) RecordSplit(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SplitCountTotal++
	m.SplitDurationNs += duration.Nanoseconds()
}

func (m *Metrics) RecordExtract(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExtractCountTotal++
	m.ExtractDurationNs += duration.Nanoseconds()
}

// Export returns the counters keyed by metric name
func (m *Metrics) Export() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"xtm_parts_written_total":      m.PartsWrittenTotal,
		"xtm_parts_read_total":         m.PartsReadTotal,
		"xtm_bytes_written_total":      m.BytesWrittenTotal,
		"xtm_bytes_read_total":         m.BytesReadTotal,
		"xtm_split_count_total":        m.SplitCountTotal,
		"xtm_split_duration_seconds":   float64(m.SplitDurationNs) / 1e9,
		"xtm_extract_count_total":      m.ExtractCountTotal,
		"xtm_extract_duration_seconds": float64(m.ExtractDurationNs) / 1e9,
	}
}

// LogSummary logs a summary of current metrics
func (m *Metrics) LogSummary() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log.Info().
		Int64("parts_written", m.PartsWrittenTotal).
		Int64("bytes_written", m.BytesWrittenTotal).
		Int64("parts_read", m.PartsReadTotal).
		Int64("bytes_read", m.BytesReadTotal).
		Dur("split_time", time.Duration(m.SplitDurationNs)).
		Dur("extract_time", time.Duration(m.ExtractDurationNs)).
		Msg("metrics summary")
}

// Global metrics instance
var GlobalMetrics = NewMetrics()

func LogMetricsSummary() {
	GlobalMetrics.LogSummary()
}
