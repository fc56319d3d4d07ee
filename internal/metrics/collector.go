// Package metrics provides in-memory client-session statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Byte metrics (only for streaming operations)
	TotalBytes int64
	MinBytes   int64
	MaxBytes   int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Byte stats (nil if not applicable)
	TotalBytes *int64
	AvgBytes   *float64
}

// Snapshot represents the full client statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Request       *OperationSnapshot
	ChatStream    *OperationSnapshot
	JobPoll       *OperationSnapshot
	StatusResolve *OperationSnapshot
	PushEvents    *OperationSnapshot
	Reconnects    int64
}

// Operation names for the collector.
const (
	OpRequest       = "request"
	OpChatStream    = "chat_stream"
	OpJobPoll       = "job_poll"
	OpStatusResolve = "status_resolve"
	OpPushEvent     = "push_event"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu         sync.RWMutex
	startTime  time.Time
	ops        map[string]*OperationMetrics
	reconnects int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:  time.Duration(math.MaxInt64),
			MinBytes: math.MaxInt64,
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordStream records timing and payload size for a streaming operation.
func (c *Collector) RecordStream(op string, duration time.Duration, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalBytes += bytes
	if bytes < m.MinBytes {
		m.MinBytes = bytes
	}
	if bytes > m.MaxBytes {
		m.MaxBytes = bytes
	}
}

// RecordReconnect counts one push-channel reconnect attempt.
func (c *Collector) RecordReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnects++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeBytes bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeBytes && m.TotalBytes > 0 {
		total := m.TotalBytes
		avg := float64(m.TotalBytes) / float64(m.Count)
		snap.TotalBytes = &total
		snap.AvgBytes = &avg
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Request:       snapshotOp(c.ops[OpRequest], false),
		ChatStream:    snapshotOp(c.ops[OpChatStream], true),
		JobPoll:       snapshotOp(c.ops[OpJobPoll], false),
		StatusResolve: snapshotOp(c.ops[OpStatusResolve], false),
		PushEvents:    snapshotOp(c.ops[OpPushEvent], true),
		Reconnects:    c.reconnects,
	}
}
