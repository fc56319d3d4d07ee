package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shodh/internal/metrics"
)

func TestRecordTiming(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordTiming(metrics.OpRequest, 10*time.Millisecond)
	c.RecordTiming(metrics.OpRequest, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Request)
	assert.Equal(t, int64(2), snap.Request.Count)
	assert.Equal(t, int64(40), snap.Request.TotalTimeMs)
	assert.Equal(t, int64(10), snap.Request.MinTimeMs)
	assert.Equal(t, int64(30), snap.Request.MaxTimeMs)
	assert.InDelta(t, 20.0, snap.Request.AvgTimeMs, 0.01)
}

func TestRecordStream(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordStream(metrics.OpChatStream, 100*time.Millisecond, 2048)
	c.RecordStream(metrics.OpChatStream, 200*time.Millisecond, 4096)

	snap := c.Snapshot()
	require.NotNil(t, snap.ChatStream)
	require.NotNil(t, snap.ChatStream.TotalBytes)
	assert.Equal(t, int64(6144), *snap.ChatStream.TotalBytes)
	require.NotNil(t, snap.ChatStream.AvgBytes)
	assert.InDelta(t, 3072.0, *snap.ChatStream.AvgBytes, 0.01)
}

func TestSnapshotEmptyOps(t *testing.T) {
	c := metrics.NewCollector()
	snap := c.Snapshot()

	assert.Nil(t, snap.Request, "untouched operations stay nil")
	assert.Nil(t, snap.ChatStream)
	assert.Zero(t, snap.Reconnects)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestRecordReconnect(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordReconnect()
	c.RecordReconnect()
	assert.Equal(t, int64(2), c.Snapshot().Reconnects)
}
