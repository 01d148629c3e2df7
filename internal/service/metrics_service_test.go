package service

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/collections/:collection", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/collections/:collection", 200, 30*time.Millisecond)
	m.AddBlobBytes(BlobDirectionIn, 2048)
	m.AddBlobBytes(BlobDirectionOut, 512)
	m.AddBlobBytes(BlobDirectionOut, 0)
	m.RecordWrite("materials", "create")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2048), snap.BlobBytesIn)
	assert.Equal(t, uint64(512), snap.BlobBytesOut)
	assert.Equal(t, uint64(1), snap.RecordWrites)
}

func TestMetricsJobOutcomesExported(t *testing.T) {
	m := NewMetricsService()
	m.RecordJobOutcome("catalog-exports", "succeeded")
	m.RecordJobOutcome("catalog-exports", "retried")
	m.RecordJobOutcome("catalog-exports", "succeeded")

	expected := `
# HELP background_jobs_total Background job outcomes by queue
# TYPE background_jobs_total counter
background_jobs_total{outcome="retried",queue="catalog-exports"} 1
background_jobs_total{outcome="succeeded",queue="catalog-exports"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "background_jobs_total"))
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordJobOutcome("q", "failed")
	m.AddBlobBytes(BlobDirectionIn, 10)
	m.RecordWrite("materials", "update")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
	assert.Nil(t, m.Registry())
}
