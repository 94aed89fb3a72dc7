package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCollector() (*Collector, *MockHostSource, *MockStorageSource, *MockSampleSource) {
	host := NewMockHostSource()
	storage := NewMockStorageSource()
	cache := NewMockSampleSource()

	coll := New(host, storage, cache, Config{
		Timeout:         time.Second,
		ResponseTimeKey: "metrics:response_times",
		ErrorRateKey:    "metrics:error_rates",
		QueueLengthKey:  "metrics:queue_lengths",
	})
	return coll, host, storage, cache
}

func TestCollector_Collect(t *testing.T) {
	coll, host, _, cache := newTestCollector()

	host.Set(72.5, 61.0, 55.0)
	cache.SetSamples("metrics:response_times", []float64{100, 200, 300})
	cache.SetSamples("metrics:error_rates", []float64{1.0, 3.0})
	cache.SetSamples("metrics:queue_lengths", []float64{40, 60})

	metrics := coll.Collect(context.Background())

	assert.Equal(t, 72.5, metrics.CPUUsage)
	assert.Equal(t, 61.0, metrics.MemoryUsage)
	assert.Equal(t, 55.0, metrics.DiskUsage)
	assert.Equal(t, 20, metrics.ActiveConnections) // 12 + 8 from the default shards
	assert.Equal(t, 200.0, metrics.ResponseTimeAvg)
	assert.Equal(t, 2.0, metrics.ErrorRate)
	assert.Equal(t, 50, metrics.QueueLength)

	health := coll.SourceHealth()
	assert.True(t, health[SourceHost])
	assert.True(t, health[SourceStorage])
	assert.True(t, health[SourceCache])
}

func TestCollector_HostFailureContributesZeros(t *testing.T) {
	coll, host, _, cache := newTestCollector()

	host.SetShouldFail(true)
	cache.SetSamples("metrics:response_times", []float64{150})
	cache.SetSamples("metrics:error_rates", []float64{2.0})

	metrics := coll.Collect(context.Background())

	assert.Equal(t, 0.0, metrics.CPUUsage)
	assert.Equal(t, 0.0, metrics.MemoryUsage)
	// The other sources still contribute.
	assert.Equal(t, 20, metrics.ActiveConnections)
	assert.Equal(t, 150.0, metrics.ResponseTimeAvg)

	health := coll.SourceHealth()
	assert.False(t, health[SourceHost])
	assert.True(t, health[SourceStorage])
}

func TestCollector_UnreachableShardsAreSkipped(t *testing.T) {
	coll, _, storage, _ := newTestCollector()

	storage.SetShard("shard-1", 999, false)

	metrics := coll.Collect(context.Background())

	assert.Equal(t, 12, metrics.ActiveConnections)
	assert.True(t, coll.SourceHealth()[SourceStorage])
}

func TestCollector_EmptySamplesAverageToZero(t *testing.T) {
	coll, _, _, _ := newTestCollector()

	metrics := coll.Collect(context.Background())

	assert.Equal(t, 0.0, metrics.ResponseTimeAvg)
	assert.Equal(t, 0.0, metrics.ErrorRate)
	assert.Equal(t, 0, metrics.QueueLength)
	// No samples is not a source failure.
	assert.True(t, coll.SourceHealth()[SourceCache])
}

func TestCollector_TotalFailureYieldsZeroedSnapshot(t *testing.T) {
	coll, host, storage, cache := newTestCollector()

	host.SetShouldFail(true)
	storage.SetShouldFail(true)
	cache.SetShouldFail(true)

	metrics := coll.Collect(context.Background())

	// Collect never errors; the snapshot is fully zeroed and every
	// source is flagged unhealthy.
	assert.NotNil(t, metrics)
	assert.Equal(t, 0.0, metrics.CPUUsage)
	assert.Equal(t, 0.0, metrics.MemoryUsage)
	assert.Equal(t, 0, metrics.ActiveConnections)
	assert.Equal(t, 0.0, metrics.ResponseTimeAvg)
	assert.Equal(t, 0.0, metrics.ErrorRate)
	assert.Equal(t, 0, metrics.QueueLength)
	assert.False(t, metrics.Timestamp.IsZero())

	health := coll.SourceHealth()
	assert.False(t, health[SourceHost])
	assert.False(t, health[SourceStorage])
	assert.False(t, health[SourceCache])
}

func TestCollector_HealthRecovers(t *testing.T) {
	coll, host, _, _ := newTestCollector()

	host.SetShouldFail(true)
	coll.Collect(context.Background())
	assert.False(t, coll.SourceHealth()[SourceHost])

	host.SetShouldFail(false)
	coll.Collect(context.Background())
	assert.True(t, coll.SourceHealth()[SourceHost])
}

func TestCollector_NilSources(t *testing.T) {
	coll := New(nil, nil, nil, Config{Timeout: time.Second})

	metrics := coll.Collect(context.Background())

	assert.NotNil(t, metrics)
	health := coll.SourceHealth()
	assert.False(t, health[SourceHost])
	assert.False(t, health[SourceStorage])
	assert.False(t, health[SourceCache])
}
