package collector

import (
	"context"
	"sync"

	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// Mock sources back tests and -simulate mode. Values are settable at any
// time and every source can be flipped into failure.

type MockHostSource struct {
	mu      sync.Mutex
	metrics HostMetrics
	fail    bool
}

func NewMockHostSource() *MockHostSource {
	return &MockHostSource{
		metrics: HostMetrics{
			CPUUsage:    50.0,
			MemoryUsage: 60.0,
			DiskUsage:   40.0,
			NetworkIO: map[string]int{
				"bytes_sent": 1024,
				"bytes_recv": 2048,
			},
		},
	}
}

func (m *MockHostSource) Set(cpu, memory, disk float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.CPUUsage = cpu
	m.metrics.MemoryUsage = memory
	m.metrics.DiskUsage = disk
}

func (m *MockHostSource) SetShouldFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockHostSource) HostMetrics(ctx context.Context) (*HostMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, ErrCollectionFailed
	}
	out := m.metrics
	return &out, nil
}

type MockStorageSource struct {
	mu     sync.Mutex
	shards map[string]models.ShardHealth
	fail   bool
}

func NewMockStorageSource() *MockStorageSource {
	return &MockStorageSource{
		shards: map[string]models.ShardHealth{
			"shard-0": {ShardID: "shard-0", ActiveConnections: 12, Reachable: true},
			"shard-1": {ShardID: "shard-1", ActiveConnections: 8, Reachable: true},
		},
	}
}

func (m *MockStorageSource) SetShard(id string, connections int, reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shards[id] = models.ShardHealth{ShardID: id, ActiveConnections: connections, Reachable: reachable}
}

func (m *MockStorageSource) SetShouldFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockStorageSource) CheckHealth(ctx context.Context) (map[string]models.ShardHealth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, ErrCollectionFailed
	}
	out := make(map[string]models.ShardHealth, len(m.shards))
	for k, v := range m.shards {
		out[k] = v
	}
	return out, nil
}

func (m *MockStorageSource) Close() error { return nil }

type MockSampleSource struct {
	mu      sync.Mutex
	samples map[string][]float64
	fail    bool
}

func NewMockSampleSource() *MockSampleSource {
	return &MockSampleSource{samples: make(map[string][]float64)}
}

func (m *MockSampleSource) SetSamples(key string, samples []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[key] = samples
}

func (m *MockSampleSource) SetShouldFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockSampleSource) Samples(ctx context.Context, key string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, ErrCollectionFailed
	}
	out := make([]float64, len(m.samples[key]))
	copy(out, m.samples[key])
	return out, nil
}

func (m *MockSampleSource) Close() error { return nil }
