package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("metric collection failed")
	ErrTimeout          = errors.New("collection timeout")
	ErrSourceClosed     = errors.New("metric source closed")
)

// Source names used in health reporting and metrics labels.
const (
	SourceHost    = "host"
	SourceStorage = "storage"
	SourceCache   = "cache"
)

// HostSource provides process/host introspection figures.
type HostSource interface {
	HostMetrics(ctx context.Context) (*HostMetrics, error)
}

// StorageSource reports per-shard health from the sharded relational store.
type StorageSource interface {
	CheckHealth(ctx context.Context) (map[string]models.ShardHealth, error)
	Close() error
}

// SampleSource reads rolling numeric sample lists from the key-value cache.
type SampleSource interface {
	Samples(ctx context.Context, key string) ([]float64, error)
	Close() error
}

// HostMetrics is the host source's raw reading.
type HostMetrics struct {
	CPUUsage    float64
	MemoryUsage float64
	DiskUsage   float64
	NetworkIO   map[string]int
}

type Config struct {
	Timeout         time.Duration
	ResponseTimeKey string
	ErrorRateKey    string
	QueueLengthKey  string
}

// Collector gathers one SystemMetrics snapshot per call. Every sub-source
// is individually guarded: a failing source contributes zeros and flips
// its health flag, and Collect itself never fails.
type Collector struct {
	host    HostSource
	storage StorageSource
	cache   SampleSource
	config  Config

	mu     sync.RWMutex
	health map[string]bool
}

func New(host HostSource, storage StorageSource, cache SampleSource, cfg Config) *Collector {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Collector{
		host:    host,
		storage: storage,
		cache:   cache,
		config:  cfg,
		health: map[string]bool{
			SourceHost:    true,
			SourceStorage: true,
			SourceCache:   true,
		},
	}
}

// Collect fetches the four metric categories concurrently. Wall time is
// bounded by the slowest single sub-call, capped by the configured timeout.
func (c *Collector) Collect(ctx context.Context) *models.SystemMetrics {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	metrics := models.NewSystemMetrics()

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(4)

	go func() {
		defer wg.Done()
		host, err := c.collectHost(ctx)
		c.setHealth(SourceHost, err == nil)
		if err != nil {
			logger.WithSource(SourceHost).Warnf("Host metrics unavailable: %v", err)
			return
		}
		mu.Lock()
		metrics.CPUUsage = host.CPUUsage
		metrics.MemoryUsage = host.MemoryUsage
		metrics.DiskUsage = host.DiskUsage
		if host.NetworkIO != nil {
			metrics.NetworkIO = host.NetworkIO
		}
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		conns, err := c.collectConnections(ctx)
		c.setHealth(SourceStorage, err == nil)
		if err != nil {
			logger.WithSource(SourceStorage).Warnf("Storage health unavailable: %v", err)
			return
		}
		mu.Lock()
		metrics.ActiveConnections = conns
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		respTime, errRate, cacheOK := c.collectLatencySamples(ctx)
		c.setHealth(SourceCache, cacheOK)
		mu.Lock()
		metrics.ResponseTimeAvg = respTime
		metrics.ErrorRate = errRate
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		queueLen := c.collectQueueLength(ctx)
		mu.Lock()
		metrics.QueueLength = queueLen
		mu.Unlock()
	}()

	wg.Wait()
	return metrics
}

func (c *Collector) collectHost(ctx context.Context) (*HostMetrics, error) {
	if c.host == nil {
		return nil, ErrCollectionFailed
	}
	return c.host.HostMetrics(ctx)
}

func (c *Collector) collectConnections(ctx context.Context) (int, error) {
	if c.storage == nil {
		return 0, ErrCollectionFailed
	}

	shards, err := c.storage.CheckHealth(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, shard := range shards {
		if shard.Reachable {
			total += shard.ActiveConnections
		}
	}
	return total, nil
}

func (c *Collector) collectLatencySamples(ctx context.Context) (respTime, errRate float64, ok bool) {
	ok = true

	respTime, err := c.averageSamples(ctx, c.config.ResponseTimeKey)
	if err != nil {
		logger.WithSource(SourceCache).Debugf("Response time samples unavailable: %v", err)
		respTime, ok = 0, false
	}

	errRate, err = c.averageSamples(ctx, c.config.ErrorRateKey)
	if err != nil {
		logger.WithSource(SourceCache).Debugf("Error rate samples unavailable: %v", err)
		errRate, ok = 0, false
	}

	return respTime, errRate, ok
}

func (c *Collector) collectQueueLength(ctx context.Context) int {
	avg, err := c.averageSamples(ctx, c.config.QueueLengthKey)
	if err != nil {
		logger.WithSource(SourceCache).Debugf("Queue length samples unavailable: %v", err)
		return 0
	}
	return int(avg)
}

func (c *Collector) averageSamples(ctx context.Context, key string) (float64, error) {
	if c.cache == nil {
		return 0, ErrCollectionFailed
	}

	samples, err := c.cache.Samples(ctx, key)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, nil
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples)), nil
}

func (c *Collector) setHealth(source string, healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health[source] = healthy
}

// SourceHealth returns a copy of the per-source health flags from the last
// collection. Operators read this through the status endpoint.
func (c *Collector) SourceHealth() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]bool, len(c.health))
	for k, v := range c.health {
		out[k] = v
	}
	return out
}

// Close releases source resources.
func (c *Collector) Close() error {
	var firstErr error
	if c.storage != nil {
		if err := c.storage.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
