package driver

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/fleet-autoscaler/internal/collector"
	"github.com/OldStager01/fleet-autoscaler/internal/decision"
	"github.com/OldStager01/fleet-autoscaler/internal/events"
	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/internal/metrics"
	"github.com/OldStager01/fleet-autoscaler/internal/reconciler"
	"github.com/OldStager01/fleet-autoscaler/internal/resilience"
	"github.com/OldStager01/fleet-autoscaler/internal/thresholds"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

type Config struct {
	TickInterval   time.Duration
	ExecuteTimeout time.Duration
	Collector      *collector.Collector
	Engine         *decision.Engine
	Reconciler     *reconciler.Reconciler
	Thresholds     *thresholds.Store
	EventPublisher *events.Publisher
	Metrics        *metrics.Metrics
	Breaker        *resilience.CircuitBreaker
}

// Driver runs the periodic collect-analyze-execute cycle. A cycle never
// blocks the next tick: per-service executions run concurrently under
// ExecuteTimeout, and a slow cycle is cut off rather than queued.
type Driver struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewDriver(cfg Config) *Driver {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.ExecuteTimeout <= 0 || cfg.ExecuteTimeout >= cfg.TickInterval {
		cfg.ExecuteTimeout = cfg.TickInterval - time.Second
		if cfg.ExecuteTimeout <= 0 {
			cfg.ExecuteTimeout = cfg.TickInterval / 2
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Driver{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	d.running = true
	d.wg.Add(1)
	go d.run()

	logger.WithField("tick_interval", d.config.TickInterval.String()).Info("Control loop started")
	return nil
}

func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()

	logger.Info("Control loop stopped")
}

func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()

	// Run immediately on start
	d.runCycle()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.runCycle()
		}
	}
}

func (d *Driver) runCycle() {
	start := time.Now()
	d.config.Metrics.TicksTotal.Inc()

	ctx, cancel := context.WithTimeout(d.ctx, d.config.ExecuteTimeout)
	defer cancel()

	// Step 1: collect a snapshot. Collection degrades instead of failing,
	// so the cycle always proceeds with whatever the sources answered.
	snapshot := d.collect(ctx)

	// Step 2: current policy and live counts.
	policy := d.config.Thresholds.Snapshot()
	counts := d.config.Reconciler.Counts(ctx, d.config.Engine.Services())
	for service, count := range counts {
		d.config.Metrics.ServiceInstances.WithLabelValues(service).Set(float64(count))
	}

	// Step 3: decide per service.
	directives := d.config.Engine.Analyze(snapshot, policy, counts)

	// Step 4: execute actionable directives concurrently. The reconciler
	// re-validates counts and bounds under its own lock, so concurrent
	// services cannot race each other into the same instance.
	var wg sync.WaitGroup
	for _, directive := range directives {
		d.config.Metrics.DirectivesTotal.WithLabelValues(directive.Service, string(directive.Direction)).Inc()

		if !directive.ShouldExecute() {
			continue
		}

		d.config.EventPublisher.DirectiveIssued(directive)

		wg.Add(1)
		go func(directive models.Directive) {
			defer wg.Done()
			if d.config.Reconciler.Execute(ctx, directive.Service, directive.Direction, snapshot, directive.Reason) {
				d.config.Metrics.ScalingEventsTotal.WithLabelValues(directive.Service, string(directive.Direction)).Inc()
			}
		}(directive)
	}
	wg.Wait()

	if d.config.Breaker != nil {
		d.config.Metrics.BreakerState.
			WithLabelValues(d.config.Breaker.Name()).
			Set(float64(d.config.Breaker.State()))
	}

	d.config.Metrics.TickDuration.Observe(time.Since(start).Seconds())
}

func (d *Driver) collect(ctx context.Context) *models.SystemMetrics {
	snapshot := d.config.Collector.Collect(ctx)
	d.config.EventPublisher.MetricCollected(snapshot)
	d.config.Metrics.ObserveSnapshot(snapshot)

	health := d.config.Collector.SourceHealth()
	d.config.Metrics.ObserveSourceHealth(health)
	for source, healthy := range health {
		if !healthy {
			d.config.EventPublisher.SourceDegraded(source)
		}
	}

	return snapshot
}
