package reconciler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/OldStager01/fleet-autoscaler/internal/cooldown"
	"github.com/OldStager01/fleet-autoscaler/internal/events"
	"github.com/OldStager01/fleet-autoscaler/internal/ledger"
	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/internal/orchestration"
	"github.com/OldStager01/fleet-autoscaler/internal/thresholds"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// Reconciler executes scaling directives against the orchestration
// backend. Every failure path returns false and logs; the control loop
// never sees an error from Execute. At most one execution runs per
// service at a time, so two overlapping ticks cannot double-scale.
type Reconciler struct {
	client     orchestration.Client
	gate       *cooldown.Gate
	ledger     *ledger.Ledger
	thresholds *thresholds.Store
	publisher  *events.Publisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(
	client orchestration.Client,
	gate *cooldown.Gate,
	led *ledger.Ledger,
	store *thresholds.Store,
	publisher *events.Publisher,
) *Reconciler {
	return &Reconciler{
		client:     client,
		gate:       gate,
		ledger:     led,
		thresholds: store,
		publisher:  publisher,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Execute runs the scaling state machine for one service. It re-queries
// the live instance count (never scales blind), re-validates bounds
// against the fresh count, consults the cooldown gate, and only then
// issues the orchestration call. A ScalingEvent is recorded and the
// cooldown consumed only after the backend accepted the action.
func (r *Reconciler) Execute(ctx context.Context, service string, direction models.ScaleDirection, metrics *models.SystemMetrics, reason string) bool {
	if direction != models.ScaleUp && direction != models.ScaleDown {
		return false
	}

	lock := r.serviceLock(service)
	lock.Lock()
	defer lock.Unlock()

	bounds := r.thresholds.Snapshot()
	r.gate.SetWindow(bounds.CooldownDuration())

	instances, err := r.client.List(ctx, service)
	if err != nil {
		logger.WithService(service).Errorf("Instance query failed, aborting scale: %v", err)
		r.publisher.Error(service, "Instance query failed", err)
		return false
	}

	counted := countedInstances(instances)
	before := len(counted)

	switch direction {
	case models.ScaleUp:
		if before >= bounds.MaxInstances {
			logger.WithService(service).Debugf("Scale up rejected: already at max (%d)", before)
			return false
		}
	case models.ScaleDown:
		if before <= bounds.MinInstances {
			logger.WithService(service).Debugf("Scale down rejected: already at min (%d)", before)
			return false
		}
	}

	now := time.Now()
	if !r.gate.Allow(service, now) {
		remaining := r.gate.Remaining(service, now)
		logger.WithService(service).Infof("Scaling blocked by cooldown (%.0fs remaining)", remaining.Seconds())
		r.publisher.CooldownBlocked(service, remaining.Seconds())
		return false
	}

	r.publisher.ScalingStarted(service, models.Directive{
		Service:   service,
		Direction: direction,
		Reason:    reason,
	})

	var after int
	switch direction {
	case models.ScaleUp:
		after = before + 1
		if !r.scaleUp(ctx, service, counted) {
			return false
		}
	case models.ScaleDown:
		after = before - 1
		if !r.scaleDown(ctx, service, counted) {
			return false
		}
	}

	r.gate.Record(service, now)

	event := models.NewScalingEvent(service, direction, before, after, reason, *metrics)
	r.ledger.Append(event)
	r.publisher.ScalingComplete(event)

	logger.WithService(service).Infof("Scaling complete: %s %d -> %d instances (reason: %s)",
		direction, before, after, reason)
	return true
}

// scaleUp clones the launch configuration of a healthy instance and
// requests a new detached one from it.
func (r *Reconciler) scaleUp(ctx context.Context, service string, counted []*models.Instance) bool {
	template := pickTemplate(counted)
	if template == nil {
		logger.WithService(service).Error("Scale up failed: no healthy instance to clone")
		r.publisher.ScalingFailed(service, "no_template_instance", orchestration.ErrNoTemplate)
		return false
	}

	spec, err := r.client.Template(ctx, template.ID)
	if err != nil {
		logger.WithService(service).Errorf("Scale up failed reading template: %v", err)
		r.publisher.ScalingFailed(service, "template_read_failed", err)
		return false
	}
	spec.Service = service

	if _, err := r.client.Run(ctx, spec); err != nil {
		logger.WithService(service).Errorf("Scale up failed: %v", err)
		r.publisher.ScalingFailed(service, "run_failed", err)
		return false
	}
	return true
}

// scaleDown stops the oldest running instance.
func (r *Reconciler) scaleDown(ctx context.Context, service string, counted []*models.Instance) bool {
	victim := pickOldestRunning(counted)
	if victim == nil {
		logger.WithService(service).Error("Scale down failed: no running instance to stop")
		r.publisher.ScalingFailed(service, "no_running_instance", orchestration.ErrInstanceNotFound)
		return false
	}

	if err := r.client.Stop(ctx, victim.ID); err != nil {
		logger.WithService(service).Errorf("Scale down failed: %v", err)
		r.publisher.ScalingFailed(service, "stop_failed", err)
		return false
	}
	return true
}

// Counts queries the live instance count per service. Services whose
// query fails are omitted; the decision engine falls back to treating
// them as at MinInstances.
func (r *Reconciler) Counts(ctx context.Context, services []string) map[string]int {
	counts := make(map[string]int, len(services))
	for _, service := range services {
		instances, err := r.client.List(ctx, service)
		if err != nil {
			logger.WithService(service).Warnf("Count query failed: %v", err)
			continue
		}
		counts[service] = len(countedInstances(instances))
	}
	return counts
}

func (r *Reconciler) serviceLock(service string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, exists := r.locks[service]
	if !exists {
		lock = &sync.Mutex{}
		r.locks[service] = lock
	}
	return lock
}

func countedInstances(instances []*models.Instance) []*models.Instance {
	out := make([]*models.Instance, 0, len(instances))
	for _, i := range instances {
		if i.IsCounted() {
			out = append(out, i)
		}
	}
	return out
}

func pickTemplate(instances []*models.Instance) *models.Instance {
	for _, i := range instances {
		if i.IsRunning() {
			return i
		}
	}
	return nil
}

func pickOldestRunning(instances []*models.Instance) *models.Instance {
	running := make([]*models.Instance, 0, len(instances))
	for _, i := range instances {
		if i.IsRunning() {
			running = append(running, i)
		}
	}
	if len(running) == 0 {
		return nil
	}

	sort.Slice(running, func(a, b int) bool {
		return running[a].CreatedAt.Before(running[b].CreatedAt)
	})
	return running[0]
}
