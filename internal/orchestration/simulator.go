package orchestration

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// Simulator is an in-memory backend for tests and environments without a
// container runtime. Launched instances move asynchronously through
// PROVISIONING -> RUNNING, stopped ones through DRAINING -> STOPPED.
type Simulator struct {
	provisionTime time.Duration
	drainTime     time.Duration

	mu        sync.Mutex
	instances map[string]*simInstance

	failNext bool // next mutating call errors; set by tests
}

type simInstance struct {
	instance models.Instance
	spec     models.InstanceSpec
}

type SimulatorConfig struct {
	ProvisionTime time.Duration
	DrainTime     time.Duration
}

func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.ProvisionTime == 0 {
		cfg.ProvisionTime = 100 * time.Millisecond
	}
	if cfg.DrainTime == 0 {
		cfg.DrainTime = 100 * time.Millisecond
	}
	return &Simulator{
		provisionTime: cfg.ProvisionTime,
		drainTime:     cfg.DrainTime,
		instances:     make(map[string]*simInstance),
	}
}

// Seed populates a service with running instances before the loop starts.
func (s *Simulator) Seed(service, image string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < count; i++ {
		id := models.NewUUID()
		s.instances[id] = &simInstance{
			instance: models.Instance{
				ID:        id,
				Service:   service,
				State:     models.InstanceStateRunning,
				Image:     image,
				CreatedAt: time.Now(),
			},
			spec: models.InstanceSpec{
				Service: service,
				Image:   image,
				Labels:  map[string]string{"service": service},
			},
		}
	}

	logger.WithService(service).Infof("Simulator seeded with %d running instances", count)
}

// SetFailNext makes the next Run or Stop call fail.
func (s *Simulator) SetFailNext(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = fail
}

func (s *Simulator) List(ctx context.Context, service string) ([]*models.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Instance
	for _, si := range s.instances {
		if si.instance.Service != service {
			continue
		}
		copied := si.instance
		out = append(out, &copied)
	}
	return out, nil
}

func (s *Simulator) Template(ctx context.Context, instanceID string) (*models.InstanceSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	si, exists := s.instances[instanceID]
	if !exists {
		return nil, ErrInstanceNotFound
	}
	spec := si.spec
	return &spec, nil
}

func (s *Simulator) Run(ctx context.Context, spec *models.InstanceSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext {
		s.failNext = false
		return "", ErrRunFailed
	}

	id := models.NewUUID()
	s.instances[id] = &simInstance{
		instance: models.Instance{
			ID:        id,
			Service:   spec.Service,
			State:     models.InstanceStateProvisioning,
			Image:     spec.Image,
			CreatedAt: time.Now(),
		},
		spec: *spec,
	}

	go s.transition(id, s.provisionTime, models.InstanceStateRunning)

	logger.WithService(spec.Service).Infof("Simulator launched instance %s", shortID(id))
	return id, nil
}

func (s *Simulator) Stop(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext {
		s.failNext = false
		return ErrStopFailed
	}

	si, exists := s.instances[instanceID]
	if !exists {
		return ErrInstanceNotFound
	}

	si.instance.State = models.InstanceStateDraining
	go s.transition(instanceID, s.drainTime, models.InstanceStateStopped)

	logger.WithService(si.instance.Service).Infof("Simulator stopping instance %s", shortID(instanceID))
	return nil
}

func (s *Simulator) Close() error {
	return nil
}

func (s *Simulator) transition(instanceID string, after time.Duration, to models.InstanceState) {
	time.Sleep(after)

	s.mu.Lock()
	defer s.mu.Unlock()
	if si, exists := s.instances[instanceID]; exists {
		si.instance.State = to
	}
}
