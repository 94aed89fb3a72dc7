package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/fleet-autoscaler/internal/cooldown"
	"github.com/OldStager01/fleet-autoscaler/internal/events"
	"github.com/OldStager01/fleet-autoscaler/internal/ledger"
	"github.com/OldStager01/fleet-autoscaler/internal/thresholds"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// stubClient scripts the orchestration backend per call.
type stubClient struct {
	mu        sync.Mutex
	instances []*models.Instance
	listErr   error
	runErr    error
	stopErr   error
	runCalls  int
	stopCalls int
	stoppedID string
	nextID    int
}

func (s *stubClient) List(ctx context.Context, service string) ([]*models.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*models.Instance, len(s.instances))
	copy(out, s.instances)
	return out, nil
}

func (s *stubClient) Template(ctx context.Context, instanceID string) (*models.InstanceSpec, error) {
	return &models.InstanceSpec{Image: "registry.local/api:latest"}, nil
}

func (s *stubClient) Run(ctx context.Context, spec *models.InstanceSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCalls++
	if s.runErr != nil {
		return "", s.runErr
	}
	s.nextID++
	return fmt.Sprintf("new-%d", s.nextID), nil
}

func (s *stubClient) Stop(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
	if s.stopErr != nil {
		return s.stopErr
	}
	s.stoppedID = instanceID
	return nil
}

func (s *stubClient) Close() error { return nil }

func runningInstance(id string, age time.Duration) *models.Instance {
	return &models.Instance{
		ID:        id,
		Service:   "api",
		State:     models.InstanceStateRunning,
		Image:     "registry.local/api:latest",
		CreatedAt: time.Now().Add(-age),
	}
}

type fixture struct {
	rec    *Reconciler
	client *stubClient
	gate   *cooldown.Gate
	led    *ledger.Ledger
}

func newFixture(t *testing.T, instances ...*models.Instance) *fixture {
	t.Helper()

	client := &stubClient{instances: instances}
	policy := models.DefaultThresholds()
	policy.MinInstances = 1
	policy.MaxInstances = 5

	store, err := thresholds.NewStore(policy)
	require.NoError(t, err)

	gate := cooldown.NewGate(policy.CooldownDuration())
	led := ledger.New(100, nil)

	bus := events.NewEventBus(100)
	t.Cleanup(bus.Close)
	publisher := events.NewPublisher(bus)

	return &fixture{
		rec:    New(client, gate, led, store, publisher),
		client: client,
		gate:   gate,
		led:    led,
	}
}

func TestReconciler_ScaleUpRecordsEvent(t *testing.T) {
	f := newFixture(t, runningInstance("a", time.Hour), runningInstance("b", time.Minute))

	ok := f.rec.Execute(context.Background(), "api", models.ScaleUp, models.NewSystemMetrics(), "cpu_above_threshold")

	assert.True(t, ok)
	assert.Equal(t, 1, f.client.runCalls)

	events := f.led.Recent(1)
	require.Len(t, events, 1)
	assert.Equal(t, models.ScaleUp, events[0].Action)
	assert.Equal(t, 2, events[0].InstancesBefore)
	assert.Equal(t, 3, events[0].InstancesAfter)
	assert.Equal(t, "cpu_above_threshold", events[0].Reason)
}

func TestReconciler_ScaleDownStopsOldest(t *testing.T) {
	f := newFixture(t,
		runningInstance("young", time.Minute),
		runningInstance("oldest", 3*time.Hour),
		runningInstance("middle", time.Hour),
	)

	ok := f.rec.Execute(context.Background(), "api", models.ScaleDown, models.NewSystemMetrics(), "joint_low_cpu_memory")

	assert.True(t, ok)
	assert.Equal(t, "oldest", f.client.stoppedID)
}

func TestReconciler_CooldownBlocksSecondAction(t *testing.T) {
	f := newFixture(t, runningInstance("a", time.Hour), runningInstance("b", time.Hour))

	first := f.rec.Execute(context.Background(), "api", models.ScaleUp, models.NewSystemMetrics(), "cpu_above_threshold")
	second := f.rec.Execute(context.Background(), "api", models.ScaleUp, models.NewSystemMetrics(), "cpu_above_threshold")

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, 1, f.client.runCalls, "cooldown must leave exactly one launch")
	assert.Equal(t, 1, f.led.Len())
}

func TestReconciler_QueryFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.client.listErr = errors.New("backend unreachable")

	ok := f.rec.Execute(context.Background(), "api", models.ScaleUp, models.NewSystemMetrics(), "cpu_above_threshold")

	assert.False(t, ok)
	assert.Equal(t, 0, f.client.runCalls, "never scale on a stale count")
	assert.Equal(t, 0, f.led.Len())
}

func TestReconciler_BoundsRecheckedAgainstFreshCount(t *testing.T) {
	// Five running instances: already at max, the directive is stale.
	f := newFixture(t,
		runningInstance("a", time.Hour), runningInstance("b", time.Hour),
		runningInstance("c", time.Hour), runningInstance("d", time.Hour),
		runningInstance("e", time.Hour),
	)

	ok := f.rec.Execute(context.Background(), "api", models.ScaleUp, models.NewSystemMetrics(), "cpu_above_threshold")

	assert.False(t, ok)
	assert.Equal(t, 0, f.client.runCalls)
}

func TestReconciler_ScaleDownRejectedAtFloor(t *testing.T) {
	f := newFixture(t, runningInstance("only", time.Hour))

	ok := f.rec.Execute(context.Background(), "api", models.ScaleDown, models.NewSystemMetrics(), "joint_low_cpu_memory")

	assert.False(t, ok)
	assert.Equal(t, 0, f.client.stopCalls)
}

func TestReconciler_FailedRunLeavesNoEventOrCooldown(t *testing.T) {
	f := newFixture(t, runningInstance("a", time.Hour))
	f.client.runErr = errors.New("image pull failed")

	ok := f.rec.Execute(context.Background(), "api", models.ScaleUp, models.NewSystemMetrics(), "cpu_above_threshold")

	assert.False(t, ok)
	assert.Equal(t, 0, f.led.Len())
	// The failed attempt must not consume the cooldown window.
	assert.True(t, f.gate.Allow("api", time.Now()))
}

func TestReconciler_NoneDirectionIsNoop(t *testing.T) {
	f := newFixture(t, runningInstance("a", time.Hour))

	ok := f.rec.Execute(context.Background(), "api", models.ScaleNone, models.NewSystemMetrics(), "")

	assert.False(t, ok)
	assert.Equal(t, 0, f.client.runCalls)
	assert.Equal(t, 0, f.client.stopCalls)
}

func TestReconciler_ProvisioningInstancesCountTowardBounds(t *testing.T) {
	provisioning := &models.Instance{
		ID: "warming", Service: "api", State: models.InstanceStateProvisioning, CreatedAt: time.Now(),
	}
	f := newFixture(t,
		runningInstance("a", time.Hour), runningInstance("b", time.Hour),
		runningInstance("c", time.Hour), runningInstance("d", time.Hour),
		provisioning,
	)

	// 4 running + 1 provisioning = 5 counted, which is max.
	ok := f.rec.Execute(context.Background(), "api", models.ScaleUp, models.NewSystemMetrics(), "cpu_above_threshold")

	assert.False(t, ok)
	assert.Equal(t, 0, f.client.runCalls)
}

func TestReconciler_Counts(t *testing.T) {
	f := newFixture(t, runningInstance("a", time.Hour), runningInstance("b", time.Hour))

	counts := f.rec.Counts(context.Background(), []string{"api"})
	assert.Equal(t, map[string]int{"api": 2}, counts)
}

func TestReconciler_CountsOmitsFailedQueries(t *testing.T) {
	f := newFixture(t)
	f.client.listErr = errors.New("backend unreachable")

	counts := f.rec.Counts(context.Background(), []string{"api", "worker"})
	assert.Empty(t, counts)
}
