package orchestration

import (
	"context"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/internal/resilience"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// BreakerClient wraps a Client with a circuit breaker so a dead backend
// fails fast instead of burning the whole execute timeout on every tick.
type BreakerClient struct {
	client  Client
	breaker *resilience.CircuitBreaker
}

type BreakerConfig struct {
	MaxFailures   int
	Timeout       int // seconds; zero means the breaker default
	OnStateChange func(name string, from, to resilience.State)
}

func WithBreaker(client Client, breaker *resilience.CircuitBreaker) *BreakerClient {
	return &BreakerClient{client: client, breaker: breaker}
}

func (b *BreakerClient) List(ctx context.Context, service string) ([]*models.Instance, error) {
	var instances []*models.Instance
	err := b.breaker.Execute(func() error {
		var err error
		instances, err = b.client.List(ctx, service)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}

func (b *BreakerClient) Template(ctx context.Context, instanceID string) (*models.InstanceSpec, error) {
	var spec *models.InstanceSpec
	err := b.breaker.Execute(func() error {
		var err error
		spec, err = b.client.Template(ctx, instanceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func (b *BreakerClient) Run(ctx context.Context, spec *models.InstanceSpec) (string, error) {
	var id string
	err := b.breaker.Execute(func() error {
		var err error
		id, err = b.client.Run(ctx, spec)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (b *BreakerClient) Stop(ctx context.Context, instanceID string) error {
	return b.breaker.Execute(func() error {
		return b.client.Stop(ctx, instanceID)
	})
}

func (b *BreakerClient) Close() error {
	return b.client.Close()
}

// LogStateChange is a ready-made OnStateChange hook.
func LogStateChange(name string, from, to resilience.State) {
	logger.Warnf("Circuit breaker %q: %s -> %s", name, from, to)
}
