package orchestration

import (
	"context"
	"errors"

	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

var (
	ErrQueryFailed      = errors.New("orchestration query failed")
	ErrRunFailed        = errors.New("instance start failed")
	ErrStopFailed       = errors.New("instance stop failed")
	ErrInstanceNotFound = errors.New("instance not found")
	ErrNoTemplate       = errors.New("no healthy instance available as template")
)

// Client is the narrow surface the reconciler uses against the container
// backend. Implementations must honor context deadlines on every call.
type Client interface {
	// List returns all instances carrying the service label.
	List(ctx context.Context, service string) ([]*models.Instance, error)

	// Template reads the launch configuration of an existing instance.
	Template(ctx context.Context, instanceID string) (*models.InstanceSpec, error)

	// Run launches a new detached instance from the spec.
	Run(ctx context.Context, spec *models.InstanceSpec) (string, error)

	// Stop gracefully stops the instance.
	Stop(ctx context.Context, instanceID string) error

	// Close releases resources
	Close() error
}
