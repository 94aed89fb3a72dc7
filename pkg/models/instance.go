package models

import "time"

type InstanceState string

const (
	InstanceStateProvisioning InstanceState = "PROVISIONING"
	InstanceStateRunning      InstanceState = "RUNNING"
	InstanceStateDraining     InstanceState = "DRAINING"
	InstanceStateStopped      InstanceState = "STOPPED"
)

// Instance is the orchestration backend's view of one running container.
type Instance struct {
	ID        string        `json:"id"`
	Service   string        `json:"service"`
	State     InstanceState `json:"state"`
	Image     string        `json:"image"`
	CreatedAt time.Time     `json:"created_at"`
}

func (i *Instance) IsRunning() bool {
	return i.State == InstanceStateRunning
}

// IsCounted reports whether the instance counts toward the service's
// capacity when re-validating bounds.
func (i *Instance) IsCounted() bool {
	return i.State == InstanceStateProvisioning || i.State == InstanceStateRunning
}

// InstanceSpec is the template used to launch a new instance, cloned from
// an existing healthy one.
type InstanceSpec struct {
	Service     string            `json:"service"`
	Image       string            `json:"image"`
	Env         []string          `json:"env,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	NetworkMode string            `json:"network_mode,omitempty"`
}
