package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// DockerClient speaks the Docker Engine HTTP API directly over a unix
// socket or TCP endpoint. Mutating calls are not retried; listing and
// inspection retry on transient transport errors.
type DockerClient struct {
	client        *http.Client
	baseURL       string
	serviceLabel  string
	stopGrace     time.Duration
	retryAttempts int
}

type DockerConfig struct {
	Endpoint      string
	ServiceLabel  string
	Timeout       time.Duration
	StopGrace     time.Duration
	RetryAttempts int
}

func NewDockerClient(cfg DockerConfig) (*DockerClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.StopGrace == 0 {
		cfg.StopGrace = 30 * time.Second
	}
	if cfg.ServiceLabel == "" {
		cfg.ServiceLabel = "service"
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}

	client := &http.Client{Timeout: cfg.Timeout}
	baseURL := cfg.Endpoint

	switch {
	case strings.HasPrefix(cfg.Endpoint, "unix://"):
		socketPath := strings.TrimPrefix(cfg.Endpoint, "unix://")
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		}
		baseURL = "http://docker"
	case strings.HasPrefix(cfg.Endpoint, "tcp://"):
		baseURL = "http://" + strings.TrimPrefix(cfg.Endpoint, "tcp://")
	case strings.HasPrefix(cfg.Endpoint, "http://"), strings.HasPrefix(cfg.Endpoint, "https://"):
		// Used as-is. Tests point this at an httptest server.
	default:
		return nil, fmt.Errorf("unsupported orchestrator endpoint %q", cfg.Endpoint)
	}

	return &DockerClient{
		client:        client,
		baseURL:       baseURL,
		serviceLabel:  cfg.ServiceLabel,
		stopGrace:     cfg.StopGrace,
		retryAttempts: cfg.RetryAttempts,
	}, nil
}

// containerSummary matches the Engine API list response.
type containerSummary struct {
	ID      string            `json:"Id"`
	Image   string            `json:"Image"`
	State   string            `json:"State"`
	Created int64             `json:"Created"`
	Labels  map[string]string `json:"Labels"`
}

type containerInspect struct {
	Config struct {
		Image  string            `json:"Image"`
		Env    []string          `json:"Env"`
		Labels map[string]string `json:"Labels"`
	} `json:"Config"`
	HostConfig struct {
		NetworkMode string `json:"NetworkMode"`
	} `json:"HostConfig"`
}

type createResponse struct {
	ID string `json:"Id"`
}

func (c *DockerClient) List(ctx context.Context, service string) ([]*models.Instance, error) {
	filters, err := json.Marshal(map[string][]string{
		"label": {fmt.Sprintf("%s=%s", c.serviceLabel, service)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	path := fmt.Sprintf("/containers/json?all=true&filters=%s", url.QueryEscape(string(filters)))

	var summaries []containerSummary
	err = c.retrier(ctx).Do(func() error {
		return c.getJSON(ctx, path, &summaries)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	instances := make([]*models.Instance, 0, len(summaries))
	for _, s := range summaries {
		instances = append(instances, &models.Instance{
			ID:        s.ID,
			Service:   service,
			State:     mapContainerState(s.State),
			Image:     s.Image,
			CreatedAt: time.Unix(s.Created, 0),
		})
	}
	return instances, nil
}

func (c *DockerClient) Template(ctx context.Context, instanceID string) (*models.InstanceSpec, error) {
	var inspect containerInspect
	err := c.retrier(ctx).Do(func() error {
		return c.getJSON(ctx, "/containers/"+instanceID+"/json", &inspect)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	return &models.InstanceSpec{
		Service:     inspect.Config.Labels[c.serviceLabel],
		Image:       inspect.Config.Image,
		Env:         inspect.Config.Env,
		Labels:      inspect.Config.Labels,
		NetworkMode: inspect.HostConfig.NetworkMode,
	}, nil
}

func (c *DockerClient) Run(ctx context.Context, spec *models.InstanceSpec) (string, error) {
	labels := make(map[string]string, len(spec.Labels)+1)
	for k, v := range spec.Labels {
		labels[k] = v
	}
	labels[c.serviceLabel] = spec.Service

	body := map[string]interface{}{
		"Image":  spec.Image,
		"Env":    spec.Env,
		"Labels": labels,
		"HostConfig": map[string]interface{}{
			"NetworkMode": spec.NetworkMode,
		},
	}

	name := fmt.Sprintf("%s-%s", spec.Service, models.NewUUID()[:8])

	var created createResponse
	if err := c.postJSON(ctx, "/containers/create?name="+name, body, &created); err != nil {
		return "", fmt.Errorf("%w: create: %v", ErrRunFailed, err)
	}

	if err := c.postJSON(ctx, "/containers/"+created.ID+"/start", nil, nil); err != nil {
		return "", fmt.Errorf("%w: start: %v", ErrRunFailed, err)
	}

	logger.WithService(spec.Service).Infof("Started instance %s (%s)", name, shortID(created.ID))
	return created.ID, nil
}

func (c *DockerClient) Stop(ctx context.Context, instanceID string) error {
	grace := int(c.stopGrace.Seconds())
	path := fmt.Sprintf("/containers/%s/stop?t=%d", instanceID, grace)

	if err := c.postJSON(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrStopFailed, err)
	}

	logger.Infof("Stopped instance %s", shortID(instanceID))
	return nil
}

func (c *DockerClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// retrier covers read calls only; mutations go out exactly once.
func (c *DockerClient) retrier(ctx context.Context) *retry.Retrier {
	return retry.New(
		retry.Attempts(uint(c.retryAttempts)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func (c *DockerClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrInstanceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (c *DockerClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrInstanceNotFound
	}
	// 204 from start/stop, 201 from create, 304 when already in the
	// requested state
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, out)
	}
	return nil
}

func mapContainerState(state string) models.InstanceState {
	switch state {
	case "running":
		return models.InstanceStateRunning
	case "created", "restarting":
		return models.InstanceStateProvisioning
	case "removing", "paused":
		return models.InstanceStateDraining
	default:
		return models.InstanceStateStopped
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
