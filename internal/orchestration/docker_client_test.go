package orchestration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

func newTestDockerClient(t *testing.T, handler http.Handler) *DockerClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewDockerClient(DockerConfig{
		Endpoint:      server.URL,
		ServiceLabel:  "service",
		Timeout:       time.Second,
		StopGrace:     10 * time.Second,
		RetryAttempts: 3,
	})
	require.NoError(t, err)
	return client
}

func TestDockerClient_List(t *testing.T) {
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/containers/json", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("all"))

		var filters map[string][]string
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("filters")), &filters))
		assert.Equal(t, []string{"service=api"}, filters["label"])

		json.NewEncoder(w).Encode([]containerSummary{
			{ID: "aaa", Image: "registry.local/api:latest", State: "running", Created: 1700000000},
			{ID: "bbb", Image: "registry.local/api:latest", State: "created", Created: 1700000100},
			{ID: "ccc", Image: "registry.local/api:latest", State: "exited", Created: 1700000200},
		})
	}))

	instances, err := client.List(context.Background(), "api")
	require.NoError(t, err)
	require.Len(t, instances, 3)

	assert.Equal(t, models.InstanceStateRunning, instances[0].State)
	assert.Equal(t, models.InstanceStateProvisioning, instances[1].State)
	assert.Equal(t, models.InstanceStateStopped, instances[2].State)
	assert.Equal(t, time.Unix(1700000000, 0), instances[0].CreatedAt)
	assert.Equal(t, "api", instances[0].Service)
}

func TestDockerClient_ListRetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]containerSummary{})
	}))

	instances, err := client.List(context.Background(), "api")
	require.NoError(t, err)
	assert.Empty(t, instances)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDockerClient_ListExhaustsRetries(t *testing.T) {
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.List(context.Background(), "api")
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestDockerClient_Template(t *testing.T) {
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/containers/aaa/json", r.URL.Path)

		var inspect containerInspect
		inspect.Config.Image = "registry.local/api:v3"
		inspect.Config.Env = []string{"PORT=8080"}
		inspect.Config.Labels = map[string]string{"service": "api"}
		inspect.HostConfig.NetworkMode = "bridge"
		json.NewEncoder(w).Encode(inspect)
	}))

	spec, err := client.Template(context.Background(), "aaa")
	require.NoError(t, err)

	assert.Equal(t, "api", spec.Service)
	assert.Equal(t, "registry.local/api:v3", spec.Image)
	assert.Equal(t, []string{"PORT=8080"}, spec.Env)
	assert.Equal(t, "bridge", spec.NetworkMode)
}

func TestDockerClient_TemplateNotFound(t *testing.T) {
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Template(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestDockerClient_RunCreatesAndStarts(t *testing.T) {
	var createBody map[string]interface{}
	var started bool

	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/containers/create":
			name := r.URL.Query().Get("name")
			assert.True(t, strings.HasPrefix(name, "api-"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(createResponse{ID: "new-id"})
		case r.URL.Path == "/containers/new-id/start":
			started = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected request %s", r.URL.Path)
		}
	}))

	id, err := client.Run(context.Background(), &models.InstanceSpec{
		Service: "api",
		Image:   "registry.local/api:latest",
		Env:     []string{"PORT=8080"},
	})
	require.NoError(t, err)

	assert.Equal(t, "new-id", id)
	assert.True(t, started)
	assert.Equal(t, "registry.local/api:latest", createBody["Image"])
	labels := createBody["Labels"].(map[string]interface{})
	assert.Equal(t, "api", labels["service"])
}

func TestDockerClient_RunFailureIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Run(context.Background(), &models.InstanceSpec{Service: "api", Image: "x"})
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "mutating calls must not retry")
}

func TestDockerClient_StopSendsGrace(t *testing.T) {
	var query url.Values
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/containers/aaa/stop", r.URL.Path)
		query = r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.Stop(context.Background(), "aaa"))
	assert.Equal(t, "10", query.Get("t"))
}

func TestDockerClient_StopNotFound(t *testing.T) {
	client := newTestDockerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	err := client.Stop(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrStopFailed)
}

func TestNewDockerClient_RejectsUnknownScheme(t *testing.T) {
	_, err := NewDockerClient(DockerConfig{Endpoint: "ftp://nope"})
	assert.Error(t, err)
}
