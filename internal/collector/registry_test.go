package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryMockSelection(t *testing.T) {
	tests := []struct {
		name     string
		useMock  bool
		target   models.ConnectionTarget
		wantK8s  string
		wantProm string
	}{
		{"pinned to mock", true, models.ConnectionTarget{APIURL: "https://k8s", PrometheusURL: "http://prom"}, "mock", "mock"},
		{"no urls", false, models.ConnectionTarget{}, "mock", "mock"},
		{"k8s only", false, models.ConnectionTarget{APIURL: "https://k8s"}, "real", "mock"},
		{"both live", false, models.ConnectionTarget{APIURL: "https://k8s", PrometheusURL: "http://prom"}, "real", "real"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(RegistryOptions{UseMock: tt.useMock, K8sTimeout: time.Second, PrometheusTimeout: time.Second}, nil)

			k8s, err := r.Kubernetes(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantK8s, k8s.Mode())

			prom, err := r.Prometheus(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProm, prom.Mode())
		})
	}
}

func TestRegistrySharesMockAndCachesClients(t *testing.T) {
	r := NewRegistry(RegistryOptions{K8sTimeout: time.Second, PrometheusTimeout: time.Second}, nil)

	m1, _ := r.Kubernetes(models.ConnectionTarget{})
	m2, _ := r.Kubernetes(models.ConnectionTarget{ClusterID: "other"})
	assert.Same(t, m1, m2)

	target := models.ConnectionTarget{APIURL: "https://k8s", BearerToken: "a", PrometheusURL: "http://prom"}
	c1, err := r.Kubernetes(target)
	require.NoError(t, err)
	c2, err := r.Kubernetes(target)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	rotated := target
	rotated.BearerToken = "b"
	c3, err := r.Kubernetes(rotated)
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)

	p1, _ := r.Prometheus(target)
	r.Forget(target)
	c4, _ := r.Kubernetes(target)
	p2, _ := r.Prometheus(target)
	assert.NotSame(t, c1, c4)
	assert.NotSame(t, p1, p2)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveBackend(backend, operation string, _ time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	r.calls = append(r.calls, backend+"/"+operation+"/"+outcome)
}

func TestRegistryObservesLiveCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/nodes":
			fmt.Fprint(w, `{"apiVersion":"v1","kind":"NodeList","metadata":{},"items":[{"metadata":{"name":"n1"}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, notFoundStatusJSON)
		}
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	r := NewRegistry(RegistryOptions{K8sTimeout: time.Second, PrometheusTimeout: time.Second, Observer: obs}, nil)

	k8s, err := r.Kubernetes(models.ConnectionTarget{APIURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "real", k8s.Mode())

	nodes, err := k8s.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	_, err = k8s.GetResource(context.Background(), "deployment", "missing", "prod")
	require.Error(t, err)

	mock, err := r.Kubernetes(models.ConnectionTarget{})
	require.NoError(t, err)
	_, err = mock.ListNodes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"kubernetes/list_nodes/ok", "kubernetes/get_resource/not_found"}, obs.calls)
}
