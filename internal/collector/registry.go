package collector

import (
	"sync"
	"time"

	"kubeops-dashboard/internal/models"

	"go.uber.org/zap"
)

// RegistryOptions configures backend selection and live client budgets
type RegistryOptions struct {
	UseMock           bool
	K8sTimeout        time.Duration
	PrometheusTimeout time.Duration

	// Observer, when set, is told about every live backend call
	Observer Observer
}

// Registry hands out the backend implementation for a connection target.
// Live clients are cached per endpoint; a single mock instance is shared so
// mutations made through it persist for the process lifetime.
type Registry struct {
	opts RegistryOptions
	log  *zap.Logger

	mockK8s  *MockKubernetes
	mockProm *MockPrometheus

	mu          sync.RWMutex
	k8sClients  map[string]*LiveKubernetes
	promClients map[string]*LivePrometheus
}

// NewRegistry creates a registry with fresh mock fixtures
func NewRegistry(opts RegistryOptions, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		opts:        opts,
		log:         log,
		mockK8s:     NewMockKubernetes(),
		mockProm:    NewMockPrometheus(),
		k8sClients:  make(map[string]*LiveKubernetes),
		promClients: make(map[string]*LivePrometheus),
	}
}

// Kubernetes returns the cluster API implementation for target
func (r *Registry) Kubernetes(target models.ConnectionTarget) (Kubernetes, error) {
	if r.opts.UseMock || target.APIURL == "" {
		return r.mockK8s, nil
	}

	key := target.APIURL + "|" + target.BearerToken
	r.mu.RLock()
	client, ok := r.k8sClients[key]
	r.mu.RUnlock()
	if ok {
		return r.observeKubernetes(client), nil
	}

	client, err := NewLiveKubernetes(target, r.opts.K8sTimeout)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.k8sClients[key]; ok {
		client = existing
	} else {
		r.k8sClients[key] = client
		r.log.Info("created kubernetes client", zap.String("cluster_id", target.ClusterID), zap.String("api_url", target.APIURL))
	}
	r.mu.Unlock()
	return r.observeKubernetes(client), nil
}

// Prometheus returns the metrics implementation for target
func (r *Registry) Prometheus(target models.ConnectionTarget) (Prometheus, error) {
	if r.opts.UseMock || target.PrometheusURL == "" {
		return r.mockProm, nil
	}

	key := target.PrometheusURL
	r.mu.RLock()
	client, ok := r.promClients[key]
	r.mu.RUnlock()
	if ok {
		return r.observePrometheus(client), nil
	}

	client, err := NewLivePrometheus(target.PrometheusURL, r.opts.PrometheusTimeout, r.log.Named("prometheus"))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.promClients[key]; ok {
		client = existing
	} else {
		r.promClients[key] = client
		r.log.Info("created prometheus client", zap.String("cluster_id", target.ClusterID), zap.String("url", target.PrometheusURL))
	}
	r.mu.Unlock()
	return r.observePrometheus(client), nil
}

func (r *Registry) observeKubernetes(client *LiveKubernetes) Kubernetes {
	if r.opts.Observer == nil {
		return client
	}
	return observedKubernetes{next: client, obs: r.opts.Observer}
}

func (r *Registry) observePrometheus(client *LivePrometheus) Prometheus {
	if r.opts.Observer == nil {
		return client
	}
	return observedPrometheus{next: client, obs: r.opts.Observer}
}

// Forget drops cached live clients for an endpoint after a profile changes
func (r *Registry) Forget(target models.ConnectionTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.k8sClients, target.APIURL+"|"+target.BearerToken)
	delete(r.promClients, target.PrometheusURL)
}

// MockMode reports whether the process is pinned to fixtures
func (r *Registry) MockMode() bool { return r.opts.UseMock }
