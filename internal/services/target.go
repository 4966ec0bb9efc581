package services

import (
	"context"
	"fmt"
	"strings"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"
)

// DefaultClusterKey names the process-default target in history and logs
const DefaultClusterKey = "default"

// TargetResolver turns an optional external cluster id into backend endpoints
type TargetResolver struct {
	defaults models.ConnectionTarget
	clusters ClusterStore
	registry *collector.Registry
}

func NewTargetResolver(defaults models.ConnectionTarget, clusters ClusterStore, registry *collector.Registry) *TargetResolver {
	if defaults.ClusterID == "" {
		defaults.ClusterID = DefaultClusterKey
	}
	return &TargetResolver{defaults: defaults, clusters: clusters, registry: registry}
}

// Resolve returns the process defaults for an empty id, otherwise the active
// profile registered under clusterID
func (r *TargetResolver) Resolve(_ context.Context, clusterID string) (models.ConnectionTarget, error) {
	clusterID = strings.TrimSpace(clusterID)
	if clusterID == "" {
		return r.defaults, nil
	}

	profile, err := r.clusters.GetClusterByClusterID(clusterID)
	if err != nil {
		return models.ConnectionTarget{}, err
	}
	if !profile.IsActive {
		return models.ConnectionTarget{}, apperr.InvalidArgumentf("cluster %s is inactive", clusterID)
	}
	return r.FromProfile(profile), nil
}

// FromProfile builds the target of a stored profile. An empty profile
// prometheus URL falls back to the process default.
func (r *TargetResolver) FromProfile(profile *models.ManagedCluster) models.ConnectionTarget {
	promURL := profile.PrometheusURL
	if promURL == "" {
		promURL = r.defaults.PrometheusURL
	}
	return models.ConnectionTarget{
		ClusterID:     profile.ClusterID,
		APIURL:        profile.K8sAPIURL,
		BearerToken:   profile.K8sBearerToken,
		PrometheusURL: promURL,
		VerifySSL:     r.defaults.VerifySSL,
	}
}

// Defaults returns the process-default target
func (r *TargetResolver) Defaults() models.ConnectionTarget { return r.defaults }

// Backends resolves clusterID and returns both collectors for it
func (r *TargetResolver) Backends(ctx context.Context, clusterID string) (collector.Kubernetes, collector.Prometheus, error) {
	target, err := r.Resolve(ctx, clusterID)
	if err != nil {
		return nil, nil, err
	}
	return r.BackendsFor(target)
}

// BackendsFor returns both collectors for an already resolved target
func (r *TargetResolver) BackendsFor(target models.ConnectionTarget) (collector.Kubernetes, collector.Prometheus, error) {
	k8s, err := r.registry.Kubernetes(target)
	if err != nil {
		return nil, nil, fmt.Errorf("kubernetes client for %s: %w", target.ClusterID, err)
	}
	prom, err := r.registry.Prometheus(target)
	if err != nil {
		return nil, nil, fmt.Errorf("prometheus client for %s: %w", target.ClusterID, err)
	}
	return k8s, prom, nil
}
