package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/config"
	"kubeops-dashboard/internal/models"

	"go.uber.org/zap"
)

// ClusterInput is a create payload, or an update payload where nil fields
// are left unchanged
type ClusterInput struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=64"`
	ClusterID      *string `json:"cluster_id" binding:"omitempty,min=1,max=64"`
	K8sAPIURL      *string `json:"k8s_api_url" binding:"omitempty,min=1,max=300"`
	PrometheusURL  *string `json:"prometheus_url" binding:"omitempty,max=300"`
	K8sBearerToken *string `json:"k8s_bearer_token" binding:"omitempty,max=4096"`
	IsActive       *bool   `json:"is_active"`
	Description    *string `json:"description" binding:"omitempty,max=500"`
}

// ConnectionProbe is an ad-hoc connection test request
type ConnectionProbe struct {
	K8sAPIURL      string `json:"k8s_api_url" binding:"required,max=300"`
	PrometheusURL  string `json:"prometheus_url" binding:"max=300"`
	K8sBearerToken string `json:"k8s_bearer_token" binding:"max=4096"`
}

// ClusterService manages stored connection profiles
type ClusterService struct {
	store   ClusterStore
	targets *TargetResolver
	log     *zap.Logger
	now     func() time.Time
}

func NewClusterService(store ClusterStore, targets *TargetResolver, log *zap.Logger) *ClusterService {
	return &ClusterService{store: store, targets: targets, log: log, now: time.Now}
}

// List returns every profile with its token masked
func (s *ClusterService) List() ([]models.ManagedClusterView, error) {
	rows, err := s.store.ListClusters()
	if err != nil {
		return nil, err
	}
	views := make([]models.ManagedClusterView, 0, len(rows))
	for i := range rows {
		views = append(views, toClusterView(&rows[i]))
	}
	return views, nil
}

// Create validates uniqueness, probes the endpoints and stores the profile.
// A failed probe rejects the profile.
func (s *ClusterService) Create(ctx context.Context, in ClusterInput) (*models.ManagedClusterView, error) {
	name, clusterID, apiURL := deref(in.Name), deref(in.ClusterID), deref(in.K8sAPIURL)
	if name == "" || clusterID == "" || apiURL == "" {
		return nil, apperr.InvalidArgumentf("name, cluster_id and k8s_api_url are required")
	}
	if err := s.checkUnique(name, clusterID, 0); err != nil {
		return nil, err
	}

	row := &models.ManagedCluster{
		Name:           strings.TrimSpace(name),
		ClusterID:      strings.TrimSpace(clusterID),
		K8sAPIURL:      strings.TrimSpace(apiURL),
		PrometheusURL:  strings.TrimSpace(deref(in.PrometheusURL)),
		K8sBearerToken: strings.TrimSpace(deref(in.K8sBearerToken)),
		IsActive:       in.IsActive == nil || *in.IsActive,
		Description:    deref(in.Description),
	}

	result := s.probe(ctx, s.probeTarget(row))
	if !result.OK {
		return nil, apperr.InvalidArgumentf("Cluster connection test failed. k8s=%s; prometheus=%s",
			result.Kubernetes.Message, result.Prometheus.Message)
	}

	if err := s.store.CreateCluster(row); err != nil {
		return nil, err
	}
	s.log.Info("cluster profile created", zap.String("cluster_id", row.ClusterID), zap.String("name", row.Name))
	view := toClusterView(row)
	return &view, nil
}

// Update applies the non-nil fields of in to profile id
func (s *ClusterService) Update(id uint, in ClusterInput) (*models.ManagedClusterView, error) {
	row, err := s.store.GetCluster(id)
	if err != nil {
		return nil, err
	}
	before := s.targets.FromProfile(row)

	if in.Name != nil && *in.Name != row.Name {
		if err := s.checkUnique(*in.Name, "", row.ID); err != nil {
			return nil, err
		}
		row.Name = *in.Name
	}
	if in.ClusterID != nil && *in.ClusterID != row.ClusterID {
		if err := s.checkUnique("", *in.ClusterID, row.ID); err != nil {
			return nil, err
		}
		row.ClusterID = *in.ClusterID
	}
	if in.K8sAPIURL != nil {
		row.K8sAPIURL = strings.TrimSpace(*in.K8sAPIURL)
	}
	if in.PrometheusURL != nil {
		row.PrometheusURL = strings.TrimSpace(*in.PrometheusURL)
	}
	if in.K8sBearerToken != nil {
		row.K8sBearerToken = strings.TrimSpace(*in.K8sBearerToken)
	}
	if in.IsActive != nil {
		row.IsActive = *in.IsActive
	}
	if in.Description != nil {
		row.Description = *in.Description
	}

	if err := s.store.SaveCluster(row); err != nil {
		return nil, err
	}
	s.targets.registry.Forget(before)
	view := toClusterView(row)
	return &view, nil
}

// Delete removes profile id and drops its cached clients
func (s *ClusterService) Delete(id uint) error {
	row, err := s.store.GetCluster(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCluster(id); err != nil {
		return err
	}
	s.targets.registry.Forget(s.targets.FromProfile(row))
	s.log.Info("cluster profile deleted", zap.String("cluster_id", row.ClusterID))
	return nil
}

// TestStored probes the endpoints of profile id
func (s *ClusterService) TestStored(ctx context.Context, id uint) (*models.ConnectionTestResult, error) {
	row, err := s.store.GetCluster(id)
	if err != nil {
		return nil, err
	}
	result := s.probe(ctx, s.probeTarget(row))
	return &result, nil
}

// TestProbe probes ad-hoc endpoints without storing them
func (s *ClusterService) TestProbe(ctx context.Context, p ConnectionProbe) *models.ConnectionTestResult {
	target := s.probeTarget(&models.ManagedCluster{
		ClusterID:      "probe",
		K8sAPIURL:      strings.TrimSpace(p.K8sAPIURL),
		K8sBearerToken: strings.TrimSpace(p.K8sBearerToken),
		PrometheusURL:  strings.TrimSpace(p.PrometheusURL),
	})
	result := s.probe(ctx, target)
	s.targets.registry.Forget(target)
	return &result
}

// probeTarget uses the profile's own endpoints only, without the process
// default prometheus fallback
func (s *ClusterService) probeTarget(row *models.ManagedCluster) models.ConnectionTarget {
	return models.ConnectionTarget{
		ClusterID:     row.ClusterID,
		APIURL:        row.K8sAPIURL,
		BearerToken:   row.K8sBearerToken,
		PrometheusURL: row.PrometheusURL,
		VerifySSL:     s.targets.defaults.VerifySSL,
	}
}

// Seed upserts profiles declared in the cluster seed file, keyed by cluster id.
// Seeded profiles skip the connection probe.
func (s *ClusterService) Seed(seeds []config.ClusterSeed) error {
	for _, seed := range seeds {
		row, err := s.store.GetClusterByClusterID(seed.ClusterID)
		switch {
		case apperr.IsNotFound(err):
			row = &models.ManagedCluster{ClusterID: seed.ClusterID}
		case err != nil:
			return err
		}

		row.Name = seed.Name
		row.K8sAPIURL = seed.APIURL
		row.PrometheusURL = seed.PrometheusURL
		row.K8sBearerToken = seed.BearerToken
		row.Description = seed.Description
		row.IsActive = seed.Enabled

		if row.ID == 0 {
			err = s.store.CreateCluster(row)
		} else {
			err = s.store.SaveCluster(row)
		}
		if err != nil {
			return fmt.Errorf("seeding cluster %s: %w", seed.ClusterID, err)
		}
		s.log.Info("cluster profile seeded", zap.String("cluster_id", seed.ClusterID), zap.Bool("active", seed.Enabled))
	}
	return nil
}

func (s *ClusterService) checkUnique(name, clusterID string, excludeID uint) error {
	if name != "" {
		taken, err := s.store.ClusterFieldTaken("name", name, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.InvalidArgumentf("name '%s' already exists", name)
		}
	}
	if clusterID != "" {
		taken, err := s.store.ClusterFieldTaken("cluster_id", clusterID, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.InvalidArgumentf("cluster_id '%s' already exists", clusterID)
		}
	}
	return nil
}

func (s *ClusterService) probe(ctx context.Context, target models.ConnectionTarget) models.ConnectionTestResult {
	result := models.ConnectionTestResult{Mode: "real", CheckedAt: s.now().UTC()}
	if s.targets.registry.MockMode() {
		result.Mode = "mock"
	}

	result.Kubernetes = s.probeKubernetes(ctx, target)

	if target.PrometheusURL == "" {
		result.Prometheus = models.ConnectionCheck{OK: true, Message: "Prometheus URL is empty, skipped."}
	} else {
		result.Prometheus = s.probePrometheus(ctx, target)
	}

	result.OK = result.Kubernetes.OK && result.Prometheus.OK
	return result
}

func (s *ClusterService) probeKubernetes(ctx context.Context, target models.ConnectionTarget) models.ConnectionCheck {
	fail := func(err error) models.ConnectionCheck {
		return models.ConnectionCheck{Message: "Kubernetes API check failed: " + summarizeProbeError(err)}
	}

	k8s, err := s.targets.registry.Kubernetes(target)
	if err != nil {
		return fail(err)
	}
	nodes, err := k8s.ListNodes(ctx)
	if err != nil {
		return fail(err)
	}
	pods, err := k8s.ListPods(ctx, "")
	if err != nil {
		return fail(err)
	}
	events, err := k8s.ListEvents(ctx, "")
	if err != nil {
		return fail(err)
	}
	return models.ConnectionCheck{
		OK:      true,
		Message: fmt.Sprintf("Kubernetes API ok (nodes=%d, pods=%d, events=%d)", len(nodes), len(pods), len(events)),
	}
}

func (s *ClusterService) probePrometheus(ctx context.Context, target models.ConnectionTarget) models.ConnectionCheck {
	prom, err := s.targets.registry.Prometheus(target)
	if err == nil {
		vec, qerr := prom.Query(ctx, "up")
		if qerr == nil {
			return models.ConnectionCheck{OK: true, Message: fmt.Sprintf("Prometheus API ok (series=%d)", len(vec))}
		}
		err = qerr
	}
	return models.ConnectionCheck{Message: "Prometheus API check failed: " + summarizeProbeError(err)}
}

func summarizeProbeError(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	var netErr net.Error
	switch {
	case apperr.Is(err, apperr.Timeout):
		return "connection timeout"
	case errors.As(err, &netErr):
		return "connection refused or host unreachable"
	}
	return err.Error()
}

// MaskToken keeps the first and last four characters of long tokens
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func toClusterView(c *models.ManagedCluster) models.ManagedClusterView {
	return models.ManagedClusterView{
		ID:                   c.ID,
		Name:                 c.Name,
		ClusterID:            c.ClusterID,
		K8sAPIURL:            c.K8sAPIURL,
		PrometheusURL:        c.PrometheusURL,
		K8sBearerTokenMasked: MaskToken(c.K8sBearerToken),
		IsActive:             c.IsActive,
		Description:          c.Description,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
