package services

import (
	"path/filepath"
	"testing"

	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"
	"kubeops-dashboard/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	store    *store.Store
	registry *collector.Registry
	targets  *TargetResolver
	audit    *AuditService
	alerts   *AlertService
	overview *OverviewService
}

// newTestEnv wires services over a temp sqlite store and the mock backends
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := collector.NewRegistry(collector.RegistryOptions{UseMock: true}, zap.NewNop())
	targets := NewTargetResolver(models.ConnectionTarget{}, st, registry)
	alerts := NewAlertService(targets, zap.NewNop())

	return &testEnv{
		store:    st,
		registry: registry,
		targets:  targets,
		audit:    NewAuditService(st, zap.NewNop()),
		alerts:   alerts,
		overview: NewOverviewService(targets, alerts, zap.NewNop()),
	}
}

func (e *testEnv) addCluster(t *testing.T, clusterID string, active bool) *models.ManagedCluster {
	t.Helper()
	row := &models.ManagedCluster{
		Name:           clusterID + "-name",
		ClusterID:      clusterID,
		K8sAPIURL:      "https://" + clusterID + ".example:6443",
		K8sBearerToken: "token-" + clusterID,
		IsActive:       active,
	}
	require.NoError(t, e.store.CreateCluster(row))
	return row
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
