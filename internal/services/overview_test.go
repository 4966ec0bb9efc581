package services

import (
	"context"
	"testing"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryFromMockBackends(t *testing.T) {
	env := newTestEnv(t)

	s, err := env.overview.Summary(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultClusterKey, s.ClusterID)
	assert.Equal(t, 3, s.NodesTotal)
	assert.Equal(t, 2, s.NodesReady)
	assert.Equal(t, 5, s.PodsTotal)
	assert.Equal(t, 1, s.PodsPending)
	assert.Equal(t, 1, s.PodsCrashloop)
	assert.Equal(t, 1, s.PodsOOMKilled)
	assert.Equal(t, 3, s.AlertsCount)
	assert.Equal(t, 16.0, s.CPUCapacityCores)
	assert.Equal(t, 37.67, s.RiskScore)
	require.Len(t, s.TopNamespaces, 5)
	assert.Equal(t, "prod", s.TopNamespaces[0].Namespace)
	for i := 1; i < len(s.TopNamespaces); i++ {
		assert.GreaterOrEqual(t, s.TopNamespaces[i-1].MemoryBytes, s.TopNamespaces[i].MemoryBytes, "row %d", i)
	}
}

func TestSummaryResolvesProfiles(t *testing.T) {
	env := newTestEnv(t)
	env.addCluster(t, "prod-eu", true)
	env.addCluster(t, "old-us", false)

	s, err := env.overview.Summary(context.Background(), "prod-eu")
	require.NoError(t, err)
	assert.Equal(t, "prod-eu", s.ClusterID)

	_, err = env.overview.Summary(context.Background(), "old-us")
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = env.overview.Summary(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name    string
		summary models.ClusterSummary
		want    float64
	}{
		{"empty cluster", models.ClusterSummary{}, 0},
		{
			name:    "healthy",
			summary: models.ClusterSummary{NodesTotal: 3, NodesReady: 3, PodsTotal: 10},
			want:    0,
		},
		{
			name: "mock fixture",
			summary: models.ClusterSummary{
				NodesTotal: 3, NodesReady: 2, PodsTotal: 5,
				PodsPending: 1, PodsCrashloop: 1, PodsOOMKilled: 1, AlertsCount: 3,
			},
			want: 37.67,
		},
		{
			name:    "alert term capped at 15",
			summary: models.ClusterSummary{AlertsCount: 40},
			want:    15,
		},
		{
			name: "everything broken",
			summary: models.ClusterSummary{
				NodesTotal: 2, PodsTotal: 4, PodsPending: 4,
				PodsCrashloop: 4, PodsOOMKilled: 4, AlertsCount: 10,
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskScore(&tt.summary))
		})
	}
}
