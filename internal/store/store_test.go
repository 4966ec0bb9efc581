package store

import (
	"encoding/json"
	"fmt"
	"testing"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateUser(&models.User{Username: "admin", HashedPassword: "x", IsActive: true}))
	assert.Error(t, s.CreateUser(&models.User{Username: "admin"}), "usernames are unique")

	u, err := s.GetUserByUsername("admin")
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	_, err = s.GetUserByUsername("nobody")
	assert.True(t, apperr.IsNotFound(err))
}

func TestListAuditFiltersAndPages(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateAudit(&models.AuditLog{
			Action: "scale", TargetKind: "deployment", TargetName: fmt.Sprintf("web-%d", i), Namespace: "prod", Status: "success",
		}))
	}
	require.NoError(t, s.CreateAudit(&models.AuditLog{
		Action: "rollout_restart", TargetKind: "statefulset", TargetName: "db", Namespace: "data", Status: "success",
	}))

	tests := []struct {
		name      string
		filter    models.AuditFilter
		wantTotal int64
		wantNames []string
	}{
		{"all newest first", models.AuditFilter{Limit: 2}, 6, []string{"db", "web-4"}},
		{"by action", models.AuditFilter{Action: "scale", Limit: 10}, 5, []string{"web-4", "web-3", "web-2", "web-1", "web-0"}},
		{"by kind with offset", models.AuditFilter{Kind: "deployment", Limit: 2, Offset: 3}, 5, []string{"web-1", "web-0"}},
		{"by namespace", models.AuditFilter{Namespace: "data", Limit: 10}, 1, []string{"db"}},
		{"no match", models.AuditFilter{Action: "delete", Limit: 10}, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := s.ListAudit(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			names := make([]string, 0, len(items))
			for _, it := range items {
				names = append(names, it.TargetName)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestClusterCRUD(t *testing.T) {
	s := newTestStore(t)

	prod := &models.ManagedCluster{Name: "prod", ClusterID: "prod-eu", K8sAPIURL: "https://prod", IsActive: true}
	stg := &models.ManagedCluster{Name: "stg", ClusterID: "stg-eu", K8sAPIURL: "https://stg", IsActive: false}
	require.NoError(t, s.CreateCluster(prod))
	require.NoError(t, s.CreateCluster(stg))

	all, err := s.ListClusters()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ListActiveClusters()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "prod", active[0].Name)

	got, err := s.GetClusterByClusterID("stg-eu")
	require.NoError(t, err)
	assert.Equal(t, stg.ID, got.ID)

	taken, err := s.ClusterFieldTaken("name", "prod", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.ClusterFieldTaken("name", "prod", prod.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	got.Description = "staging"
	require.NoError(t, s.SaveCluster(got))
	reread, err := s.GetCluster(stg.ID)
	require.NoError(t, err)
	assert.Equal(t, "staging", reread.Description)

	require.NoError(t, s.DeleteCluster(prod.ID))
	_, err = s.GetCluster(prod.ID)
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(s.DeleteCluster(prod.ID)))
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestStore(t)

	task := &models.AITask{RequestPayload: json.RawMessage(`{"cluster_id":"c"}`)}
	require.NoError(t, s.CreateTask(task))
	assert.Equal(t, models.TaskPending, task.Status)

	require.NoError(t, s.UpdateTaskStatus(task.ID, models.TaskRunning, nil, ""))
	require.NoError(t, s.UpdateTaskStatus(task.ID, models.TaskCompleted, json.RawMessage(`{"risk_level":"low"}`), ""))

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got.Status)
	assert.JSONEq(t, `{"risk_level":"low"}`, string(got.ResultPayload))
	assert.JSONEq(t, `{"cluster_id":"c"}`, string(got.RequestPayload))

	assert.True(t, apperr.IsNotFound(s.UpdateTaskStatus(999, models.TaskFailed, nil, "boom")))
	_, err = s.GetTask(999)
	assert.True(t, apperr.IsNotFound(err))
}
