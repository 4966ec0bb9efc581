package services

import (
	"encoding/json"
	"time"

	"kubeops-dashboard/internal/models"
)

// ClusterStore persists managed-cluster profiles
type ClusterStore interface {
	ListClusters() ([]models.ManagedCluster, error)
	ListActiveClusters() ([]models.ManagedCluster, error)
	GetCluster(id uint) (*models.ManagedCluster, error)
	GetClusterByClusterID(clusterID string) (*models.ManagedCluster, error)
	ClusterFieldTaken(column, value string, excludeID uint) (bool, error)
	CreateCluster(c *models.ManagedCluster) error
	SaveCluster(c *models.ManagedCluster) error
	DeleteCluster(id uint) error
}

// AuditStore appends and lists audit rows
type AuditStore interface {
	CreateAudit(entry *models.AuditLog) error
	ListAudit(filter models.AuditFilter) ([]models.AuditLog, int64, error)
}

// UserStore reads and creates accounts
type UserStore interface {
	GetUserByUsername(username string) (*models.User, error)
	CreateUser(user *models.User) error
}

// TaskStore persists analysis tasks
type TaskStore interface {
	CreateTask(task *models.AITask) error
	GetTask(id uint) (*models.AITask, error)
	UpdateTaskStatus(id uint, status string, result json.RawMessage, errMsg string) error
}

// SnapshotStore persists summary history
type SnapshotStore interface {
	SaveSnapshot(snapshot *models.MetricSnapshot) error
	GetSnapshots(cluster string, since time.Time) ([]models.MetricSnapshot, error)
	GetLatestSnapshots(cluster string, limit int) ([]models.MetricSnapshot, error)
	CleanupOldSnapshots(cutoff time.Time) (int64, error)
}
