package store

import (
	"time"

	"kubeops-dashboard/internal/models"
)

// SaveSnapshot saves a summary snapshot, stamping it when no timestamp is set
func (s *Store) SaveSnapshot(snapshot *models.MetricSnapshot) error {
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	return s.db.Create(snapshot).Error
}

// GetSnapshots retrieves snapshots for a cluster newer than since, oldest first
func (s *Store) GetSnapshots(cluster string, since time.Time) ([]models.MetricSnapshot, error) {
	var snapshots []models.MetricSnapshot
	err := s.db.Where("cluster = ? AND timestamp > ?", cluster, since).
		Order("timestamp ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// GetLatestSnapshots retrieves the most recent n snapshots for a cluster
func (s *Store) GetLatestSnapshots(cluster string, limit int) ([]models.MetricSnapshot, error) {
	var snapshots []models.MetricSnapshot
	err := s.db.Where("cluster = ?", cluster).
		Order("timestamp DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}

// CleanupOldSnapshots removes snapshots older than cutoff and reports how many went
func (s *Store) CleanupOldSnapshots(cutoff time.Time) (int64, error) {
	res := s.db.Where("timestamp < ?", cutoff).Delete(&models.MetricSnapshot{})
	return res.RowsAffected, res.Error
}
