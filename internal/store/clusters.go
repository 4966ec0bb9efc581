package store

import (
	"kubeops-dashboard/internal/models"
)

// ListClusters returns every profile ordered by id
func (s *Store) ListClusters() ([]models.ManagedCluster, error) {
	clusters := make([]models.ManagedCluster, 0)
	err := s.db.Order("id ASC").Find(&clusters).Error
	return clusters, err
}

// ListActiveClusters returns the profiles that are switched on
func (s *Store) ListActiveClusters() ([]models.ManagedCluster, error) {
	clusters := make([]models.ManagedCluster, 0)
	err := s.db.Where("is_active = ?", true).Order("id ASC").Find(&clusters).Error
	return clusters, err
}

// GetCluster looks a profile up by its internal id
func (s *Store) GetCluster(id uint) (*models.ManagedCluster, error) {
	var c models.ManagedCluster
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, notFound(err, "cluster %d not found", id)
	}
	return &c, nil
}

// GetClusterByClusterID looks a profile up by its external cluster id
func (s *Store) GetClusterByClusterID(clusterID string) (*models.ManagedCluster, error) {
	var c models.ManagedCluster
	if err := s.db.Where("cluster_id = ?", clusterID).First(&c).Error; err != nil {
		return nil, notFound(err, "cluster %s not found", clusterID)
	}
	return &c, nil
}

// ClusterFieldTaken reports whether another profile already uses value for
// column. excludeID skips the profile being updated; pass 0 on create.
func (s *Store) ClusterFieldTaken(column, value string, excludeID uint) (bool, error) {
	var count int64
	q := s.db.Model(&models.ManagedCluster{}).Where(column+" = ?", value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// CreateCluster inserts a profile
func (s *Store) CreateCluster(c *models.ManagedCluster) error {
	return s.db.Create(c).Error
}

// SaveCluster writes every column of an existing profile
func (s *Store) SaveCluster(c *models.ManagedCluster) error {
	return s.db.Save(c).Error
}

// DeleteCluster removes a profile
func (s *Store) DeleteCluster(id uint) error {
	res := s.db.Delete(&models.ManagedCluster{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gormNotFound, "cluster %d not found", id)
	}
	return nil
}
