package store

import (
	"kubeops-dashboard/internal/models"
)

// CreateAudit appends an audit row
func (s *Store) CreateAudit(entry *models.AuditLog) error {
	return s.db.Create(entry).Error
}

// ListAudit returns a newest-first page of audit rows and the filtered total
func (s *Store) ListAudit(filter models.AuditFilter) ([]models.AuditLog, int64, error) {
	q := s.db.Model(&models.AuditLog{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Kind != "" {
		q = q.Where("target_kind = ?", filter.Kind)
	}
	if filter.Namespace != "" {
		q = q.Where("namespace = ?", filter.Namespace)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]models.AuditLog, 0)
	err := q.Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&items).Error
	return items, total, err
}
