package services

import (
	"kubeops-dashboard/internal/models"

	"go.uber.org/zap"
)

const (
	maxAuditLimit     = 500
	defaultAuditLimit = 50
)

// AuditService appends and pages through the action audit trail
type AuditService struct {
	store AuditStore
	log   *zap.Logger
}

func NewAuditService(store AuditStore, log *zap.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// Record appends one successful action
func (s *AuditService) Record(userID *uint, action, kind, name, namespace, message string) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		TargetKind: kind,
		TargetName: name,
		Namespace:  namespace,
		Status:     "success",
		Message:    message,
	}
	if err := s.store.CreateAudit(entry); err != nil {
		return nil, err
	}
	s.log.Info("audit recorded",
		zap.Uint("audit_id", entry.ID),
		zap.String("action", action),
		zap.String("kind", kind),
		zap.String("name", name),
		zap.String("namespace", namespace),
	)
	return entry, nil
}

// List pages through audit rows, newest first
func (s *AuditService) List(filter models.AuditFilter) (*models.AuditLogList, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	if filter.Limit > maxAuditLimit {
		filter.Limit = maxAuditLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.store.ListAudit(filter)
	if err != nil {
		return nil, err
	}
	return &models.AuditLogList{Total: total, Limit: filter.Limit, Offset: filter.Offset, Items: items}, nil
}
