package models

import "time"

// User is a dashboard account
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"size:64;uniqueIndex"`
	HashedPassword string    `json:"-" gorm:"size:255"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditLog records one mutating action taken through the dashboard
type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     *uint     `json:"user_id"`
	Action     string    `json:"action" gorm:"size:64;index"`
	TargetKind string    `json:"target_kind" gorm:"size:32;index"`
	TargetName string    `json:"target_name" gorm:"size:128;index"`
	Namespace  string    `json:"namespace" gorm:"size:128"`
	Status     string    `json:"status" gorm:"size:32"`
	Message    string    `json:"message" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// AuditFilter narrows an audit log listing
type AuditFilter struct {
	Action    string
	Kind      string
	Namespace string
	Limit     int
	Offset    int
}

// AuditLogList is a page of audit rows
type AuditLogList struct {
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Items  []AuditLog `json:"items"`
}
