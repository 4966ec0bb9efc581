package models

import (
	"encoding/json"
	"time"
)

// Analysis task states
const (
	TaskPending   = "pending"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Risk levels
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// MetricInput is a named scalar handed to the rule engine
type MetricInput struct {
	Name  string  `json:"name" binding:"required"`
	Value float64 `json:"value"`
	Trend string  `json:"trend,omitempty"`
}

// EventInput is an event observation handed to the rule engine
type EventInput struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyzeRequest is the payload of an analysis submission
type AnalyzeRequest struct {
	ClusterID         string            `json:"cluster_id"`
	TimeWindowMinutes int               `json:"time_window_minutes"`
	Namespace         string            `json:"namespace,omitempty"`
	Workload          string            `json:"workload,omitempty"`
	Metrics           []MetricInput     `json:"metrics"`
	Events            []EventInput      `json:"events"`
	ExtraContext      map[string]string `json:"extra_context,omitempty"`
}

// RootCause is one ranked root-cause candidate
type RootCause struct {
	Cause      string   `json:"cause"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// AnalysisResult is the rule engine output
type AnalysisResult struct {
	Summary         string      `json:"summary"`
	Recommendations []string    `json:"recommendations"`
	RootCauses      []RootCause `json:"root_causes"`
	RiskScore       int         `json:"risk_score"`
	RiskLevel       string      `json:"risk_level"`
	GeneratedAt     time.Time   `json:"generated_at"`
}

// AITask persists one asynchronous analysis run
type AITask struct {
	ID             uint            `gorm:"primaryKey"`
	Status         string          `gorm:"size:32;index"`
	RequestPayload json.RawMessage `gorm:"type:text"`
	ResultPayload  json.RawMessage `gorm:"type:text"`
	Error          string          `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AITaskView is the polling response for a task
type AITaskView struct {
	TaskID    uint            `json:"task_id"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}
