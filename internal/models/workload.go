package models

// RawObject is one Kubernetes object as decoded from JSON
type RawObject = map[string]interface{}

// WorkloadView is the normalized projection of a cluster object
type WorkloadView struct {
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace"`
	Kind              string            `json:"kind"`
	Status            string            `json:"status"`
	Replicas          *int64            `json:"replicas"`
	AvailableReplicas *int64            `json:"available_replicas"`
	ReadyRatio        *float64          `json:"ready_ratio"`
	Restarts          int64             `json:"restarts"`
	Labels            map[string]string `json:"labels"`
}

// WorkloadList is the response of a typed resource listing
type WorkloadList struct {
	Kind  string         `json:"kind"`
	Total int            `json:"total"`
	Items []WorkloadView `json:"items"`
}

// CorrelatedEvent is an event attached to a resource detail view
type CorrelatedEvent struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ResourceDetail bundles everything the detail page renders for one object
type ResourceDetail struct {
	Item     WorkloadView      `json:"item"`
	Manifest RawObject         `json:"manifest"`
	Events   []CorrelatedEvent `json:"events"`
	Metrics  MetricsPanel      `json:"metrics"`
}

// ResourceLogs holds the tail of a resource's representative pod log
type ResourceLogs struct {
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	Logs      []string `json:"logs"`
}

// ActionResult is returned by mutating resource actions
type ActionResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	AuditID uint   `json:"audit_id,omitempty"`
}
