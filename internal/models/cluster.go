package models

import "time"

// ConnectionTarget is the resolved backend endpoint set for one cluster
type ConnectionTarget struct {
	ClusterID     string
	APIURL        string
	BearerToken   string
	PrometheusURL string
	VerifySSL     bool
}

// ManagedCluster is a persisted connection profile for a remote cluster
type ManagedCluster struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"size:64;uniqueIndex"`
	ClusterID      string    `json:"cluster_id" gorm:"size:64;uniqueIndex"`
	K8sAPIURL      string    `json:"k8s_api_url" gorm:"size:300"`
	PrometheusURL  string    `json:"prometheus_url" gorm:"size:300"`
	K8sBearerToken string    `json:"-"`
	IsActive       bool      `json:"is_active" gorm:"index"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ManagedClusterView is the API projection of a profile with the token masked
type ManagedClusterView struct {
	ID                   uint      `json:"id"`
	Name                 string    `json:"name"`
	ClusterID            string    `json:"cluster_id"`
	K8sAPIURL            string    `json:"k8s_api_url"`
	PrometheusURL        string    `json:"prometheus_url,omitempty"`
	K8sBearerTokenMasked string    `json:"k8s_bearer_token_masked,omitempty"`
	IsActive             bool      `json:"is_active"`
	Description          string    `json:"description,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ConnectionCheck is the outcome of probing one backend
type ConnectionCheck struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ConnectionTestResult reports reachability of both backends of a target
type ConnectionTestResult struct {
	OK         bool            `json:"ok"`
	Mode       string          `json:"mode"`
	Kubernetes ConnectionCheck `json:"kubernetes"`
	Prometheus ConnectionCheck `json:"prometheus"`
	CheckedAt  time.Time       `json:"checked_at"`
}

// NamespaceUsage is one row of the top-N namespace table
type NamespaceUsage struct {
	Namespace     string  `json:"namespace"`
	CPUMillicores float64 `json:"cpu_millicores"`
	MemoryBytes   float64 `json:"memory_bytes"`
	PodCount      int     `json:"pod_count"`
}

// ClusterUsage holds aggregate CPU and memory usage against capacity
type ClusterUsage struct {
	CPUUsageCores       float64
	CPUCapacityCores    float64
	MemoryUsageBytes    float64
	MemoryCapacityBytes float64
}

// ClusterSummary is the health snapshot shown on the overview page
type ClusterSummary struct {
	ClusterID   string    `json:"cluster_id"`
	GeneratedAt time.Time `json:"generated_at"`

	NodesTotal int `json:"nodes_total"`
	NodesReady int `json:"nodes_ready"`

	PodsTotal     int `json:"pods_total"`
	PodsPending   int `json:"pods_pending"`
	PodsCrashloop int `json:"pods_crashloop"`
	PodsOOMKilled int `json:"pods_oomkilled"`

	CPUUsageCores       float64 `json:"cpu_usage_cores"`
	CPUCapacityCores    float64 `json:"cpu_capacity_cores"`
	MemoryUsageBytes    float64 `json:"memory_usage_bytes"`
	MemoryCapacityBytes float64 `json:"memory_capacity_bytes"`

	AlertsCount int     `json:"alerts_count"`
	RiskScore   float64 `json:"risk_score"`

	TopNamespaces []NamespaceUsage `json:"top_namespaces"`
}

// MetricSnapshot stores a periodic summary for history charts
type MetricSnapshot struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Cluster     string    `json:"cluster" gorm:"index"`
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryUsage float64   `json:"memory_usage"`
	PodCount    int       `json:"pod_count"`
	NodeCount   int       `json:"node_count"`
	NodesReady  int       `json:"nodes_ready"`
	AlertsCount int       `json:"alerts_count"`
	RiskScore   float64   `json:"risk_score"`
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
}
