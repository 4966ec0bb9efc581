package models

import "time"

const (
	SeverityP1 = "P1"
	SeverityP2 = "P2"
	SeverityP3 = "P3"

	SourceK8sEvent   = "k8s-event"
	SourcePrometheus = "prometheus"
)

// AlertEntry is one item of the unified alert feed
type AlertEntry struct {
	ID             string    `json:"id"`
	Severity       string    `json:"severity"`
	Source         string    `json:"source"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Namespace      string    `json:"namespace,omitempty"`
	StartTime      time.Time `json:"start_time"`
	Recommendation string    `json:"recommendation"`
}

// AlertList is the alert feed response. Total is capped at the requested
// limit; Matched carries the count before truncation.
type AlertList struct {
	Total   int          `json:"total"`
	Matched int          `json:"matched"`
	Items   []AlertEntry `json:"items"`
}

// FiringAlert is a firing Prometheus alert reduced to the labels we show
type FiringAlert struct {
	Name      string
	Severity  string
	Summary   string
	Namespace string
}
