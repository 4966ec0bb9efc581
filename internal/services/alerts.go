package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"

	"go.uber.org/zap"
)

const promAlertRecommendation = "Review firing alert labels and correlate with recent deployments."

// AlertService merges warning events and firing Prometheus alerts into one feed
type AlertService struct {
	targets *TargetResolver
	log     *zap.Logger
	now     func() time.Time
}

func NewAlertService(targets *TargetResolver, log *zap.Logger) *AlertService {
	return &AlertService{targets: targets, log: log, now: time.Now}
}

// Alerts resolves clusterID and builds the feed
func (s *AlertService) Alerts(ctx context.Context, clusterID, namespace string, limit int) (*models.AlertList, error) {
	k8s, prom, err := s.targets.Backends(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	return s.Derive(ctx, k8s, prom, namespace, limit)
}

// Derive builds the feed from the given backends. Normal events are skipped;
// items are ordered newest first and truncated to limit.
func (s *AlertService) Derive(ctx context.Context, k8s collector.Kubernetes, prom collector.Prometheus, namespace string, limit int) (*models.AlertList, error) {
	events, err := k8s.ListEvents(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	firing, err := prom.FiringAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading firing alerts: %w", err)
	}

	now := s.now().UTC()
	items := make([]models.AlertEntry, 0, len(events)+len(firing))

	for _, raw := range events {
		ev := collector.DecodeEvent(raw)
		if ev.EventType() == "Normal" {
			continue
		}
		reason := ev.ReasonOr("Unknown")
		message := ev.Message
		if message == "" {
			message = "Kubernetes warning event"
		}
		name := ev.Metadata.Name
		if name == "" {
			name = "unknown"
		}
		items = append(items, models.AlertEntry{
			ID:             "k8s-" + name,
			Severity:       severityFromReason(reason),
			Source:         models.SourceK8sEvent,
			Title:          reason,
			Message:        message,
			Namespace:      ev.Metadata.Namespace,
			StartTime:      eventStartTime(ev, now),
			Recommendation: recommendationForReason(reason),
		})
	}

	for i, alert := range firing {
		title := alert.Name
		if title == "" {
			title = "PrometheusAlert"
		}
		summary := alert.Summary
		if summary == "" {
			summary = "Prometheus alert is firing"
		}
		items = append(items, models.AlertEntry{
			ID:             fmt.Sprintf("prom-%d", i+1),
			Severity:       severityFromPromLabel(alert.Severity),
			Source:         models.SourcePrometheus,
			Title:          title,
			Message:        summary,
			Namespace:      alert.Namespace,
			StartTime:      now,
			Recommendation: promAlertRecommendation,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime.After(items[j].StartTime)
	})

	matched := len(items)
	if limit < 0 {
		limit = 0
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return &models.AlertList{Total: len(items), Matched: matched, Items: items}, nil
}

func severityFromReason(reason string) string {
	switch strings.ToLower(reason) {
	case "oomkilled", "failed", "failedmount", "failedscheduling":
		return models.SeverityP1
	case "backoff", "unhealthy", "nodepressure":
		return models.SeverityP2
	default:
		return models.SeverityP3
	}
}

func severityFromPromLabel(severity string) string {
	if severity == "" {
		severity = "warning"
	}
	switch strings.ToLower(severity) {
	case "warning", "medium":
		return models.SeverityP2
	default:
		return models.SeverityP1
	}
}

func recommendationForReason(reason string) string {
	switch strings.ToLower(reason) {
	case "oomkilled":
		return "Increase memory limits or optimize workload memory consumption."
	case "backoff":
		return "Check container logs and startup probes for repeated crashes."
	case "failedscheduling":
		return "Inspect node allocatable resources and affinity/toleration constraints."
	default:
		return "Inspect workload events and recent deployment/config changes."
	}
}

// eventStartTime parses lastTimestamp or eventTime, falling back to now
func eventStartTime(ev collector.EventRecord, now time.Time) time.Time {
	raw := ev.LastTimestamp
	if raw == "" {
		raw = ev.EventTime
	}
	if raw == "" {
		return now
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return now
	}
	return ts.UTC()
}
