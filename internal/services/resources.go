package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"

	"go.uber.org/zap"
)

const maxScaleReplicas = 1000

type metricProfile struct {
	key, label, unit string
}

var (
	podProfile = []metricProfile{
		{collector.MetricCPUUsage, "CPU Usage", "cores"},
		{collector.MetricMemoryUsage, "Memory Usage", "bytes"},
		{collector.MetricNetworkRX, "Network RX", "bytes_per_second"},
		{collector.MetricNetworkTX, "Network TX", "bytes_per_second"},
	}
	controllerProfile = []metricProfile{
		{collector.MetricCPUUsage, "CPU Usage", "cores"},
		{collector.MetricMemoryUsage, "Memory Usage", "bytes"},
		{collector.MetricErrorRate, "Throttle/Error Rate", "ratio"},
	}
	networkProfile = []metricProfile{
		{collector.MetricNetworkRX, "Ingress Traffic", "bytes_per_second"},
		{collector.MetricNetworkTX, "Egress Traffic", "bytes_per_second"},
		{collector.MetricErrorRate, "Throttle/Error Rate", "ratio"},
	}
)

// ResourceService lists, inspects and acts on typed cluster objects
type ResourceService struct {
	targets *TargetResolver
	audit   *AuditService
	log     *zap.Logger
	now     func() time.Time
}

func NewResourceService(targets *TargetResolver, audit *AuditService, log *zap.Logger) *ResourceService {
	return &ResourceService{targets: targets, audit: audit, log: log, now: time.Now}
}

// List fetches objects of kind and applies the optional case-insensitive
// status filter
func (s *ResourceService) List(ctx context.Context, clusterID, kind, namespace, labelSelector, status string) (*models.WorkloadList, error) {
	if _, err := collector.LookupKind(kind); err != nil {
		return nil, err
	}
	k8s, _, err := s.targets.Backends(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	raw, err := k8s.ListResources(ctx, kind, namespace, labelSelector)
	if err != nil {
		return nil, err
	}

	items := make([]models.WorkloadView, 0, len(raw))
	for _, obj := range raw {
		view := NormalizeWorkload(kind, obj)
		if status != "" && !strings.EqualFold(view.Status, status) {
			continue
		}
		items = append(items, view)
	}
	return &models.WorkloadList{Kind: kind, Total: len(items), Items: items}, nil
}

// Detail returns the normalized view, manifest, correlated events and the
// metric panel of one object. Event and metric failures degrade to empty data.
func (s *ResourceService) Detail(ctx context.Context, clusterID, kind, name, namespace string, rangeMinutes, stepSeconds int) (*models.ResourceDetail, error) {
	if _, err := collector.LookupKind(kind); err != nil {
		return nil, err
	}
	k8s, prom, err := s.targets.Backends(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	obj, err := k8s.GetResource(ctx, kind, name, namespace)
	if err != nil {
		return nil, err
	}
	view := NormalizeWorkload(kind, obj)

	events := make([]models.CorrelatedEvent, 0)
	related, err := collector.RelatedEvents(ctx, k8s, kind, name, namespace)
	if err != nil {
		s.log.Warn("event correlation failed", zap.String("kind", kind), zap.String("name", name), zap.Error(err))
	}
	for _, raw := range related {
		ev := collector.DecodeEvent(raw)
		events = append(events, models.CorrelatedEvent{
			Type:      ev.EventType(),
			Reason:    ev.ReasonOr("Unknown"),
			Message:   ev.Message,
			Timestamp: ev.Timestamp(),
		})
	}

	return &models.ResourceDetail{
		Item:     view,
		Manifest: obj,
		Events:   events,
		Metrics:  s.metricsPanel(ctx, prom, kind, name, namespace, view, rangeMinutes, stepSeconds),
	}, nil
}

func (s *ResourceService) metricsPanel(ctx context.Context, prom collector.Prometheus, kind, name, namespace string, view models.WorkloadView, rangeMinutes, stepSeconds int) models.MetricsPanel {
	profile := podProfile
	workload := name
	switch {
	case collector.IsControllerKind(kind):
		profile = controllerProfile
	case collector.IsNetworkKind(kind):
		profile = networkProfile
		workload = WorkloadHint(name)
	}

	series := make([]models.MetricSeries, 0, len(profile)+2)
	for _, p := range profile {
		raw, err := prom.Timeseries(ctx, collector.TimeseriesQuery{
			Metric:       p.key,
			RangeMinutes: rangeMinutes,
			StepSeconds:  stepSeconds,
			Namespace:    namespace,
			Workload:     workload,
		})
		if err != nil {
			s.log.Warn("metric query failed", zap.String("metric", p.key), zap.String("workload", workload), zap.Error(err))
		}
		series = append(series, models.MetricSeries{Key: p.key, Label: p.label, Unit: p.unit, Points: MergeSeries(raw)})
	}

	if collector.IsControllerKind(kind) {
		now := s.now()
		series = append(series,
			models.MetricSeries{
				Key: "desired_replicas", Label: "Desired Replicas", Unit: "replicas",
				Points: constantSeries(now, float64(derefInt(view.Replicas)), rangeMinutes, stepSeconds),
			},
			models.MetricSeries{
				Key: "available_replicas", Label: "Available Replicas", Unit: "replicas",
				Points: constantSeries(now, float64(derefInt(view.AvailableReplicas)), rangeMinutes, stepSeconds),
			},
		)
	}

	return models.MetricsPanel{RangeMinutes: rangeMinutes, StepSeconds: stepSeconds, Series: series}
}

// Logs returns the tail of the object's representative pod log. Backend
// failures become a single explanatory line.
func (s *ResourceService) Logs(ctx context.Context, clusterID, kind, name, namespace string, tailLines int) (*models.ResourceLogs, error) {
	if _, err := collector.LookupKind(kind); err != nil {
		return nil, err
	}
	k8s, _, err := s.targets.Backends(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	lines, err := collector.ResourceLogs(ctx, k8s, kind, name, namespace, tailLines)
	if err != nil {
		s.log.Warn("log fetch failed", zap.String("kind", kind), zap.String("name", name), zap.Error(err))
		lines = []string{fmt.Sprintf("Unable to load logs: %s.", summarizeError(err))}
	}
	return &models.ResourceLogs{Kind: kind, Name: name, Namespace: namespace, Logs: lines}, nil
}

// Scale sets the replica count and records an audit row on success
func (s *ResourceService) Scale(ctx context.Context, userID *uint, clusterID, kind, name, namespace string, replicas int) (*models.ActionResult, error) {
	if replicas > maxScaleReplicas {
		return nil, apperr.InvalidArgumentf("Scale target is too high; max replicas is %d in current policy", maxScaleReplicas)
	}
	if replicas < 0 {
		return nil, apperr.InvalidArgumentf("replicas must not be negative")
	}
	k8s, _, err := s.targets.Backends(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	if err := k8s.Scale(ctx, kind, name, namespace, replicas); err != nil {
		return nil, err
	}

	entry, err := s.audit.Record(userID, "scale", kind, name, namespace, fmt.Sprintf("Set replicas to %d", replicas))
	if err != nil {
		return nil, fmt.Errorf("recording audit: %w", err)
	}
	return &models.ActionResult{
		Status:  "success",
		Message: fmt.Sprintf("%s/%s scaled to %d", kind, name, replicas),
		AuditID: entry.ID,
	}, nil
}

// RolloutRestart stamps the pod template and records an audit row on success
func (s *ResourceService) RolloutRestart(ctx context.Context, userID *uint, clusterID, kind, name, namespace string) (*models.ActionResult, error) {
	k8s, _, err := s.targets.Backends(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	if err := k8s.RolloutRestart(ctx, kind, name, namespace); err != nil {
		return nil, err
	}

	entry, err := s.audit.Record(userID, "rollout_restart", kind, name, namespace, "Triggered rollout restart")
	if err != nil {
		return nil, fmt.Errorf("recording audit: %w", err)
	}
	return &models.ActionResult{
		Status:  "success",
		Message: fmt.Sprintf("%s/%s rollout restart triggered", kind, name),
		AuditID: entry.ID,
	}, nil
}

// NormalizeWorkload projects a raw object into its list/detail view
func NormalizeWorkload(kind string, obj models.RawObject) models.WorkloadView {
	rec := collector.DecodeWorkload(obj)
	replicas := rec.Spec.Replicas
	available := rec.Status.ReadyReplicas

	var ratio *float64
	if replicas != nil && *replicas > 0 {
		r := math.Round(float64(derefInt(available))/float64(*replicas)*100) / 100
		ratio = &r
	}

	var status string
	switch {
	case kind == "pod":
		status = rec.Phase()
	case collector.IsNetworkKind(kind):
		status = "Active"
	case derefInt(replicas) == derefInt(available):
		status = "Healthy"
	default:
		status = "Degraded"
	}

	labels := rec.Metadata.Labels
	if labels == nil {
		labels = map[string]string{}
	}

	return models.WorkloadView{
		Name:              rec.Name(),
		Namespace:         rec.Namespace(),
		Kind:              kind,
		Status:            status,
		Replicas:          replicas,
		AvailableReplicas: available,
		ReadyRatio:        ratio,
		Restarts:          rec.Restarts(),
		Labels:            labels,
	}
}

// WorkloadHint strips a trailing -svc, -service or -ingress from a network
// object's name so its metrics can be matched against backing pods
func WorkloadHint(name string) string {
	for _, suffix := range []string{"-svc", "-service", "-ingress"} {
		if strings.HasSuffix(name, suffix) {
			if trimmed := strings.TrimSuffix(name, suffix); trimmed != "" {
				return trimmed
			}
			return name
		}
	}
	return name
}

func constantSeries(now time.Time, value float64, rangeMinutes, stepSeconds int) []models.MetricPoint {
	grid := collector.TimestampGrid(now, rangeMinutes, stepSeconds)
	points := make([]models.MetricPoint, len(grid))
	for i, ts := range grid {
		points[i] = models.MetricPoint{Timestamp: ts, Value: value}
	}
	return points
}

func summarizeError(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return err.Error()
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
