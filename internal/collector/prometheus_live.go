package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"
)

// LivePrometheus queries a Prometheus HTTP API
type LivePrometheus struct {
	api     promv1.API
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// NewLivePrometheus creates a client for the given base URL
func NewLivePrometheus(address string, timeout time.Duration, log *zap.Logger) (*LivePrometheus, error) {
	if address == "" {
		return nil, apperr.InvalidArgumentf("prometheus url is required for live mode")
	}
	client, err := api.NewClient(api.Config{
		Address:      strings.TrimRight(address, "/"),
		RoundTripper: api.DefaultRoundTripper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LivePrometheus{api: promv1.NewAPI(client), timeout: timeout, log: log, now: time.Now}, nil
}

func (p *LivePrometheus) Mode() string { return "real" }

func (p *LivePrometheus) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Query runs an instant query at the current time
func (p *LivePrometheus) Query(ctx context.Context, expr string) ([]SampleVector, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	result, warnings, err := p.api.Query(ctx, expr, p.now())
	if err != nil {
		return nil, mapPromError(err, "instant query")
	}
	if len(warnings) > 0 {
		p.log.Warn("prometheus query returned warnings", zap.String("query", expr), zap.Strings("warnings", warnings))
	}
	return toSampleVectors(result), nil
}

// QueryRange runs a range query over [start, end]
func (p *LivePrometheus) QueryRange(ctx context.Context, expr string, start, end time.Time, step time.Duration) ([]SampleVector, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	result, warnings, err := p.api.QueryRange(ctx, expr, promv1.Range{Start: start, End: end, Step: step})
	if err != nil {
		return nil, mapPromError(err, "range query")
	}
	if len(warnings) > 0 {
		p.log.Warn("prometheus range query returned warnings", zap.String("query", expr), zap.Strings("warnings", warnings))
	}
	return toSampleVectors(result), nil
}

// ClusterUsage issues the four aggregate usage/capacity queries
func (p *LivePrometheus) ClusterUsage(ctx context.Context) (models.ClusterUsage, error) {
	var usage models.ClusterUsage
	targets := []struct {
		expr string
		dst  *float64
	}{
		{queryClusterCPUUsage, &usage.CPUUsageCores},
		{queryClusterCPUCapacity, &usage.CPUCapacityCores},
		{queryClusterMemUsage, &usage.MemoryUsageBytes},
		{queryClusterMemCapacity, &usage.MemoryCapacityBytes},
	}
	for _, t := range targets {
		result, err := p.Query(ctx, t.expr)
		if err != nil {
			return models.ClusterUsage{}, err
		}
		*t.dst = firstValue(result)
	}
	return usage, nil
}

// NamespaceUsage merges three top-k vectors and ranks by memory
func (p *LivePrometheus) NamespaceUsage(ctx context.Context, limit int) ([]models.NamespaceUsage, error) {
	if limit <= 0 {
		return []models.NamespaceUsage{}, nil
	}
	cpuExpr, memExpr, podExpr := namespaceUsageQueries(limit)

	cpu, err := p.Query(ctx, cpuExpr)
	if err != nil {
		return nil, err
	}
	mem, err := p.Query(ctx, memExpr)
	if err != nil {
		return nil, err
	}
	pods, err := p.Query(ctx, podExpr)
	if err != nil {
		return nil, err
	}

	return mergeNamespaceUsage(byNamespace(cpu, 1000), byNamespace(mem, 1), byNamespace(pods, 1), limit), nil
}

// FiringAlerts reads the ALERTS series of currently firing alerts
func (p *LivePrometheus) FiringAlerts(ctx context.Context) ([]models.FiringAlert, error) {
	result, err := p.Query(ctx, queryFiringAlerts)
	if err != nil {
		return nil, err
	}

	alerts := make([]models.FiringAlert, 0, len(result))
	for _, vec := range result {
		alerts = append(alerts, models.FiringAlert{
			Name:      labelOr(vec.Labels, "alertname", "UnknownAlert"),
			Severity:  labelOr(vec.Labels, "severity", "warning"),
			Summary:   labelOr(vec.Labels, "summary", "Prometheus firing alert"),
			Namespace: labelOr(vec.Labels, "namespace", "default"),
		})
	}
	return alerts, nil
}

// Timeseries queries [now-range, now] for a semantic metric key
func (p *LivePrometheus) Timeseries(ctx context.Context, q TimeseriesQuery) ([]SampleVector, error) {
	end := p.now()
	start := end.Add(-time.Duration(q.RangeMinutes) * time.Minute)
	expr := MetricExpr(q.Metric, q.Namespace, q.Workload)
	return p.QueryRange(ctx, expr, start, end, time.Duration(q.StepSeconds)*time.Second)
}

func toSampleVectors(value model.Value) []SampleVector {
	out := make([]SampleVector, 0)
	switch v := value.(type) {
	case model.Vector:
		for _, s := range v {
			out = append(out, SampleVector{
				Labels:  metricLabels(s.Metric),
				Samples: []Sample{{Timestamp: s.Timestamp.Unix(), Value: float64(s.Value)}},
			})
		}
	case model.Matrix:
		for _, stream := range v {
			samples := make([]Sample, 0, len(stream.Values))
			for _, pair := range stream.Values {
				samples = append(samples, Sample{Timestamp: pair.Timestamp.Unix(), Value: float64(pair.Value)})
			}
			out = append(out, SampleVector{Labels: metricLabels(stream.Metric), Samples: samples})
		}
	case *model.Scalar:
		out = append(out, SampleVector{
			Labels:  map[string]string{},
			Samples: []Sample{{Timestamp: v.Timestamp.Unix(), Value: float64(v.Value)}},
		})
	}
	return out
}

func metricLabels(m model.Metric) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = string(v)
	}
	return out
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

func byNamespace(result []SampleVector, multiply float64) map[string]float64 {
	out := make(map[string]float64, len(result))
	for _, vec := range result {
		if len(vec.Samples) == 0 {
			continue
		}
		out[labelOr(vec.Labels, "namespace", "default")] = vec.Samples[0].Value * multiply
	}
	return out
}

// mergeNamespaceUsage unions the namespaces of the three maps, ranks them by
// memory descending and truncates to limit. The top-k ordering of the
// individual queries is discarded.
func mergeNamespaceUsage(cpu, mem, pods map[string]float64, limit int) []models.NamespaceUsage {
	names := make(map[string]struct{})
	for _, m := range []map[string]float64{cpu, mem, pods} {
		for ns := range m {
			names[ns] = struct{}{}
		}
	}

	rows := make([]models.NamespaceUsage, 0, len(names))
	for ns := range names {
		rows = append(rows, models.NamespaceUsage{
			Namespace:     ns,
			CPUMillicores: cpu[ns],
			MemoryBytes:   mem[ns],
			PodCount:      int(pods[ns]),
		})
	}
	return rankNamespaceUsage(rows, limit)
}

// rankNamespaceUsage orders rows by memory descending, namespace ascending on
// ties, and truncates to limit
func rankNamespaceUsage(rows []models.NamespaceUsage, limit int) []models.NamespaceUsage {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].MemoryBytes != rows[j].MemoryBytes {
			return rows[i].MemoryBytes > rows[j].MemoryBytes
		}
		return rows[i].Namespace < rows[j].Namespace
	})
	if limit < 0 {
		limit = 0
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func mapPromError(err error, op string) error {
	if isTimeout(err) {
		return apperr.Wrap(apperr.Timeout, err, "prometheus %s timed out", op)
	}
	var promErr *promv1.Error
	if errors.As(err, &promErr) {
		if promErr.Type == promv1.ErrTimeout || promErr.Type == promv1.ErrCanceled {
			return apperr.Wrap(apperr.Timeout, err, "prometheus %s timed out", op)
		}
		return &apperr.Error{
			Kind:    apperr.Upstream,
			Message: fmt.Sprintf("prometheus %s failed: %s", op, promErr.Msg),
			Err:     err,
		}
	}
	return apperr.Wrap(apperr.Upstream, err, "prometheus %s failed", op)
}
