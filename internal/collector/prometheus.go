package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kubeops-dashboard/internal/models"
)

// Sample is one (timestamp, value) pair of a raw series
type Sample struct {
	Timestamp int64
	Value     float64
}

// SampleVector is one labelled series returned by a query. Instant queries
// yield exactly one sample per vector.
type SampleVector struct {
	Labels  map[string]string
	Samples []Sample
}

// TimeseriesQuery selects a semantic metric for a window
type TimeseriesQuery struct {
	Metric       string
	RangeMinutes int
	StepSeconds  int
	Namespace    string
	Workload     string
}

// Prometheus is the capability set the dashboard needs from a metrics backend
type Prometheus interface {
	Query(ctx context.Context, expr string) ([]SampleVector, error)
	QueryRange(ctx context.Context, expr string, start, end time.Time, step time.Duration) ([]SampleVector, error)
	ClusterUsage(ctx context.Context) (models.ClusterUsage, error)
	NamespaceUsage(ctx context.Context, limit int) ([]models.NamespaceUsage, error)
	FiringAlerts(ctx context.Context) ([]models.FiringAlert, error)
	Timeseries(ctx context.Context, q TimeseriesQuery) ([]SampleVector, error)
	Mode() string
}

// Semantic metric keys
const (
	MetricCPUUsage    = "cpu_usage"
	MetricMemoryUsage = "memory_usage"
	MetricNetworkRX   = "network_rx"
	MetricNetworkTX   = "network_tx"
	MetricErrorRate   = "error_rate"
)

const (
	queryClusterCPUUsage    = `sum(rate(container_cpu_usage_seconds_total{container!=""}[5m]))`
	queryClusterCPUCapacity = `sum(machine_cpu_cores)`
	queryClusterMemUsage    = `sum(container_memory_working_set_bytes{container!=""})`
	queryClusterMemCapacity = `sum(machine_memory_bytes)`
	queryFiringAlerts       = `ALERTS{alertstate="firing"}`
)

var metricTemplates = map[string]string{
	MetricCPUUsage:    "sum(rate(container_cpu_usage_seconds_total%s[5m]))",
	MetricMemoryUsage: "sum(container_memory_working_set_bytes%s)",
	MetricNetworkRX:   "sum(rate(container_network_receive_bytes_total%s[5m]))",
	MetricNetworkTX:   "sum(rate(container_network_transmit_bytes_total%s[5m]))",
	MetricErrorRate:   "sum(rate(container_cpu_cfs_throttled_seconds_total%s[5m]))",
}

// NormalizeMetricKey maps unknown keys onto cpu_usage
func NormalizeMetricKey(key string) string {
	if _, ok := metricTemplates[key]; ok {
		return key
	}
	return MetricCPUUsage
}

// MetricExpr builds the selector-qualified expression for a metric key
func MetricExpr(key, namespace, workload string) string {
	parts := []string{`container!=""`}
	if namespace != "" {
		parts = append(parts, fmt.Sprintf("namespace=%q", namespace))
	}
	if workload != "" {
		parts = append(parts, fmt.Sprintf("pod=~%q", workload+".*"))
	}
	selector := "{" + strings.Join(parts, ",") + "}"
	return fmt.Sprintf(metricTemplates[NormalizeMetricKey(key)], selector)
}

func namespaceUsageQueries(limit int) (cpu, mem, pods string) {
	cpu = fmt.Sprintf(`topk(%d, sum(rate(container_cpu_usage_seconds_total{container!=""}[5m])) by (namespace))`, limit)
	mem = fmt.Sprintf(`topk(%d, sum(container_memory_working_set_bytes{container!=""}) by (namespace))`, limit)
	pods = fmt.Sprintf(`topk(%d, count(kube_pod_info) by (namespace))`, limit)
	return cpu, mem, pods
}

// PointCount is the number of points a synthetic series of the window holds
func PointCount(rangeMinutes, stepSeconds int) int {
	if stepSeconds <= 0 {
		return 10
	}
	n := rangeMinutes * 60 / stepSeconds
	if n < 10 {
		return 10
	}
	return n
}

// TimestampGrid returns the timestamps of a synthetic series ending at now
func TimestampGrid(now time.Time, rangeMinutes, stepSeconds int) []int64 {
	n := PointCount(rangeMinutes, stepSeconds)
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = now.Add(-time.Duration(n-i) * time.Duration(stepSeconds) * time.Second).Unix()
	}
	return out
}

// firstValue extracts the value of the first sample of the first vector
func firstValue(result []SampleVector) float64 {
	if len(result) == 0 || len(result[0].Samples) == 0 {
		return 0
	}
	return result[0].Samples[0].Value
}
