package collector

import (
	"context"
	"math"
	"time"

	"kubeops-dashboard/internal/models"
)

const (
	gib = 1024 * 1024 * 1024
	mib = 1024 * 1024
)

var mockMetricBase = map[string]float64{
	MetricCPUUsage:    6.5,
	MetricMemoryUsage: 18 * gib,
	MetricNetworkRX:   2.3 * mib,
	MetricNetworkTX:   1.8 * mib,
	MetricErrorRate:   0.02,
}

// MockPrometheus returns fixed derived values and synthetic series. Raw
// queries return nothing.
type MockPrometheus struct {
	now func() time.Time
}

// NewMockPrometheus creates a mock backed by the wall clock
func NewMockPrometheus() *MockPrometheus {
	return &MockPrometheus{now: time.Now}
}

func (m *MockPrometheus) Mode() string { return "mock" }

func (m *MockPrometheus) Query(_ context.Context, _ string) ([]SampleVector, error) {
	return []SampleVector{}, nil
}

func (m *MockPrometheus) QueryRange(_ context.Context, _ string, _, _ time.Time, _ time.Duration) ([]SampleVector, error) {
	return []SampleVector{}, nil
}

func (m *MockPrometheus) ClusterUsage(_ context.Context) (models.ClusterUsage, error) {
	return models.ClusterUsage{
		CPUUsageCores:       8.2,
		CPUCapacityCores:    16,
		MemoryUsageBytes:    22 * gib,
		MemoryCapacityBytes: 48 * gib,
	}, nil
}

// NamespaceUsage ranks the fixture rows the same way live results are ranked
func (m *MockPrometheus) NamespaceUsage(_ context.Context, limit int) ([]models.NamespaceUsage, error) {
	rows := []models.NamespaceUsage{
		{Namespace: "default", CPUMillicores: 2100, MemoryBytes: 5.3 * gib, PodCount: 28},
		{Namespace: "kube-system", CPUMillicores: 1200, MemoryBytes: 3.8 * gib, PodCount: 22},
		{Namespace: "monitoring", CPUMillicores: 900, MemoryBytes: 4.1 * gib, PodCount: 14},
		{Namespace: "prod", CPUMillicores: 1800, MemoryBytes: 6.7 * gib, PodCount: 31},
		{Namespace: "dev", CPUMillicores: 600, MemoryBytes: 2.2 * gib, PodCount: 16},
	}
	return rankNamespaceUsage(rows, limit), nil
}

func (m *MockPrometheus) FiringAlerts(_ context.Context) ([]models.FiringAlert, error) {
	return []models.FiringAlert{{
		Name:      "NodeMemoryPressure",
		Severity:  "warning",
		Summary:   "Node worker-1 memory usage is above 85%",
		Namespace: "kube-system",
	}}, nil
}

// Timeseries generates one deterministic sine-shaped series around a per
// metric base value.
func (m *MockPrometheus) Timeseries(_ context.Context, q TimeseriesQuery) ([]SampleVector, error) {
	base, ok := mockMetricBase[q.Metric]
	if !ok {
		base = 5.0
	}
	amplitude := 0.12 * base

	grid := TimestampGrid(m.now(), q.RangeMinutes, q.StepSeconds)
	samples := make([]Sample, len(grid))
	for i, ts := range grid {
		samples[i] = Sample{
			Timestamp: ts,
			Value:     math.Max(0, base+amplitude*math.Sin(float64(i)/3.5)),
		}
	}
	return []SampleVector{{
		Labels:  map[string]string{"series": "cluster"},
		Samples: samples,
	}}, nil
}
