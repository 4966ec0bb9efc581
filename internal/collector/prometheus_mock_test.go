package collector

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMockProm() *MockPrometheus {
	return &MockPrometheus{now: func() time.Time { return fixedNow }}
}

func TestPointCount(t *testing.T) {
	tests := []struct {
		rangeMinutes, step, want int
	}{
		{60, 60, 60},
		{5, 60, 10},
		{30, 15, 120},
		{30, 0, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PointCount(tt.rangeMinutes, tt.step))
	}
}

func TestMockTimeseries(t *testing.T) {
	p := newTestMockProm()

	result, err := p.Timeseries(context.Background(), TimeseriesQuery{Metric: MetricCPUUsage, RangeMinutes: 60, StepSeconds: 60})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "cluster", result[0].Labels["series"])

	samples := result[0].Samples
	require.Len(t, samples, 60)
	assert.Equal(t, fixedNow.Add(-60*time.Minute).Unix(), samples[0].Timestamp)
	assert.Equal(t, fixedNow.Add(-time.Minute).Unix(), samples[59].Timestamp)

	assert.InDelta(t, 6.5, samples[0].Value, 1e-9)
	assert.InDelta(t, 6.5+0.12*6.5*math.Sin(10/3.5), samples[10].Value, 1e-9)
	for _, s := range samples {
		assert.GreaterOrEqual(t, s.Value, 6.5*0.88-1e-9)
		assert.LessOrEqual(t, s.Value, 6.5*1.12+1e-9)
	}
}

func TestMockTimeseriesUnknownMetricUsesDefaultBase(t *testing.T) {
	p := newTestMockProm()
	result, err := p.Timeseries(context.Background(), TimeseriesQuery{Metric: "disk_io", RangeMinutes: 1, StepSeconds: 60})
	require.NoError(t, err)
	require.Len(t, result[0].Samples, 10)
	assert.InDelta(t, 5.0, result[0].Samples[0].Value, 1e-9)
}

func TestMockNamespaceUsage(t *testing.T) {
	p := newTestMockProm()

	tests := []struct {
		limit int
		want  []string
	}{
		{2, []string{"prod", "default"}},
		{10, []string{"prod", "default", "monitoring", "kube-system", "dev"}},
		{0, []string{}},
		{-1, []string{}},
	}
	for _, tt := range tests {
		rows, err := p.NamespaceUsage(context.Background(), tt.limit)
		require.NoError(t, err)
		got := make([]string, 0, len(rows))
		for _, r := range rows {
			got = append(got, r.Namespace)
		}
		assert.Equal(t, tt.want, got, "limit %d", tt.limit)
	}
}

func TestMockRawQueriesAreEmpty(t *testing.T) {
	p := newTestMockProm()

	vec, err := p.Query(context.Background(), "up")
	require.NoError(t, err)
	assert.Empty(t, vec)

	matrix, err := p.QueryRange(context.Background(), "up", fixedNow.Add(-time.Hour), fixedNow, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, matrix)

	usage, err := p.ClusterUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16.0, usage.CPUCapacityCores)

	alerts, err := p.FiringAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "NodeMemoryPressure", alerts[0].Name)
}

func TestMetricExpr(t *testing.T) {
	tests := []struct {
		name, key, ns, workload, want string
	}{
		{"cluster wide", "cpu_usage", "", "", `sum(rate(container_cpu_usage_seconds_total{container!=""}[5m]))`},
		{"namespace", "memory_usage", "prod", "", `sum(container_memory_working_set_bytes{container!="",namespace="prod"})`},
		{"unknown key", "bogus", "", "api", `sum(rate(container_cpu_usage_seconds_total{container!="",pod=~"api.*"}[5m]))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MetricExpr(tt.key, tt.ns, tt.workload))
		})
	}
}
