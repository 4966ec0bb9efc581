package services

import (
	"context"
	"testing"

	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSeries(t *testing.T) {
	tests := []struct {
		name string
		raw  []collector.SampleVector
		want []models.MetricPoint
	}{
		{"no series", nil, []models.MetricPoint{}},
		{
			name: "sums shared timestamps",
			raw: []collector.SampleVector{
				{Samples: []collector.Sample{{Timestamp: 120, Value: 1}, {Timestamp: 60, Value: 2}}},
				{Samples: []collector.Sample{{Timestamp: 60, Value: 0.5}, {Timestamp: 180, Value: 4}}},
			},
			want: []models.MetricPoint{{Timestamp: 60, Value: 2.5}, {Timestamp: 120, Value: 1}, {Timestamp: 180, Value: 4}},
		},
		{
			name: "single series is sorted",
			raw: []collector.SampleVector{
				{Samples: []collector.Sample{{Timestamp: 30, Value: 3}, {Timestamp: 10, Value: 1}}},
			},
			want: []models.MetricPoint{{Timestamp: 10, Value: 1}, {Timestamp: 30, Value: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeSeries(tt.raw))
		})
	}
}

func TestMergeSeriesIgnoresInputOrder(t *testing.T) {
	a := collector.SampleVector{Samples: []collector.Sample{{Timestamp: 10, Value: 1}, {Timestamp: 20, Value: 2}}}
	b := collector.SampleVector{Samples: []collector.Sample{{Timestamp: 10, Value: 3}}}
	want := []models.MetricPoint{{Timestamp: 10, Value: 4}, {Timestamp: 20, Value: 2}}

	assert.Equal(t, want, MergeSeries([]collector.SampleVector{a, b}))
	assert.Equal(t, want, MergeSeries([]collector.SampleVector{b, a}))
}

func TestSeriesName(t *testing.T) {
	assert.Equal(t, "cluster", seriesName(nil))
	assert.Equal(t, "web-1", seriesName(map[string]string{"pod": "web-1"}))
	assert.Equal(t, "total", seriesName(map[string]string{"series": "total", "pod": "web-1"}))
}

func TestTimeseriesFromMock(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMetricsService(env.targets)

	resp, err := svc.Timeseries(context.Background(), "", collector.TimeseriesQuery{
		Metric:       collector.MetricCPUUsage,
		RangeMinutes: 60,
		StepSeconds:  60,
	})
	require.NoError(t, err)

	assert.Equal(t, collector.MetricCPUUsage, resp.Metric)
	require.Len(t, resp.Series, 1, "a single raw series is not merged")
	assert.Equal(t, "cluster", resp.Series[0].Name)
	assert.Len(t, resp.Series[0].Points, 60)
}
