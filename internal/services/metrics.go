package services

import (
	"context"
	"sort"

	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"
)

// MergedSeriesName labels the summed series appended to a timeseries response
const MergedSeriesName = "merged"

// MetricsService serves semantic metric time series
type MetricsService struct {
	targets *TargetResolver
}

func NewMetricsService(targets *TargetResolver) *MetricsService {
	return &MetricsService{targets: targets}
}

// Timeseries returns every raw series of the metric, named by its series or
// pod label, followed by their timestamp-wise sum when more than one came back
func (s *MetricsService) Timeseries(ctx context.Context, clusterID string, q collector.TimeseriesQuery) (*models.TimeseriesResponse, error) {
	_, prom, err := s.targets.Backends(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	raw, err := prom.Timeseries(ctx, q)
	if err != nil {
		return nil, err
	}

	series := make([]models.NamedSeries, 0, len(raw)+1)
	for _, vec := range raw {
		series = append(series, models.NamedSeries{
			Name:   seriesName(vec.Labels),
			Points: toPoints(vec.Samples),
		})
	}
	if len(raw) > 1 {
		series = append(series, models.NamedSeries{Name: MergedSeriesName, Points: MergeSeries(raw)})
	}

	return &models.TimeseriesResponse{
		Metric:       q.Metric,
		RangeMinutes: q.RangeMinutes,
		StepSeconds:  q.StepSeconds,
		Series:       series,
	}, nil
}

// MergeSeries sums values sharing a timestamp across all vectors and returns
// the points in ascending timestamp order
func MergeSeries(raw []collector.SampleVector) []models.MetricPoint {
	sums := make(map[int64]float64)
	for _, vec := range raw {
		for _, s := range vec.Samples {
			sums[s.Timestamp] += s.Value
		}
	}

	points := make([]models.MetricPoint, 0, len(sums))
	for ts, v := range sums {
		points = append(points, models.MetricPoint{Timestamp: ts, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}

func seriesName(labels map[string]string) string {
	if v := labels["series"]; v != "" {
		return v
	}
	if v := labels["pod"]; v != "" {
		return v
	}
	return "cluster"
}

func toPoints(samples []collector.Sample) []models.MetricPoint {
	points := make([]models.MetricPoint, len(samples))
	for i, s := range samples {
		points[i] = models.MetricPoint{Timestamp: s.Timestamp, Value: s.Value}
	}
	return points
}
