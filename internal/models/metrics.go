package models

// MetricPoint is a single sample on a merged series
type MetricPoint struct {
	Timestamp int64   `json:"ts"`
	Value     float64 `json:"value"`
}

// MetricSeries is an ordered point sequence for one semantic metric key
type MetricSeries struct {
	Key    string        `json:"key"`
	Label  string        `json:"label"`
	Unit   string        `json:"unit"`
	Points []MetricPoint `json:"points"`
}

// MetricsPanel groups the series shown on a resource detail page
type MetricsPanel struct {
	RangeMinutes int            `json:"range_minutes"`
	StepSeconds  int            `json:"step_seconds"`
	Series       []MetricSeries `json:"series"`
}

// NamedSeries is one raw or merged series on the metrics surface
type NamedSeries struct {
	Name   string        `json:"name"`
	Points []MetricPoint `json:"points"`
}

// TimeseriesResponse is the payload of the metrics surface
type TimeseriesResponse struct {
	Metric       string        `json:"metric"`
	RangeMinutes int           `json:"range_minutes"`
	StepSeconds  int           `json:"step_seconds"`
	Series       []NamedSeries `json:"series"`
}
