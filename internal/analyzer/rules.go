// Package analyzer scores cluster observations with a fixed rule set and
// optionally enriches the recommendations through an LLM adapter.
package analyzer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kubeops-dashboard/internal/models"
)

// Threshold constants
const (
	cpuThreshold         = 80.0
	memoryThreshold      = 85.0
	restartRateThreshold = 0.1
	errorRateThreshold   = 0.05
)

// RuleEngine evaluates metric and event snapshots against static thresholds
type RuleEngine struct {
	now func() time.Time
}

// NewRuleEngine creates an engine stamping results with the wall clock
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{now: time.Now}
}

// Analyze never fails. Unrecognized metric names are ignored; when a name
// repeats the last value wins.
func (e *RuleEngine) Analyze(metrics []models.MetricInput, events []models.EventInput) models.AnalysisResult {
	values := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		values[m.Name] = m.Value
	}

	cpu := lookup(values, "cpu_utilization", "cpu_usage_percent")
	memory := lookup(values, "memory_utilization", "memory_usage_percent")
	restartRate := lookup(values, "restart_rate")
	errorRate := lookup(values, "error_rate")

	score := 0
	recommendations := make([]string, 0, 4)
	rootCauses := make([]models.RootCause, 0, 4)

	if cpu >= cpuThreshold {
		score += 30
		rootCauses = append(rootCauses, models.RootCause{
			Cause:      "Cluster CPU pressure is high",
			Confidence: 0.82,
			Evidence:   []string{evidence("cpu_utilization", cpu)},
		})
		recommendations = append(recommendations, "Scale out affected workloads or increase CPU limits for hot services.")
	}

	if memory >= memoryThreshold {
		score += 30
		rootCauses = append(rootCauses, models.RootCause{
			Cause:      "Memory pressure likely to trigger eviction/OOM",
			Confidence: 0.79,
			Evidence:   []string{evidence("memory_utilization", memory)},
		})
		recommendations = append(recommendations, "Inspect top memory consumers and adjust requests/limits to reduce OOM risk.")
	}

	if restartRate > restartRateThreshold {
		score += 20
		rootCauses = append(rootCauses, models.RootCause{
			Cause:      "Abnormal restart rate detected",
			Confidence: 0.75,
			Evidence:   []string{evidence("restart_rate", restartRate)},
		})
		recommendations = append(recommendations, "Prioritize workloads with frequent restarts and inspect recent rollouts.")
	}

	if errorRate > errorRateThreshold {
		score += 10
		recommendations = append(recommendations, "Error rate is elevated; correlate logs with recent config or image changes.")
	}

	var warnings []string
	for _, ev := range events {
		switch strings.ToLower(ev.Severity) {
		case "warning", "error":
			warnings = append(warnings, ev.Message)
		}
	}
	if len(warnings) > 0 {
		score += min(20, len(warnings)*4)
		if len(warnings) > 3 {
			warnings = warnings[:3]
		}
		rootCauses = append(rootCauses, models.RootCause{
			Cause:      "Warning/error events are concentrated in the selected time window",
			Confidence: 0.72,
			Evidence:   warnings,
		})
	}

	if len(events) == 0 && len(metrics) == 0 {
		recommendations = append(recommendations, "No metrics or events provided; collect a baseline snapshot before diagnosis.")
	}

	score = min(score, 100)
	level := RiskLevel(score)

	if len(rootCauses) == 0 {
		rootCauses = append(rootCauses, models.RootCause{
			Cause:      "No dominant fault pattern detected by current rules",
			Confidence: 0.45,
			Evidence:   []string{"Rule engine did not match major thresholds"},
		})
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Cluster looks stable. Keep monitoring trend changes.")
	}

	return models.AnalysisResult{
		Summary:         fmt.Sprintf("Rule-based analysis completed with %s operational risk.", level),
		Recommendations: recommendations,
		RootCauses:      rootCauses,
		RiskScore:       score,
		RiskLevel:       level,
		GeneratedAt:     e.now().UTC(),
	}
}

// RiskLevel buckets a 0..100 score
func RiskLevel(score int) string {
	switch {
	case score >= 70:
		return models.RiskHigh
	case score >= 40:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// lookup returns the value of the first key present, or 0
func lookup(values map[string]float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := values[k]; ok {
			return v
		}
	}
	return 0
}

func evidence(name string, v float64) string {
	return name + "=" + strconv.FormatFloat(v, 'g', -1, 64)
}
