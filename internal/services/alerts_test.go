package services

import (
	"context"
	"testing"
	"time"

	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertsFromMockBackends(t *testing.T) {
	env := newTestEnv(t)

	list, err := env.alerts.Alerts(context.Background(), "", "", 50)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 3, list.Matched)
	require.Len(t, list.Items, 3)

	// the prometheus alert is stamped now, events are minutes old
	assert.Equal(t, "prom-1", list.Items[0].ID)
	assert.Equal(t, models.SeverityP2, list.Items[0].Severity)
	assert.Equal(t, models.SourcePrometheus, list.Items[0].Source)
	assert.Equal(t, "NodeMemoryPressure", list.Items[0].Title)

	assert.Equal(t, "k8s-event-1", list.Items[1].ID)
	assert.Equal(t, "BackOff", list.Items[1].Title)
	assert.Equal(t, models.SeverityP2, list.Items[1].Severity)
	assert.Equal(t, "Check container logs and startup probes for repeated crashes.", list.Items[1].Recommendation)

	assert.Equal(t, "k8s-event-2", list.Items[2].ID)
	assert.Equal(t, models.SeverityP1, list.Items[2].Severity)
	assert.Equal(t, "monitoring", list.Items[2].Namespace)
}

func TestAlertsLimitAndNamespace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	list, err := env.alerts.Alerts(ctx, "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 3, list.Matched)
	assert.Len(t, list.Items, 1)

	// namespace narrows events only; firing alerts are cluster wide
	list, err = env.alerts.Alerts(ctx, "", "prod", 50)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "prom-1", list.Items[0].ID)
	assert.Equal(t, "k8s-event-1", list.Items[1].ID)

	// only a Normal event lives in default
	list, err = env.alerts.Alerts(ctx, "", "default", 50)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, models.SourcePrometheus, list.Items[0].Source)
}

func TestSeverityMaps(t *testing.T) {
	reasons := []struct {
		reason string
		want   string
	}{
		{"OOMKilled", models.SeverityP1},
		{"FailedScheduling", models.SeverityP1},
		{"failedmount", models.SeverityP1},
		{"Failed", models.SeverityP1},
		{"BackOff", models.SeverityP2},
		{"Unhealthy", models.SeverityP2},
		{"NodePressure", models.SeverityP2},
		{"Evicted", models.SeverityP3},
		{"", models.SeverityP3},
	}
	for _, tt := range reasons {
		t.Run("reason "+tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.want, severityFromReason(tt.reason))
		})
	}

	labels := []struct {
		label string
		want  string
	}{
		{"", models.SeverityP2},
		{"warning", models.SeverityP2},
		{"Medium", models.SeverityP2},
		{"critical", models.SeverityP1},
		{"page", models.SeverityP1},
	}
	for _, tt := range labels {
		t.Run("label "+tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, severityFromPromLabel(tt.label))
		})
	}
}

func TestEventStartTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   collector.EventRecord
		want time.Time
	}{
		{"last timestamp", collector.EventRecord{LastTimestamp: "2024-03-01T11:58:00Z"}, now.Add(-2 * time.Minute)},
		{"event time fallback", collector.EventRecord{EventTime: "2024-03-01T11:59:30.5Z"}, now.Add(-29500 * time.Millisecond)},
		{"missing", collector.EventRecord{}, now},
		{"unparseable", collector.EventRecord{LastTimestamp: "yesterday"}, now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(eventStartTime(tt.ev, now)))
		})
	}
}
