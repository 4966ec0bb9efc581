package collector

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"kubeops-dashboard/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMock() *MockKubernetes {
	return newMockKubernetes(func() time.Time { return fixedNow })
}

func names(t *testing.T, objs []map[string]interface{}) []string {
	t.Helper()
	out := make([]string, 0, len(objs))
	for _, obj := range objs {
		n, _, err := unstructured.NestedString(obj, "metadata", "name")
		require.NoError(t, err)
		out = append(out, n)
	}
	return out
}

func TestMockListNodesAndPods(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	nodes, err := m.ListNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"worker-1", "worker-2", "worker-3"}, names(t, nodes))

	pods, err := m.ListPods(ctx, "")
	require.NoError(t, err)
	assert.Len(t, pods, 5)

	prodPods, err := m.ListPods(ctx, "prod")
	require.NoError(t, err)
	assert.Equal(t, []string{"worker-559c", "etl-9988"}, names(t, prodPods))

	// pod kind shares the same fixture as ListPods
	podResources, err := m.ListResources(ctx, "pod", "", "")
	require.NoError(t, err)
	assert.Len(t, podResources, 5)
}

func TestMockListResources(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	tests := []struct {
		name      string
		kind      string
		namespace string
		selector  string
		want      []string
	}{
		{"all deployments", "deployment", "", "", []string{"web", "api", "billing"}},
		{"namespace filter", "deployment", "prod", "", []string{"billing"}},
		{"label selector", "deployment", "", "app=api", []string{"api"}},
		{"selector with spaces", "deployment", "", " app = web ", []string{"web"}},
		{"malformed selector ignored", "deployment", "", "app", []string{"web", "api", "billing"}},
		{"set based selector ignored", "deployment", "", "app in (web)", []string{"web", "api", "billing"}},
		{"multi term selector ignored", "deployment", "", "app=web,tier=backend", []string{"web", "api", "billing"}},
		{"no match", "statefulset", "", "app=web", []string{}},
		{"ingress", "ingress", "default", "", []string{"main-ingress"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := m.ListResources(ctx, tt.kind, tt.namespace, tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, items))
		})
	}
}

func TestMockUnsupportedKind(t *testing.T) {
	m := newTestMock()

	items, err := m.ListResources(context.Background(), "widget", "", "")
	assert.Nil(t, items)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestMockListReturnsCopies(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	items, err := m.ListResources(ctx, "deployment", "default", "app=web")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, unstructured.SetNestedField(items[0], int64(99), "spec", "replicas"))

	obj, err := m.GetResource(ctx, "deployment", "web", "default")
	require.NoError(t, err)
	replicas, _, _ := unstructured.NestedInt64(obj, "spec", "replicas")
	assert.Equal(t, int64(3), replicas)
}

func TestMockScalePersists(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	require.NoError(t, m.Scale(ctx, "deployment", "api", "default", 5))

	obj, err := m.GetResource(ctx, "deployment", "api", "default")
	require.NoError(t, err)
	rec := DecodeWorkload(obj)
	require.NotNil(t, rec.Spec.Replicas)
	require.NotNil(t, rec.Status.ReadyReplicas)
	assert.Equal(t, int64(5), *rec.Spec.Replicas)
	assert.Equal(t, int64(5), *rec.Status.ReadyReplicas)
}

func TestMockScaleErrors(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	err := m.Scale(ctx, "deployment", "ghost", "default", 1)
	assert.True(t, apperr.IsNotFound(err))

	err = m.Scale(ctx, "pod", "web-7b6f", "default", 1)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	err = m.RolloutRestart(ctx, "service", "web-svc", "default")
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestMockConcurrentScale(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, m.Scale(ctx, "statefulset", "redis", "prod", n))
		}(i)
	}
	wg.Wait()

	obj, err := m.GetResource(ctx, "statefulset", "redis", "prod")
	require.NoError(t, err)
	replicas, _, _ := unstructured.NestedInt64(obj, "spec", "replicas")
	assert.GreaterOrEqual(t, replicas, int64(1))
	assert.LessOrEqual(t, replicas, int64(20))
}

func TestMockRolloutRestart(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	require.NoError(t, m.RolloutRestart(ctx, "daemonset", "node-exporter", "monitoring"))

	obj, err := m.GetResource(ctx, "daemonset", "node-exporter", "monitoring")
	require.NoError(t, err)
	stamp, found, err := unstructured.NestedString(obj,
		"spec", "template", "metadata", "annotations", RestartedAtAnnotation)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-05-01T12:00:00Z", stamp)

	err = m.RolloutRestart(ctx, "deployment", "ghost", "default")
	assert.True(t, apperr.IsNotFound(err))
}

func TestRelatedEvents(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	tests := []struct {
		name      string
		kind      string
		resource  string
		namespace string
		want      []string
	}{
		{"structured reference", "pod", "monitor-776", "monitoring", []string{"event-2"}},
		{"message fallback", "pod", "etl-9988", "prod", []string{"event-1"}},
		{"deployment reference", "deployment", "web", "default", []string{"event-3"}},
		{"message fallback across kinds", "statefulset", "web", "default", []string{"event-3"}},
		{"other namespace", "pod", "etl-9988", "default", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := RelatedEvents(ctx, m, tt.kind, tt.resource, tt.namespace)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, events))
		})
	}

	_, err := RelatedEvents(ctx, m, "widget", "x", "default")
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestResourceLogs(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	lines, err := ResourceLogs(ctx, m, "pod", "api-8d4f", "default", 5)
	require.NoError(t, err)
	assert.Len(t, lines, 5)
	assert.Contains(t, lines[0], "pod=api-8d4f")

	// deployment web selects app=web which matches web-7b6f
	lines, err = ResourceLogs(ctx, m, "deployment", "web", "default", 3)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "pod=web-7b6f")

	lines, err = ResourceLogs(ctx, m, "service", "api-svc", "default", 3)
	require.NoError(t, err)
	assert.Contains(t, lines[0], "pod=api-8d4f")

	lines, err = ResourceLogs(ctx, m, "pod", "etl-9988", "prod", 4)
	require.NoError(t, err)
	assert.Contains(t, lines[len(lines)-1], "level=error")
}

func TestResourceLogsPlaceholders(t *testing.T) {
	m := newTestMock()
	ctx := context.Background()

	tests := []struct {
		name      string
		kind      string
		resource  string
		namespace string
		contains  string
	}{
		{"ingress has no selector", "ingress", "main-ingress", "default", "No pod selector"},
		{"no pod matches", "deployment", "billing", "prod", "No running pod matches"},
		{"missing controller", "deployment", "ghost", "default", "No pod could be resolved"},
		{"missing pod", "pod", "ghost-1", "default", "No logs available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := ResourceLogs(ctx, m, tt.kind, tt.resource, tt.namespace, 50)
			require.NoError(t, err)
			require.Len(t, lines, 1)
			assert.True(t, strings.Contains(lines[0], tt.contains), lines[0])
		})
	}
}
