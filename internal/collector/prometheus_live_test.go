package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kubeops-dashboard/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// promServer answers instant queries from a map of expression to vector body
// and records every query it receives.
type promServer struct {
	mu      sync.Mutex
	vectors map[string]string
	matrix  string
	queries []string
	params  map[string]string
}

func (p *promServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	query := r.Form.Get("query")

	p.mu.Lock()
	p.queries = append(p.queries, query)
	p.params = map[string]string{"start": r.Form.Get("start"), "end": r.Form.Get("end"), "step": r.Form.Get("step")}
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/v1/query":
		result, ok := p.vectors[query]
		if !ok {
			result = "[]"
		}
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":%s}}`, result)
	case "/api/v1/query_range":
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"matrix","result":%s}}`, p.matrix)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newLivePromForTest(t *testing.T, handler http.Handler, timeout time.Duration) *LivePrometheus {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewLivePrometheus(srv.URL, timeout, zap.NewNop())
	require.NoError(t, err)
	p.now = func() time.Time { return fixedNow }
	return p
}

func scalar(v string) string {
	return fmt.Sprintf(`[{"metric":{},"value":[1714564800,"%s"]}]`, v)
}

func TestLiveClusterUsage(t *testing.T) {
	srv := &promServer{vectors: map[string]string{
		queryClusterCPUUsage:    scalar("8.5"),
		queryClusterCPUCapacity: scalar("16"),
		queryClusterMemUsage:    scalar("1024"),
		// capacity missing: empty vector reads as 0
	}}
	p := newLivePromForTest(t, srv, 5*time.Second)

	usage, err := p.ClusterUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8.5, usage.CPUUsageCores)
	assert.Equal(t, 16.0, usage.CPUCapacityCores)
	assert.Equal(t, 1024.0, usage.MemoryUsageBytes)
	assert.Equal(t, 0.0, usage.MemoryCapacityBytes)
	assert.Len(t, srv.queries, 4)
}

func TestLiveNamespaceUsageMergesAndSortsByMemory(t *testing.T) {
	cpuQ, memQ, podQ := namespaceUsageQueries(2)
	srv := &promServer{vectors: map[string]string{
		cpuQ: `[{"metric":{"namespace":"prod"},"value":[1714564800,"1.5"]},
		        {"metric":{"namespace":"dev"},"value":[1714564800,"0.25"]}]`,
		memQ: `[{"metric":{"namespace":"prod"},"value":[1714564800,"100"]},
		        {"metric":{"namespace":"monitoring"},"value":[1714564800,"300"]}]`,
		podQ: `[{"metric":{},"value":[1714564800,"7"]},
		        {"metric":{"namespace":"prod"},"value":[1714564800,"12"]}]`,
	}}
	p := newLivePromForTest(t, srv, 5*time.Second)

	rows, err := p.NamespaceUsage(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "monitoring", rows[0].Namespace)
	assert.Equal(t, 300.0, rows[0].MemoryBytes)
	assert.Equal(t, 0.0, rows[0].CPUMillicores)

	assert.Equal(t, "prod", rows[1].Namespace)
	assert.Equal(t, 1500.0, rows[1].CPUMillicores)
	assert.Equal(t, 12, rows[1].PodCount)
}

func TestMergeNamespaceUsageOrdering(t *testing.T) {
	rows := mergeNamespaceUsage(
		map[string]float64{"a": 1, "b": 2},
		map[string]float64{"a": 10, "c": 30, "d": 20},
		map[string]float64{"default": 4},
		10,
	)
	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.Namespace)
	}
	// ties on memory fall back to name order
	assert.Equal(t, []string{"c", "d", "a", "b", "default"}, got)
	assert.Equal(t, 4, rows[4].PodCount)
	assert.Equal(t, 2.0, rows[3].CPUMillicores)

	truncated := mergeNamespaceUsage(nil, map[string]float64{"x": 1, "y": 2}, nil, 1)
	require.Len(t, truncated, 1)
	assert.Equal(t, "y", truncated[0].Namespace)
}

func TestLiveFiringAlertsDefaults(t *testing.T) {
	srv := &promServer{vectors: map[string]string{
		queryFiringAlerts: `[
			{"metric":{"alertname":"KubePodCrashLooping","severity":"critical","summary":"Pod is crash looping","namespace":"prod"},"value":[1714564800,"1"]},
			{"metric":{},"value":[1714564800,"1"]}
		]`,
	}}
	p := newLivePromForTest(t, srv, 5*time.Second)

	alerts, err := p.FiringAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, "KubePodCrashLooping", alerts[0].Name)
	assert.Equal(t, "critical", alerts[0].Severity)
	assert.Equal(t, "prod", alerts[0].Namespace)

	assert.Equal(t, "UnknownAlert", alerts[1].Name)
	assert.Equal(t, "warning", alerts[1].Severity)
	assert.Equal(t, "Prometheus firing alert", alerts[1].Summary)
	assert.Equal(t, "default", alerts[1].Namespace)
}

func TestLiveTimeseries(t *testing.T) {
	srv := &promServer{matrix: `[
		{"metric":{"pod":"web-1"},"values":[[1714564740,"1"],[1714564800,"2"]]},
		{"metric":{"pod":"web-2"},"values":[[1714564800,"3"]]}
	]`}
	p := newLivePromForTest(t, srv, 5*time.Second)

	result, err := p.Timeseries(context.Background(), TimeseriesQuery{
		Metric: "network_rx", RangeMinutes: 10, StepSeconds: 60, Namespace: "prod", Workload: "web",
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "web-1", result[0].Labels["pod"])
	assert.Equal(t, []Sample{{1714564740, 1}, {1714564800, 2}}, result[0].Samples)

	require.Len(t, srv.queries, 1)
	assert.Equal(t,
		`sum(rate(container_network_receive_bytes_total{container!="",namespace="prod",pod=~"web.*"}[5m]))`,
		srv.queries[0])
	assert.Equal(t, "60", srv.params["step"])
}

func TestLivePrometheusErrors(t *testing.T) {
	t.Run("bad data", func(t *testing.T) {
		p := newLivePromForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":"error","errorType":"bad_data","error":"parse error at char 4"}`)
		}), 5*time.Second)

		_, err := p.Query(context.Background(), "sum(")
		require.Error(t, err)
		assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "parse error")
	})

	t.Run("timeout", func(t *testing.T) {
		p := newLivePromForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}), 100*time.Millisecond)

		_, err := p.Query(context.Background(), "up")
		require.Error(t, err)
		assert.Equal(t, apperr.Timeout, apperr.KindOf(err))
	})
}
