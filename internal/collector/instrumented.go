package collector

import (
	"context"
	"time"

	"kubeops-dashboard/internal/models"
)

// Observer receives the outcome of every live backend call
type Observer interface {
	ObserveBackend(backend, operation string, start time.Time, err error)
}

type observedKubernetes struct {
	next Kubernetes
	obs  Observer
}

func (o observedKubernetes) done(op string, start time.Time, err error) {
	o.obs.ObserveBackend("kubernetes", op, start, err)
}

func (o observedKubernetes) ListNodes(ctx context.Context) ([]models.RawObject, error) {
	start := time.Now()
	out, err := o.next.ListNodes(ctx)
	o.done("list_nodes", start, err)
	return out, err
}

func (o observedKubernetes) ListPods(ctx context.Context, namespace string) ([]models.RawObject, error) {
	start := time.Now()
	out, err := o.next.ListPods(ctx, namespace)
	o.done("list_pods", start, err)
	return out, err
}

func (o observedKubernetes) ListEvents(ctx context.Context, namespace string) ([]models.RawObject, error) {
	start := time.Now()
	out, err := o.next.ListEvents(ctx, namespace)
	o.done("list_events", start, err)
	return out, err
}

func (o observedKubernetes) ListResources(ctx context.Context, kind, namespace, labelSelector string) ([]models.RawObject, error) {
	start := time.Now()
	out, err := o.next.ListResources(ctx, kind, namespace, labelSelector)
	o.done("list_resources", start, err)
	return out, err
}

func (o observedKubernetes) GetResource(ctx context.Context, kind, name, namespace string) (models.RawObject, error) {
	start := time.Now()
	out, err := o.next.GetResource(ctx, kind, name, namespace)
	o.done("get_resource", start, err)
	return out, err
}

func (o observedKubernetes) PodLogs(ctx context.Context, name, namespace string, tailLines int) ([]string, error) {
	start := time.Now()
	out, err := o.next.PodLogs(ctx, name, namespace, tailLines)
	o.done("pod_logs", start, err)
	return out, err
}

func (o observedKubernetes) Scale(ctx context.Context, kind, name, namespace string, replicas int) error {
	start := time.Now()
	err := o.next.Scale(ctx, kind, name, namespace, replicas)
	o.done("scale", start, err)
	return err
}

func (o observedKubernetes) RolloutRestart(ctx context.Context, kind, name, namespace string) error {
	start := time.Now()
	err := o.next.RolloutRestart(ctx, kind, name, namespace)
	o.done("rollout_restart", start, err)
	return err
}

func (o observedKubernetes) Mode() string { return o.next.Mode() }

type observedPrometheus struct {
	next Prometheus
	obs  Observer
}

func (o observedPrometheus) done(op string, start time.Time, err error) {
	o.obs.ObserveBackend("prometheus", op, start, err)
}

func (o observedPrometheus) Query(ctx context.Context, expr string) ([]SampleVector, error) {
	start := time.Now()
	out, err := o.next.Query(ctx, expr)
	o.done("query", start, err)
	return out, err
}

func (o observedPrometheus) QueryRange(ctx context.Context, expr string, start, end time.Time, step time.Duration) ([]SampleVector, error) {
	began := time.Now()
	out, err := o.next.QueryRange(ctx, expr, start, end, step)
	o.done("query_range", began, err)
	return out, err
}

func (o observedPrometheus) ClusterUsage(ctx context.Context) (models.ClusterUsage, error) {
	start := time.Now()
	out, err := o.next.ClusterUsage(ctx)
	o.done("cluster_usage", start, err)
	return out, err
}

func (o observedPrometheus) NamespaceUsage(ctx context.Context, limit int) ([]models.NamespaceUsage, error) {
	start := time.Now()
	out, err := o.next.NamespaceUsage(ctx, limit)
	o.done("namespace_usage", start, err)
	return out, err
}

func (o observedPrometheus) FiringAlerts(ctx context.Context) ([]models.FiringAlert, error) {
	start := time.Now()
	out, err := o.next.FiringAlerts(ctx)
	o.done("firing_alerts", start, err)
	return out, err
}

func (o observedPrometheus) Timeseries(ctx context.Context, q TimeseriesQuery) ([]SampleVector, error) {
	start := time.Now()
	out, err := o.next.Timeseries(ctx, q)
	o.done("timeseries", start, err)
	return out, err
}

func (o observedPrometheus) Mode() string { return o.next.Mode() }
