package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// MockKubernetes serves a fixed fixture set held in memory. Scale and
// restart mutate the fixture so later reads observe them.
type MockKubernetes struct {
	mu        sync.RWMutex
	nodes     []models.RawObject
	events    []models.RawObject
	resources map[string][]models.RawObject
	now       func() time.Time
}

// NewMockKubernetes seeds the fixture set relative to the current time
func NewMockKubernetes() *MockKubernetes {
	return newMockKubernetes(time.Now)
}

func newMockKubernetes(now func() time.Time) *MockKubernetes {
	m := &MockKubernetes{
		resources: make(map[string][]models.RawObject),
		now:       now,
	}
	m.seed(now())
	return m
}

func (m *MockKubernetes) Mode() string { return "mock" }

func (m *MockKubernetes) ListNodes(_ context.Context) ([]models.RawObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyObjects(m.nodes, nil), nil
}

func (m *MockKubernetes) ListPods(_ context.Context, namespace string) ([]models.RawObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyObjects(m.resources["pod"], inNamespace(namespace)), nil
}

func (m *MockKubernetes) ListEvents(_ context.Context, namespace string) ([]models.RawObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyObjects(m.events, inNamespace(namespace)), nil
}

func (m *MockKubernetes) ListResources(_ context.Context, kind, namespace, labelSelector string) ([]models.RawObject, error) {
	if _, err := LookupKind(kind); err != nil {
		return nil, err
	}

	filter := inNamespace(namespace)
	if sel, ok := parseEqualitySelector(labelSelector); ok {
		byNamespace := filter
		filter = func(obj models.RawObject) bool {
			if !byNamespace(obj) {
				return false
			}
			lbls, _, _ := unstructured.NestedStringMap(obj, "metadata", "labels")
			return sel.Matches(labels.Set(lbls))
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyObjects(m.resources[kind], filter), nil
}

func (m *MockKubernetes) GetResource(_ context.Context, kind, name, namespace string) (models.RawObject, error) {
	if _, err := LookupKind(kind); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj := m.find(kind, name, namespace)
	if obj == nil {
		return nil, apperr.NotFoundf("%s %s/%s not found", kind, namespace, name)
	}
	return runtime.DeepCopyJSON(obj), nil
}

func (m *MockKubernetes) Scale(_ context.Context, kind, name, namespace string, replicas int) error {
	if _, err := LookupScalableKind(kind); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj := m.find(kind, name, namespace)
	if obj == nil {
		return apperr.NotFoundf("%s %s/%s not found", kind, namespace, name)
	}

	n := int64(replicas)
	for _, path := range [][]string{
		{"spec", "replicas"},
		{"status", "replicas"},
		{"status", "readyReplicas"},
	} {
		if err := unstructured.SetNestedField(obj, n, path...); err != nil {
			return fmt.Errorf("failed to set %s: %w", strings.Join(path, "."), err)
		}
	}
	return nil
}

func (m *MockKubernetes) RolloutRestart(_ context.Context, kind, name, namespace string) error {
	if _, err := LookupScalableKind(kind); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj := m.find(kind, name, namespace)
	if obj == nil {
		return apperr.NotFoundf("%s %s/%s not found", kind, namespace, name)
	}

	stamp := m.now().UTC().Format(time.RFC3339)
	err := unstructured.SetNestedField(obj, stamp,
		"spec", "template", "metadata", "annotations", RestartedAtAnnotation)
	if err != nil {
		return fmt.Errorf("failed to set restart annotation: %w", err)
	}
	return nil
}

// PodLogs produces deterministic log lines for a fixture pod
func (m *MockKubernetes) PodLogs(_ context.Context, name, namespace string, tailLines int) ([]string, error) {
	m.mu.RLock()
	pod := m.find("pod", name, namespace)
	var rec PodRecord
	if pod != nil {
		rec = DecodeWorkload(pod)
	}
	m.mu.RUnlock()

	if pod == nil {
		return []string{fmt.Sprintf("No logs available: pod %s/%s does not exist in the mock dataset", namespace, name)}, nil
	}

	count := tailLines
	if count <= 0 || count > 20 {
		count = 20
	}

	container := "main"
	if len(rec.Status.ContainerStatuses) > 0 && rec.Status.ContainerStatuses[0].Name != "" {
		container = rec.Status.ContainerStatuses[0].Name
	}

	lines := make([]string, 0, count)
	for i := 0; i < count; i++ {
		lines = append(lines, fmt.Sprintf("level=info pod=%s container=%s seq=%d msg=\"request handled\" status=200", name, container, i+1))
	}

	for _, cs := range rec.Status.ContainerStatuses {
		switch {
		case cs.WaitingReason() == "CrashLoopBackOff":
			lines[len(lines)-1] = fmt.Sprintf("level=error pod=%s container=%s msg=\"process exited with code 1\"", name, cs.Name)
		case cs.LastTerminationReason() == "OOMKilled":
			lines[len(lines)-1] = fmt.Sprintf("level=error pod=%s container=%s msg=\"container killed: out of memory\"", name, cs.Name)
		}
	}
	return lines, nil
}

// find returns the stored object; callers hold the lock
func (m *MockKubernetes) find(kind, name, namespace string) models.RawObject {
	for _, obj := range m.resources[kind] {
		if obj == nil {
			continue
		}
		n, _, _ := unstructured.NestedString(obj, "metadata", "name")
		ns, _, _ := unstructured.NestedString(obj, "metadata", "namespace")
		if n == name && ns == namespace {
			return obj
		}
	}
	return nil
}

func inNamespace(namespace string) func(models.RawObject) bool {
	return func(obj models.RawObject) bool {
		if namespace == "" {
			return true
		}
		ns, _, _ := unstructured.NestedString(obj, "metadata", "namespace")
		return ns == namespace
	}
}

func copyObjects(objs []models.RawObject, keep func(models.RawObject) bool) []models.RawObject {
	out := make([]models.RawObject, 0, len(objs))
	for _, obj := range objs {
		if keep != nil && !keep(obj) {
			continue
		}
		out = append(out, runtime.DeepCopyJSON(obj))
	}
	return out
}

func (m *MockKubernetes) seed(now time.Time) {
	for _, name := range []string{"worker-1", "worker-2", "worker-3"} {
		ready := corev1.ConditionTrue
		if name == "worker-3" {
			ready = corev1.ConditionFalse
		}
		m.nodes = append(m.nodes, toRaw(&corev1.Node{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Node"},
			ObjectMeta: metav1.ObjectMeta{Name: name},
			Status: corev1.NodeStatus{
				Capacity: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse("8"),
					corev1.ResourceMemory: resource.MustParse("32Gi"),
				},
				Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: ready}},
			},
		}))
	}

	m.resources["pod"] = []models.RawObject{
		mockPod("web-7b6f", "default", corev1.PodRunning, 0, ""),
		mockPod("api-8d4f", "default", corev1.PodRunning, 1, ""),
		mockPod("worker-559c", "prod", corev1.PodPending, 0, ""),
		mockPod("etl-9988", "prod", corev1.PodRunning, 0, "CrashLoopBackOff"),
		mockPod("monitor-776", "monitoring", corev1.PodRunning, 0, "OOMKilled"),
	}

	m.resources["deployment"] = []models.RawObject{
		mockDeployment("web", "default", 3, 3),
		mockDeployment("api", "default", 2, 1),
		mockDeployment("billing", "prod", 4, 4),
	}
	m.resources["statefulset"] = []models.RawObject{mockStatefulSet("redis", "prod", 3, 3)}
	m.resources["daemonset"] = []models.RawObject{mockDaemonSet("node-exporter", "monitoring", 3, 2)}
	m.resources["service"] = []models.RawObject{
		mockService("web-svc", "default", "web"),
		mockService("api-svc", "default", "api"),
	}
	m.resources["ingress"] = []models.RawObject{mockIngress("main-ingress", "default", "web-svc")}

	m.events = []models.RawObject{
		mockEvent("event-1", "prod", corev1.EventTypeWarning, "BackOff",
			"Back-off restarting failed container main in pod etl-9988", corev1.ObjectReference{}, now.Add(-2*time.Minute)),
		mockEvent("event-2", "monitoring", corev1.EventTypeWarning, "OOMKilled",
			"Container metrics-agent was OOM killed",
			corev1.ObjectReference{Kind: "Pod", Name: "monitor-776", Namespace: "monitoring"}, now.Add(-5*time.Minute)),
		mockEvent("event-3", "default", corev1.EventTypeNormal, "ScalingReplicaSet",
			"Scaled up replica set web to 3",
			corev1.ObjectReference{Kind: "Deployment", Name: "web", Namespace: "default"}, now.Add(-9*time.Minute)),
	}
}

func toRaw(obj interface{}) models.RawObject {
	raw, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		panic(fmt.Sprintf("mock fixture conversion failed: %v", err))
	}
	return raw
}

func workloadMeta(name, namespace string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:      name,
		Namespace: namespace,
		Labels:    map[string]string{"app": name, "tier": "backend"},
	}
}

func podTemplate(app string) corev1.PodTemplateSpec {
	return corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": app}},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "main", Image: "registry.local/" + app + ":stable"}},
		},
	}
}

func int32Ptr(v int32) *int32 { return &v }

func mockPod(name, namespace string, phase corev1.PodPhase, restarts int32, trouble string) models.RawObject {
	cs := corev1.ContainerStatus{
		Name:         "main",
		RestartCount: restarts,
		Ready:        phase == corev1.PodRunning,
	}
	switch trouble {
	case "CrashLoopBackOff":
		cs.State.Waiting = &corev1.ContainerStateWaiting{Reason: trouble, Message: "Container is restarting"}
	case "OOMKilled":
		cs.LastTerminationState.Terminated = &corev1.ContainerStateTerminated{Reason: trouble, ExitCode: 137}
	}

	app, _, _ := strings.Cut(name, "-")
	return toRaw(&corev1.Pod{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"app": app},
		},
		Spec: corev1.PodSpec{Containers: []corev1.Container{{Name: "main"}}},
		Status: corev1.PodStatus{
			Phase:             phase,
			ContainerStatuses: []corev1.ContainerStatus{cs},
		},
	})
}

func mockDeployment(name, namespace string, replicas, ready int32) models.RawObject {
	return toRaw(&appsv1.Deployment{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: workloadMeta(name, namespace),
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(replicas),
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": name}},
			Template: podTemplate(name),
		},
		Status: appsv1.DeploymentStatus{Replicas: replicas, ReadyReplicas: ready, AvailableReplicas: ready},
	})
}

func mockStatefulSet(name, namespace string, replicas, ready int32) models.RawObject {
	return toRaw(&appsv1.StatefulSet{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "StatefulSet"},
		ObjectMeta: workloadMeta(name, namespace),
		Spec: appsv1.StatefulSetSpec{
			Replicas:    int32Ptr(replicas),
			ServiceName: name,
			Selector:    &metav1.LabelSelector{MatchLabels: map[string]string{"app": name}},
			Template:    podTemplate(name),
		},
		Status: appsv1.StatefulSetStatus{Replicas: replicas, ReadyReplicas: ready},
	})
}

// DaemonSets have no spec.replicas upstream; the fixture carries one so the
// replica based health rule applies uniformly to controller kinds.
func mockDaemonSet(name, namespace string, replicas, ready int32) models.RawObject {
	raw := toRaw(&appsv1.DaemonSet{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "DaemonSet"},
		ObjectMeta: workloadMeta(name, namespace),
		Spec: appsv1.DaemonSetSpec{
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": name}},
			Template: podTemplate(name),
		},
		Status: appsv1.DaemonSetStatus{DesiredNumberScheduled: replicas, NumberReady: ready},
	})
	_ = unstructured.SetNestedField(raw, int64(replicas), "spec", "replicas")
	_ = unstructured.SetNestedField(raw, int64(replicas), "status", "replicas")
	_ = unstructured.SetNestedField(raw, int64(ready), "status", "readyReplicas")
	return raw
}

func mockService(name, namespace, app string) models.RawObject {
	return toRaw(&corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: workloadMeta(name, namespace),
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app": app},
			Ports:    []corev1.ServicePort{{Name: "http", Port: 80, TargetPort: intstr.FromInt32(8080)}},
		},
	})
}

func mockIngress(name, namespace, backend string) models.RawObject {
	pathType := networkingv1.PathTypePrefix
	return toRaw(&networkingv1.Ingress{
		TypeMeta:   metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: workloadMeta(name, namespace),
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: "dashboard.local",
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: backend,
									Port: networkingv1.ServiceBackendPort{Number: 80},
								},
							},
						}},
					},
				},
			}},
		},
	})
}

func mockEvent(name, namespace, eventType, reason, message string, ref corev1.ObjectReference, at time.Time) models.RawObject {
	return toRaw(&corev1.Event{
		TypeMeta:       metav1.TypeMeta{APIVersion: "v1", Kind: "Event"},
		ObjectMeta:     metav1.ObjectMeta{Name: name, Namespace: namespace},
		Type:           eventType,
		Reason:         reason,
		Message:        message,
		InvolvedObject: ref,
		LastTimestamp:  metav1.NewTime(at),
	})
}
