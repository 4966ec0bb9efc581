// Package collector talks to the Kubernetes and Prometheus backends of a
// cluster, or to in-memory fixtures standing in for them.
package collector

import (
	"context"
	"fmt"
	"strings"

	"kubeops-dashboard/internal/models"
)

// RestartedAtAnnotation is stamped on the pod template to trigger a rollout
const RestartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// Kubernetes is the capability set the dashboard needs from a cluster API.
// Both the live client and the mock fixture implement it.
type Kubernetes interface {
	ListNodes(ctx context.Context) ([]models.RawObject, error)
	ListPods(ctx context.Context, namespace string) ([]models.RawObject, error)
	ListEvents(ctx context.Context, namespace string) ([]models.RawObject, error)
	ListResources(ctx context.Context, kind, namespace, labelSelector string) ([]models.RawObject, error)
	GetResource(ctx context.Context, kind, name, namespace string) (models.RawObject, error)
	PodLogs(ctx context.Context, name, namespace string, tailLines int) ([]string, error)
	Scale(ctx context.Context, kind, name, namespace string, replicas int) error
	RolloutRestart(ctx context.Context, kind, name, namespace string) error
	Mode() string
}

// RelatedEvents returns events that reference the object, plus events in the
// same namespace whose message mentions its name.
func RelatedEvents(ctx context.Context, k Kubernetes, kind, name, namespace string) ([]models.RawObject, error) {
	info, err := LookupKind(kind)
	if err != nil {
		return nil, err
	}

	events, err := k.ListEvents(ctx, namespace)
	if err != nil {
		return nil, err
	}

	related := make([]models.RawObject, 0)
	for _, ev := range events {
		rec := DecodeEvent(ev)
		ref := rec.InvolvedObject
		if ref.Kind == info.Kind && ref.Name == name && rec.InvolvedNamespace() == namespace {
			related = append(related, ev)
			continue
		}
		if rec.Metadata.Namespace == namespace && strings.Contains(rec.Message, name) {
			related = append(related, ev)
		}
	}
	return related, nil
}

// ResourceLogs returns the tail of the log of the object's pod. Controllers
// and services resolve the first pod matching their selector. Lookup and
// fetch failures come back as a single explanatory line.
func ResourceLogs(ctx context.Context, k Kubernetes, kind, name, namespace string, tailLines int) ([]string, error) {
	if _, err := LookupKind(kind); err != nil {
		return nil, err
	}

	podName := name
	if kind != "pod" {
		resolved, msg := resolvePod(ctx, k, kind, name, namespace)
		if resolved == "" {
			return []string{msg}, nil
		}
		podName = resolved
	}

	lines, err := k.PodLogs(ctx, podName, namespace, tailLines)
	if err != nil {
		return []string{fmt.Sprintf("Unable to load logs for pod %s/%s: %v", namespace, podName, err)}, nil
	}
	if len(lines) == 0 {
		return []string{fmt.Sprintf("No log output for pod %s/%s", namespace, podName)}, nil
	}
	return lines, nil
}

func resolvePod(ctx context.Context, k Kubernetes, kind, name, namespace string) (string, string) {
	obj, err := k.GetResource(ctx, kind, name, namespace)
	if err != nil {
		return "", fmt.Sprintf("No pod could be resolved for %s/%s: %v", kind, name, err)
	}

	selector := DecodeWorkload(obj).SelectorLabels()
	if len(selector) == 0 {
		return "", fmt.Sprintf("No pod selector available for %s/%s", kind, name)
	}

	pods, err := k.ListPods(ctx, namespace)
	if err != nil {
		return "", fmt.Sprintf("No pod could be resolved for %s/%s: %v", kind, name, err)
	}
	for _, pod := range pods {
		rec := DecodeWorkload(pod)
		if matchesLabels(selector, rec.Metadata.Labels) {
			return rec.Metadata.Name, ""
		}
	}
	return "", fmt.Sprintf("No running pod matches %s/%s", kind, name)
}
