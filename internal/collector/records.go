package collector

import (
	"encoding/json"
	"strings"

	"kubeops-dashboard/internal/models"

	corev1 "k8s.io/api/core/v1"
)

// The record types below are permissive projections of raw objects. Every
// field is optional; callers read through the accessor methods which apply
// defaults.

// ObjectMeta is the subset of metadata the dashboard reads
type ObjectMeta struct {
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// NodeCondition is one entry of status.conditions
type NodeCondition struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// NodeRecord is a typed view of a node object
type NodeRecord struct {
	Metadata ObjectMeta `json:"metadata"`
	Status   struct {
		Conditions []NodeCondition   `json:"conditions"`
		Capacity   map[string]string `json:"capacity"`
	} `json:"status"`
}

// Ready is true when the node carries Ready=True
func (n NodeRecord) Ready() bool {
	for _, cond := range n.Status.Conditions {
		if cond.Type == string(corev1.NodeReady) {
			return cond.Status == string(corev1.ConditionTrue)
		}
	}
	return false
}

// ContainerStatusRecord is one entry of status.containerStatuses
type ContainerStatusRecord struct {
	Name         string `json:"name"`
	RestartCount *int64 `json:"restartCount"`
	State        struct {
		Waiting *struct {
			Reason string `json:"reason"`
		} `json:"waiting"`
	} `json:"state"`
	LastState struct {
		Terminated *struct {
			Reason   string `json:"reason"`
			ExitCode int    `json:"exitCode"`
		} `json:"terminated"`
	} `json:"lastState"`
}

// WaitingReason returns state.waiting.reason or ""
func (c ContainerStatusRecord) WaitingReason() string {
	if c.State.Waiting == nil {
		return ""
	}
	return c.State.Waiting.Reason
}

// LastTerminationReason returns lastState.terminated.reason or ""
func (c ContainerStatusRecord) LastTerminationReason() string {
	if c.LastState.Terminated == nil {
		return ""
	}
	return c.LastState.Terminated.Reason
}

// WorkloadRecord covers pods, controllers, services and ingresses
type WorkloadRecord struct {
	Metadata ObjectMeta `json:"metadata"`
	Spec     struct {
		Replicas *int64                 `json:"replicas"`
		Selector map[string]interface{} `json:"selector"`
	} `json:"spec"`
	Status struct {
		Phase             string                  `json:"phase"`
		ReadyReplicas     *int64                  `json:"readyReplicas"`
		ContainerStatuses []ContainerStatusRecord `json:"containerStatuses"`
	} `json:"status"`
}

// PodRecord is the same projection read as a pod
type PodRecord = WorkloadRecord

// Phase returns status.phase, defaulting to Unknown
func (w WorkloadRecord) Phase() string {
	if w.Status.Phase == "" {
		return "Unknown"
	}
	return w.Status.Phase
}

// Restarts sums restartCount across container statuses
func (w WorkloadRecord) Restarts() int64 {
	var total int64
	for _, cs := range w.Status.ContainerStatuses {
		if cs.RestartCount != nil {
			total += *cs.RestartCount
		}
	}
	return total
}

// Name returns metadata.name, defaulting to "unknown"
func (w WorkloadRecord) Name() string {
	if w.Metadata.Name == "" {
		return "unknown"
	}
	return w.Metadata.Name
}

// Namespace returns metadata.namespace, defaulting to "default"
func (w WorkloadRecord) Namespace() string {
	if w.Metadata.Namespace == "" {
		return corev1.NamespaceDefault
	}
	return w.Metadata.Namespace
}

// SelectorLabels returns the equality labels that select the object's pods.
// Controllers use spec.selector.matchLabels, services use a plain map.
func (w WorkloadRecord) SelectorLabels() map[string]string {
	if len(w.Spec.Selector) == 0 {
		return nil
	}
	source := w.Spec.Selector
	if ml, ok := w.Spec.Selector["matchLabels"].(map[string]interface{}); ok {
		source = ml
	} else if _, ok := w.Spec.Selector["matchExpressions"]; ok {
		return nil
	}

	out := make(map[string]string, len(source))
	for k, v := range source {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// InvolvedObject is the structured reference an event points at
type InvolvedObject struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// EventRecord is a typed view of a core/v1 event. Timestamps stay strings so
// malformed values can fall back instead of failing the decode.
type EventRecord struct {
	Metadata       ObjectMeta     `json:"metadata"`
	Type           string         `json:"type"`
	Reason         string         `json:"reason"`
	Message        string         `json:"message"`
	LastTimestamp  string         `json:"lastTimestamp"`
	EventTime      string         `json:"eventTime"`
	FirstTimestamp string         `json:"firstTimestamp"`
	InvolvedObject InvolvedObject `json:"involvedObject"`
}

// EventType returns type, defaulting to Normal
func (e EventRecord) EventType() string {
	if e.Type == "" {
		return corev1.EventTypeNormal
	}
	return e.Type
}

// ReasonOr returns the reason or the fallback when empty
func (e EventRecord) ReasonOr(fallback string) string {
	if e.Reason == "" {
		return fallback
	}
	return e.Reason
}

// InvolvedNamespace is the namespace of the referenced object, falling back
// to the event's own namespace.
func (e EventRecord) InvolvedNamespace() string {
	if e.InvolvedObject.Namespace != "" {
		return e.InvolvedObject.Namespace
	}
	return e.Metadata.Namespace
}

// Timestamp picks the most specific timestamp string available
func (e EventRecord) Timestamp() string {
	for _, ts := range []string{e.LastTimestamp, e.EventTime, e.FirstTimestamp} {
		if strings.TrimSpace(ts) != "" {
			return ts
		}
	}
	return ""
}

// DecodeNode projects a raw object into a NodeRecord
func DecodeNode(obj models.RawObject) NodeRecord {
	var rec NodeRecord
	decodeRecord(obj, &rec)
	return rec
}

// DecodeWorkload projects a raw object into a WorkloadRecord
func DecodeWorkload(obj models.RawObject) WorkloadRecord {
	var rec WorkloadRecord
	decodeRecord(obj, &rec)
	return rec
}

// DecodeEvent projects a raw object into an EventRecord
func DecodeEvent(obj models.RawObject) EventRecord {
	var rec EventRecord
	decodeRecord(obj, &rec)
	return rec
}

// decodeRecord fills out from obj through a JSON round trip. Fields whose
// JSON type does not fit are left at their zero value; encoding/json keeps
// decoding the remaining fields after an UnmarshalTypeError.
func decodeRecord(obj models.RawObject, out interface{}) {
	if obj == nil {
		return
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, out)
}
