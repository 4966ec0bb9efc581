package collector

import (
	"sort"
	"strings"

	"kubeops-dashboard/internal/apperr"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// KindInfo describes how one supported kind maps onto the Kubernetes API
type KindInfo struct {
	Name     string
	Kind     string
	GVR      schema.GroupVersionResource
	Scalable bool
}

// Namespaced resources only; nodes and events are served by dedicated calls.
var kindTable = map[string]KindInfo{
	"deployment": {
		Name: "deployment", Kind: "Deployment", Scalable: true,
		GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"},
	},
	"statefulset": {
		Name: "statefulset", Kind: "StatefulSet", Scalable: true,
		GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "statefulsets"},
	},
	"daemonset": {
		Name: "daemonset", Kind: "DaemonSet", Scalable: true,
		GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "daemonsets"},
	},
	"pod": {
		Name: "pod", Kind: "Pod",
		GVR: schema.GroupVersionResource{Version: "v1", Resource: "pods"},
	},
	"service": {
		Name: "service", Kind: "Service",
		GVR: schema.GroupVersionResource{Version: "v1", Resource: "services"},
	},
	"ingress": {
		Name: "ingress", Kind: "Ingress",
		GVR: schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"},
	},
}

var (
	nodesGVR  = schema.GroupVersionResource{Version: "v1", Resource: "nodes"}
	podsGVR   = kindTable["pod"].GVR
	eventsGVR = schema.GroupVersionResource{Version: "v1", Resource: "events"}
)

// LookupKind resolves a lower-case kind name
func LookupKind(kind string) (KindInfo, error) {
	info, ok := kindTable[kind]
	if !ok {
		return KindInfo{}, apperr.InvalidArgumentf("unsupported kind: %s (supported: %s)", kind, strings.Join(SupportedKinds(), ", "))
	}
	return info, nil
}

// LookupScalableKind resolves a kind that accepts scale and rollout-restart
func LookupScalableKind(kind string) (KindInfo, error) {
	info, err := LookupKind(kind)
	if err != nil {
		return KindInfo{}, err
	}
	if !info.Scalable {
		return KindInfo{}, apperr.InvalidArgumentf("kind '%s' does not support this action", kind)
	}
	return info, nil
}

// SupportedKinds lists kind names in stable order
func SupportedKinds() []string {
	names := make([]string, 0, len(kindTable))
	for name := range kindTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsControllerKind reports whether replicas drive the health of the kind
func IsControllerKind(kind string) bool {
	info, ok := kindTable[kind]
	return ok && info.Scalable
}

// IsNetworkKind reports whether the kind fronts traffic rather than runs pods
func IsNetworkKind(kind string) bool {
	return kind == "service" || kind == "ingress"
}

// apiPath builds the REST path of a namespaced collection or object
func apiPath(gvr schema.GroupVersionResource, namespace, name string) string {
	var b strings.Builder
	if gvr.Group == "" {
		b.WriteString("/api/" + gvr.Version)
	} else {
		b.WriteString("/apis/" + gvr.Group + "/" + gvr.Version)
	}
	if namespace != "" {
		b.WriteString("/namespaces/" + namespace)
	}
	b.WriteString("/" + gvr.Resource)
	if name != "" {
		b.WriteString("/" + name)
	}
	return b.String()
}
