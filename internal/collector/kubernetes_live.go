package collector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
)

const maxLogErrorLen = 240

// LiveKubernetes reaches a real API server with a bearer token
type LiveKubernetes struct {
	dynamic    dynamic.Interface
	httpClient *http.Client
	host       string
	timeout    time.Duration
}

// NewLiveKubernetes builds clients for the target's API server
func NewLiveKubernetes(target models.ConnectionTarget, timeout time.Duration) (*LiveKubernetes, error) {
	if target.APIURL == "" {
		return nil, apperr.InvalidArgumentf("k8s api url is required for live mode")
	}

	cfg := &rest.Config{
		Host:        target.APIURL,
		BearerToken: target.BearerToken,
		Timeout:     timeout,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: !target.VerifySSL,
		},
	}

	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	httpClient, err := rest.HTTPClientFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &LiveKubernetes{
		dynamic:    dyn,
		httpClient: httpClient,
		host:       strings.TrimRight(target.APIURL, "/"),
		timeout:    timeout,
	}, nil
}

func (l *LiveKubernetes) Mode() string { return "real" }

func (l *LiveKubernetes) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// ListNodes returns all nodes
func (l *LiveKubernetes) ListNodes(ctx context.Context) ([]models.RawObject, error) {
	return l.list(ctx, nodesGVR, "", metav1.ListOptions{}, "list nodes")
}

// ListPods returns pods in namespace, or in all namespaces when empty
func (l *LiveKubernetes) ListPods(ctx context.Context, namespace string) ([]models.RawObject, error) {
	return l.list(ctx, podsGVR, namespace, metav1.ListOptions{}, "list pods")
}

// ListEvents returns events in namespace, or in all namespaces when empty
func (l *LiveKubernetes) ListEvents(ctx context.Context, namespace string) ([]models.RawObject, error) {
	return l.list(ctx, eventsGVR, namespace, metav1.ListOptions{}, "list events")
}

// ListResources lists one supported kind with an optional key=value selector
func (l *LiveKubernetes) ListResources(ctx context.Context, kind, namespace, labelSelector string) ([]models.RawObject, error) {
	info, err := LookupKind(kind)
	if err != nil {
		return nil, err
	}

	opts := metav1.ListOptions{}
	if sel, ok := parseEqualitySelector(labelSelector); ok {
		opts.LabelSelector = sel.String()
	}
	return l.list(ctx, info.GVR, namespace, opts, "list "+info.GVR.Resource)
}

func (l *LiveKubernetes) list(ctx context.Context, gvr schema.GroupVersionResource, namespace string, opts metav1.ListOptions, op string) ([]models.RawObject, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	var (
		list *unstructured.UnstructuredList
		err  error
	)
	if namespace != "" {
		list, err = l.dynamic.Resource(gvr).Namespace(namespace).List(ctx, opts)
	} else {
		list, err = l.dynamic.Resource(gvr).List(ctx, opts)
	}
	if err != nil {
		return nil, mapK8sError(err, op)
	}
	return itemsOf(list), nil
}

// GetResource fetches a single namespaced object
func (l *LiveKubernetes) GetResource(ctx context.Context, kind, name, namespace string) (models.RawObject, error) {
	info, err := LookupKind(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	obj, err := l.dynamic.Resource(info.GVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, mapK8sError(err, fmt.Sprintf("get %s %s/%s", kind, namespace, name))
	}
	return obj.Object, nil
}

// Scale merge-patches the scale subresource
func (l *LiveKubernetes) Scale(ctx context.Context, kind, name, namespace string, replicas int) error {
	info, err := LookupScalableKind(kind)
	if err != nil {
		return err
	}

	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{"replicas": replicas},
	})
	if err != nil {
		return err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	_, err = l.dynamic.Resource(info.GVR).Namespace(namespace).
		Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{}, "scale")
	if err != nil {
		return mapK8sError(err, fmt.Sprintf("scale %s %s/%s", kind, namespace, name))
	}
	return nil
}

// RolloutRestart stamps the restartedAt annotation on the pod template
func (l *LiveKubernetes) RolloutRestart(ctx context.Context, kind, name, namespace string) error {
	info, err := LookupScalableKind(kind)
	if err != nil {
		return err
	}

	patch, err := restartPatch(time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	_, err = l.dynamic.Resource(info.GVR).Namespace(namespace).
		Patch(ctx, name, types.StrategicMergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return mapK8sError(err, fmt.Sprintf("restart %s %s/%s", kind, namespace, name))
	}
	return nil
}

// PodLogs fetches the tail of a pod's log. A 406 is retried once with a
// wildcard Accept header; other failures are reported as one log line.
func (l *LiveKubernetes) PodLogs(ctx context.Context, name, namespace string, tailLines int) ([]string, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	q := url.Values{}
	q.Set("tailLines", strconv.Itoa(tailLines))
	endpoint := l.host + apiPath(podsGVR, namespace, name) + "/log?" + q.Encode()

	status, body, err := l.get(ctx, endpoint, "application/json")
	if err == nil && status == http.StatusNotAcceptable {
		status, body, err = l.get(ctx, endpoint, "*/*")
	}
	if err != nil {
		return nil, mapK8sError(err, "fetch pod logs")
	}

	if status < 200 || status > 299 {
		return []string{fmt.Sprintf("Unable to load logs (HTTP %d): %s", status, extractErrorMessage(body))}, nil
	}
	return splitLines(body), nil
}

func (l *LiveKubernetes) get(ctx context.Context, endpoint, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", accept)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func restartPatch(now time.Time) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{
					"annotations": map[string]string{
						RestartedAtAnnotation: now.UTC().Format(time.RFC3339),
					},
				},
			},
		},
	})
}

func itemsOf(list *unstructured.UnstructuredList) []models.RawObject {
	out := make([]models.RawObject, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, list.Items[i].Object)
	}
	return out
}

func splitLines(body []byte) []string {
	lines := make([]string, 0)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// extractErrorMessage pulls a human readable message out of an error body
func extractErrorMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "detail", "error", "reason"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return truncate(strings.TrimSpace(s), maxLogErrorLen)
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response body"
	}
	first, _, _ := strings.Cut(text, "\n")
	return truncate(strings.TrimSpace(first), maxLogErrorLen)
}

// truncate keeps at most n characters, never splitting a rune
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// mapK8sError converts client-go failures into apperr kinds
func mapK8sError(err error, op string) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) || apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err) {
		return apperr.Wrap(apperr.Timeout, err, "%s timed out", op)
	}
	if apierrors.IsNotFound(err) {
		return apperr.Wrap(apperr.NotFound, err, "%s", op)
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		st := status.Status()
		return &apperr.Error{
			Kind:       apperr.Upstream,
			StatusCode: int(st.Code),
			Message:    fmt.Sprintf("%s: %s", op, st.Message),
			Err:        err,
		}
	}
	return apperr.Wrap(apperr.Upstream, err, "%s", op)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
