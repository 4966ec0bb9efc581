package handlers

import (
	"context"
	"net/http"
	"time"

	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"
	"kubeops-dashboard/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// APIHandler serves the read and action endpoints of the dashboard
type APIHandler struct {
	overview  *services.OverviewService
	snapshots *services.SnapshotRecorder
	metrics   *services.MetricsService
	resources *services.ResourceService
	alerts    *services.AlertService
	audit     *services.AuditService
	analysis  *services.AnalysisService
	log       *zap.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(svc Services, log *zap.Logger) *APIHandler {
	return &APIHandler{
		overview:  svc.Overview,
		snapshots: svc.Snapshots,
		metrics:   svc.Metrics,
		resources: svc.Resources,
		alerts:    svc.Alerts,
		audit:     svc.Audit,
		analysis:  svc.Analysis,
		log:       log,
	}
}

type clusterQuery struct {
	ClusterID string `form:"cluster_id"`
}

type historyQuery struct {
	ClusterID string `form:"cluster_id"`
	Hours     int    `form:"hours,default=24" binding:"min=1,max=168"`
	Latest    int    `form:"latest" binding:"min=0,max=1000"`
}

type timeseriesQuery struct {
	Metric       string `form:"metric,default=cpu_usage"`
	RangeMinutes int    `form:"range_minutes,default=60" binding:"min=5,max=1440"`
	StepSeconds  int    `form:"step_seconds,default=60" binding:"min=15,max=3600"`
	Namespace    string `form:"namespace"`
	Workload     string `form:"workload"`
	ClusterID    string `form:"cluster_id"`
}

type resourceURI struct {
	Kind string `uri:"kind" binding:"required"`
	Name string `uri:"name"`
}

type listQuery struct {
	Namespace     string `form:"namespace"`
	LabelSelector string `form:"label_selector"`
	Status        string `form:"status"`
	ClusterID     string `form:"cluster_id"`
}

type detailQuery struct {
	Namespace    string `form:"namespace" binding:"required"`
	RangeMinutes int    `form:"range_minutes,default=10" binding:"min=5,max=120"`
	StepSeconds  int    `form:"step_seconds,default=30" binding:"min=15,max=300"`
	ClusterID    string `form:"cluster_id"`
}

type logsQuery struct {
	Namespace string `form:"namespace" binding:"required"`
	LogLines  int    `form:"log_lines,default=120" binding:"min=10,max=2000"`
	ClusterID string `form:"cluster_id"`
}

type scaleRequest struct {
	Namespace string `json:"namespace" binding:"required"`
	Replicas  *int   `json:"replicas" binding:"required,min=0"`
	ClusterID string `json:"cluster_id"`
}

type restartRequest struct {
	Namespace string `json:"namespace" binding:"required"`
	ClusterID string `json:"cluster_id"`
}

type alertsQuery struct {
	Namespace string `form:"namespace"`
	Limit     int    `form:"limit,default=50" binding:"min=1,max=200"`
	ClusterID string `form:"cluster_id"`
}

type auditQuery struct {
	Limit     int    `form:"limit,default=50" binding:"min=1,max=500"`
	Offset    int    `form:"offset,default=0" binding:"min=0"`
	Action    string `form:"action"`
	Kind      string `form:"kind"`
	Namespace string `form:"namespace"`
}

type taskURI struct {
	ID uint `uri:"id" binding:"required"`
}

func withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// GetSummary returns the health summary of a cluster
func (h *APIHandler) GetSummary(c *gin.Context) {
	var q clusterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	summary, err := h.overview.Summary(ctx, q.ClusterID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetHistory returns recorded summary snapshots, oldest first. latest=N
// switches from the hours window to the N newest rows.
func (h *APIHandler) GetHistory(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	var snapshots []models.MetricSnapshot
	var err error
	if q.Latest > 0 {
		snapshots, err = h.snapshots.Latest(c.Request.Context(), q.ClusterID, q.Latest)
	} else {
		snapshots, err = h.snapshots.History(c.Request.Context(), q.ClusterID, q.Hours)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// GetTimeseries returns the raw and merged series of a semantic metric
func (h *APIHandler) GetTimeseries(c *gin.Context) {
	var q timeseriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	resp, err := h.metrics.Timeseries(ctx, q.ClusterID, collector.TimeseriesQuery{
		Metric:       q.Metric,
		RangeMinutes: q.RangeMinutes,
		StepSeconds:  q.StepSeconds,
		Namespace:    q.Namespace,
		Workload:     q.Workload,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListResources returns normalized objects of one kind
func (h *APIHandler) ListResources(c *gin.Context) {
	var uri resourceURI
	var q listQuery
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.resources.List(ctx, q.ClusterID, uri.Kind, q.Namespace, q.LabelSelector, q.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetResourceDetail returns the view, manifest, events and metrics of one object
func (h *APIHandler) GetResourceDetail(c *gin.Context) {
	var uri resourceURI
	var q detailQuery
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	detail, err := h.resources.Detail(ctx, q.ClusterID, uri.Kind, uri.Name, q.Namespace, q.RangeMinutes, q.StepSeconds)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetResourceLogs returns the log tail of an object's pod
func (h *APIHandler) GetResourceLogs(c *gin.Context) {
	var uri resourceURI
	var q logsQuery
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	logs, err := h.resources.Logs(ctx, q.ClusterID, uri.Kind, uri.Name, q.Namespace, q.LogLines)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ScaleResource sets the replica count of a controller
func (h *APIHandler) ScaleResource(c *gin.Context) {
	var uri resourceURI
	var req scaleRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	result, err := h.resources.Scale(ctx, currentUserID(c), req.ClusterID, uri.Kind, uri.Name, req.Namespace, *req.Replicas)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RolloutRestart restarts the pods of a controller
func (h *APIHandler) RolloutRestart(c *gin.Context) {
	var uri resourceURI
	var req restartRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	result, err := h.resources.RolloutRestart(ctx, currentUserID(c), req.ClusterID, uri.Kind, uri.Name, req.Namespace)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAlerts returns the merged alert feed
func (h *APIHandler) GetAlerts(c *gin.Context) {
	var q alertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	alerts, err := h.alerts.Alerts(ctx, q.ClusterID, q.Namespace, q.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// GetAuditLogs pages through the audit trail
func (h *APIHandler) GetAuditLogs(c *gin.Context) {
	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	list, err := h.audit.List(models.AuditFilter{
		Action:    q.Action,
		Kind:      q.Kind,
		Namespace: q.Namespace,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Analyze queues an analysis task
func (h *APIHandler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.analysis.Submit(req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": view.TaskID,
		"status":  view.Status,
	})
}

// GetTask polls an analysis task
func (h *APIHandler) GetTask(c *gin.Context) {
	var uri taskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.analysis.Get(uri.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
