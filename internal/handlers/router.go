package handlers

import (
	"net/http"
	"time"

	"kubeops-dashboard/internal/services"
	"kubeops-dashboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Services groups everything the HTTP surface calls into
type Services struct {
	Auth      *services.AuthService
	Targets   *services.TargetResolver
	Overview  *services.OverviewService
	Snapshots *services.SnapshotRecorder
	Metrics   *services.MetricsService
	Resources *services.ResourceService
	Alerts    *services.AlertService
	Audit     *services.AuditService
	Clusters  *services.ClusterService
	Analysis  *services.AnalysisService
}

// RouterOptions carries the settings the router needs
type RouterOptions struct {
	APIPrefix      string
	CORSOrigins    []string
	StreamInterval time.Duration
	Ping           func() error
}

// NewRouter builds the gin engine with every route and wraps it in CORS
func NewRouter(opts RouterOptions, svc Services, metrics *telemetry.Metrics, log *zap.Logger) http.Handler {
	router := gin.New()
	router.Use(requestIDMiddleware(), accessLogMiddleware(log, metrics), recoveryMiddleware(log))

	apiHandler := NewAPIHandler(svc, log)
	authHandler := NewAuthHandler(svc.Auth, log)
	clusterHandler := NewClusterHandler(svc.Clusters, log)
	streamHandler := NewStreamHandler(svc, opts.StreamInterval, opts.CORSOrigins, metrics, log)

	router.GET("/healthz", healthz(opts.Ping))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ws/overview", streamHandler.Overview)

	api := router.Group(opts.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("", authMiddleware(svc.Auth, log))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/overview/summary", apiHandler.GetSummary)
		protected.GET("/overview/history", apiHandler.GetHistory)
		protected.GET("/metrics/timeseries", apiHandler.GetTimeseries)

		protected.GET("/resources/:kind", apiHandler.ListResources)
		protected.GET("/resources/:kind/:name/detail", apiHandler.GetResourceDetail)
		protected.GET("/resources/:kind/:name/logs", apiHandler.GetResourceLogs)
		protected.POST("/resources/:kind/:name/scale", apiHandler.ScaleResource)
		protected.POST("/resources/:kind/:name/rollout-restart", apiHandler.RolloutRestart)

		protected.GET("/alerts", apiHandler.GetAlerts)
		protected.GET("/audit/logs", apiHandler.GetAuditLogs)

		protected.GET("/clusters", clusterHandler.List)
		protected.POST("/clusters", clusterHandler.Create)
		protected.POST("/clusters/test", clusterHandler.TestProbe)
		protected.PUT("/clusters/:id", clusterHandler.Update)
		protected.DELETE("/clusters/:id", clusterHandler.Delete)
		protected.POST("/clusters/:id/test", clusterHandler.TestStored)

		protected.POST("/ai/analyze", apiHandler.Analyze)
		protected.GET("/ai/tasks/:id", apiHandler.GetTask)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

func healthz(ping func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
