package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kubeops-dashboard/internal/analyzer"
	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/config"
	"kubeops-dashboard/internal/handlers"
	"kubeops-dashboard/internal/logger"
	"kubeops-dashboard/internal/models"
	"kubeops-dashboard/internal/services"
	"kubeops-dashboard/internal/store"
	"kubeops-dashboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("KUBEOPS_CONFIG"), "path to settings YAML file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "kubeops-dashboard: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Level:      settings.LogLevel,
		JSON:       settings.LogJSON,
		File:       settings.LogFile,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting",
		zap.String("app", settings.AppName),
		zap.String("environment", settings.Environment),
		zap.Bool("mock_data", settings.UseMockData),
	)

	st, err := store.Open(settings.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := telemetry.New()

	registry := collector.NewRegistry(collector.RegistryOptions{
		UseMock:           settings.UseMockData,
		K8sTimeout:        settings.K8sTimeout(),
		PrometheusTimeout: settings.PrometheusTimeout(),
		Observer:          metrics,
	}, log)

	targets := services.NewTargetResolver(models.ConnectionTarget{
		APIURL:        settings.K8sAPIURL,
		BearerToken:   settings.K8sBearerToken,
		PrometheusURL: settings.PrometheusURL,
		VerifySSL:     settings.K8sVerifySSL,
	}, st, registry)

	alerts := services.NewAlertService(targets, log)
	overview := services.NewOverviewService(targets, alerts, log)
	audit := services.NewAuditService(st, log)
	auth := services.NewAuthService(st, settings.SecretKey, settings.AccessTokenTTL(), log)
	clusters := services.NewClusterService(st, targets, log)

	if err := auth.EnsureUser(settings.DefaultAdminUsername, settings.DefaultAdminPassword); err != nil {
		return fmt.Errorf("creating default user: %w", err)
	}

	seeds, err := config.LoadClusterSeeds(settings.ClusterConfigPath)
	if err != nil {
		return err
	}
	if err := clusters.Seed(seeds); err != nil {
		return fmt.Errorf("seeding clusters: %w", err)
	}

	adapter, err := analyzer.NewAdapter(settings.LLMProvider)
	if err != nil {
		return err
	}
	analysis := services.NewAnalysisService(st, analyzer.NewRuleEngine(), adapter, settings.EnableLLM, metrics, log)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	analysis.Start(workerCtx, settings.AnalysisWorkers)

	recorder := services.NewSnapshotRecorder(st, st, targets, overview, settings.SnapshotRetention(), metrics, log)
	if err := recorder.Start(settings.SnapshotSchedule); err != nil {
		return err
	}

	if settings.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterOptions{
		APIPrefix:      settings.APIPrefix,
		CORSOrigins:    settings.CORSOrigins,
		StreamInterval: settings.StreamInterval(),
		Ping:           st.Ping,
	}, handlers.Services{
		Auth:      auth,
		Targets:   targets,
		Overview:  overview,
		Snapshots: recorder,
		Metrics:   services.NewMetricsService(targets),
		Resources: services.NewResourceService(targets, audit, log),
		Alerts:    alerts,
		Audit:     audit,
		Clusters:  clusters,
		Analysis:  analysis,
	}, metrics, log)

	// WriteTimeout stays zero so the overview websocket is not cut off
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", settings.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}

	recorder.Stop()
	stopWorkers()
	analysis.Wait()

	log.Info("server exited")
	return nil
}
