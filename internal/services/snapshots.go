package services

import (
	"context"
	"math"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"
	"kubeops-dashboard/internal/telemetry"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultHistoryHours = 24
	maxHistoryHours     = 168
	maxLatestSnapshots  = 1000
	snapshotTimeout     = 30 * time.Second
)

// SnapshotRecorder periodically stores one summary snapshot per target
// and serves them back as history
type SnapshotRecorder struct {
	snapshots SnapshotStore
	clusters  ClusterStore
	targets   *TargetResolver
	overview  *OverviewService
	retention time.Duration
	metrics   *telemetry.Metrics
	log       *zap.Logger
	now       func() time.Time

	cron *cron.Cron
}

func NewSnapshotRecorder(snapshots SnapshotStore, clusters ClusterStore, targets *TargetResolver, overview *OverviewService, retention time.Duration, metrics *telemetry.Metrics, log *zap.Logger) *SnapshotRecorder {
	return &SnapshotRecorder{
		snapshots: snapshots,
		clusters:  clusters,
		targets:   targets,
		overview:  overview,
		retention: retention,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Start schedules RecordAll on spec, a standard cron expression or @every descriptor
func (r *SnapshotRecorder) Start(spec string) error {
	r.cron = cron.New()
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		r.RecordAll(ctx)
	})
	if err != nil {
		return apperr.Wrap(apperr.InvalidArgument, err, "invalid snapshot schedule %q", spec)
	}
	r.cron.Start()
	r.log.Info("snapshot recorder started", zap.String("schedule", spec))
	return nil
}

// Stop halts the schedule and waits for a running job to finish
func (r *SnapshotRecorder) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RecordAll snapshots the default target and every active profile, then
// prunes rows past the retention window. One failing target does not stop the rest.
func (r *SnapshotRecorder) RecordAll(ctx context.Context) int {
	targets := []models.ConnectionTarget{r.targets.Defaults()}
	profiles, err := r.clusters.ListActiveClusters()
	if err != nil {
		r.log.Warn("listing active clusters failed", zap.Error(err))
	}
	for i := range profiles {
		targets = append(targets, r.targets.FromProfile(&profiles[i]))
	}

	recorded := 0
	for _, target := range targets {
		err := r.record(ctx, target)
		r.metrics.SnapshotRecorded(target.ClusterID, err)
		if err != nil {
			r.log.Warn("snapshot failed", zap.String("cluster", target.ClusterID), zap.Error(err))
			continue
		}
		recorded++
	}

	removed, err := r.snapshots.CleanupOldSnapshots(r.now().UTC().Add(-r.retention))
	if err != nil {
		r.log.Warn("snapshot cleanup failed", zap.Error(err))
	} else if removed > 0 {
		r.log.Debug("pruned snapshots", zap.Int64("removed", removed))
	}
	return recorded
}

func (r *SnapshotRecorder) record(ctx context.Context, target models.ConnectionTarget) error {
	summary, err := r.overview.SummaryFor(ctx, target)
	if err != nil {
		return err
	}
	snap := &models.MetricSnapshot{
		Cluster:     target.ClusterID,
		CPUUsage:    percent(summary.CPUUsageCores, summary.CPUCapacityCores),
		MemoryUsage: percent(summary.MemoryUsageBytes, summary.MemoryCapacityBytes),
		PodCount:    summary.PodsTotal,
		NodeCount:   summary.NodesTotal,
		NodesReady:  summary.NodesReady,
		AlertsCount: summary.AlertsCount,
		RiskScore:   summary.RiskScore,
		Timestamp:   summary.GeneratedAt,
	}
	return r.snapshots.SaveSnapshot(snap)
}

// History returns snapshots of clusterID from the last hours, oldest first.
// An empty cluster id reads the default target.
func (r *SnapshotRecorder) History(ctx context.Context, clusterID string, hours int) ([]models.MetricSnapshot, error) {
	if hours == 0 {
		hours = defaultHistoryHours
	}
	if hours < 1 || hours > maxHistoryHours {
		return nil, apperr.InvalidArgumentf("hours must be between 1 and %d", maxHistoryHours)
	}
	target, err := r.targets.Resolve(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	since := r.now().UTC().Add(-time.Duration(hours) * time.Hour)
	rows, err := r.snapshots.GetSnapshots(target.ClusterID, since)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.MetricSnapshot{}
	}
	return rows, nil
}

// Latest returns the n most recent snapshots of a target regardless of age,
// oldest first
func (r *SnapshotRecorder) Latest(ctx context.Context, clusterID string, n int) ([]models.MetricSnapshot, error) {
	if n < 1 || n > maxLatestSnapshots {
		return nil, apperr.InvalidArgumentf("latest must be between 1 and %d", maxLatestSnapshots)
	}
	target, err := r.targets.Resolve(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	rows, err := r.snapshots.GetLatestSnapshots(target.ClusterID, n)
	if err != nil {
		return nil, err
	}
	out := make([]models.MetricSnapshot, len(rows))
	for i := range rows {
		out[len(rows)-1-i] = rows[i]
	}
	return out, nil
}

func percent(used, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Round(used/capacity*10000) / 100
}
