package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"kubeops-dashboard/internal/collector"
	"kubeops-dashboard/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	overviewAlertLimit = 100
	topNamespaceLimit  = 5
)

// OverviewService computes cluster health summaries
type OverviewService struct {
	targets *TargetResolver
	alerts  *AlertService
	log     *zap.Logger
	now     func() time.Time
}

func NewOverviewService(targets *TargetResolver, alerts *AlertService, log *zap.Logger) *OverviewService {
	return &OverviewService{targets: targets, alerts: alerts, log: log, now: time.Now}
}

// Summary resolves clusterID and builds its summary
func (s *OverviewService) Summary(ctx context.Context, clusterID string) (*models.ClusterSummary, error) {
	target, err := s.targets.Resolve(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	return s.SummaryFor(ctx, target)
}

// SummaryFor fetches nodes, pods, alerts, usage and top namespaces in
// parallel and folds them into one summary
func (s *OverviewService) SummaryFor(ctx context.Context, target models.ConnectionTarget) (*models.ClusterSummary, error) {
	k8s, prom, err := s.targets.BackendsFor(target)
	if err != nil {
		return nil, err
	}

	var (
		nodes  []models.RawObject
		pods   []models.RawObject
		alerts *models.AlertList
		usage  models.ClusterUsage
		topNS  []models.NamespaceUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if nodes, err = k8s.ListNodes(gctx); err != nil {
			return fmt.Errorf("listing nodes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if pods, err = k8s.ListPods(gctx, ""); err != nil {
			return fmt.Errorf("listing pods: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		alerts, err = s.alerts.Derive(gctx, k8s, prom, "", overviewAlertLimit)
		return err
	})
	g.Go(func() error {
		var err error
		if usage, err = prom.ClusterUsage(gctx); err != nil {
			return fmt.Errorf("reading cluster usage: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if topNS, err = prom.NamespaceUsage(gctx, topNamespaceLimit); err != nil {
			return fmt.Errorf("reading namespace usage: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &models.ClusterSummary{
		ClusterID:           target.ClusterID,
		GeneratedAt:         s.now().UTC(),
		NodesTotal:          len(nodes),
		PodsTotal:           len(pods),
		CPUUsageCores:       usage.CPUUsageCores,
		CPUCapacityCores:    usage.CPUCapacityCores,
		MemoryUsageBytes:    usage.MemoryUsageBytes,
		MemoryCapacityBytes: usage.MemoryCapacityBytes,
		AlertsCount:         alerts.Total,
		TopNamespaces:       topNS,
	}

	for _, raw := range nodes {
		if collector.DecodeNode(raw).Ready() {
			summary.NodesReady++
		}
	}

	// crashloop and OOM are tallied per container
	for _, raw := range pods {
		pod := collector.DecodeWorkload(raw)
		if pod.Phase() == "Pending" {
			summary.PodsPending++
		}
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.WaitingReason() == "CrashLoopBackOff" {
				summary.PodsCrashloop++
			}
			if cs.LastTerminationReason() == "OOMKilled" {
				summary.PodsOOMKilled++
			}
		}
	}

	summary.RiskScore = RiskScore(summary)
	return summary, nil
}

// RiskScore is the composite health score in [0, 100], rounded to 2 decimals
func RiskScore(s *models.ClusterSummary) float64 {
	score := 0.0
	if s.NodesTotal > 0 {
		score += float64(s.NodesTotal-s.NodesReady) / float64(s.NodesTotal) * 35
	}
	if s.PodsTotal > 0 {
		score += float64(s.PodsPending) / float64(s.PodsTotal) * 15
		score += float64(s.PodsCrashloop+s.PodsOOMKilled) / float64(s.PodsTotal) * 35
	}
	score += math.Min(float64(s.AlertsCount*3), 15)
	score = math.Min(score, 100)
	return math.Round(score*100) / 100
}
