package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"kubeops-dashboard/internal/analyzer"
	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"
	"kubeops-dashboard/internal/telemetry"

	"go.uber.org/zap"
)

const (
	defaultAnalysisCluster = "cluster-local"
	defaultAnalysisWindow  = 30
	analysisQueueSize      = 64
)

// AnalysisService persists analysis requests and runs them on a bounded
// worker pool. Task status only moves pending -> running -> completed|failed.
type AnalysisService struct {
	tasks      TaskStore
	engine     *analyzer.RuleEngine
	adapter    analyzer.LLMAdapter
	llmEnabled bool
	metrics    *telemetry.Metrics
	log        *zap.Logger

	queue chan uint
	wg    sync.WaitGroup
}

func NewAnalysisService(tasks TaskStore, engine *analyzer.RuleEngine, adapter analyzer.LLMAdapter, llmEnabled bool, metrics *telemetry.Metrics, log *zap.Logger) *AnalysisService {
	return &AnalysisService{
		tasks:      tasks,
		engine:     engine,
		adapter:    adapter,
		llmEnabled: llmEnabled,
		metrics:    metrics,
		log:        log,
		queue:      make(chan uint, analysisQueueSize),
	}
}

// Start launches workers that drain the queue until ctx is cancelled
func (s *AnalysisService) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func(id int) {
			defer s.wg.Done()
			s.log.Debug("analysis worker started", zap.Int("worker", id))
			for {
				select {
				case <-ctx.Done():
					return
				case taskID := <-s.queue:
					s.Process(ctx, taskID)
				}
			}
		}(i)
	}
}

// Wait blocks until every worker has returned
func (s *AnalysisService) Wait() { s.wg.Wait() }

// Submit stores a pending task and queues it. A full queue fails the task
// immediately instead of blocking the caller.
func (s *AnalysisService) Submit(req models.AnalyzeRequest) (*models.AITaskView, error) {
	if req.ClusterID == "" {
		req.ClusterID = defaultAnalysisCluster
	}
	if req.TimeWindowMinutes == 0 {
		req.TimeWindowMinutes = defaultAnalysisWindow
	}
	if req.TimeWindowMinutes < 5 || req.TimeWindowMinutes > 1440 {
		return nil, apperr.InvalidArgumentf("time_window_minutes must be between 5 and 1440")
	}
	if req.Metrics == nil {
		req.Metrics = []models.MetricInput{}
	}
	if req.Events == nil {
		req.Events = []models.EventInput{}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}
	task := &models.AITask{Status: models.TaskPending, RequestPayload: payload}
	if err := s.tasks.CreateTask(task); err != nil {
		return nil, err
	}

	select {
	case s.queue <- task.ID:
	default:
		s.log.Warn("analysis queue full", zap.Uint("task_id", task.ID))
		s.finish(task.ID, models.TaskFailed, nil, "analysis queue is full")
		return s.Get(task.ID)
	}
	return toTaskView(task)
}

// Get returns the current state of a task
func (s *AnalysisService) Get(id uint) (*models.AITaskView, error) {
	task, err := s.tasks.GetTask(id)
	if err != nil {
		return nil, err
	}
	return toTaskView(task)
}

// Process runs one task to a terminal status. Failures, including panics,
// are recorded on the task and never returned.
func (s *AnalysisService) Process(ctx context.Context, id uint) {
	if err := s.tasks.UpdateTaskStatus(id, models.TaskRunning, nil, ""); err != nil {
		s.log.Error("failed to mark task running", zap.Uint("task_id", id), zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("analysis task panicked", zap.Uint("task_id", id), zap.Any("panic", r))
			s.finish(id, models.TaskFailed, nil, fmt.Sprint(r))
		}
	}()

	result, err := s.run(ctx, id)
	if err != nil {
		s.finish(id, models.TaskFailed, nil, err.Error())
		return
	}
	s.finish(id, models.TaskCompleted, result, "")
}

func (s *AnalysisService) run(ctx context.Context, id uint) (json.RawMessage, error) {
	task, err := s.tasks.GetTask(id)
	if err != nil {
		return nil, err
	}

	var req models.AnalyzeRequest
	if err := json.Unmarshal(task.RequestPayload, &req); err != nil {
		return nil, fmt.Errorf("decoding analysis request: %w", err)
	}

	result := s.engine.Analyze(req.Metrics, req.Events)
	if s.llmEnabled && s.adapter != nil {
		enriched, err := s.adapter.EnrichRecommendations(ctx, result.Recommendations, req)
		if err != nil {
			return nil, fmt.Errorf("enriching recommendations: %w", err)
		}
		result.Recommendations = enriched
	}

	return json.Marshal(result)
}

func (s *AnalysisService) finish(id uint, status string, result json.RawMessage, errMsg string) {
	if err := s.tasks.UpdateTaskStatus(id, status, result, errMsg); err != nil {
		s.log.Error("failed to store task outcome", zap.Uint("task_id", id), zap.String("status", status), zap.Error(err))
		return
	}
	s.metrics.AnalysisFinished(status)
	s.log.Info("analysis task finished", zap.Uint("task_id", id), zap.String("status", status))
}

func toTaskView(task *models.AITask) (*models.AITaskView, error) {
	view := &models.AITaskView{
		TaskID:    task.ID,
		Status:    task.Status,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
		Error:     task.Error,
	}
	if len(task.ResultPayload) > 0 {
		var result models.AnalysisResult
		if err := json.Unmarshal(task.ResultPayload, &result); err != nil {
			return nil, fmt.Errorf("decoding task result: %w", err)
		}
		view.Result = &result
	}
	return view, nil
}
