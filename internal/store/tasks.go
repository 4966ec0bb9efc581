package store

import (
	"encoding/json"

	"kubeops-dashboard/internal/models"
)

// CreateTask inserts a pending analysis task
func (s *Store) CreateTask(task *models.AITask) error {
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	return s.db.Create(task).Error
}

// GetTask returns one analysis task
func (s *Store) GetTask(id uint) (*models.AITask, error) {
	var task models.AITask
	if err := s.db.First(&task, id).Error; err != nil {
		return nil, notFound(err, "task %d not found", id)
	}
	return &task, nil
}

// UpdateTaskStatus moves a task to status, optionally storing a result or error
func (s *Store) UpdateTaskStatus(id uint, status string, result json.RawMessage, errMsg string) error {
	updates := map[string]interface{}{"status": status}
	if result != nil {
		updates["result_payload"] = result
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}

	res := s.db.Model(&models.AITask{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gormNotFound, "task %d not found", id)
	}
	return nil
}
