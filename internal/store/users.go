package store

import (
	"kubeops-dashboard/internal/models"
)

// GetUserByUsername returns the account or a NotFound error
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user %s not found", username)
	}
	return &user, nil
}

// CreateUser inserts a new account
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}
