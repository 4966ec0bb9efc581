package services

import (
	"errors"
	"fmt"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuthService issues and verifies HS256 bearer tokens for dashboard users
type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, secret string, ttl time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl, log: log, now: time.Now}
}

// Login checks the password and issues a token whose subject is the username
func (s *AuthService) Login(username, password string) (*TokenResponse, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, apperr.New(apperr.Unauthenticated, "Invalid username or password")
	}

	token, err := s.issue(user.Username)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.ttl.Seconds()),
	}, nil
}

func (s *AuthService) issue(subject string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Authenticate resolves a bearer token to its user. Invalid or expired
// tokens and unknown users are Unauthenticated; inactive users are Forbidden.
func (s *AuthService) Authenticate(token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.New(apperr.Unauthenticated, "Could not validate credentials")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return nil, apperr.Wrap(apperr.Unauthenticated, err, "Could not validate credentials")
	}

	user, err := s.users.GetUserByUsername(claims.Subject)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.New(apperr.Unauthenticated, "Could not validate credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.Forbidden, "User is inactive")
	}
	return user, nil
}

// EnsureUser creates an active account when username does not exist yet
func (s *AuthService) EnsureUser(username, password string) error {
	_, err := s.users.GetUserByUsername(username)
	if err == nil {
		return nil
	}
	if !apperr.IsNotFound(err) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.CreateUser(&models.User{Username: username, HashedPassword: string(hash), IsActive: true}); err != nil {
		return err
	}
	s.log.Info("default user created", zap.String("username", username))
	return nil
}

// IsAuthError reports whether err should end the request with 401/403
func IsAuthError(err error) bool {
	var e *apperr.Error
	return errors.As(err, &e) && (e.Kind == apperr.Unauthenticated || e.Kind == apperr.Forbidden)
}
