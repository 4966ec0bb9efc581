package services

import (
	"testing"
	"time"

	"kubeops-dashboard/internal/apperr"
	"kubeops-dashboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuth(t *testing.T, env *testEnv) *AuthService {
	t.Helper()
	svc := NewAuthService(env.store, "test-secret", time.Hour, zap.NewNop())
	require.NoError(t, svc.EnsureUser("admin", "admin123"))
	return svc
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuth(t, env)

	tok, err := svc.Login("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 3600, tok.ExpiresIn)

	user, err := svc.Authenticate(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	for _, tt := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"ghost", "admin123"},
	} {
		_, err := svc.Login(tt.user, tt.pass)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.Unauthenticated))
		assert.Equal(t, "Invalid username or password", err.Error())
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuth(t, env)

	require.NoError(t, svc.EnsureUser("admin", "another-password"))

	// the original password still works
	_, err := svc.Login("admin", "admin123")
	assert.NoError(t, err)
}

func TestAuthenticateRejects(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuth(t, env)

	require.NoError(t, env.store.CreateUser(&models.User{Username: "retired", HashedPassword: "x", IsActive: false}))

	expired := func() string {
		past := NewAuthService(env.store, "test-secret", time.Minute, zap.NewNop())
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		tok, err := past.issue("admin")
		require.NoError(t, err)
		return tok
	}

	foreign := func() string {
		other := NewAuthService(env.store, "other-secret", time.Hour, zap.NewNop())
		tok, err := other.issue("admin")
		require.NoError(t, err)
		return tok
	}

	unsigned := func() string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		return tok
	}

	mustIssue := func(subject string) string {
		tok, err := svc.issue(subject)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name  string
		token string
		kind  apperr.Kind
	}{
		{"empty", "", apperr.Unauthenticated},
		{"garbage", "not-a-token", apperr.Unauthenticated},
		{"expired", expired(), apperr.Unauthenticated},
		{"wrong secret", foreign(), apperr.Unauthenticated},
		{"alg none", unsigned(), apperr.Unauthenticated},
		{"unknown user", mustIssue("ghost"), apperr.Unauthenticated},
		{"empty subject", mustIssue(""), apperr.Unauthenticated},
		{"inactive user", mustIssue("retired"), apperr.Forbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(tt.token)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.True(t, IsAuthError(err))
		})
	}
}
