package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/orbitlearn/student-portal-api/internal/models"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	user              *models.User
	findErr           error
	refreshTokens     map[string]*models.RefreshToken
	createRefreshErr  error
	updatedCredential string
	auditLogs         []*models.AuditLog
	lastLoginUpdated  bool
	revokedAll        bool
}

func (m *mockAuthRepo) FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.Role != role {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdateCredential(ctx context.Context, id, hash string, updatedAt time.Time) error {
	m.updatedCredential = hash
	if m.user != nil && m.user.ID == id {
		m.user.Credential = hash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "test",
	})
}

func auditActions(logs []*models.AuditLog) []string {
	actions := make([]string, 0, len(logs))
	for _, log := range logs {
		actions = append(actions, log.Action)
	}
	return actions
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Email: "s@example.com", Credential: string(hash), Active: true, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "password", Role: "STUDENT"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "u1", res.User.ID)
	assert.True(t, repo.lastLoginUpdated)
	assert.Contains(t, auditActions(repo.auditLogs), models.AuditActionLogin)
	// hashed credential stays untouched
	assert.Empty(t, repo.updatedCredential)
}

func TestAuthServiceLoginLegacyCredentialUpgraded(t *testing.T) {
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Email: "s@example.com", Credential: "password", Active: true, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "password", Role: "STUDENT"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	require.NotEmpty(t, repo.updatedCredential)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updatedCredential), []byte("password")))
	assert.Contains(t, auditActions(repo.auditLogs), models.AuditActionCredentialFix)
}

func TestAuthServiceLoginLegacyCredentialWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Email: "s@example.com", Credential: "password", Active: true, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "wrong", Role: "STUDENT"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updatedCredential)
}

func TestAuthServiceLoginWrongRole(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Email: "s@example.com", Credential: string(hash), Active: true, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "password", Role: "COACH"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Email: "s@example.com", Credential: string(hash), Active: false, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "password", Role: "STUDENT"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Email: "s@example.com", Credential: string(hash), Active: true, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "password", Role: "STUDENT"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceRefreshExpired(t *testing.T) {
	repo := &mockAuthRepo{
		user: &models.User{ID: "u1", Active: true, Role: models.RoleStudent},
		refreshTokens: map[string]*models.RefreshToken{
			"old": {ID: "rt1", UserID: "u1", Token: "old", ExpiresAt: time.Now().Add(-time.Hour)},
		},
	}
	svc := newAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordLegacyOldPassword(t *testing.T) {
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Credential: "plaintext", Active: true, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "plaintext", NewPassword: "stronger"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updatedCredential), []byte("stronger")))
	assert.True(t, repo.revokedAll)
	assert.Contains(t, auditActions(repo.auditLogs), models.AuditActionPasswordChange)
}

func TestAuthServiceValidateToken(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{user: &models.User{ID: "u1", Email: "s@example.com", FullName: "Student", Credential: string(hash), Active: true, Role: models.RoleStudent}}
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.com", Password: "password", Role: "STUDENT"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	_, err = svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
