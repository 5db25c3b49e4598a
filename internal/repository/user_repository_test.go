package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlearn/student-portal-api/internal/models"
)

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password", "full_name", "role", "active", "last_login", "created_at", "updated_at"}).
		AddRow("u1", "student@example.com", "$2a$10$hash", "Student One", "STUDENT", true, nil, time.Now(), time.Now())
}

func TestUserRepositoryFindByEmailAndRole(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password, full_name, role, active, last_login, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1) AND role = $2 LIMIT 1")).
		WithArgs("student@example.com", models.RoleStudent).
		WillReturnRows(userRows())

	user, err := repo.FindByEmailAndRole(context.Background(), "student@example.com", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailAndRoleNotFound(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT id, email, password").
		WithArgs("ghost@example.com", models.RoleStudent).
		WillReturnError(sql.ErrNoRows)

	user, err := repo.FindByEmailAndRole(context.Background(), "ghost@example.com", models.RoleStudent)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateCredential(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("u1", "$2a$10$newhash", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateCredential(context.Background(), "u1", "$2a$10$newhash", now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	err := repo.CreateRefreshToken(context.Background(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRevokeUserRefreshTokens(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.RevokeUserRefreshTokens(context.Background(), "u1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	entry := &models.AuditLog{UserID: &userID, Action: models.AuditActionLogin, Resource: "auth"}
	err := repo.CreateAuditLog(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
