package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sekolahku/admin-api/internal/models"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type stubAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	createdTokens []*models.RefreshToken
	revokedIDs    []string
	revokedAllFor []string
	auditLogs     []*models.AuditLog
	lastLoginFor  []string
	passwordFor   map[string]string
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		passwordFor:   map[string]string{},
	}
}

func (s *stubAuthRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubAuthRepo) UpdateLastLogin(_ context.Context, id string, _ time.Time) error {
	s.lastLoginFor = append(s.lastLoginFor, id)
	return nil
}

func (s *stubAuthRepo) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	s.passwordFor[id] = passwordHash
	return nil
}

func (s *stubAuthRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	s.revokedAllFor = append(s.revokedAllFor, userID)
	return nil
}

func (s *stubAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.refreshTokens[token.Token] = token
	s.createdTokens = append(s.createdTokens, token)
	return nil
}

func (s *stubAuthRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.refreshTokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubAuthRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	s.revokedIDs = append(s.revokedIDs, id)
	return nil
}

func (s *stubAuthRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

type stubStatusResolver struct {
	studentStatus models.EntityStatus
	teacherStatus models.EntityStatus
}

func (s *stubStatusResolver) EffectiveStudentStatus(_ context.Context, _ string) (models.EntityStatus, error) {
	return s.studentStatus, nil
}

func (s *stubStatusResolver) EffectiveTeacherStatus(_ context.Context, _ string) (models.EntityStatus, error) {
	return s.teacherStatus, nil
}

type stubTeacherByUser struct {
	teachers map[string]*models.Teacher
}

func (s *stubTeacherByUser) FindByUserID(_ context.Context, userID string) (*models.Teacher, error) {
	if teacher, ok := s.teachers[userID]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type stubStudentByUser struct {
	students map[string]*models.Student
}

func (s *stubStudentByUser) FindByUserID(_ context.Context, userID string) (*models.Student, error) {
	if student, ok := s.students[userID]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "sekolahku-admin-api",
	}
}

func newAuthFixture(t *testing.T) (*stubAuthRepo, *stubStatusResolver, *stubTeacherByUser, *stubStudentByUser, *AuthService) {
	repo := newStubAuthRepo()
	statuses := &stubStatusResolver{studentStatus: models.StatusActive, teacherStatus: models.StatusActive}
	teachers := &stubTeacherByUser{teachers: map[string]*models.Teacher{}}
	students := &stubStudentByUser{students: map[string]*models.Student{}}
	svc := NewAuthService(repo, statuses, teachers, students, nil, zap.NewNop(), testAuthConfig())
	return repo, statuses, teachers, students, svc
}

func TestAuthServiceLogin(t *testing.T) {
	repo, _, _, _, svc := newAuthFixture(t)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Username:     "admin",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleAdmin,
		Active:       true,
	}

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret123", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "admin", resp.User.Username)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	require.Len(t, repo.createdTokens, 1)
	assert.Equal(t, "10.0.0.1", repo.createdTokens[0].IPAddress)
	assert.Equal(t, []string{"user-1"}, repo.lastLoginFor)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo, _, _, _, svc := newAuthFixture(t)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Username:     "admin",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleAdmin,
		Active:       true,
	}

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo, _, _, _, svc := newAuthFixture(t)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Username:     "admin",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleAdmin,
		Active:       false,
	}

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginSuspendedStudent(t *testing.T) {
	repo, statuses, _, students, svc := newAuthFixture(t)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Username:     "student1",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleStudent,
		Active:       true,
	}
	students.students["user-1"] = &models.Student{ID: "student-1", UserID: "user-1"}
	statuses.studentStatus = models.StatusSuspended

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "student1", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "suspended")
	assert.Empty(t, repo.createdTokens)
}

func TestAuthServiceLoginRetiredTeacher(t *testing.T) {
	repo, statuses, teachers, _, svc := newAuthFixture(t)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Username:     "teacher1",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleTeacher,
		Active:       true,
	}
	teachers.teachers["user-1"] = &models.Teacher{ID: "teacher-1", UserID: "user-1"}
	statuses.teacherStatus = models.StatusRetired

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "teacher1", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.createdTokens)
}

func TestAuthServiceRefreshTokenRotation(t *testing.T) {
	repo, _, _, _, svc := newAuthFixture(t)
	repo.users["user-1"] = &models.User{ID: "user-1", Username: "admin", Role: models.RoleAdmin, Active: true}
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Equal(t, []string{"rt-1"}, repo.revokedIDs)
	require.Len(t, repo.createdTokens, 1)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo, _, _, _, svc := newAuthFixture(t)
	repo.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo, _, _, _, svc := newAuthFixture(t)
	repo.refreshTokens["tok"] = &models.RefreshToken{ID: "rt-1", UserID: "user-1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}

	err := svc.Logout(context.Background(), "tok", "user-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "tok", "user-1"))
	assert.Equal(t, []string{"rt-1"}, repo.revokedIDs)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo, _, _, _, svc := newAuthFixture(t)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Username:     "admin",
		PasswordHash: hashPassword(t, "oldpass"),
		Role:         models.RoleAdmin,
		Active:       true,
	}

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpass123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpass123"}))
	assert.NotEmpty(t, repo.passwordFor["user-1"])
	// All sessions drop with the old password.
	assert.Equal(t, []string{"user-1"}, repo.revokedAllFor)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	_, _, _, _, svc := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
