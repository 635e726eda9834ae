package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
)

func newAuditMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAuditRecordsResourceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := repository.NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), nil, models.AuditActionPrivilegeGrant, "teacher_privileges", "teacher-1",
			nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := gin.New()
	r.PUT("/teachers/:id/privileges",
		Audit(repo, models.AuditActionPrivilegeGrant, "teacher_privileges"),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/teachers/teacher-1/privileges", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, cleanup := newAuditMock(t)
	defer cleanup()
	repo := repository.NewUserRepository(db)

	r := gin.New()
	r.PUT("/teachers/:id/privileges",
		Audit(repo, models.AuditActionPrivilegeGrant, "teacher_privileges"),
		func(c *gin.Context) { c.Status(http.StatusForbidden) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/teachers/teacher-1/privileges", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
