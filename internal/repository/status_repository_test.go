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

	"github.com/sekolahku/admin-api/internal/models"
)

func newStatusMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func strPtr(s string) *string { return &s }

func TestStatusRepositoryUpsertStudent(t *testing.T) {
	db, mock, cleanup := newStatusMock(t)
	defer cleanup()
	repo := NewStatusRepository(db)

	mock.ExpectExec("INSERT INTO student_status").
		WithArgs("student-1", models.StatusSuspended, strPtr("disciplinary review"), strPtr("admin-1"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &models.StatusRecord{
		EntityID:  "student-1",
		Status:    models.StatusSuspended,
		Reason:    strPtr("disciplinary review"),
		ChangedBy: strPtr("admin-1"),
	}
	require.NoError(t, repo.UpsertStudent(context.Background(), record))
	assert.False(t, record.ChangedAt.IsZero())

	// A second transition against the same student hits the same upsert and
	// overwrites the row in place.
	mock.ExpectExec("INSERT INTO student_status").
		WithArgs("student-1", models.StatusActive, (*string)(nil), strPtr("admin-1"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertStudent(context.Background(), &models.StatusRecord{
		EntityID:  "student-1",
		Status:    models.StatusActive,
		ChangedBy: strPtr("admin-1"),
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRepositoryUpsertTeacher(t *testing.T) {
	db, mock, cleanup := newStatusMock(t)
	defer cleanup()
	repo := NewStatusRepository(db)

	mock.ExpectExec("INSERT INTO teacher_status").
		WithArgs("teacher-1", models.StatusOnLeave, strPtr("sabbatical"), strPtr("admin-1"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertTeacher(context.Background(), &models.StatusRecord{
		EntityID:  "teacher-1",
		Status:    models.StatusOnLeave,
		Reason:    strPtr("sabbatical"),
		ChangedBy: strPtr("admin-1"),
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRepositoryGetStudent(t *testing.T) {
	db, mock, cleanup := newStatusMock(t)
	defer cleanup()
	repo := NewStatusRepository(db)

	changedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"entity_id", "status", "reason", "changed_by", "changed_at"}).
		AddRow("student-1", "suspended", "disciplinary review", "admin-1", changedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id AS entity_id, status, reason, changed_by, changed_at FROM student_status WHERE student_id = $1 LIMIT 1")).
		WithArgs("student-1").
		WillReturnRows(rows)

	record, err := repo.GetStudent(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, record.Status)
	require.NotNil(t, record.Reason)
	assert.Equal(t, "disciplinary review", *record.Reason)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id AS entity_id, status, reason, changed_by, changed_at FROM student_status WHERE student_id = $1 LIMIT 1")).
		WithArgs("student-2").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetStudent(context.Background(), "student-2")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRepositoryEffectiveStudentStatus(t *testing.T) {
	db, mock, cleanup := newStatusMock(t)
	defer cleanup()
	repo := NewStatusRepository(db)

	// Student with no ledger row reads as active via the COALESCE.
	mock.ExpectQuery("SELECT COALESCE\\(ss.status, 'active'\\)").
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("active"))

	status, err := repo.EffectiveStudentStatus(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, status)

	mock.ExpectQuery("SELECT COALESCE\\(ss.status, 'active'\\)").
		WithArgs("student-2").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("removed"))

	status, err = repo.EffectiveStudentStatus(context.Background(), "student-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRemoved, status)

	// No row at all means the student itself does not exist.
	mock.ExpectQuery("SELECT COALESCE\\(ss.status, 'active'\\)").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.EffectiveStudentStatus(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRepositoryEffectiveTeacherStatus(t *testing.T) {
	db, mock, cleanup := newStatusMock(t)
	defer cleanup()
	repo := NewStatusRepository(db)

	mock.ExpectQuery("SELECT COALESCE\\(ts.status, 'active'\\)").
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("retired"))

	status, err := repo.EffectiveTeacherStatus(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRetired, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
