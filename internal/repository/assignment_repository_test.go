package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/admin-api/internal/models"
)

func newAssignmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3 LIMIT 1")).
		WithArgs("teacher-1", "class-1", "subject-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "teacher-1", "class-1", "subject-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3 LIMIT 1")).
		WithArgs("teacher-1", "class-2", "subject-1").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.Exists(context.Background(), "teacher-1", "class-2", "subject-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryTeacherAssignedToClass(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 LIMIT 1")).
		WithArgs("teacher-1", "class-1").
		WillReturnError(sql.ErrNoRows)

	assigned, err := repo.TeacherAssignedToClass(context.Background(), "teacher-1", "class-1")
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateRepointsSubject(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teacher_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET teacher_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("subject-1", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assignment := &models.TeacherAssignment{
		TeacherID:  "teacher-1",
		ClassID:    "class-1",
		SubjectID:  "subject-1",
		AssignedBy: "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.AssignedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateRollsBackOnPointerFailure(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teacher_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET teacher_id = $2, updated_at = $3 WHERE id = $1")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.TeacherAssignment{
		TeacherID: "teacher-1",
		ClassID:   "class-1",
		SubjectID: "subject-1",
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryRemoveRepointsToRemainingTeacher(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT subject_id FROM teacher_assignments WHERE id = $1")).
		WithArgs("assignment-1").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}).AddRow("subject-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_assignments WHERE id = $1")).
		WithArgs("assignment-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id FROM teacher_assignments WHERE subject_id = $1 ORDER BY assigned_at DESC, id DESC LIMIT 1")).
		WithArgs("subject-1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow("teacher-2"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET teacher_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("subject-1", "teacher-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Remove(context.Background(), "assignment-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryRemoveClearsPointerWhenNoneRemain(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT subject_id FROM teacher_assignments WHERE id = $1")).
		WithArgs("assignment-1").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}).AddRow("subject-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_assignments WHERE id = $1")).
		WithArgs("assignment-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id FROM teacher_assignments WHERE subject_id = $1 ORDER BY assigned_at DESC, id DESC LIMIT 1")).
		WithArgs("subject-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET teacher_id = NULL, updated_at = $2 WHERE id = $1")).
		WithArgs("subject-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Remove(context.Background(), "assignment-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryRemoveUnknownAssignment(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT subject_id FROM teacher_assignments WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Remove(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReassignStudentClass(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET class_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("student-1", "class-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_subjects WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects WHERE class_id = $1 ORDER BY name ASC")).
		WithArgs("class-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("subject-1").AddRow("subject-2"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)")).
		WithArgs("student-1", "subject-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)")).
		WithArgs("student-1", "subject-2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrolled, err := repo.ReassignStudentClass(context.Background(), "student-1", "class-2")
	require.NoError(t, err)
	assert.Equal(t, 2, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReassignStudentClassEmptyClass(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET class_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("student-1", "class-3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_subjects WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects WHERE class_id = $1 ORDER BY name ASC")).
		WithArgs("class-3").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	enrolled, err := repo.ReassignStudentClass(context.Background(), "student-1", "class-3")
	require.NoError(t, err)
	assert.Equal(t, 0, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReassignStudentClassUnknownStudent(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET class_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("missing", "class-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ReassignStudentClass(context.Background(), "missing", "class-2")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReassignStudentClassRollsBackOnEnrollFailure(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET class_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("student-1", "class-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_subjects WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects WHERE class_id = $1 ORDER BY name ASC")).
		WithArgs("class-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("subject-1"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)")).
		WithArgs("student-1", "subject-1").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.ReassignStudentClass(context.Background(), "student-1", "class-2")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListEnrollments(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "subject_id", "subject_name", "class_id"}).
		AddRow("student-1", "subject-1", "Mathematics", "class-1").
		AddRow("student-1", "subject-2", "Physics", "class-1")
	mock.ExpectQuery("SELECT sts.student_id, sts.subject_id").
		WithArgs("student-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListEnrollments(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, "Mathematics", enrollments[0].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
