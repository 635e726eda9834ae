package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type stubAssignmentStore struct {
	exists       bool
	existsErr    error
	created      []*models.TeacherAssignment
	createErr    error
	removeErr    error
	reassigned   int
	reassignErr  error
	enrollments  []models.EnrollmentDetail
	listByT      []models.TeacherAssignmentDetail
	removedIDs   []string
	reassignArgs []string
}

func (s *stubAssignmentStore) Exists(_ context.Context, _, _, _ string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *stubAssignmentStore) FindByID(_ context.Context, _ string) (*models.TeacherAssignment, error) {
	return nil, sql.ErrNoRows
}

func (s *stubAssignmentStore) ListByTeacher(_ context.Context, _ string) ([]models.TeacherAssignmentDetail, error) {
	return s.listByT, nil
}

func (s *stubAssignmentStore) Create(_ context.Context, assignment *models.TeacherAssignment) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, assignment)
	return nil
}

func (s *stubAssignmentStore) Remove(_ context.Context, id string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removedIDs = append(s.removedIDs, id)
	return nil
}

func (s *stubAssignmentStore) ReassignStudentClass(_ context.Context, studentID, classID string) (int, error) {
	if s.reassignErr != nil {
		return 0, s.reassignErr
	}
	s.reassignArgs = append(s.reassignArgs, studentID, classID)
	return s.reassigned, nil
}

func (s *stubAssignmentStore) ListEnrollments(_ context.Context, _ string) ([]models.EnrollmentDetail, error) {
	return s.enrollments, nil
}

type stubSubjectReader struct {
	subjects map[string]*models.Subject
}

func (s *stubSubjectReader) FindByID(_ context.Context, id string) (*models.Subject, error) {
	if subject, ok := s.subjects[id]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

type stubClassReader struct {
	classes map[string]*models.Class
}

func (s *stubClassReader) FindByID(_ context.Context, id string) (*models.Class, error) {
	if class, ok := s.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

type stubTeacherReader struct {
	teachers map[string]*models.Teacher
}

func (s *stubTeacherReader) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := s.teachers[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type stubStudentReader struct {
	students map[string]*models.Student
}

func (s *stubStudentReader) FindByID(_ context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func newAssignmentFixture() (*stubAssignmentStore, *AssignmentService, *recordingAuthorizer, *stubAuditor) {
	store := &stubAssignmentStore{}
	access := &recordingAuthorizer{}
	audit := &stubAuditor{}
	subjects := &stubSubjectReader{subjects: map[string]*models.Subject{
		"subject-1": {ID: "subject-1", Name: "Mathematics", ClassID: "class-1"},
		"subject-2": {ID: "subject-2", Name: "Physics", ClassID: "class-2"},
	}}
	classes := &stubClassReader{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "10", Section: "A"},
		"class-2": {ID: "class-2", Name: "10", Section: "B"},
	}}
	teachers := &stubTeacherReader{teachers: map[string]*models.Teacher{
		"teacher-1": {ID: "teacher-1", UserID: "user-t1", FullName: "Teacher One"},
	}}
	students := &stubStudentReader{students: map[string]*models.Student{
		"student-1": {ID: "student-1", UserID: "user-s1", FullName: "Student One"},
	}}
	svc := NewAssignmentService(access, store, subjects, classes, teachers, students, audit, nil, zap.NewNop())
	return store, svc, access, audit
}

func TestAssignmentServiceAssign(t *testing.T) {
	store, svc, access, audit := newAssignmentFixture()

	assignment, err := svc.Assign(context.Background(), adminActor(), AssignRequest{
		TeacherID: "teacher-1", ClassID: "class-1", SubjectID: "subject-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
	assert.Equal(t, "admin-1", assignment.AssignedBy)
	require.Len(t, store.created, 1)

	require.Len(t, access.actions, 1)
	assert.Equal(t, models.Capability(""), access.actions[0].Capability)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAssignmentEdit, audit.logs[0].Action)
}

func TestAssignmentServiceAssignUnknownTeacher(t *testing.T) {
	_, svc, _, _ := newAssignmentFixture()

	_, err := svc.Assign(context.Background(), adminActor(), AssignRequest{
		TeacherID: "missing", ClassID: "class-1", SubjectID: "subject-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceAssignSubjectOutsideClass(t *testing.T) {
	store, svc, _, _ := newAssignmentFixture()

	_, err := svc.Assign(context.Background(), adminActor(), AssignRequest{
		TeacherID: "teacher-1", ClassID: "class-1", SubjectID: "subject-2",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestAssignmentServiceAssignDuplicate(t *testing.T) {
	store, svc, _, _ := newAssignmentFixture()
	store.exists = true

	_, err := svc.Assign(context.Background(), adminActor(), AssignRequest{
		TeacherID: "teacher-1", ClassID: "class-1", SubjectID: "subject-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestAssignmentServiceAssignLostRace(t *testing.T) {
	store, svc, _, _ := newAssignmentFixture()
	store.createErr = &pq.Error{Code: "23505"}

	_, err := svc.Assign(context.Background(), adminActor(), AssignRequest{
		TeacherID: "teacher-1", ClassID: "class-1", SubjectID: "subject-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceUnassign(t *testing.T) {
	store, svc, _, _ := newAssignmentFixture()

	require.NoError(t, svc.Unassign(context.Background(), adminActor(), "assignment-1"))
	assert.Equal(t, []string{"assignment-1"}, store.removedIDs)

	store.removeErr = sql.ErrNoRows
	err := svc.Unassign(context.Background(), adminActor(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceReassignStudentClass(t *testing.T) {
	store, svc, access, audit := newAssignmentFixture()
	store.reassigned = 4

	result, err := svc.ReassignStudentClass(context.Background(), adminActor(), "student-1", ReassignRequest{ClassID: "class-2"})
	require.NoError(t, err)
	assert.Equal(t, 4, result.EnrolledCount)
	assert.Equal(t, "class-2", result.ClassID)
	assert.Equal(t, []string{"student-1", "class-2"}, store.reassignArgs)

	require.Len(t, access.actions, 1)
	assert.Equal(t, models.CapEditStudents, access.actions[0].Capability)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionClassReassign, audit.logs[0].Action)
}

func TestAssignmentServiceReassignUnknownClass(t *testing.T) {
	store, svc, _, _ := newAssignmentFixture()

	_, err := svc.ReassignStudentClass(context.Background(), adminActor(), "student-1", ReassignRequest{ClassID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.reassignArgs)
}

func TestAssignmentServiceReassignUnknownStudent(t *testing.T) {
	store, svc, _, _ := newAssignmentFixture()
	store.reassignErr = sql.ErrNoRows

	_, err := svc.ReassignStudentClass(context.Background(), adminActor(), "missing", ReassignRequest{ClassID: "class-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceListEnrollmentsSelfAccess(t *testing.T) {
	store, svc, access, _ := newAssignmentFixture()
	store.enrollments = []models.EnrollmentDetail{
		{StudentEnrollment: models.StudentEnrollment{StudentID: "student-1", SubjectID: "subject-1"}, SubjectName: "Mathematics", ClassID: "class-1"},
	}

	actor := Actor{UserID: "user-s1", Role: models.RoleStudent}
	enrollments, err := svc.ListEnrollments(context.Background(), actor, "student-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	// The gate is asked with the record owner so it can match the actor.
	require.Len(t, access.actions, 1)
	assert.Equal(t, "user-s1", access.actions[0].OwnerUserID)
}
