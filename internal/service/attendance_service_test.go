package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type stubAttendanceStore struct {
	studentMarks []*models.AttendanceRecord
	teacherMarks []*models.AttendanceRecord
	details      []models.AttendanceDetail
	summary      []models.AttendanceSummary
	roster       []models.Student
	listArgs     []time.Time
}

func (s *stubAttendanceStore) MarkStudent(_ context.Context, record *models.AttendanceRecord) error {
	s.studentMarks = append(s.studentMarks, record)
	return nil
}

func (s *stubAttendanceStore) MarkTeacher(_ context.Context, record *models.AttendanceRecord) error {
	s.teacherMarks = append(s.teacherMarks, record)
	return nil
}

func (s *stubAttendanceStore) ListStudent(_ context.Context, _ string, from, to time.Time) ([]models.AttendanceDetail, error) {
	s.listArgs = append(s.listArgs, from, to)
	return s.details, nil
}

func (s *stubAttendanceStore) ListTeacher(_ context.Context, _ string, from, to time.Time) ([]models.AttendanceDetail, error) {
	s.listArgs = append(s.listArgs, from, to)
	return s.details, nil
}

func (s *stubAttendanceStore) StudentSummary(_ context.Context, _ string, _, _ time.Time) ([]models.AttendanceSummary, error) {
	return s.summary, nil
}

func (s *stubAttendanceStore) ClassRoster(_ context.Context, _ string) ([]models.Student, error) {
	return s.roster, nil
}

type stubClassChecker struct {
	assigned map[string]bool
	calls    int
}

func (s *stubClassChecker) TeacherAssignedToClass(_ context.Context, teacherID, classID string) (bool, error) {
	s.calls++
	return s.assigned[teacherID+"/"+classID], nil
}

func newAttendanceFixture() (*stubAttendanceStore, *stubClassChecker, *recordingAuthorizer, *AttendanceService) {
	store := &stubAttendanceStore{}
	checker := &stubClassChecker{assigned: map[string]bool{}}
	access := &recordingAuthorizer{}
	classID := "class-1"
	students := &stubStudentReader{students: map[string]*models.Student{
		"student-1": {ID: "student-1", UserID: "user-s1", ClassID: &classID},
	}}
	svc := NewAttendanceService(access, store, students, checker, nil, zap.NewNop())
	return store, checker, access, svc
}

func TestAttendanceServiceTeacherMarksOwnClassFreely(t *testing.T) {
	store, checker, access, svc := newAttendanceFixture()
	checker.assigned["teacher-1/class-1"] = true

	actor := Actor{UserID: "user-t1", Role: models.RoleTeacher, TeacherID: "teacher-1"}
	err := svc.MarkStudent(context.Background(), actor, "student-1", MarkAttendanceRequest{Date: "2026-08-28", Status: models.AttendancePresent})
	require.NoError(t, err)

	require.Len(t, store.studentMarks, 1)
	assert.Equal(t, models.AttendancePresent, store.studentMarks[0].Status)
	assert.Equal(t, 1, checker.calls)
	// The gate is bypassed entirely for a teacher marking their own class.
	assert.Empty(t, access.actions)
}

func TestAttendanceServiceTeacherOutsideClassNeedsCapability(t *testing.T) {
	store, checker, access, svc := newAttendanceFixture()
	checker.assigned["teacher-2/class-1"] = false
	access.deny = appErrors.Clone(appErrors.ErrForbidden, "missing required privilege")

	actor := Actor{UserID: "user-t2", Role: models.RoleTeacher, TeacherID: "teacher-2"}
	err := svc.MarkStudent(context.Background(), actor, "student-1", MarkAttendanceRequest{Date: "2026-08-28", Status: models.AttendanceAbsent})
	require.Error(t, err)
	assert.Empty(t, store.studentMarks)

	require.Len(t, access.actions, 1)
	assert.Equal(t, models.CapEditAttendance, access.actions[0].Capability)
}

func TestAttendanceServiceMarkStudentValidation(t *testing.T) {
	store, _, _, svc := newAttendanceFixture()

	err := svc.MarkStudent(context.Background(), adminActor(), "student-1", MarkAttendanceRequest{Date: "28-08-2026", Status: models.AttendancePresent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.MarkStudent(context.Background(), adminActor(), "student-1", MarkAttendanceRequest{Date: "2026-08-28", Status: models.AttendanceStatus("late")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.studentMarks)
}

func TestAttendanceServiceMarkStudentUnknownStudent(t *testing.T) {
	_, _, _, svc := newAttendanceFixture()

	err := svc.MarkStudent(context.Background(), adminActor(), "missing", MarkAttendanceRequest{Date: "2026-08-28", Status: models.AttendancePresent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkTeacherIsAdminOnly(t *testing.T) {
	store, _, access, svc := newAttendanceFixture()

	require.NoError(t, svc.MarkTeacher(context.Background(), adminActor(), "teacher-1", MarkAttendanceRequest{Date: "2026-08-28", Status: models.AttendancePresent}))
	require.Len(t, store.teacherMarks, 1)

	require.Len(t, access.actions, 1)
	assert.Equal(t, models.Capability(""), access.actions[0].Capability)
}

func TestAttendanceServiceListStudentSelfRead(t *testing.T) {
	store, _, access, svc := newAttendanceFixture()
	store.details = []models.AttendanceDetail{{EntityName: "Student One"}}

	actor := Actor{UserID: "user-s1", Role: models.RoleStudent}
	records, err := svc.ListStudent(context.Background(), actor, "student-1", AttendanceRange{From: "2026-08-01", To: "2026-08-28"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Len(t, access.actions, 1)
	assert.Equal(t, "user-s1", access.actions[0].OwnerUserID)
}

func TestAttendanceServiceRejectsInvertedRange(t *testing.T) {
	_, _, _, svc := newAttendanceFixture()

	_, err := svc.ListStudent(context.Background(), adminActor(), "student-1", AttendanceRange{From: "2026-08-28", To: "2026-08-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceClassSummary(t *testing.T) {
	store, _, _, svc := newAttendanceFixture()
	store.summary = []models.AttendanceSummary{{EntityID: "student-1", PresentDays: 18, AbsentDays: 2, Percentage: 90}}

	summary, err := svc.ClassSummary(context.Background(), adminActor(), "class-1", AttendanceRange{From: "2026-08-01", To: "2026-08-28"})
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 90.0, summary[0].Percentage)
}

func TestAttendanceServiceRoster(t *testing.T) {
	store, _, access, svc := newAttendanceFixture()
	store.roster = []models.Student{{ID: "student-1"}, {ID: "student-2"}}

	roster, err := svc.Roster(context.Background(), adminActor(), "class-1")
	require.NoError(t, err)
	assert.Len(t, roster, 2)
	require.Len(t, access.actions, 1)
	assert.Equal(t, ActionRead, access.actions[0].Kind)
}

func TestAttendanceServiceRosterDenied(t *testing.T) {
	_, _, access, svc := newAttendanceFixture()
	access.deny = appErrors.Clone(appErrors.ErrForbidden, "insufficient privileges")

	_, err := svc.Roster(context.Background(), Actor{UserID: "user-s1", Role: models.RoleStudent}, "class-1")
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}
