package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type stubStudentLister struct {
	students []models.StudentDetail
	filters  []models.StudentFilter
}

func (s *stubStudentLister) List(_ context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	s.filters = append(s.filters, filter)
	return s.students, len(s.students), nil
}

type stubTeacherLister struct {
	teachers []models.TeacherDetail
}

func (s *stubTeacherLister) List(_ context.Context, _ models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	return s.teachers, len(s.teachers), nil
}

type stubSummaryReader struct {
	summary []models.AttendanceSummary
}

func (s *stubSummaryReader) StudentSummary(_ context.Context, _ string, _, _ time.Time) ([]models.AttendanceSummary, error) {
	return s.summary, nil
}

func newReportFixture() (*stubStudentLister, *ReportService) {
	className := "10"
	section := "A"
	students := &stubStudentLister{students: []models.StudentDetail{
		{
			Student:   models.Student{ID: "student-1", AdmissionNumber: "ADM-001", FullName: "Student One"},
			ClassName: &className,
			Section:   &section,
			Status:    models.StatusActive,
		},
		{
			Student: models.Student{ID: "student-2", AdmissionNumber: "ADM-002", FullName: "Student Two"},
			Status:  models.StatusSuspended,
		},
	}}
	teachers := &stubTeacherLister{teachers: []models.TeacherDetail{
		{Teacher: models.Teacher{ID: "teacher-1", FullName: "Teacher One"}, Status: models.StatusActive},
	}}
	attendance := &stubSummaryReader{summary: []models.AttendanceSummary{
		{EntityID: "student-1", EntityName: "Student One", PresentDays: 18, AbsentDays: 2, Percentage: 90},
	}}
	svc := NewReportService(&recordingAuthorizer{}, students, teachers, attendance, nil, 500, zap.NewNop())
	return students, svc
}

func TestReportServiceStudentRosterCSV(t *testing.T) {
	students, svc := newReportFixture()

	report, err := svc.StudentRoster(context.Background(), adminActor(), "class-1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "student_roster.csv", report.Filename)
	assert.Equal(t, "text/csv", report.ContentType)

	body := string(report.Body)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Admission No,Full Name,Class,Section,Status", lines[0])
	assert.Equal(t, "ADM-001,Student One,10,A,active", lines[1])
	assert.Equal(t, "ADM-002,Student Two,,,suspended", lines[2])

	require.Len(t, students.filters, 1)
	assert.Equal(t, "class-1", students.filters[0].ClassID)
	assert.Equal(t, 500, students.filters[0].PageSize)
}

func TestReportServiceTeacherRosterPDF(t *testing.T) {
	_, svc := newReportFixture()

	report, err := svc.TeacherRoster(context.Background(), adminActor(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "teacher_roster.pdf", report.Filename)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, strings.HasPrefix(string(report.Body), "%PDF"))
}

func TestReportServiceClassAttendanceCSV(t *testing.T) {
	_, svc := newReportFixture()

	report, err := svc.ClassAttendance(context.Background(), adminActor(), "class-1",
		AttendanceRange{From: "2026-08-01", To: "2026-08-28"}, FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(report.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student,Present,Absent,Percentage", lines[0])
	assert.Equal(t, "Student One,18,2,90.0%", lines[1])
}

func TestReportServiceUnknownFormat(t *testing.T) {
	_, svc := newReportFixture()

	_, err := svc.StudentRoster(context.Background(), adminActor(), "", ReportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceDeniedActor(t *testing.T) {
	students := &stubStudentLister{}
	access := &recordingAuthorizer{deny: appErrors.Clone(appErrors.ErrForbidden, "students may only read their own records")}
	svc := NewReportService(access, students, &stubTeacherLister{}, &stubSummaryReader{}, nil, 0, zap.NewNop())

	_, err := svc.StudentRoster(context.Background(), Actor{UserID: "user-s1", Role: models.RoleStudent}, "", FormatCSV)
	require.Error(t, err)
	assert.Empty(t, students.filters)
}
