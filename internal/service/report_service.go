package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
	"github.com/sekolahku/admin-api/pkg/export"
)

type reportStudentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

type reportTeacherLister interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
}

type reportAttendanceReader interface {
	StudentSummary(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceSummary, error)
}

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	FormatCSV ReportFormat = "csv"
	FormatPDF ReportFormat = "pdf"
)

// Report is a rendered export with its content type and filename.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService renders roster and attendance exports synchronously.
type ReportService struct {
	access      authorizer
	students    reportStudentLister
	teachers    reportTeacherLister
	attendance  reportAttendanceReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	metrics     *MetricsService
	maxPageSize int
	logger      *zap.Logger
}

// NewReportService constructs a ReportService. The metrics service may be nil.
func NewReportService(access authorizer, students reportStudentLister, teachers reportTeacherLister, attendance reportAttendanceReader, metrics *MetricsService, maxPageSize int, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPageSize <= 0 {
		maxPageSize = 1000
	}
	return &ReportService{
		access:      access,
		students:    students,
		teachers:    teachers,
		attendance:  attendance,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		metrics:     metrics,
		maxPageSize: maxPageSize,
		logger:      logger,
	}
}

// StudentRoster exports the student roster, optionally scoped to a class.
func (s *ReportService) StudentRoster(ctx context.Context, actor Actor, classID string, format ReportFormat) (*Report, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	start := time.Now()
	students, _, err := s.students.List(ctx, models.StudentFilter{ClassID: classID, Page: 1, PageSize: s.maxPageSize})
	if err != nil {
		return nil, storeError(err, "failed to load students")
	}
	s.metrics.ObserveDBQuery("report_student_roster", time.Since(start))

	data := export.Dataset{
		Headers: []string{"Admission No", "Full Name", "Class", "Section", "Status"},
	}
	for _, st := range students {
		className, section := "", ""
		if st.ClassName != nil {
			className = *st.ClassName
		}
		if st.Section != nil {
			section = *st.Section
		}
		data.Rows = append(data.Rows, map[string]string{
			"Admission No": st.AdmissionNumber,
			"Full Name":    st.FullName,
			"Class":        className,
			"Section":      section,
			"Status":       string(st.Status),
		})
	}
	return s.render("student_roster", "Student Roster", data, format)
}

// TeacherRoster exports the teacher roster with effective status.
func (s *ReportService) TeacherRoster(ctx context.Context, actor Actor, format ReportFormat) (*Report, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	start := time.Now()
	teachers, _, err := s.teachers.List(ctx, models.TeacherFilter{Page: 1, PageSize: s.maxPageSize})
	if err != nil {
		return nil, storeError(err, "failed to load teachers")
	}
	s.metrics.ObserveDBQuery("report_teacher_roster", time.Since(start))

	data := export.Dataset{
		Headers: []string{"NIP", "Full Name", "Expertise", "Status"},
	}
	for _, t := range teachers {
		nip, expertise := "", ""
		if t.NIP != nil {
			nip = *t.NIP
		}
		if t.Expertise != nil {
			expertise = *t.Expertise
		}
		data.Rows = append(data.Rows, map[string]string{
			"NIP":       nip,
			"Full Name": t.FullName,
			"Expertise": expertise,
			"Status":    string(t.Status),
		})
	}
	return s.render("teacher_roster", "Teacher Roster", data, format)
}

// ClassAttendance exports the per-student attendance summary of one class.
func (s *ReportService) ClassAttendance(ctx context.Context, actor Actor, classID string, rng AttendanceRange, format ReportFormat) (*Report, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}
	from, err := time.Parse(attendanceDateLayout, rng.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid range start")
	}
	to, err := time.Parse(attendanceDateLayout, rng.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid range end")
	}

	start := time.Now()
	summary, err := s.attendance.StudentSummary(ctx, classID, from, to)
	if err != nil {
		return nil, storeError(err, "failed to summarise attendance")
	}
	s.metrics.ObserveDBQuery("report_class_attendance", time.Since(start))

	data := export.Dataset{
		Headers: []string{"Student", "Present", "Absent", "Percentage"},
	}
	for _, row := range summary {
		data.Rows = append(data.Rows, map[string]string{
			"Student":    row.EntityName,
			"Present":    fmt.Sprintf("%d", row.PresentDays),
			"Absent":     fmt.Sprintf("%d", row.AbsentDays),
			"Percentage": fmt.Sprintf("%.1f%%", row.Percentage),
		})
	}
	return s.render("class_attendance", "Class Attendance Summary", data, format)
}

func (s *ReportService) render(name, title string, data export.Dataset, format ReportFormat) (*Report, error) {
	switch format {
	case FormatCSV:
		body, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &Report{Filename: name + ".csv", ContentType: "text/csv", Body: body}, nil
	case FormatPDF:
		body, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &Report{Filename: name + ".pdf", ContentType: "application/pdf", Body: body}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report format")
}
