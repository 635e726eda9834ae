package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type attendanceStore interface {
	MarkStudent(ctx context.Context, record *models.AttendanceRecord) error
	MarkTeacher(ctx context.Context, record *models.AttendanceRecord) error
	ListStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.AttendanceDetail, error)
	ListTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.AttendanceDetail, error)
	StudentSummary(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceSummary, error)
	ClassRoster(ctx context.Context, classID string) ([]models.Student, error)
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type attendanceClassChecker interface {
	TeacherAssignedToClass(ctx context.Context, teacherID, classID string) (bool, error)
}

const attendanceDateLayout = "2006-01-02"

// MarkAttendanceRequest records one entity-day presence value. Re-marking
// the same day overwrites the earlier value.
type MarkAttendanceRequest struct {
	Date   string                  `json:"date" validate:"required,datetime=2006-01-02"`
	Status models.AttendanceStatus `json:"status" validate:"required"`
}

// AttendanceRange bounds a listing or summary query.
type AttendanceRange struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// AttendanceService records and reports daily attendance. A teacher may mark
// students of classes they are assigned to; marking anywhere else requires
// the attendance capability. Teacher attendance is administrator-only.
type AttendanceService struct {
	access      authorizer
	store       attendanceStore
	students    attendanceStudentReader
	assignments attendanceClassChecker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(access authorizer, store attendanceStore, students attendanceStudentReader, assignments attendanceClassChecker, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		access:      access,
		store:       store,
		students:    students,
		assignments: assignments,
		validator:   validate,
		logger:      logger,
	}
}

// MarkStudent upserts one student-day attendance row.
func (s *AttendanceService) MarkStudent(ctx context.Context, actor Actor, studentID string, req MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}
	date, err := time.Parse(attendanceDateLayout, req.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid attendance date")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeError(err, "failed to load student")
	}

	if err := s.authorizeStudentMark(ctx, actor, student); err != nil {
		return err
	}

	record := &models.AttendanceRecord{
		EntityID:   studentID,
		Date:       date,
		Status:     req.Status,
		RecordedBy: &actor.UserID,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.store.MarkStudent(ctx, record); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeError(err, "failed to record attendance")
	}
	return nil
}

// authorizeStudentMark lets teachers mark their own classes without any
// capability; marking outside assigned classes needs the attendance flag.
func (s *AttendanceService) authorizeStudentMark(ctx context.Context, actor Actor, student *models.Student) error {
	if actor.Role == models.RoleTeacher && actor.TeacherID != "" && student.ClassID != nil {
		assigned, err := s.assignments.TeacherAssignedToClass(ctx, actor.TeacherID, *student.ClassID)
		if err != nil {
			return storeError(err, "failed to check class assignment")
		}
		if assigned {
			return nil
		}
	}
	return s.access.Authorize(ctx, actor, Action{Kind: ActionMutate, Capability: models.CapEditAttendance})
}

// MarkTeacher upserts one teacher-day attendance row.
func (s *AttendanceService) MarkTeacher(ctx context.Context, actor Actor, teacherID string, req MarkAttendanceRequest) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}
	date, err := time.Parse(attendanceDateLayout, req.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid attendance date")
	}

	record := &models.AttendanceRecord{
		EntityID:   teacherID,
		Date:       date,
		Status:     req.Status,
		RecordedBy: &actor.UserID,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.store.MarkTeacher(ctx, record); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return storeError(err, "failed to record attendance")
	}
	return nil
}

// ListStudent returns a student's attendance in the date range. Students may
// read their own history.
func (s *AttendanceService) ListStudent(ctx context.Context, actor Actor, studentID string, rng AttendanceRange) ([]models.AttendanceDetail, error) {
	from, to, err := s.parseRange(rng)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead, OwnerUserID: student.UserID}); err != nil {
		return nil, err
	}

	records, err := s.store.ListStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, storeError(err, "failed to list attendance")
	}
	return records, nil
}

// ListTeacher returns a teacher's attendance in the date range.
func (s *AttendanceService) ListTeacher(ctx context.Context, actor Actor, teacherID string, rng AttendanceRange) ([]models.AttendanceDetail, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}
	from, to, err := s.parseRange(rng)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListTeacher(ctx, teacherID, from, to)
	if err != nil {
		return nil, storeError(err, "failed to list attendance")
	}
	return records, nil
}

// ClassSummary aggregates attendance for every active student of a class.
func (s *AttendanceService) ClassSummary(ctx context.Context, actor Actor, classID string, rng AttendanceRange) ([]models.AttendanceSummary, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}
	from, to, err := s.parseRange(rng)
	if err != nil {
		return nil, err
	}

	summary, err := s.store.StudentSummary(ctx, classID, from, to)
	if err != nil {
		return nil, storeError(err, "failed to summarise attendance")
	}
	return summary, nil
}

// Roster lists the active students of a class for a marking session.
func (s *AttendanceService) Roster(ctx context.Context, actor Actor, classID string) ([]models.Student, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	students, err := s.store.ClassRoster(ctx, classID)
	if err != nil {
		return nil, storeError(err, "failed to load class roster")
	}
	return students, nil
}

func (s *AttendanceService) parseRange(rng AttendanceRange) (time.Time, time.Time, error) {
	if err := s.validator.Struct(rng); err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date range")
	}
	from, err := time.Parse(attendanceDateLayout, rng.From)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid range start")
	}
	to, err := time.Parse(attendanceDateLayout, rng.To)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid range end")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "range end precedes start")
	}
	return from, to, nil
}
