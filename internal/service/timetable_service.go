package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type timetableStore interface {
	SlotTaken(ctx context.Context, classID, dayOfWeek string, period int) (bool, error)
	Create(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id string) error
	ListByClass(ctx context.Context, classID string) ([]models.TimetableDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableDetail, error)
}

type timetableSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

var timetableDays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

// CreateTimetableRequest schedules one subject period for a class.
type CreateTimetableRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	DayOfWeek string `json:"day_of_week" validate:"required"`
	Period    int    `json:"period" validate:"required,min=1,max=12"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

// TimetableService manages the weekly schedule. Mutations are
// administrator-only; the schedule inherits each subject's derived teacher.
type TimetableService struct {
	access    authorizer
	store     timetableStore
	subjects  timetableSubjectReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(access authorizer, store timetableStore, subjects timetableSubjectReader, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TimetableService{access: access, store: store, subjects: subjects, validator: validate, logger: logger}
}

// Create schedules one period. The (class, day, period) slot must be free
// and the subject must belong to the class.
func (s *TimetableService) Create(ctx context.Context, actor Actor, req CreateTimetableRequest) (*models.TimetableEntry, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if !timetableDays[req.DayOfWeek] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day of week")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, storeError(err, "failed to load subject")
	}
	if subject.ClassID != req.ClassID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not belong to the given class")
	}

	taken, err := s.store.SlotTaken(ctx, req.ClassID, req.DayOfWeek, req.Period)
	if err != nil {
		return nil, storeError(err, "failed to check slot")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot is already scheduled")
	}

	entry := &models.TimetableEntry{
		ID:        uuid.NewString(),
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: subject.TeacherID,
		DayOfWeek: req.DayOfWeek,
		Period:    req.Period,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, entry); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "slot is already scheduled")
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "referenced entity no longer exists")
		}
		return nil, storeError(err, "failed to create timetable entry")
	}
	return entry, nil
}

// Delete removes one timetable entry.
func (s *TimetableService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return storeError(err, "failed to delete timetable entry")
	}
	return nil
}

// ListByClass returns the weekly schedule of one class.
func (s *TimetableService) ListByClass(ctx context.Context, actor Actor, classID string) ([]models.TimetableDetail, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	entries, err := s.store.ListByClass(ctx, classID)
	if err != nil {
		return nil, storeError(err, "failed to list timetable")
	}
	return entries, nil
}

// ListByTeacher returns a teacher's weekly schedule.
func (s *TimetableService) ListByTeacher(ctx context.Context, actor Actor, teacherID string) ([]models.TimetableDetail, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	entries, err := s.store.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, storeError(err, "failed to list timetable")
	}
	return entries, nil
}
