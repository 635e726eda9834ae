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

type subjectStore interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByClass(ctx context.Context, classID string) ([]models.Subject, error)
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error)
	Create(ctx context.Context, subject *models.Subject) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type subjectClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateSubjectRequest creates a subject within a class. The teacher pointer
// is not part of the payload; it is derived from assignments.
type CreateSubjectRequest struct {
	Name    string `json:"name" validate:"required,max=64"`
	ClassID string `json:"class_id" validate:"required"`
}

// RenameSubjectRequest changes a subject's name.
type RenameSubjectRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// SubjectService manages subjects. Edits require the edit capability for
// teachers; deletes require the delete capability.
type SubjectService struct {
	access    authorizer
	store     subjectStore
	classes   subjectClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(access authorizer, store subjectStore, classes subjectClassReader, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{access: access, store: store, classes: classes, validator: validate, logger: logger}
}

// Create adds a subject to a class.
func (s *SubjectService) Create(ctx context.Context, actor Actor, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate, Capability: models.CapEditSubjects}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeError(err, "failed to load class")
	}

	now := time.Now().UTC()
	subject := &models.Subject{
		ID:        uuid.NewString(),
		Name:      req.Name,
		ClassID:   req.ClassID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, subject); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject already exists in class")
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeError(err, "failed to create subject")
	}
	return subject, nil
}

// Get returns a subject by ID.
func (s *SubjectService) Get(ctx context.Context, actor Actor, id string) (*models.Subject, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	subject, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, storeError(err, "failed to load subject")
	}
	return subject, nil
}

// List returns subjects matching the filter with class and teacher context.
func (s *SubjectService) List(ctx context.Context, actor Actor, filter models.SubjectFilter) ([]models.SubjectDetail, *models.Pagination, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, nil, err
	}

	subjects, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list subjects")
	}
	return subjects, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListByClass returns the subjects of one class.
func (s *SubjectService) ListByClass(ctx context.Context, actor Actor, classID string) ([]models.Subject, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	subjects, err := s.store.ListByClass(ctx, classID)
	if err != nil {
		return nil, storeError(err, "failed to list subjects")
	}
	return subjects, nil
}

// Rename changes the subject's name.
func (s *SubjectService) Rename(ctx context.Context, actor Actor, id string, req RenameSubjectRequest) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate, Capability: models.CapEditSubjects}); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	if err := s.store.Rename(ctx, id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		if repository.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "subject already exists in class")
		}
		return storeError(err, "failed to rename subject")
	}
	return nil
}

// Delete removes the subject. Assignments and enrollments referencing it are
// removed by the cascade.
func (s *SubjectService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate, Capability: models.CapDeleteSubjects}); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return storeError(err, "failed to delete subject")
	}
	return nil
}
