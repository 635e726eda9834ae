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

type classStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByNameSection(ctx context.Context, name, section string) (bool, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	Create(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

// CreateClassRequest creates one class section.
type CreateClassRequest struct {
	Name    string `json:"name" validate:"required,max=64"`
	Section string `json:"section" validate:"required,max=16"`
}

// ClassService manages class sections. All mutations are administrator-only.
type ClassService struct {
	access    authorizer
	store     classStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(access authorizer, store classStore, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{access: access, store: store, validator: validate, logger: logger}
}

// Create adds a class. The (name, section) pair must be unique.
func (s *ClassService) Create(ctx context.Context, actor Actor, req CreateClassRequest) (*models.Class, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	exists, err := s.store.ExistsByNameSection(ctx, req.Name, req.Section)
	if err != nil {
		return nil, storeError(err, "failed to check class")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class section already exists")
	}

	now := time.Now().UTC()
	class := &models.Class{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Section:   req.Section,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, class); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class section already exists")
		}
		return nil, storeError(err, "failed to create class")
	}
	return class, nil
}

// Get returns a class by ID.
func (s *ClassService) Get(ctx context.Context, actor Actor, id string) (*models.Class, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	class, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeError(err, "failed to load class")
	}
	return class, nil
}

// List returns classes matching the filter.
func (s *ClassService) List(ctx context.Context, actor Actor, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, nil, err
	}

	classes, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list classes")
	}
	return classes, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Delete removes a class. Its subjects, assignments, and enrollments go with
// it; students keep their rows with class membership cleared.
func (s *ClassService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return storeError(err, "failed to delete class")
	}
	return nil
}
