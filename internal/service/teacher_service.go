package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type teacherStore interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	CreateWithAccount(ctx context.Context, user *models.User, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
}

type teacherUserChecker interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateTeacherRequest provisions a teacher profile plus login account. The
// new teacher starts with an all-false privilege row.
type CreateTeacherRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=64"`
	Password  string  `json:"password" validate:"required,min=6"`
	FullName  string  `json:"full_name" validate:"required,max=128"`
	NIP       *string `json:"nip,omitempty" validate:"omitempty,max=32"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Expertise *string `json:"expertise,omitempty" validate:"omitempty,max=128"`
}

// UpdateTeacherRequest edits the mutable profile fields.
type UpdateTeacherRequest struct {
	FullName  string  `json:"full_name" validate:"required,max=128"`
	NIP       *string `json:"nip,omitempty" validate:"omitempty,max=32"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Expertise *string `json:"expertise,omitempty" validate:"omitempty,max=128"`
}

// TeacherService manages teacher profiles and their accounts.
type TeacherService struct {
	access    authorizer
	store     teacherStore
	users     teacherUserChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(access authorizer, store teacherStore, users teacherUserChecker, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{access: access, store: store, users: users, validator: validate, logger: logger}
}

// Create provisions the teacher profile, login account, and default
// privilege row atomically.
func (s *TeacherService) Create(ctx context.Context, actor Actor, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, storeError(err, "failed to check username")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	teacher := &models.Teacher{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		NIP:       req.NIP,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Expertise: req.Expertise,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateWithAccount(ctx, user, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username or NIP already exists")
		}
		return nil, storeError(err, "failed to create teacher")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserCreate,
		Resource:   "teachers",
		ResourceID: &teacher.ID,
	}); err != nil {
		s.logger.Warn("failed to record teacher create audit log", zap.Error(err))
	}

	return teacher, nil
}

// Get returns a single teacher profile.
func (s *TeacherService) Get(ctx context.Context, actor Actor, id string) (*models.Teacher, error) {
	teacher, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, storeError(err, "failed to load teacher")
	}
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead, OwnerUserID: teacher.UserID}); err != nil {
		return nil, err
	}
	return teacher, nil
}

// List returns teachers with effective status.
func (s *TeacherService) List(ctx context.Context, actor Actor, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, nil, err
	}

	teachers, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list teachers")
	}
	return teachers, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update edits the teacher's profile fields. Profile edits are an
// administrator operation.
func (s *TeacherService) Update(ctx context.Context, actor Actor, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, storeError(err, "failed to load teacher")
	}

	teacher.FullName = req.FullName
	teacher.NIP = req.NIP
	teacher.Phone = req.Phone
	teacher.Expertise = req.Expertise
	teacher.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "NIP already exists")
		}
		return nil, storeError(err, "failed to update teacher")
	}
	return teacher, nil
}
