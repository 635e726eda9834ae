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

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	CreateWithAccount(ctx context.Context, user *models.User, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type studentUserChecker interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateStudentRequest provisions a student profile plus its login account in
// one step. ClassID is optional; when present the student is enrolled in the
// class's subjects immediately.
type CreateStudentRequest struct {
	Username        string  `json:"username" validate:"required,min=3,max=64"`
	Password        string  `json:"password" validate:"required,min=6"`
	AdmissionNumber string  `json:"admission_number" validate:"required,max=32"`
	FullName        string  `json:"full_name" validate:"required,max=128"`
	ClassID         *string `json:"class_id,omitempty"`
	Guardian        *string `json:"guardian,omitempty" validate:"omitempty,max=128"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// UpdateStudentRequest edits the mutable profile fields. Class membership is
// changed through the reassignment flow, not here.
type UpdateStudentRequest struct {
	FullName string  `json:"full_name" validate:"required,max=128"`
	Guardian *string `json:"guardian,omitempty" validate:"omitempty,max=128"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// StudentService manages student profiles and their accounts.
type StudentService struct {
	access    authorizer
	store     studentStore
	users     studentUserChecker
	classes   studentClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(access authorizer, store studentStore, users studentUserChecker, classes studentClassReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{access: access, store: store, users: users, classes: classes, validator: validate, logger: logger}
}

// Create provisions the student profile and login account atomically.
func (s *StudentService) Create(ctx context.Context, actor Actor, req CreateStudentRequest) (*models.Student, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, storeError(err, "failed to check username")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
	}

	if req.ClassID != nil {
		if _, err := s.classes.FindByID(ctx, *req.ClassID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, storeError(err, "failed to load class")
		}
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
		Role:         models.RoleStudent,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	student := &models.Student{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		AdmissionNumber: req.AdmissionNumber,
		FullName:        req.FullName,
		ClassID:         req.ClassID,
		Guardian:        req.Guardian,
		Phone:           req.Phone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateWithAccount(ctx, user, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "admission number or username already exists")
		}
		return nil, storeError(err, "failed to create student")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserCreate,
		Resource:   "students",
		ResourceID: &student.ID,
	}); err != nil {
		s.logger.Warn("failed to record student create audit log", zap.Error(err))
	}

	return student, nil
}

// Get returns a student with class context and effective status. Students
// may read their own record.
func (s *StudentService) Get(ctx context.Context, actor Actor, id string) (*models.StudentDetail, error) {
	detail, err := s.store.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead, OwnerUserID: detail.UserID}); err != nil {
		return nil, err
	}
	return detail, nil
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, actor Actor, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, nil, err
	}

	students, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update edits the student's profile fields.
func (s *StudentService) Update(ctx context.Context, actor Actor, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate, Capability: models.CapEditStudents}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}

	student.FullName = req.FullName
	student.Guardian = req.Guardian
	student.Phone = req.Phone
	student.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, student); err != nil {
		return nil, storeError(err, "failed to update student")
	}
	return student, nil
}
