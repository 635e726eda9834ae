package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type privilegeStore interface {
	Upsert(ctx context.Context, privilege *models.TeacherPrivilege) error
	Get(ctx context.Context, teacherID string) (*models.TeacherPrivilege, error)
	Check(ctx context.Context, teacherID string, capability models.Capability) (bool, error)
}

type privilegeAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// GrantRequest sets the full capability vector for one teacher. Flags left
// out of the payload are written as false; a grant always states the whole
// set.
type GrantRequest struct {
	CanEditStudents    bool `json:"can_edit_students"`
	CanDeleteStudents  bool `json:"can_delete_students"`
	CanSuspendStudents bool `json:"can_suspend_students"`
	CanEditSubjects    bool `json:"can_edit_subjects"`
	CanDeleteSubjects  bool `json:"can_delete_subjects"`
	CanEditAttendance  bool `json:"can_edit_attendance"`
}

// PrivilegeService manages per-teacher capability flags. Grants are
// administrator-only; teachers cannot amplify their own access.
type PrivilegeService struct {
	access    authorizer
	store     privilegeStore
	audit     privilegeAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPrivilegeService constructs a PrivilegeService.
func NewPrivilegeService(access authorizer, store privilegeStore, audit privilegeAuditor, validate *validator.Validate, logger *zap.Logger) *PrivilegeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PrivilegeService{access: access, store: store, audit: audit, validator: validate, logger: logger}
}

// Grant replaces the teacher's capability vector with the requested flags.
func (s *PrivilegeService) Grant(ctx context.Context, actor Actor, teacherID string, req GrantRequest) (*models.TeacherPrivilege, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return nil, err
	}

	privilege := &models.TeacherPrivilege{
		TeacherID:         teacherID,
		CanEditStudents:   req.CanEditStudents,
		CanDeleteStudents: req.CanDeleteStudents,
		CanSuspendStudent: req.CanSuspendStudents,
		CanEditSubjects:   req.CanEditSubjects,
		CanDeleteSubjects: req.CanDeleteSubjects,
		CanEditAttendance: req.CanEditAttendance,
		UpdatedAt:         time.Now().UTC(),
	}

	if err := s.store.Upsert(ctx, privilege); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, storeError(err, "failed to write privileges")
	}

	if payload, err := json.Marshal(privilege); err == nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionPrivilegeGrant,
			Resource:   "teacher_privileges",
			ResourceID: &teacherID,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record privilege audit log", zap.Error(err))
		}
	}

	return privilege, nil
}

// Get returns the teacher's capability vector. A teacher with no stored row
// holds no capabilities, which reads as an all-false vector.
func (s *PrivilegeService) Get(ctx context.Context, actor Actor, teacherID string) (*models.TeacherPrivilege, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	privilege, err := s.store.Get(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.TeacherPrivilege{TeacherID: teacherID}, nil
		}
		return nil, storeError(err, "failed to load privileges")
	}
	return privilege, nil
}

// HasCapability resolves a single flag for the teacher.
func (s *PrivilegeService) HasCapability(ctx context.Context, actor Actor, teacherID string, capability models.Capability) (bool, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return false, err
	}
	if !capability.Valid() {
		return false, appErrors.Clone(appErrors.ErrValidation, "unknown capability")
	}
	granted, err := s.store.Check(ctx, teacherID, capability)
	if err != nil {
		return false, storeError(err, "failed to check capability")
	}
	return granted, nil
}
