package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type statusStore interface {
	UpsertStudent(ctx context.Context, record *models.StatusRecord) error
	UpsertTeacher(ctx context.Context, record *models.StatusRecord) error
	GetStudent(ctx context.Context, studentID string) (*models.StatusRecord, error)
	GetTeacher(ctx context.Context, teacherID string) (*models.StatusRecord, error)
	EffectiveStudentStatus(ctx context.Context, studentID string) (models.EntityStatus, error)
	EffectiveTeacherStatus(ctx context.Context, teacherID string) (models.EntityStatus, error)
}

type statusAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// StatusChangeRequest carries the payload for a student suspension.
type StatusChangeRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// TeacherStatusRequest sets a teacher's lifecycle status.
type TeacherStatusRequest struct {
	Status models.EntityStatus `json:"status" validate:"required"`
	Reason string              `json:"reason" validate:"max=255"`
}

// StatusService manages the lifecycle status ledgers. Writes are idempotent
// upserts keyed by entity; reads resolve a missing row to active.
type StatusService struct {
	access    authorizer
	store     statusStore
	audit     statusAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStatusService constructs a StatusService.
func NewStatusService(access authorizer, store statusStore, audit statusAuditor, validate *validator.Validate, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StatusService{access: access, store: store, audit: audit, validator: validate, logger: logger}
}

// SuspendStudent marks the student suspended with the given reason.
func (s *StatusService) SuspendStudent(ctx context.Context, actor Actor, studentID string, req StatusChangeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suspension payload")
	}
	return s.writeStudentStatus(ctx, actor, studentID, models.StatusSuspended, &req.Reason, models.CapSuspendStudents)
}

// ReactivateStudent restores the student to active. Reactivating an already
// active student is a no-op, not an error.
func (s *StatusService) ReactivateStudent(ctx context.Context, actor Actor, studentID string) error {
	return s.writeStudentStatus(ctx, actor, studentID, models.StatusActive, nil, models.CapSuspendStudents)
}

// RemoveStudent marks the student removed. Removal takes no caller-supplied
// reason; the ledger records the fixed administrative reason.
func (s *StatusService) RemoveStudent(ctx context.Context, actor Actor, studentID string) error {
	reason := models.ReasonAdministrative
	return s.writeStudentStatus(ctx, actor, studentID, models.StatusRemoved, &reason, models.CapDeleteStudents)
}

func (s *StatusService) writeStudentStatus(ctx context.Context, actor Actor, studentID string, status models.EntityStatus, reason *string, capability models.Capability) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate, Capability: capability}); err != nil {
		return err
	}
	if !status.ValidForStudent() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %q is not valid for students", status))
	}

	record := &models.StatusRecord{
		EntityID:  studentID,
		Status:    status,
		Reason:    reason,
		ChangedBy: &actor.UserID,
		ChangedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertStudent(ctx, record); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeError(err, "failed to write student status")
	}

	s.recordAudit(ctx, actor, "student", studentID, record)
	return nil
}

// SetTeacherStatus sets a teacher's lifecycle status. This is an
// administrator operation; teachers cannot change each other's status
// regardless of privileges.
func (s *StatusService) SetTeacherStatus(ctx context.Context, actor Actor, teacherID string, req TeacherStatusRequest) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.ValidForTeacher() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %q is not valid for teachers", req.Status))
	}

	var reason *string
	switch {
	case req.Status == models.StatusRemoved:
		administrative := models.ReasonAdministrative
		reason = &administrative
	case req.Reason != "":
		reason = &req.Reason
	}

	record := &models.StatusRecord{
		EntityID:  teacherID,
		Status:    req.Status,
		Reason:    reason,
		ChangedBy: &actor.UserID,
		ChangedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertTeacher(ctx, record); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return storeError(err, "failed to write teacher status")
	}

	s.recordAudit(ctx, actor, "teacher", teacherID, record)
	return nil
}

// StudentStatus returns the student's effective status with ledger context.
// A student who has never had a transition reads as active with no record.
func (s *StatusService) StudentStatus(ctx context.Context, actor Actor, studentID string) (*models.StatusRecord, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	effective, err := s.store.EffectiveStudentStatus(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to resolve student status")
	}

	record, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.StatusRecord{EntityID: studentID, Status: effective}, nil
		}
		return nil, storeError(err, "failed to load status record")
	}
	return record, nil
}

// TeacherStatus returns the teacher's effective status with ledger context.
func (s *StatusService) TeacherStatus(ctx context.Context, actor Actor, teacherID string) (*models.StatusRecord, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	effective, err := s.store.EffectiveTeacherStatus(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, storeError(err, "failed to resolve teacher status")
	}

	record, err := s.store.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.StatusRecord{EntityID: teacherID, Status: effective}, nil
		}
		return nil, storeError(err, "failed to load status record")
	}
	return record, nil
}

func (s *StatusService) recordAudit(ctx context.Context, actor Actor, resource, entityID string, record *models.StatusRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		payload = nil
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionStatusChange,
		Resource:   resource,
		ResourceID: &entityID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record status audit log", zap.Error(err))
	}
}
