package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

// ActionKind separates read-only operations from mutations. Reads are granted
// per role; mutations additionally consult the actor's capability flags.
type ActionKind string

const (
	ActionRead   ActionKind = "READ"
	ActionMutate ActionKind = "MUTATE"
)

// Action describes one requested operation to the access gate.
type Action struct {
	Kind ActionKind
	// Capability names the flag a teacher must hold for this mutation.
	// Mutations with an empty Capability are administrator-only.
	Capability models.Capability
	// OwnerUserID, when set on a read, allows the owning student through.
	OwnerUserID string
}

// Actor is the authenticated caller as resolved from the token. TeacherID is
// empty unless the role is TEACHER.
type Actor struct {
	UserID    string
	Role      models.UserRole
	TeacherID string
}

// authorizer is the gate as consumed by the other services.
type authorizer interface {
	Authorize(ctx context.Context, actor Actor, action Action) error
}

type capabilityChecker interface {
	Check(ctx context.Context, teacherID string, capability models.Capability) (bool, error)
}

// AccessService is the single authorization decision point. Every privileged
// operation passes through Authorize before touching storage.
type AccessService struct {
	privileges capabilityChecker
	logger     *zap.Logger
}

// NewAccessService constructs the access gate.
func NewAccessService(privileges capabilityChecker, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{privileges: privileges, logger: logger}
}

// Authorize decides whether the actor may perform the action. The decision is
// total over the role enumeration and fails closed: unknown roles, unknown
// capabilities, and privilege lookup failures all deny.
func (s *AccessService) Authorize(ctx context.Context, actor Actor, action Action) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSystemAdmin:
		return nil

	case models.RolePrincipal, models.RoleAcademicCoordinator, models.RoleAdmissionDepartment:
		if action.Kind == ActionRead {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "role has read-only access")

	case models.RoleTeacher:
		if action.Kind == ActionRead {
			return nil
		}
		if action.Capability == "" {
			return appErrors.Clone(appErrors.ErrForbidden, "operation requires administrator role")
		}
		if !action.Capability.Valid() || actor.TeacherID == "" {
			return appErrors.Clone(appErrors.ErrForbidden, "operation not permitted")
		}
		granted, err := s.privileges.Check(ctx, actor.TeacherID, action.Capability)
		if err != nil {
			return storeError(err, "failed to resolve teacher privileges")
		}
		if !granted {
			s.logger.Info("privilege denied",
				zap.String("teacher_id", actor.TeacherID),
				zap.String("capability", string(action.Capability)))
			return appErrors.Clone(appErrors.ErrForbidden, "missing required privilege")
		}
		return nil

	case models.RoleStudent:
		if action.Kind == ActionRead && action.OwnerUserID != "" && action.OwnerUserID == actor.UserID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "students may only read their own records")
	}

	return appErrors.Clone(appErrors.ErrForbidden, "unrecognised role")
}

// storeError maps low-level repository failures onto the error palette.
// Connectivity failures surface as unavailable rather than internal so callers
// can distinguish a down datastore from a bug.
func storeError(err error, message string) error {
	if repository.IsConnectivity(err) {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
