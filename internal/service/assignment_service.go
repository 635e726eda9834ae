package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
)

type assignmentStore interface {
	Exists(ctx context.Context, teacherID, classID, subjectID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAssignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAssignmentDetail, error)
	Create(ctx context.Context, assignment *models.TeacherAssignment) error
	Remove(ctx context.Context, id string) error
	ReassignStudentClass(ctx context.Context, studentID, classID string) (int, error)
	ListEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type assignmentSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type assignmentClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type assignmentTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type assignmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type assignmentAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AssignRequest creates one teacher/class/subject assignment.
type AssignRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// ReassignRequest moves a student to a new class.
type ReassignRequest struct {
	ClassID string `json:"class_id" validate:"required"`
}

// ReassignResult reports the outcome of a class move.
type ReassignResult struct {
	StudentID     string `json:"student_id"`
	ClassID       string `json:"class_id"`
	EnrolledCount int    `json:"enrolled_count"`
}

// AssignmentService resolves teacher/class/subject assignments and student
// class membership. It is the only writer of the derived teacher pointer on
// subjects; assignment writes and the pointer update commit together.
type AssignmentService struct {
	access    authorizer
	store     assignmentStore
	subjects  assignmentSubjectReader
	classes   assignmentClassReader
	teachers  assignmentTeacherReader
	students  assignmentStudentReader
	audit     assignmentAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(access authorizer, store assignmentStore, subjects assignmentSubjectReader, classes assignmentClassReader, teachers assignmentTeacherReader, students assignmentStudentReader, audit assignmentAuditor, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{
		access:    access,
		store:     store,
		subjects:  subjects,
		classes:   classes,
		teachers:  teachers,
		students:  students,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Assign creates a teacher/class/subject assignment. The subject must belong
// to the class, and the exact triple must not already exist.
func (s *AssignmentService) Assign(ctx context.Context, actor Actor, req AssignRequest) (*models.TeacherAssignment, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, storeError(err, "failed to load teacher")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeError(err, "failed to load class")
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

	exists, err := s.store.Exists(ctx, req.TeacherID, req.ClassID, req.SubjectID)
	if err != nil {
		return nil, storeError(err, "failed to check existing assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists")
	}

	assignment := &models.TeacherAssignment{
		ID:         uuid.NewString(),
		TeacherID:  req.TeacherID,
		ClassID:    req.ClassID,
		SubjectID:  req.SubjectID,
		AssignedBy: actor.UserID,
		AssignedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, assignment); err != nil {
		// Lost race against a concurrent identical assignment.
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists")
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "referenced entity no longer exists")
		}
		return nil, storeError(err, "failed to create assignment")
	}

	s.recordAudit(ctx, actor, models.AuditActionAssignmentEdit, assignment.ID, assignment)
	return assignment, nil
}

// Unassign removes an assignment and re-derives the subject's teacher
// pointer from the latest remaining assignment for that subject.
func (s *AssignmentService) Unassign(ctx context.Context, actor Actor, assignmentID string) error {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate}); err != nil {
		return err
	}

	if err := s.store.Remove(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return storeError(err, "failed to remove assignment")
	}

	s.recordAudit(ctx, actor, models.AuditActionAssignmentEdit, assignmentID, map[string]string{"removed": assignmentID})
	return nil
}

// ListByTeacher returns the teacher's assignments with class and subject
// context.
func (s *AssignmentService) ListByTeacher(ctx context.Context, actor Actor, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionRead}); err != nil {
		return nil, err
	}

	assignments, err := s.store.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, storeError(err, "failed to list assignments")
	}
	return assignments, nil
}

// ReassignStudentClass moves a student to a new class and rebuilds their
// subject enrollments from the target class in one transaction.
func (s *AssignmentService) ReassignStudentClass(ctx context.Context, actor Actor, studentID string, req ReassignRequest) (*ReassignResult, error) {
	if err := s.access.Authorize(ctx, actor, Action{Kind: ActionMutate, Capability: models.CapEditStudents}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassignment payload")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeError(err, "failed to load class")
	}

	enrolled, err := s.store.ReassignStudentClass(ctx, studentID, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to reassign student")
	}

	result := &ReassignResult{StudentID: studentID, ClassID: req.ClassID, EnrolledCount: enrolled}
	s.recordAudit(ctx, actor, models.AuditActionClassReassign, studentID, result)
	return result, nil
}

// ListEnrollments returns the student's current subject enrollments.
func (s *AssignmentService) ListEnrollments(ctx context.Context, actor Actor, studentID string) ([]models.EnrollmentDetail, error) {
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

	enrollments, err := s.store.ListEnrollments(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *AssignmentService) recordAudit(ctx context.Context, actor Actor, action, resourceID string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		payload = nil
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "teacher_assignments",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record assignment audit log", zap.Error(err))
	}
}
