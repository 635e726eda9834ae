package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/admin-api/internal/models"
)

// PrivilegeRepository is the privilege registry store. One row per teacher;
// grants overwrite all six flags. Existence of the teacher is left to the
// foreign key, not pre-validated here.
type PrivilegeRepository struct {
	db *sqlx.DB
}

// NewPrivilegeRepository constructs the repository.
func NewPrivilegeRepository(db *sqlx.DB) *PrivilegeRepository {
	return &PrivilegeRepository{db: db}
}

const privilegeUpsert = `
INSERT INTO teacher_privileges
	(teacher_id, can_edit_students, can_delete_students, can_suspend_students, can_edit_subjects, can_delete_subjects, can_edit_attendance, updated_at)
VALUES
	(:teacher_id, :can_edit_students, :can_delete_students, :can_suspend_students, :can_edit_subjects, :can_delete_subjects, :can_edit_attendance, :updated_at)
ON CONFLICT (teacher_id) DO UPDATE SET
	can_edit_students = EXCLUDED.can_edit_students,
	can_delete_students = EXCLUDED.can_delete_students,
	can_suspend_students = EXCLUDED.can_suspend_students,
	can_edit_subjects = EXCLUDED.can_edit_subjects,
	can_delete_subjects = EXCLUDED.can_delete_subjects,
	can_edit_attendance = EXCLUDED.can_edit_attendance,
	updated_at = EXCLUDED.updated_at`

// Upsert overwrites the teacher's full flag set.
func (r *PrivilegeRepository) Upsert(ctx context.Context, privilege *models.TeacherPrivilege) error {
	privilege.UpdatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, privilegeUpsert, privilege)
	return err
}

// Get returns the teacher's privilege row, sql.ErrNoRows when absent.
func (r *PrivilegeRepository) Get(ctx context.Context, teacherID string) (*models.TeacherPrivilege, error) {
	const query = `SELECT teacher_id, can_edit_students, can_delete_students, can_suspend_students, can_edit_subjects, can_delete_subjects, can_edit_attendance, updated_at
		FROM teacher_privileges WHERE teacher_id = $1 LIMIT 1`
	var privilege models.TeacherPrivilege
	if err := r.db.GetContext(ctx, &privilege, query, teacherID); err != nil {
		return nil, err
	}
	return &privilege, nil
}

// Check resolves one capability. A missing row means false, not an error:
// a teacher that was never granted anything simply lacks every privilege.
func (r *PrivilegeRepository) Check(ctx context.Context, teacherID string, capability models.Capability) (bool, error) {
	privilege, err := r.Get(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return privilege.Has(capability), nil
}
