package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/admin-api/internal/models"
)

// AssignmentRepository maintains the teacher-class-subject assignment graph,
// the derived subjects.teacher_id pointer, and student enrollments. It is
// the single writer of the pointer; every mutation that touches it runs as
// one transaction.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Exists checks whether the (teacher, class, subject) triple is already
// assigned.
func (r *AssignmentRepository) Exists(ctx context.Context, teacherID, classID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, classID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// TeacherAssignedToClass reports whether the teacher has any assignment in
// the given class.
func (r *AssignmentRepository) TeacherAssignedToClass(ctx context.Context, teacherID, classID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class assignment: %w", err)
	}
	return true, nil
}

// FindByID returns the assignment row.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeacherAssignment, error) {
	const query = `SELECT id, teacher_id, class_id, subject_id, assigned_by, assigned_at FROM teacher_assignments WHERE id = $1 LIMIT 1`
	var assignment models.TeacherAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByTeacher returns assignments owned by a teacher with context.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	const query = `
SELECT ta.id, ta.teacher_id, ta.class_id, ta.subject_id, ta.assigned_by, ta.assigned_at,
       c.name AS class_name, c.section AS section, s.name AS subject_name, t.full_name AS teacher_name
FROM teacher_assignments ta
JOIN classes c ON c.id = ta.class_id
JOIN subjects s ON s.id = ta.subject_id
JOIN teachers t ON t.id = ta.teacher_id
WHERE ta.teacher_id = $1
ORDER BY c.name ASC, c.section ASC, s.name ASC`
	var assignments []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Create inserts the assignment and repoints subjects.teacher_id to the new
// teacher in the same transaction. The pointer write is last-writer-wins.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.TeacherAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO teacher_assignments (id, teacher_id, class_id, subject_id, assigned_by, assigned_at)
		VALUES (:id, :teacher_id, :class_id, :subject_id, :assigned_by, :assigned_at)`, assignment); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE subjects SET teacher_id = $2, updated_at = $3 WHERE id = $1`,
		assignment.SubjectID, assignment.TeacherID, time.Now().UTC()); err != nil {
		return fmt.Errorf("repoint subject teacher: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create assignment: %w", err)
	}
	return nil
}

// Remove deletes the assignment and re-derives subjects.teacher_id from the
// latest remaining assignment for the subject, or NULL when none remain.
func (r *AssignmentRepository) Remove(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var subjectID string
	if err = tx.GetContext(ctx, &subjectID, `SELECT subject_id FROM teacher_assignments WHERE id = $1`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}

	var remainingTeacher string
	derr := tx.GetContext(ctx, &remainingTeacher,
		`SELECT teacher_id FROM teacher_assignments WHERE subject_id = $1 ORDER BY assigned_at DESC, id DESC LIMIT 1`, subjectID)
	switch derr {
	case nil:
		_, err = tx.ExecContext(ctx, `UPDATE subjects SET teacher_id = $2, updated_at = $3 WHERE id = $1`,
			subjectID, remainingTeacher, time.Now().UTC())
	case sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `UPDATE subjects SET teacher_id = NULL, updated_at = $2 WHERE id = $1`,
			subjectID, time.Now().UTC())
	default:
		err = derr
	}
	if err != nil {
		return fmt.Errorf("rederive subject teacher: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit remove assignment: %w", err)
	}
	return nil
}

// ReassignStudentClass moves the student to the new class and replaces all
// enrollments with the subject set of that class, atomically. A class with
// zero subjects leaves the student with zero enrollments.
func (r *AssignmentRepository) ReassignStudentClass(ctx context.Context, studentID, classID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reassign class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var result sql.Result
	result, err = tx.ExecContext(ctx, `UPDATE students SET class_id = $2, updated_at = $3 WHERE id = $1`,
		studentID, classID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("update student class: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check reassigned student rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("drop enrollments: %w", err)
	}

	var subjectIDs []string
	if err = tx.SelectContext(ctx, &subjectIDs, `SELECT id FROM subjects WHERE class_id = $1 ORDER BY name ASC`, classID); err != nil {
		return 0, fmt.Errorf("load class subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)`, studentID, subjectID); err != nil {
			return 0, fmt.Errorf("enroll subject: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reassign class: %w", err)
	}
	return len(subjectIDs), nil
}

// ListEnrollments returns the student's current subject enrollments.
func (r *AssignmentRepository) ListEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `
SELECT sts.student_id, sts.subject_id, s.name AS subject_name, s.class_id
FROM student_subjects sts
JOIN subjects s ON s.id = sts.subject_id
WHERE sts.student_id = $1
ORDER BY s.name ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
