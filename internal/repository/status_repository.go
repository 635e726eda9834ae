package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/admin-api/internal/models"
)

// StatusRepository is the status ledger store. One mutable row per entity,
// written only on transitions; a missing row reads as active. No sentinel
// rows are ever inserted on the read path.
type StatusRepository struct {
	db *sqlx.DB
}

// NewStatusRepository constructs the repository.
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

const studentStatusUpsert = `
INSERT INTO student_status (student_id, status, reason, changed_by, changed_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id) DO UPDATE SET
	status = EXCLUDED.status,
	reason = EXCLUDED.reason,
	changed_by = EXCLUDED.changed_by,
	changed_at = EXCLUDED.changed_at`

const teacherStatusUpsert = `
INSERT INTO teacher_status (teacher_id, status, reason, changed_by, changed_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (teacher_id) DO UPDATE SET
	status = EXCLUDED.status,
	reason = EXCLUDED.reason,
	changed_by = EXCLUDED.changed_by,
	changed_at = EXCLUDED.changed_at`

// UpsertStudent records a student transition, last write wins.
func (r *StatusRepository) UpsertStudent(ctx context.Context, record *models.StatusRecord) error {
	if record.ChangedAt.IsZero() {
		record.ChangedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, studentStatusUpsert,
		record.EntityID, record.Status, record.Reason, record.ChangedBy, record.ChangedAt)
	return err
}

// UpsertTeacher records a teacher transition, last write wins.
func (r *StatusRepository) UpsertTeacher(ctx context.Context, record *models.StatusRecord) error {
	if record.ChangedAt.IsZero() {
		record.ChangedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, teacherStatusUpsert,
		record.EntityID, record.Status, record.Reason, record.ChangedBy, record.ChangedAt)
	return err
}

// GetStudent returns the student's ledger row, sql.ErrNoRows when absent.
func (r *StatusRepository) GetStudent(ctx context.Context, studentID string) (*models.StatusRecord, error) {
	const query = `SELECT student_id AS entity_id, status, reason, changed_by, changed_at FROM student_status WHERE student_id = $1 LIMIT 1`
	var record models.StatusRecord
	if err := r.db.GetContext(ctx, &record, query, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetTeacher returns the teacher's ledger row, sql.ErrNoRows when absent.
func (r *StatusRepository) GetTeacher(ctx context.Context, teacherID string) (*models.StatusRecord, error) {
	const query = `SELECT teacher_id AS entity_id, status, reason, changed_by, changed_at FROM teacher_status WHERE teacher_id = $1 LIMIT 1`
	var record models.StatusRecord
	if err := r.db.GetContext(ctx, &record, query, teacherID); err != nil {
		return nil, err
	}
	return &record, nil
}

// EffectiveStudentStatus resolves the query-time fallback: no ledger row
// means active. sql.ErrNoRows means the student itself does not exist.
func (r *StatusRepository) EffectiveStudentStatus(ctx context.Context, studentID string) (models.EntityStatus, error) {
	const query = `
SELECT COALESCE(ss.status, 'active')
FROM students s
LEFT JOIN student_status ss ON ss.student_id = s.id
WHERE s.id = $1`
	var status models.EntityStatus
	if err := r.db.GetContext(ctx, &status, query, studentID); err != nil {
		return "", err
	}
	return status, nil
}

// EffectiveTeacherStatus resolves the fallback for teachers.
func (r *StatusRepository) EffectiveTeacherStatus(ctx context.Context, teacherID string) (models.EntityStatus, error) {
	const query = `
SELECT COALESCE(ts.status, 'active')
FROM teachers t
LEFT JOIN teacher_status ts ON ts.teacher_id = t.id
WHERE t.id = $1`
	var status models.EntityStatus
	if err := r.db.GetContext(ctx, &status, query, teacherID); err != nil {
		return "", err
	}
	return status, nil
}
