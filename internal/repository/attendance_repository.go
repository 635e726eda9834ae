package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/admin-api/internal/models"
)

// AttendanceRepository persists daily attendance for students and teachers.
// Marking the same entity-day twice updates the existing row.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func attendanceUpsert(table, keyColumn string) string {
	return fmt.Sprintf(`
INSERT INTO %s (id, %s, date, status, recorded_by, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (%s, date) DO UPDATE SET
	status = EXCLUDED.status,
	recorded_by = EXCLUDED.recorded_by,
	recorded_at = EXCLUDED.recorded_at`, table, keyColumn, keyColumn)
}

// MarkStudent upserts one student-day attendance row.
func (r *AttendanceRepository) MarkStudent(ctx context.Context, record *models.AttendanceRecord) error {
	return r.mark(ctx, attendanceUpsert("student_attendance", "student_id"), record)
}

// MarkTeacher upserts one teacher-day attendance row.
func (r *AttendanceRepository) MarkTeacher(ctx context.Context, record *models.AttendanceRecord) error {
	return r.mark(ctx, attendanceUpsert("teacher_attendance", "teacher_id"), record)
}

func (r *AttendanceRepository) mark(ctx context.Context, query string, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.EntityID, record.Date, record.Status, record.RecordedBy, record.RecordedAt); err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	return nil
}

// ListStudent returns a student's attendance between two dates, newest first.
func (r *AttendanceRepository) ListStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.AttendanceDetail, error) {
	const query = `
SELECT sa.id, sa.student_id AS entity_id, sa.date, sa.status, sa.recorded_by, sa.recorded_at,
       s.full_name AS entity_name
FROM student_attendance sa
JOIN students s ON s.id = sa.student_id
WHERE sa.student_id = $1 AND sa.date BETWEEN $2 AND $3
ORDER BY sa.date DESC`
	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

// ListTeacher returns a teacher's attendance between two dates, newest first.
func (r *AttendanceRepository) ListTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.AttendanceDetail, error) {
	const query = `
SELECT ta.id, ta.teacher_id AS entity_id, ta.date, ta.status, ta.recorded_by, ta.recorded_at,
       t.full_name AS entity_name
FROM teacher_attendance ta
JOIN teachers t ON t.id = ta.teacher_id
WHERE ta.teacher_id = $1 AND ta.date BETWEEN $2 AND $3
ORDER BY ta.date DESC`
	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("list teacher attendance: %w", err)
	}
	return records, nil
}

// ClassRoster returns the active students of a class for a marking session.
// Suspended and removed students are excluded.
func (r *AttendanceRepository) ClassRoster(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `
SELECT s.id, s.user_id, s.admission_number, s.full_name, s.class_id, s.guardian, s.phone, s.created_at, s.updated_at
FROM students s
LEFT JOIN student_status ss ON ss.student_id = s.id
WHERE s.class_id = $1 AND COALESCE(ss.status, 'active') = 'active'
ORDER BY s.full_name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("load class roster: %w", err)
	}
	return students, nil
}

// StudentSummary aggregates presence per student for a class.
func (r *AttendanceRepository) StudentSummary(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceSummary, error) {
	const query = `
SELECT s.id AS entity_id, s.full_name AS entity_name,
       COUNT(*) FILTER (WHERE sa.status = 'present') AS present_days,
       COUNT(*) FILTER (WHERE sa.status = 'absent') AS absent_days,
       CASE WHEN COUNT(sa.id) = 0 THEN 0
            ELSE ROUND(100.0 * COUNT(*) FILTER (WHERE sa.status = 'present') / COUNT(sa.id), 2)
       END AS percentage
FROM students s
LEFT JOIN student_attendance sa ON sa.student_id = s.id AND sa.date BETWEEN $2 AND $3
WHERE s.class_id = $1
GROUP BY s.id, s.full_name
ORDER BY s.full_name ASC`
	var summaries []models.AttendanceSummary
	if err := r.db.SelectContext(ctx, &summaries, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("summarise attendance: %w", err)
	}
	return summaries, nil
}
