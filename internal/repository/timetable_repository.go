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

// TimetableRepository persists weekly timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// SlotTaken checks whether a class already has an entry for the day/period.
func (r *TimetableRepository) SlotTaken(ctx context.Context, classID, dayOfWeek string, period int) (bool, error) {
	const query = `SELECT 1 FROM timetable WHERE class_id = $1 AND day_of_week = $2 AND period = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, dayOfWeek, period); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check timetable slot: %w", err)
	}
	return true, nil
}

// Create inserts a new timetable entry.
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO timetable (id, class_id, subject_id, teacher_id, day_of_week, period, start_time, end_time, created_at)
		VALUES (:id, :class_id, :subject_id, :teacher_id, :day_of_week, :period, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create timetable entry: %w", err)
	}
	return nil
}

// Delete removes a timetable entry.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetable WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted timetable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByClass returns the class's weekly schedule.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID string) ([]models.TimetableDetail, error) {
	const query = `
SELECT tt.id, tt.class_id, tt.subject_id, tt.teacher_id, tt.day_of_week, tt.period, tt.start_time, tt.end_time, tt.created_at,
       c.name AS class_name, c.section AS section, s.name AS subject_name, t.full_name AS teacher_name
FROM timetable tt
JOIN classes c ON c.id = tt.class_id
JOIN subjects s ON s.id = tt.subject_id
LEFT JOIN teachers t ON t.id = tt.teacher_id
WHERE tt.class_id = $1
ORDER BY tt.day_of_week ASC, tt.period ASC`
	var entries []models.TimetableDetail
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list class timetable: %w", err)
	}
	return entries, nil
}

// ListByTeacher returns all entries taught by a teacher.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableDetail, error) {
	const query = `
SELECT tt.id, tt.class_id, tt.subject_id, tt.teacher_id, tt.day_of_week, tt.period, tt.start_time, tt.end_time, tt.created_at,
       c.name AS class_name, c.section AS section, s.name AS subject_name, t.full_name AS teacher_name
FROM timetable tt
JOIN classes c ON c.id = tt.class_id
JOIN subjects s ON s.id = tt.subject_id
LEFT JOIN teachers t ON t.id = tt.teacher_id
WHERE tt.teacher_id = $1
ORDER BY tt.day_of_week ASC, tt.period ASC`
	var entries []models.TimetableDetail
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher timetable: %w", err)
	}
	return entries, nil
}
