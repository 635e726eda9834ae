package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/admin-api/internal/models"
)

// StudentRepository persists student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns the student profile by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, user_id, admission_number, full_name, class_id, guardian, phone, created_at, updated_at FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student profile owned by the user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, admission_number, full_name, class_id, guardian, phone, created_at, updated_at FROM students WHERE user_id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID returns the student with class context and effective status.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `
SELECT s.id, s.user_id, s.admission_number, s.full_name, s.class_id, s.guardian, s.phone, s.created_at, s.updated_at,
       c.name AS class_name, c.section AS section,
       COALESCE(ss.status, 'active') AS status
FROM students s
LEFT JOIN classes c ON c.id = s.class_id
LEFT JOIN student_status ss ON ss.student_id = s.id
WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns students matching the filter, including effective status.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
LEFT JOIN classes c ON c.id = s.class_id
LEFT JOIN student_status ss ON ss.student_id = s.id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.full_name ILIKE $%d OR s.admission_number ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("COALESCE(ss.status, 'active') = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.user_id, s.admission_number, s.full_name, s.class_id, s.guardian, s.phone, s.created_at, s.updated_at,
        c.name AS class_name, c.section AS section,
        COALESCE(ss.status, 'active') AS status
        %s ORDER BY s.full_name %s LIMIT %d OFFSET %d`, base+clause, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// CreateWithAccount provisions the user account and the student profile in
// one transaction. When a class is set, the student is enrolled into every
// subject of that class as part of the same transaction.
func (r *StudentRepository) CreateWithAccount(ctx context.Context, user *models.User, student *models.Student) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.UserID = user.ID
	user.CreatedAt, user.UpdatedAt = now, now
	student.CreatedAt, student.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provision student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO users (id, username, password_hash, role, active, created_at, updated_at)
		VALUES (:id, :username, :password_hash, :role, :active, :created_at, :updated_at)`, user); err != nil {
		return fmt.Errorf("insert student user: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO students (id, user_id, admission_number, full_name, class_id, guardian, phone, created_at, updated_at)
		VALUES (:id, :user_id, :admission_number, :full_name, :class_id, :guardian, :phone, :created_at, :updated_at)`, student); err != nil {
		return fmt.Errorf("insert student profile: %w", err)
	}
	if student.ClassID != nil {
		if err = enrollClassSubjects(ctx, tx, student.ID, *student.ClassID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit provision student: %w", err)
	}
	return nil
}

// Update rewrites the mutable profile fields. Class changes go through the
// assignment repository so enrollments stay consistent.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET admission_number = :admission_number, full_name = :full_name, guardian = :guardian, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// enrollClassSubjects inserts one enrollment row per subject of the class,
// using the caller's transaction.
func enrollClassSubjects(ctx context.Context, tx *sqlx.Tx, studentID, classID string) error {
	var subjectIDs []string
	if err := tx.SelectContext(ctx, &subjectIDs, `SELECT id FROM subjects WHERE class_id = $1 ORDER BY name ASC`, classID); err != nil {
		return fmt.Errorf("load class subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)`, studentID, subjectID); err != nil {
			return fmt.Errorf("enroll subject: %w", err)
		}
	}
	return nil
}
