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

// TeacherRepository persists teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID returns the teacher profile by id.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, user_id, nip, full_name, phone, expertise, created_at, updated_at FROM teachers WHERE id = $1 LIMIT 1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByUserID returns the teacher profile owned by the user account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	const query = `SELECT id, user_id, nip, full_name, phone, expertise, created_at, updated_at FROM teachers WHERE user_id = $1 LIMIT 1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// List returns teachers with their effective status. A missing status row
// reads as active.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	base := `FROM teachers t
LEFT JOIN teacher_status ts ON ts.teacher_id = t.id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(t.full_name ILIKE $%d OR t.nip ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("COALESCE(ts.status, 'active') = $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT t.id, t.user_id, t.nip, t.full_name, t.phone, t.expertise, t.created_at, t.updated_at,
        COALESCE(ts.status, 'active') AS status
        %s ORDER BY t.full_name %s LIMIT %d OFFSET %d`, base+clause, order, size, offset)

	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// CreateWithAccount provisions the user account, the teacher profile and the
// all-false privilege row in one transaction.
func (r *TeacherRepository) CreateWithAccount(ctx context.Context, user *models.User, teacher *models.Teacher) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	teacher.UserID = user.ID
	user.CreatedAt, user.UpdatedAt = now, now
	teacher.CreatedAt, teacher.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provision teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO users (id, username, password_hash, role, active, created_at, updated_at)
		VALUES (:id, :username, :password_hash, :role, :active, :created_at, :updated_at)`, user); err != nil {
		return fmt.Errorf("insert teacher user: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO teachers (id, user_id, nip, full_name, phone, expertise, created_at, updated_at)
		VALUES (:id, :user_id, :nip, :full_name, :phone, :expertise, :created_at, :updated_at)`, teacher); err != nil {
		return fmt.Errorf("insert teacher profile: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO teacher_privileges (teacher_id, updated_at) VALUES ($1, $2)`, teacher.ID, now); err != nil {
		return fmt.Errorf("insert default privileges: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit provision teacher: %w", err)
	}
	return nil
}

// Update rewrites the mutable profile fields.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET nip = :nip, full_name = :full_name, phone = :phone, expertise = :expertise, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}
