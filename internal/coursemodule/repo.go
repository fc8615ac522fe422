package coursemodule

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub/internal/shared"
)

const moduleColumns = `id, course_id, title, position, lessons, created_at, updated_at, is_deleted`

// Repository defines persistence operations for course modules.
type Repository interface {
	Create(ctx context.Context, m *Module) error
	FindByID(ctx context.Context, id string) (*Module, error)
	Update(ctx context.Context, id string, fields Update) (*Module, error)
	Reorder(ctx context.Context, courseID string, orderedIDs []string) error
	SoftDelete(ctx context.Context, id string) error
	ListByCourse(ctx context.Context, courseID string) ([]Module, error)
}

// Update carries editable module fields. Nil means keep.
type Update struct {
	Title   *string
	Lessons *[]Lesson
}

// PGRepository implements Repository using PostgreSQL; lessons live in a
// JSONB column.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Create inserts a module at the end of its course's ordering.
func (r *PGRepository) Create(ctx context.Context, m *Module) error {
	const query = `INSERT INTO course_modules (
		id, course_id, title, position, lessons, created_at, updated_at, is_deleted
	) VALUES ($1, $2, $3,
		(SELECT COALESCE(MAX(position), 0) + 1 FROM course_modules WHERE course_id = $2 AND is_deleted = FALSE),
		$4, $5, $6, $7)`
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	_, err := r.pool.Exec(ctx, query, m.ID, m.CourseID, m.Title, m.Lessons, now, now, m.IsDeleted)
	return err
}

// FindByID fetches a live module by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM course_modules WHERE id = $1 AND is_deleted = FALSE`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, shared.ErrNotFound
	}
	return scanModule(rows)
}

// Update applies edits and returns the fresh record.
func (r *PGRepository) Update(ctx context.Context, id string, fields Update) (*Module, error) {
	const query = `UPDATE course_modules SET
		title = COALESCE($2, title),
		lessons = COALESCE($3, lessons),
		updated_at = $4
	WHERE id = $1 AND is_deleted = FALSE`

	var lessonsArg any
	if fields.Lessons != nil {
		lessonsArg = *fields.Lessons
	}
	tag, err := r.pool.Exec(ctx, query, id, textPtr(fields.Title), lessonsArg, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Reorder rewrites positions to match the supplied id ordering.
func (r *PGRepository) Reorder(ctx context.Context, courseID string, orderedIDs []string) error {
	const query = `UPDATE course_modules SET position = $3, updated_at = $4
		WHERE id = $1 AND course_id = $2 AND is_deleted = FALSE`
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		if _, err := r.pool.Exec(ctx, query, id, courseID, i+1, now); err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete flags the module deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE course_modules SET is_deleted = TRUE, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	tag, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListByCourse returns a course's live modules in display order.
func (r *PGRepository) ListByCourse(ctx context.Context, courseID string) ([]Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM course_modules
		WHERE course_id = $1 AND is_deleted = FALSE ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := make([]Module, 0)
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, *m)
	}
	return modules, rows.Err()
}

func scanModule(row pgx.Row) (*Module, error) {
	var (
		m                    Module
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&m.ID, &m.CourseID, &m.Title, &m.Position, &m.Lessons,
		&createdAt, &updatedAt, &m.IsDeleted)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = createdAt.Time
	m.UpdatedAt = updatedAt.Time
	return &m, nil
}

func textPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
