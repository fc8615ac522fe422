package course

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub/internal/shared"
)

const uniqueViolation = "23505"

const courseColumns = `id, title, slug, description, thumbnail, price, discount_price,
	published, instructors, stats, created_at, updated_at, is_deleted`

// Repository defines persistence operations for courses.
type Repository interface {
	Create(ctx context.Context, c *Course) error
	FindByID(ctx context.Context, id string) (*Course, error)
	FindBySlug(ctx context.Context, slug string) (*Course, error)
	Update(ctx context.Context, id string, fields Update) (*Course, error)
	SetPublished(ctx context.Context, id string, published bool) error
	AddEnrollment(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]Course, int, error)
}

// Update carries editable course fields. Nil means keep.
type Update struct {
	Title         *string
	Slug          *string
	Description   *string
	Thumbnail     *string
	Price         *int64
	DiscountPrice *int64
	Instructors   *[]Instructor
}

// ListFilter narrows and pages course listings.
type ListFilter struct {
	PublishedOnly bool
	Search        string
	Page          int
	Limit         int
}

// PGRepository implements Repository using PostgreSQL. Instructors and
// stats live in JSONB columns; pgx marshals them through the json tags.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Create inserts a new course. A slug collision surfaces as shared.ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, c *Course) error {
	const query = `INSERT INTO courses (
		id, title, slug, description, thumbnail, price, discount_price,
		published, instructors, stats, created_at, updated_at, is_deleted
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Slug, nullText(c.Description), nullText(c.Thumbnail),
		c.Price, c.DiscountPrice, c.Published, c.Instructors, c.Stats,
		now, now, c.IsDeleted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("course slug: %w", shared.ErrDuplicate)
		}
		return err
	}
	return nil
}

// FindByID fetches a live course by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 AND is_deleted = FALSE`
	return r.findOne(ctx, query, id)
}

// FindBySlug fetches a live course by slug.
func (r *PGRepository) FindBySlug(ctx context.Context, slug string) (*Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE slug = $1 AND is_deleted = FALSE`
	return r.findOne(ctx, query, slug)
}

// Update applies edits and returns the fresh record.
func (r *PGRepository) Update(ctx context.Context, id string, fields Update) (*Course, error) {
	const query = `UPDATE courses SET
		title = COALESCE($2, title),
		slug = COALESCE($3, slug),
		description = COALESCE($4, description),
		thumbnail = COALESCE($5, thumbnail),
		price = COALESCE($6, price),
		discount_price = COALESCE($7, discount_price),
		instructors = COALESCE($8, instructors),
		updated_at = $9
	WHERE id = $1 AND is_deleted = FALSE`

	var instructorsArg any
	if fields.Instructors != nil {
		instructorsArg = *fields.Instructors
	}
	tag, err := r.pool.Exec(ctx, query, id,
		textPtr(fields.Title), textPtr(fields.Slug), textPtr(fields.Description),
		textPtr(fields.Thumbnail), fields.Price, fields.DiscountPrice,
		instructorsArg, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("course slug: %w", shared.ErrDuplicate)
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// SetPublished flips the publication flag.
func (r *PGRepository) SetPublished(ctx context.Context, id string, published bool) error {
	const query = `UPDATE courses SET published = $2, updated_at = $3
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, published, time.Now().UTC())
}

// AddEnrollment bumps the enrolled counter inside the stats document.
func (r *PGRepository) AddEnrollment(ctx context.Context, id string) error {
	const query = `UPDATE courses SET
		stats = jsonb_set(stats, '{enrolled}', (COALESCE((stats->>'enrolled')::int, 0) + 1)::text::jsonb),
		updated_at = $2
	WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, time.Now().UTC())
}

// SoftDelete flags the course deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE courses SET is_deleted = TRUE, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, time.Now().UTC())
}

// List pages through courses matching the filter.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Course, int, error) {
	where := []string{"is_deleted = FALSE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PublishedOnly {
		where = append(where, "published = TRUE")
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(title ILIKE "+arg(pattern)+" OR description ILIKE "+arg(pattern)+")")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE ` + clause +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	courses := make([]Course, 0, limit)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, *c)
	}
	return courses, total, rows.Err()
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...any) (*Course, error) {
	rows, err := r.pool.Query(ctx, query, args...)
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
	return scanCourse(rows)
}

func (r *PGRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanCourse(row pgx.Row) (*Course, error) {
	var (
		c                      Course
		description, thumbnail pgtype.Text
		createdAt, updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &description, &thumbnail,
		&c.Price, &c.DiscountPrice, &c.Published, &c.Instructors, &c.Stats,
		&createdAt, &updatedAt, &c.IsDeleted)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Thumbnail = thumbnail.String
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func textPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
