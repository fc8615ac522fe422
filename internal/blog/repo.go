package blog

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

const postColumns = `id, title, slug, excerpt, content, cover_image, tags,
	author_id, author_name, published, views, created_at, updated_at, is_deleted`

// Repository defines persistence operations for blog posts.
type Repository interface {
	Create(ctx context.Context, p *Post) error
	FindByID(ctx context.Context, id string) (*Post, error)
	FindBySlug(ctx context.Context, slug string) (*Post, error)
	Update(ctx context.Context, id string, fields Update) (*Post, error)
	SetPublished(ctx context.Context, id string, published bool) error
	IncrementViews(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]Post, int, error)
}

// Update carries editable post fields. Nil means keep.
type Update struct {
	Title      *string
	Slug       *string
	Excerpt    *string
	Content    *string
	CoverImage *string
	Tags       *[]string
}

// ListFilter narrows and pages post listings.
type ListFilter struct {
	PublishedOnly bool
	Tag           string
	Search        string
	AuthorID      string
	Page          int
	Limit         int
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Create inserts a new post. A slug collision surfaces as shared.ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, p *Post) error {
	const query = `INSERT INTO blog_posts (
		id, title, slug, excerpt, content, cover_image, tags,
		author_id, author_name, published, views, created_at, updated_at, is_deleted
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.Slug, nullText(p.Excerpt), p.Content, nullText(p.CoverImage),
		textArray(p.Tags), p.AuthorID, p.AuthorName, p.Published, p.Views,
		now, now, p.IsDeleted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("post slug: %w", shared.ErrDuplicate)
		}
		return err
	}
	return nil
}

// FindByID fetches a live post by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE id = $1 AND is_deleted = FALSE`
	return r.findOne(ctx, query, id)
}

// FindBySlug fetches a live post by slug.
func (r *PGRepository) FindBySlug(ctx context.Context, slug string) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE slug = $1 AND is_deleted = FALSE`
	return r.findOne(ctx, query, slug)
}

// Update applies edits and returns the fresh record.
func (r *PGRepository) Update(ctx context.Context, id string, fields Update) (*Post, error) {
	const query = `UPDATE blog_posts SET
		title = COALESCE($2, title),
		slug = COALESCE($3, slug),
		excerpt = COALESCE($4, excerpt),
		content = COALESCE($5, content),
		cover_image = COALESCE($6, cover_image),
		tags = COALESCE($7, tags),
		updated_at = $8
	WHERE id = $1 AND is_deleted = FALSE`

	var tags pgtype.FlatArray[string]
	var tagsArg any
	if fields.Tags != nil {
		tags = pgtype.FlatArray[string](*fields.Tags)
		tagsArg = tags
	}
	tag, err := r.pool.Exec(ctx, query, id,
		textPtr(fields.Title), textPtr(fields.Slug), textPtr(fields.Excerpt),
		textPtr(fields.Content), textPtr(fields.CoverImage), tagsArg, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("post slug: %w", shared.ErrDuplicate)
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// SetPublished flips post visibility.
func (r *PGRepository) SetPublished(ctx context.Context, id string, published bool) error {
	const query = `UPDATE blog_posts SET published = $2, updated_at = $3
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, published, time.Now().UTC())
}

// IncrementViews bumps the read counter. Fire-and-forget semantics; the
// caller ignores a miss.
func (r *PGRepository) IncrementViews(ctx context.Context, id string) error {
	const query = `UPDATE blog_posts SET views = views + 1 WHERE id = $1 AND is_deleted = FALSE`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// SoftDelete flags the post deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE blog_posts SET is_deleted = TRUE, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, time.Now().UTC())
}

// List pages through posts matching the filter.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Post, int, error) {
	where := []string{"is_deleted = FALSE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PublishedOnly {
		where = append(where, "published = TRUE")
	}
	if filter.Tag != "" {
		where = append(where, arg(filter.Tag)+" = ANY(tags)")
	}
	if filter.AuthorID != "" {
		where = append(where, "author_id = "+arg(filter.AuthorID))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(title ILIKE "+arg(pattern)+" OR excerpt ILIKE "+arg(pattern)+")")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM blog_posts WHERE "+clause, args...).Scan(&total); err != nil {
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
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE ` + clause +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	return posts, total, rows.Err()
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...any) (*Post, error) {
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
	return scanPost(rows)
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

func scanPost(row pgx.Row) (*Post, error) {
	var (
		p                    Post
		excerpt, coverImage  pgtype.Text
		tags                 pgtype.FlatArray[string]
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &excerpt, &p.Content, &coverImage,
		&tags, &p.AuthorID, &p.AuthorName, &p.Published, &p.Views,
		&createdAt, &updatedAt, &p.IsDeleted)
	if err != nil {
		return nil, err
	}
	p.Excerpt = excerpt.String
	p.CoverImage = coverImage.String
	p.Tags = []string(tags)
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return &p, nil
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

func textArray(values []string) pgtype.FlatArray[string] {
	if values == nil {
		values = []string{}
	}
	return pgtype.FlatArray[string](values)
}
