package coupon

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

const couponColumns = `id, code, discount_type, discount_value, course_id,
	max_uses, used_count, status, expires_at, created_at, updated_at`

// Repository defines persistence operations for coupons.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	SetStatus(ctx context.Context, id, status string) error
	HasRedemption(ctx context.Context, couponID, accountID string) (bool, error)
	RecordRedemption(ctx context.Context, couponID, accountID string) error
	List(ctx context.Context, page, limit int) ([]Coupon, int, error)
	Stats(ctx context.Context) (*Stats, error)
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

// Create inserts a coupon. A code collision surfaces as shared.ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, c *Coupon) error {
	const query = `INSERT INTO coupons (
		id, code, discount_type, discount_value, course_id,
		max_uses, used_count, status, expires_at, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Code, c.DiscountType, c.DiscountValue, nullText(c.CourseID),
		c.MaxUses, c.UsedCount, c.Status, c.ExpiresAt.UTC(), now, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("coupon code: %w", shared.ErrDuplicate)
		}
		return err
	}
	return nil
}

// FindByCode fetches a coupon by its (uppercased) code.
func (r *PGRepository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	rows, err := r.pool.Query(ctx, query, strings.ToUpper(code))
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
	return scanCoupon(rows)
}

// SetStatus updates the coupon's lifecycle status.
func (r *PGRepository) SetStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE coupons SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HasRedemption reports whether the account already used the coupon.
func (r *PGRepository) HasRedemption(ctx context.Context, couponID, accountID string) (bool, error) {
	const query = `SELECT EXISTS(
		SELECT 1 FROM coupon_redemptions WHERE coupon_id = $1 AND account_id = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, couponID, accountID).Scan(&exists)
	return exists, err
}

// RecordRedemption stores one account's use of a coupon and bumps the
// counter. The unique index on (coupon_id, account_id) backs the
// one-use-per-account rule even under concurrent requests.
func (r *PGRepository) RecordRedemption(ctx context.Context, couponID, accountID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `INSERT INTO coupon_redemptions (coupon_id, account_id, redeemed_at)
		VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, insert, couponID, accountID, time.Now().UTC()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyUsed
		}
		return err
	}
	const bump = `UPDATE coupons SET used_count = used_count + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, bump, couponID, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// List pages through all coupons, newest first.
func (r *PGRepository) List(ctx context.Context, page, limit int) ([]Coupon, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	coupons := make([]Coupon, 0, limit)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, total, rows.Err()
}

// Stats aggregates coupon counts by status plus total redemptions.
func (r *PGRepository) Stats(ctx context.Context) (*Stats, error) {
	const query = `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'active'),
		COUNT(*) FILTER (WHERE status = 'inactive'),
		COUNT(*) FILTER (WHERE status = 'expired'),
		(SELECT COUNT(*) FROM coupon_redemptions)
	FROM coupons`
	var s Stats
	err := r.pool.QueryRow(ctx, query).Scan(&s.Total, &s.Active, &s.Inactive, &s.Expired, &s.Redemptions)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanCoupon(row pgx.Row) (*Coupon, error) {
	var (
		c                               Coupon
		courseID                        pgtype.Text
		expiresAt, createdAt, updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &courseID,
		&c.MaxUses, &c.UsedCount, &c.Status, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.CourseID = courseID.String
	c.ExpiresAt = expiresAt.Time
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
