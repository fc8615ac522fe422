package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/learnhub/internal/shared"
)

const paymentColumns = `id, account_id, course_id, course_title, amount, discount,
	coupon_code, method, transaction_id, sender_number, status, reason,
	decided_by, decided_at, created_at, updated_at`

// Repository defines persistence operations for payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
	Decide(ctx context.Context, id, status, reason, decidedBy string) (*Payment, error)
	HasPendingOrAccepted(ctx context.Context, accountID, courseID string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Payment, int, error)
}

// ListFilter narrows and pages payment listings.
type ListFilter struct {
	AccountID string
	Status    string
	Page      int
	Limit     int
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

// Create inserts a new payment claim.
func (r *PGRepository) Create(ctx context.Context, p *Payment) error {
	const query = `INSERT INTO payments (
		id, account_id, course_id, course_title, amount, discount,
		coupon_code, method, transaction_id, sender_number, status, reason,
		decided_by, decided_at, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.AccountID, p.CourseID, p.CourseTitle, p.Amount, p.Discount,
		nullText(p.CouponCode), p.Method, p.TransactionID, nullText(p.SenderNumber),
		p.Status, nullText(p.Reason), nullText(p.DecidedBy), nil, now, now)
	return err
}

// FindByID fetches a payment by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// Decide moves a pending payment to a final status. The WHERE clause on
// status makes the transition race-safe: a second decision affects zero
// rows and surfaces as ErrAlreadyDecided.
func (r *PGRepository) Decide(ctx context.Context, id, status, reason, decidedBy string) (*Payment, error) {
	const query = `UPDATE payments SET
		status = $2, reason = $3, decided_by = $4, decided_at = $5, updated_at = $5
	WHERE id = $1 AND status = 'pending'`

	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, query, id, status, nullText(reason), decidedBy, now)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyDecided
	}
	return r.FindByID(ctx, id)
}

// HasPendingOrAccepted reports whether the account already has an open or
// successful claim for the course.
func (r *PGRepository) HasPendingOrAccepted(ctx context.Context, accountID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(
		SELECT 1 FROM payments
		WHERE account_id = $1 AND course_id = $2 AND status IN ('pending', 'accepted'))`
	var exists bool
	err := r.pool.QueryRow(ctx, query, accountID, courseID).Scan(&exists)
	return exists, err
}

// List pages through payments matching the filter, newest first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AccountID != "" {
		where = append(where, "account_id = "+arg(filter.AccountID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM payments WHERE "+clause, args...).Scan(&total); err != nil {
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
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + clause +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments := make([]Payment, 0, limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, *p)
	}
	return payments, total, rows.Err()
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...any) (*Payment, error) {
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
	return scanPayment(rows)
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var (
		p                                         Payment
		couponCode, senderNumber, reason, decided pgtype.Text
		decidedAt                                 pgtype.Timestamptz
		createdAt, updatedAt                      pgtype.Timestamptz
	)
	err := row.Scan(&p.ID, &p.AccountID, &p.CourseID, &p.CourseTitle, &p.Amount,
		&p.Discount, &couponCode, &p.Method, &p.TransactionID, &senderNumber,
		&p.Status, &reason, &decided, &decidedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CouponCode = couponCode.String
	p.SenderNumber = senderNumber.String
	p.Reason = reason.String
	p.DecidedBy = decided.String
	if decidedAt.Valid {
		t := decidedAt.Time
		p.DecidedAt = &t
	}
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return &p, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
