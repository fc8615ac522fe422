package account

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

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

const uniqueViolation = "23505"

const accountColumns = `id, full_name, email, phone, password_hash, role, registration_type,
	email_verified, otp_code, otp_expire, status, profile_image, google_id, facebook_id,
	permissions, active_course_ids, last_login, created_at, updated_at, is_deleted`

// Repository defines persistence operations for accounts.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByPhone(ctx context.Context, phone string) (*Account, error)
	UpdateProfile(ctx context.Context, id string, fields ProfileUpdate) (*Account, error)
	AdminUpdate(ctx context.Context, id string, fields AdminUpdate) (*Account, error)
	SetOTP(ctx context.Context, id, code string, expire time.Time) error
	ConsumeOTP(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string) error
	LinkSocialID(ctx context.Context, id, provider, socialID string) error
	GrantCourse(ctx context.Context, id, courseID string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]Account, int, error)
}

// ProfileUpdate carries the self-service editable fields. Nil means keep.
type ProfileUpdate struct {
	FullName     *string
	Phone        *string
	ProfileImage *string
}

// AdminUpdate carries the fields an admin may change on any account.
type AdminUpdate struct {
	FullName      *string
	Email         *string
	Phone         *string
	Status        *string
	EmailVerified *bool
	ProfileImage  *string
	Role          *auth.Role
	Permissions   *[]string
}

// ListFilter narrows and pages account listings.
type ListFilter struct {
	Role             auth.Role
	Kind             auth.Kind
	Status           string
	RegistrationType string
	EmailVerified    *bool
	Search           string
	Page             int
	Limit            int
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

// Create inserts a new account. Duplicate email or phone surfaces as
// shared.ErrDuplicate so handlers can answer 400 instead of 500.
func (r *PGRepository) Create(ctx context.Context, account *Account) error {
	const query = `INSERT INTO accounts (
		id, full_name, email, phone, password_hash, role, registration_type,
		email_verified, otp_code, otp_expire, status, profile_image, google_id, facebook_id,
		permissions, active_course_ids, last_login, created_at, updated_at, is_deleted
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	_, err := r.pool.Exec(ctx, query,
		account.ID, account.FullName, nullText(account.Email), nullText(account.Phone),
		nullText(account.PasswordHash), string(account.Role), account.RegistrationType,
		account.EmailVerified, nullText(account.OTPCode), nullTime(account.OTPExpire),
		account.Status, nullText(account.ProfileImage), nullText(account.GoogleID),
		nullText(account.FacebookID), textArray(account.Permissions), textArray(account.ActiveCourseIDs),
		nullTime(account.LastLogin), now, now, account.IsDeleted,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("account %s: %w", duplicateField(pgErr.ConstraintName), shared.ErrDuplicate)
		}
		return err
	}
	return nil
}

// FindByID fetches an account regardless of its deletion flag; the auth
// resolver needs to see soft-deleted records to reject them.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByEmail fetches a live account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND is_deleted = FALSE`
	return r.findOne(ctx, query, strings.ToLower(email))
}

// FindByPhone fetches a live account by phone number.
func (r *PGRepository) FindByPhone(ctx context.Context, phone string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE phone = $1 AND is_deleted = FALSE`
	return r.findOne(ctx, query, phone)
}

// UpdateProfile applies self-service edits and returns the fresh record.
func (r *PGRepository) UpdateProfile(ctx context.Context, id string, fields ProfileUpdate) (*Account, error) {
	const query = `UPDATE accounts SET
		full_name = COALESCE($2, full_name),
		phone = COALESCE($3, phone),
		profile_image = COALESCE($4, profile_image),
		updated_at = $5
	WHERE id = $1 AND is_deleted = FALSE`
	tag, err := r.pool.Exec(ctx, query, id,
		textPtr(fields.FullName), textPtr(fields.Phone), textPtr(fields.ProfileImage),
		time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// AdminUpdate applies administrative edits and returns the fresh record.
func (r *PGRepository) AdminUpdate(ctx context.Context, id string, fields AdminUpdate) (*Account, error) {
	const query = `UPDATE accounts SET
		full_name = COALESCE($2, full_name),
		email = COALESCE($3, email),
		phone = COALESCE($4, phone),
		status = COALESCE($5, status),
		email_verified = COALESCE($6, email_verified),
		profile_image = COALESCE($7, profile_image),
		role = COALESCE($8, role),
		permissions = COALESCE($9, permissions),
		updated_at = $10
	WHERE id = $1 AND is_deleted = FALSE`

	var role *string
	if fields.Role != nil {
		s := string(*fields.Role)
		role = &s
	}
	var perms pgtype.FlatArray[string]
	var permsArg any
	if fields.Permissions != nil {
		perms = pgtype.FlatArray[string](*fields.Permissions)
		permsArg = perms
	}
	tag, err := r.pool.Exec(ctx, query, id,
		textPtr(fields.FullName), textPtr(fields.Email), textPtr(fields.Phone),
		textPtr(fields.Status), fields.EmailVerified, textPtr(fields.ProfileImage),
		role, permsArg, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("account %s: %w", duplicateField(pgErr.ConstraintName), shared.ErrDuplicate)
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// SetOTP stores a fresh verification code.
func (r *PGRepository) SetOTP(ctx context.Context, id, code string, expire time.Time) error {
	const query = `UPDATE accounts SET otp_code = $2, otp_expire = $3, updated_at = $4
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, code, expire.UTC(), time.Now().UTC())
}

// ConsumeOTP clears the stored code and marks the email verified.
func (r *PGRepository) ConsumeOTP(ctx context.Context, id string) error {
	const query = `UPDATE accounts SET otp_code = NULL, otp_expire = NULL,
		email_verified = TRUE, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, time.Now().UTC())
}

// TouchLastLogin records a successful login. Only the login flow calls this;
// guards never write.
func (r *PGRepository) TouchLastLogin(ctx context.Context, id string) error {
	const query = `UPDATE accounts SET last_login = $2 WHERE id = $1`
	return r.exec(ctx, query, id, time.Now().UTC())
}

// LinkSocialID attaches a provider id on first social login.
func (r *PGRepository) LinkSocialID(ctx context.Context, id, provider, socialID string) error {
	column := "google_id"
	if provider == RegistrationFacebook {
		column = "facebook_id"
	}
	query := `UPDATE accounts SET ` + column + ` = $2, updated_at = $3
		WHERE id = $1 AND ` + column + ` IS NULL`
	_, err := r.pool.Exec(ctx, query, id, socialID, time.Now().UTC())
	return err
}

// GrantCourse adds a course to the account's active set, idempotently.
func (r *PGRepository) GrantCourse(ctx context.Context, id, courseID string) error {
	const query = `UPDATE accounts
		SET active_course_ids = array_append(active_course_ids, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(active_course_ids))`
	_, err := r.pool.Exec(ctx, query, id, courseID, time.Now().UTC())
	return err
}

// SoftDelete flags the account deleted; the auth resolver treats it as gone.
func (r *PGRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE accounts SET is_deleted = TRUE, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`
	return r.exec(ctx, query, id, time.Now().UTC())
}

// List pages through live accounts matching the filter.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Account, int, error) {
	where := []string{"is_deleted = FALSE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Role != "" {
		where = append(where, "role = "+arg(string(filter.Role)))
	} else if filter.Kind == auth.KindAdmin {
		where = append(where, "role IN ('admin','super_admin','moderator')")
	} else if filter.Kind == auth.KindStudent {
		where = append(where, "role IN ('student','mentor')")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.RegistrationType != "" {
		where = append(where, "registration_type = "+arg(filter.RegistrationType))
	}
	if filter.EmailVerified != nil {
		where = append(where, "email_verified = "+arg(*filter.EmailVerified))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(full_name ILIKE "+arg(pattern)+" OR email ILIKE "+arg(pattern)+")")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts WHERE "+clause, args...).Scan(&total); err != nil {
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
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + clause +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := make([]Account, 0, limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, total, rows.Err()
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...any) (*Account, error) {
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
	return scanAccount(rows)
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

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		account                            Account
		email, phone, password, otp        pgtype.Text
		profileImage, googleID, facebookID pgtype.Text
		otpExpire, lastLogin               pgtype.Timestamptz
		createdAt, updatedAt               pgtype.Timestamptz
		role                               string
		permissions, courses               pgtype.FlatArray[string]
	)
	err := row.Scan(&account.ID, &account.FullName, &email, &phone, &password, &role,
		&account.RegistrationType, &account.EmailVerified, &otp, &otpExpire, &account.Status,
		&profileImage, &googleID, &facebookID, &permissions, &courses, &lastLogin,
		&createdAt, &updatedAt, &account.IsDeleted)
	if err != nil {
		return nil, err
	}
	account.Email = email.String
	account.Phone = phone.String
	account.PasswordHash = password.String
	account.OTPCode = otp.String
	account.ProfileImage = profileImage.String
	account.GoogleID = googleID.String
	account.FacebookID = facebookID.String
	account.Role = auth.Role(role)
	account.Permissions = []string(permissions)
	account.ActiveCourseIDs = []string(courses)
	account.OTPExpire = otpExpire.Time
	account.LastLogin = lastLogin.Time
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time
	return &account, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nullTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: !t.IsZero()}
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

func duplicateField(constraint string) string {
	switch {
	case strings.Contains(constraint, "phone"):
		return "phone"
	case strings.Contains(constraint, "email"):
		return "email"
	default:
		return "record"
	}
}
