package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/account"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
)

const bcryptCost = 12

// Service implements administrative account flows.
type Service struct {
	repo     account.Repository
	codec    *auth.Codec
	resolver *auth.Resolver
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo account.Repository, codec *auth.Codec, resolver *auth.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, codec: codec, resolver: resolver, logger: logger}
}

// WithAudit attaches an audit trail for account management actions.
func (s *Service) WithAudit(audit *shared.AuditLogger) *Service {
	s.audit = audit
	return s
}

// recordAudit writes an audit entry without failing the request. The acting
// admin is taken from the request context the guard populated.
func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actorID string
	if actor := auth.PrincipalFromContext(ctx, auth.KindAdmin); actor != nil {
		actorID = actor.ID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Error("record audit", slog.Any("error", err))
	}
}

// TokenPair carries a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput is the payload for creating an admin account. Only a
// super admin may submit it.
type RegisterInput struct {
	FullName    string   `json:"fullName" validate:"required,min=2,max=100"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	Role        string   `json:"role" validate:"required,oneof=admin super_admin moderator"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,min=1"`
}

// Register creates a new admin account. Admin accounts skip OTP: the
// creator vouches for the email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*account.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	acct := &account.Account{
		ID:               uuid.NewString(),
		FullName:         strings.TrimSpace(in.FullName),
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:     string(hash),
		Role:             auth.Role(in.Role),
		RegistrationType: account.RegistrationManual,
		EmailVerified:    true,
		Status:           auth.StatusActive,
		Permissions:      in.Permissions,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "account.create", acct.ID, map[string]any{"role": string(acct.Role)})
	return acct, nil
}

// LoginInput is the payload for admin password login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies admin credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, in LoginInput) (*account.Account, *TokenPair, error) {
	acct, err := s.repo.FindByEmail(ctx, strings.ToLower(in.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if acct.Role.Kind() != auth.KindAdmin || acct.Status != auth.StatusActive || acct.IsDeleted {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)) != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}

	claims := auth.NewClaims(acct.ID, auth.KindAdmin, acct.Role, acct.Email, acct.RegistrationType)
	access, err := s.codec.IssueAccessToken(claims)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.codec.IssueRefreshToken(claims)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.TouchLastLogin(ctx, acct.ID); err != nil {
		s.logger.Error("touch last login", slog.Any("error", err))
	}
	return acct, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates an admin refresh token and mints a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	principal, err := s.resolver.ResolveRefresh(ctx, refreshToken, auth.KindAdmin)
	if err != nil {
		return "", err
	}
	return s.codec.IssueAccessToken(auth.NewClaims(
		principal.ID, auth.KindAdmin, principal.Role, principal.Email, principal.RegistrationType))
}

// Profile loads the caller's own account.
func (s *Service) Profile(ctx context.Context, accountID string) (*account.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

// UpdateProfileInput carries the self-service editable fields.
type UpdateProfileInput struct {
	FullName     *string `json:"fullName" validate:"omitempty,min=2,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,min=7,max=20"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,url"`
}

// UpdateProfile applies self-service edits to the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (*account.Account, error) {
	return s.repo.UpdateProfile(ctx, accountID, account.ProfileUpdate{
		FullName:     in.FullName,
		Phone:        in.Phone,
		ProfileImage: in.ProfileImage,
	})
}

// ListAccounts pages through accounts matching the filter.
func (s *Service) ListAccounts(ctx context.Context, filter account.ListFilter) ([]account.Account, int, error) {
	return s.repo.List(ctx, filter)
}

// GetAccount loads any single account for admin inspection.
func (s *Service) GetAccount(ctx context.Context, id string) (*account.Account, error) {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct.IsDeleted {
		return nil, shared.ErrNotFound
	}
	return acct, nil
}

// UpdateAccountInput carries admin-editable account fields. Nil means keep.
type UpdateAccountInput struct {
	FullName      *string   `json:"fullName" validate:"omitempty,min=2,max=100"`
	Email         *string   `json:"email" validate:"omitempty,email"`
	Phone         *string   `json:"phone" validate:"omitempty,min=7,max=20"`
	Status        *string   `json:"status" validate:"omitempty,oneof=active inactive blocked"`
	EmailVerified *bool     `json:"emailVerified"`
	Role          *string   `json:"role" validate:"omitempty,oneof=student mentor admin super_admin moderator"`
	Permissions   *[]string `json:"permissions"`
}

// UpdateAccount applies administrative edits to any account.
func (s *Service) UpdateAccount(ctx context.Context, id string, in UpdateAccountInput) (*account.Account, error) {
	fields := account.AdminUpdate{
		FullName:      in.FullName,
		Email:         in.Email,
		Phone:         in.Phone,
		Status:        in.Status,
		EmailVerified: in.EmailVerified,
		Permissions:   in.Permissions,
	}
	if in.Role != nil {
		role := auth.Role(*in.Role)
		fields.Role = &role
	}
	acct, err := s.repo.AdminUpdate(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if in.Role != nil {
		meta["role"] = *in.Role
	}
	if in.Status != nil {
		meta["status"] = *in.Status
	}
	s.recordAudit(ctx, "account.update", id, meta)
	return acct, nil
}

// DeleteAccount soft-deletes an account. Existing tokens die with it on the
// next guarded request.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "account.delete", id, nil)
	return nil
}
