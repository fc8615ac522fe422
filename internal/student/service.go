package student

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/account"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/shared"
	"github.com/learnhub/learnhub/jobs"
)

const (
	bcryptCost = 12
	otpTTL     = 10 * time.Minute
)

var (
	// ErrNotVerified means the account exists but its email has not been
	// confirmed yet.
	ErrNotVerified = errors.New("student: account not verified")
	// ErrOTPInvalid covers a wrong or expired verification code.
	ErrOTPInvalid = errors.New("student: invalid or expired code")
)

// Notifier enqueues the outbound messages the registration flow produces.
// Satisfied by jobs.Client; tests plug in a recorder.
type Notifier interface {
	EnqueueOTPEmail(ctx context.Context, payload jobs.OTPEmailPayload) error
	EnqueueOTPSMS(ctx context.Context, payload jobs.OTPSMSPayload) error
	EnqueueWelcomeEmail(ctx context.Context, payload jobs.WelcomeEmailPayload) error
}

// Service implements student account flows on the unified account store.
type Service struct {
	repo     account.Repository
	codec    *auth.Codec
	resolver *auth.Resolver
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo account.Repository, codec *auth.Codec, resolver *auth.Resolver, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		codec:    codec,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterInput is the payload for manual sign-up. AuthInput accepts either
// an email address or a phone number.
type RegisterInput struct {
	FullName  string `json:"fullName" validate:"required,min=2,max=100"`
	AuthInput string `json:"authInput" validate:"required"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

// TokenPair carries a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Register creates a student account. Email sign-ups start unverified and
// get a code to confirm the mailbox; phone-only sign-ups have nothing to
// confirm and are usable immediately.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*account.Account, error) {
	email, phone, err := classifyAuthInput(in.AuthInput)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &account.Account{
		ID:               uuid.NewString(),
		FullName:         strings.TrimSpace(in.FullName),
		Email:            email,
		Phone:            phone,
		PasswordHash:     string(hash),
		Role:             auth.RoleStudent,
		RegistrationType: account.RegistrationManual,
		Status:           auth.StatusActive,
	}
	if email == "" {
		acct.EmailVerified = true
	} else {
		code, err := generateOTP()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		acct.OTPCode = code
		acct.OTPExpire = s.now().Add(otpTTL)
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}

	if acct.OTPCode != "" {
		s.sendOTP(ctx, acct, acct.OTPCode)
	}
	return acct, nil
}

// VerifyOTPInput confirms a code sent during registration or resend.
type VerifyOTPInput struct {
	AuthInput string `json:"authInput" validate:"required"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyOTP checks the stored code and marks the account verified.
func (s *Service) VerifyOTP(ctx context.Context, in VerifyOTPInput) error {
	acct, err := s.findByAuthInput(ctx, in.AuthInput)
	if err != nil {
		return err
	}
	if acct.OTPCode == "" || acct.OTPCode != in.Code || s.now().After(acct.OTPExpire) {
		return ErrOTPInvalid
	}
	if err := s.repo.ConsumeOTP(ctx, acct.ID); err != nil {
		return err
	}
	if acct.Email != "" && s.notifier != nil {
		if err := s.notifier.EnqueueWelcomeEmail(ctx, jobs.WelcomeEmailPayload{
			To:       acct.Email,
			FullName: acct.FullName,
		}); err != nil {
			s.logger.Error("enqueue welcome email", slog.Any("error", err))
		}
	}
	return nil
}

// ResendOTPInput requests a fresh verification code.
type ResendOTPInput struct {
	AuthInput string `json:"authInput" validate:"required"`
}

// ResendOTP replaces any outstanding code with a new one.
func (s *Service) ResendOTP(ctx context.Context, in ResendOTPInput) error {
	acct, err := s.findByAuthInput(ctx, in.AuthInput)
	if err != nil {
		return err
	}
	if acct.EmailVerified {
		// Already verified; nothing to resend, but do not say so out loud.
		return nil
	}
	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.repo.SetOTP(ctx, acct.ID, code, s.now().Add(otpTTL)); err != nil {
		return err
	}
	acct.OTPCode = code
	s.sendOTP(ctx, acct, code)
	return nil
}

// LoginInput is the payload for password login.
type LoginInput struct {
	AuthInput string `json:"authInput" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// Login verifies credentials and issues a token pair. Accounts with an
// unconfirmed email are turned away before the password is even checked;
// phone-only accounts never carry that gate.
func (s *Service) Login(ctx context.Context, in LoginInput) (*account.Account, *TokenPair, error) {
	acct, err := s.findByAuthInput(ctx, in.AuthInput)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if acct.Role.Kind() != auth.KindStudent || acct.Status != auth.StatusActive || acct.IsDeleted {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if acct.Email != "" && !acct.EmailVerified {
		return nil, nil, ErrNotVerified
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)) != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	pair, err := s.issueTokens(acct)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.TouchLastLogin(ctx, acct.ID); err != nil {
		s.logger.Error("touch last login", slog.Any("error", err))
	}
	return acct, pair, nil
}

// SocialLoginInput is the payload for Google or Facebook sign-in, posted
// after the frontend completes the provider handshake.
type SocialLoginInput struct {
	Provider     string `json:"provider" validate:"required,oneof=google facebook"`
	ProviderID   string `json:"providerId" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	FullName     string `json:"fullName" validate:"required,min=2,max=100"`
	ProfileImage string `json:"profileImage" validate:"omitempty,url"`
}

// SocialLogin signs in an existing account by email or provisions a new
// verified one. First social login on a manual account links the provider id.
func (s *Service) SocialLogin(ctx context.Context, in SocialLoginInput) (*account.Account, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	acct, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		acct = &account.Account{
			ID:               uuid.NewString(),
			FullName:         strings.TrimSpace(in.FullName),
			Email:            email,
			Role:             auth.RoleStudent,
			RegistrationType: in.Provider,
			EmailVerified:    true,
			Status:           auth.StatusActive,
			ProfileImage:     in.ProfileImage,
		}
		switch in.Provider {
		case account.RegistrationGoogle:
			acct.GoogleID = in.ProviderID
		case account.RegistrationFacebook:
			acct.FacebookID = in.ProviderID
		}
		if err := s.repo.Create(ctx, acct); err != nil {
			return nil, nil, err
		}
	case err != nil:
		return nil, nil, err
	default:
		if acct.Role.Kind() != auth.KindStudent || acct.Status != auth.StatusActive || acct.IsDeleted {
			return nil, nil, shared.ErrInvalidCredentials
		}
		if err := s.repo.LinkSocialID(ctx, acct.ID, in.Provider, in.ProviderID); err != nil {
			return nil, nil, err
		}
	}

	pair, err := s.issueTokens(acct)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.TouchLastLogin(ctx, acct.ID); err != nil {
		s.logger.Error("touch last login", slog.Any("error", err))
	}
	return acct, pair, nil
}

// Refresh validates a refresh token and mints a new access token. The
// refresh token itself is left alone until it expires.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	principal, err := s.resolver.ResolveRefresh(ctx, refreshToken, auth.KindStudent)
	if err != nil {
		return "", err
	}
	return s.codec.IssueAccessToken(auth.NewClaims(
		principal.ID, auth.KindStudent, principal.Role, principal.Email, principal.RegistrationType))
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

// UpdateProfile applies self-service edits.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (*account.Account, error) {
	return s.repo.UpdateProfile(ctx, accountID, account.ProfileUpdate{
		FullName:     in.FullName,
		Phone:        in.Phone,
		ProfileImage: in.ProfileImage,
	})
}

func (s *Service) issueTokens(acct *account.Account) (*TokenPair, error) {
	claims := auth.NewClaims(acct.ID, auth.KindStudent, acct.Role, acct.Email, acct.RegistrationType)
	access, err := s.codec.IssueAccessToken(claims)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefreshToken(claims)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) sendOTP(ctx context.Context, acct *account.Account, code string) {
	if s.notifier == nil {
		return
	}
	var err error
	if acct.Email != "" {
		err = s.notifier.EnqueueOTPEmail(ctx, jobs.OTPEmailPayload{
			To: acct.Email, FullName: acct.FullName, Code: code,
		})
	} else {
		err = s.notifier.EnqueueOTPSMS(ctx, jobs.OTPSMSPayload{
			Phone: acct.Phone, FullName: acct.FullName, Code: code,
		})
	}
	if err != nil {
		s.logger.Error("enqueue verification code", slog.Any("error", err))
	}
}

func (s *Service) findByAuthInput(ctx context.Context, authInput string) (*account.Account, error) {
	email, phone, err := classifyAuthInput(authInput)
	if err != nil {
		return nil, err
	}
	if email != "" {
		return s.repo.FindByEmail(ctx, email)
	}
	return s.repo.FindByPhone(ctx, phone)
}

// classifyAuthInput decides whether the identifier is an email address or a
// phone number. Anything containing "@" must parse as an email; otherwise it
// must look like a dialable number.
func classifyAuthInput(raw string) (email, phone string, err error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", shared.ErrInvalidCredentials
	}
	if strings.Contains(trimmed, "@") {
		at := strings.LastIndex(trimmed, "@")
		if at == 0 || at == len(trimmed)-1 || !strings.Contains(trimmed[at:], ".") {
			return "", "", shared.ErrInvalidCredentials
		}
		return strings.ToLower(trimmed), "", nil
	}
	digits := strings.TrimPrefix(trimmed, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", "", shared.ErrInvalidCredentials
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", "", shared.ErrInvalidCredentials
		}
	}
	return "", trimmed, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
