package coupon

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service implements coupon operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput is the payload for creating a coupon. Codes are stored
// uppercase regardless of how they arrive.
type CreateInput struct {
	Code          string    `json:"code" validate:"required,min=3,max=32,alphanum"`
	DiscountType  string    `json:"discountType" validate:"required,oneof=percentage amount"`
	DiscountValue int64     `json:"discountValue" validate:"required,gt=0"`
	CourseID      string    `json:"courseId" validate:"omitempty,uuid4"`
	MaxUses       int       `json:"maxUses" validate:"gte=0"`
	ExpiresAt     time.Time `json:"expiresAt" validate:"required"`
}

// Create registers a new coupon.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Coupon, error) {
	c := &Coupon{
		ID:            uuid.NewString(),
		Code:          strings.ToUpper(strings.TrimSpace(in.Code)),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		CourseID:      in.CourseID,
		MaxUses:       in.MaxUses,
		Status:        StatusActive,
		ExpiresAt:     in.ExpiresAt,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetStatus flips a coupon between active and inactive.
func (s *Service) SetStatus(ctx context.Context, id, status string) error {
	return s.repo.SetStatus(ctx, id, status)
}

// List pages through all coupons.
func (s *Service) List(ctx context.Context, page, limit int) ([]Coupon, int, error) {
	return s.repo.List(ctx, page, limit)
}

// Stats returns aggregate usage numbers.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// Quote is the outcome of applying a coupon to a price.
type Quote struct {
	Code       string `json:"code"`
	Discount   int64  `json:"discount"`
	FinalPrice int64  `json:"finalPrice"`
}

// Validate checks a coupon against an account, course and price without
// consuming a use. An expired coupon is flipped to the expired status as a
// side effect so listings stay truthful.
func (s *Service) Validate(ctx context.Context, accountID, code, courseID string, price int64) (*Coupon, *Quote, error) {
	c, err := s.repo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, nil, ErrInvalid
	}
	if c.Status != StatusActive {
		return nil, nil, expiredOrInvalid(c)
	}
	if s.now().After(c.ExpiresAt) {
		if err := s.repo.SetStatus(ctx, c.ID, StatusExpired); err != nil {
			s.logger.Error("expire coupon", slog.Any("error", err))
		}
		return nil, nil, ErrExpired
	}
	if c.CourseID != "" && c.CourseID != courseID {
		return nil, nil, ErrCourseMismatch
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return nil, nil, ErrExhausted
	}
	used, err := s.repo.HasRedemption(ctx, c.ID, accountID)
	if err != nil {
		return nil, nil, err
	}
	if used {
		return nil, nil, ErrAlreadyUsed
	}
	discount := c.DiscountOn(price)
	return c, &Quote{Code: c.Code, Discount: discount, FinalPrice: price - discount}, nil
}

// Redeem validates a coupon and consumes one use for the account.
func (s *Service) Redeem(ctx context.Context, accountID, code, courseID string, price int64) (*Quote, error) {
	c, quote, err := s.Validate(ctx, accountID, code, courseID, price)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RecordRedemption(ctx, c.ID, accountID); err != nil {
		return nil, err
	}
	return quote, nil
}

func expiredOrInvalid(c *Coupon) error {
	if c.Status == StatusExpired {
		return ErrExpired
	}
	return ErrInvalid
}
