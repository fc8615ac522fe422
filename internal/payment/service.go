package payment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub/internal/account"
	"github.com/learnhub/learnhub/internal/coupon"
	"github.com/learnhub/learnhub/internal/course"
	"github.com/learnhub/learnhub/jobs"
)

// Catalog is the slice of the course store the payment flow needs.
type Catalog interface {
	FindByID(ctx context.Context, id string) (*course.Course, error)
	AddEnrollment(ctx context.Context, id string) error
}

// Accounts is the slice of the account store the payment flow needs.
type Accounts interface {
	FindByID(ctx context.Context, id string) (*account.Account, error)
	GrantCourse(ctx context.Context, id, courseID string) error
}

// CouponRedeemer consumes a coupon use during submission.
type CouponRedeemer interface {
	Redeem(ctx context.Context, accountID, code, courseID string, price int64) (*coupon.Quote, error)
}

// Notifier enqueues payment decision notifications. Satisfied by
// jobs.Client; tests plug in a recorder.
type Notifier interface {
	EnqueuePaymentStatusEmail(ctx context.Context, payload jobs.PaymentEmailPayload) error
	EnqueuePaymentStatusSMS(ctx context.Context, payload jobs.PaymentSMSPayload) error
}

// Service implements the manual payment flow.
type Service struct {
	repo     Repository
	catalog  Catalog
	accounts Accounts
	coupons  CouponRedeemer
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, catalog Catalog, accounts Accounts, coupons CouponRedeemer, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		accounts: accounts,
		coupons:  coupons,
		notifier: notifier,
		logger:   logger,
	}
}

// SubmitInput is the payload for reporting a payment.
type SubmitInput struct {
	CourseID      string `json:"courseId" validate:"required,uuid4"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Method        string `json:"method" validate:"required,oneof=bkash nagad rocket bank"`
	TransactionID string `json:"transactionId" validate:"required,min=4,max=64"`
	SenderNumber  string `json:"senderNumber" validate:"omitempty,min=7,max=20"`
	CouponCode    string `json:"couponCode" validate:"omitempty,min=3,max=32"`
}

// Submit records a payment claim. The reported amount must equal the
// course price after any coupon discount; a coupon use is consumed here,
// while the transaction is verified later by an admin.
func (s *Service) Submit(ctx context.Context, accountID string, in SubmitInput) (*Payment, error) {
	c, err := s.catalog.FindByID(ctx, in.CourseID)
	if err != nil {
		return nil, err
	}

	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, owned := range acct.ActiveCourseIDs {
		if owned == c.ID {
			return nil, ErrAlreadyOwned
		}
	}
	open, err := s.repo.HasPendingOrAccepted(ctx, accountID, c.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrAlreadyOwned
	}

	price := c.Price
	if c.DiscountPrice > 0 && c.DiscountPrice < price {
		price = c.DiscountPrice
	}

	var discount int64
	code := strings.ToUpper(strings.TrimSpace(in.CouponCode))
	if code != "" {
		quote, err := s.coupons.Redeem(ctx, accountID, code, c.ID, price)
		if err != nil {
			return nil, err
		}
		discount = quote.Discount
	}
	if in.Amount != price-discount {
		return nil, ErrAmountMismatch
	}

	p := &Payment{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		CourseID:      c.ID,
		CourseTitle:   c.Title,
		Amount:        in.Amount,
		Discount:      discount,
		CouponCode:    code,
		Method:        in.Method,
		TransactionID: strings.TrimSpace(in.TransactionID),
		SenderNumber:  in.SenderNumber,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get loads one payment.
func (s *Service) Get(ctx context.Context, id string) (*Payment, error) {
	return s.repo.FindByID(ctx, id)
}

// List pages through payments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, int, error) {
	return s.repo.List(ctx, filter)
}

// Accept marks a payment verified, grants the course and notifies the
// student. Granting is idempotent, so a crash between the decision and the
// grant can be retried safely.
func (s *Service) Accept(ctx context.Context, id, adminID string) (*Payment, error) {
	p, err := s.repo.Decide(ctx, id, StatusAccepted, "", adminID)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.GrantCourse(ctx, p.AccountID, p.CourseID); err != nil {
		return nil, err
	}
	if err := s.catalog.AddEnrollment(ctx, p.CourseID); err != nil {
		s.logger.Error("bump enrollment counter", slog.Any("error", err))
	}
	s.notify(ctx, p, true, "")
	return p, nil
}

// Reject marks a payment unverified and notifies the student.
func (s *Service) Reject(ctx context.Context, id, adminID, reason string) (*Payment, error) {
	p, err := s.repo.Decide(ctx, id, StatusRejected, reason, adminID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p, false, reason)
	return p, nil
}

func (s *Service) notify(ctx context.Context, p *Payment, accepted bool, reason string) {
	if s.notifier == nil {
		return
	}
	acct, err := s.accounts.FindByID(ctx, p.AccountID)
	if err != nil {
		s.logger.Error("load account for notification", slog.Any("error", err))
		return
	}
	if acct.Email != "" {
		err := s.notifier.EnqueuePaymentStatusEmail(ctx, jobs.PaymentEmailPayload{
			To:         acct.Email,
			FullName:   acct.FullName,
			CourseName: p.CourseTitle,
			Amount:     p.Amount,
			Accepted:   accepted,
			Reason:     reason,
		})
		if err != nil {
			s.logger.Error("enqueue payment email", slog.Any("error", err))
		}
	}
	if acct.Phone != "" {
		err := s.notifier.EnqueuePaymentStatusSMS(ctx, jobs.PaymentSMSPayload{
			Phone:      acct.Phone,
			FullName:   acct.FullName,
			CourseName: p.CourseTitle,
			Amount:     p.Amount,
			Accepted:   accepted,
			Reason:     reason,
		})
		if err != nil {
			s.logger.Error("enqueue payment sms", slog.Any("error", err))
		}
	}
}
