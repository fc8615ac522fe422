package coupon_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/coupon"
	"github.com/learnhub/learnhub/internal/shared"
	_ "github.com/learnhub/learnhub/testing"
)

type memRepo struct {
	mu          sync.Mutex
	coupons     map[string]*coupon.Coupon
	redemptions map[string]map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		coupons:     make(map[string]*coupon.Coupon),
		redemptions: make(map[string]map[string]bool),
	}
}

func (m *memRepo) Create(_ context.Context, c *coupon.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.coupons {
		if existing.Code == c.Code {
			return shared.ErrDuplicate
		}
	}
	clone := *c
	m.coupons[c.ID] = &clone
	return nil
}

func (m *memRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.Code == strings.ToUpper(code) {
			clone := *c
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) SetStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *memRepo) HasRedemption(_ context.Context, couponID, accountID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redemptions[couponID][accountID], nil
}

func (m *memRepo) RecordRedemption(_ context.Context, couponID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redemptions[couponID][accountID] {
		return coupon.ErrAlreadyUsed
	}
	if m.redemptions[couponID] == nil {
		m.redemptions[couponID] = make(map[string]bool)
	}
	m.redemptions[couponID][accountID] = true
	m.coupons[couponID].UsedCount++
	return nil
}

func (m *memRepo) List(_ context.Context, _, _ int) ([]coupon.Coupon, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]coupon.Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memRepo) Stats(_ context.Context) (*coupon.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &coupon.Stats{Total: len(m.coupons)}
	for _, c := range m.coupons {
		switch c.Status {
		case coupon.StatusActive:
			s.Active++
		case coupon.StatusInactive:
			s.Inactive++
		case coupon.StatusExpired:
			s.Expired++
		}
	}
	for _, accounts := range m.redemptions {
		s.Redemptions += len(accounts)
	}
	return s, nil
}

func (m *memRepo) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coupons[id].Status
}

var _ coupon.Repository = (*memRepo)(nil)

func newService() (*coupon.Service, *memRepo) {
	repo := newMemRepo()
	return coupon.NewService(repo, nil), repo
}

func createCoupon(t *testing.T, service *coupon.Service, in coupon.CreateInput) *coupon.Coupon {
	t.Helper()
	if in.ExpiresAt.IsZero() {
		in.ExpiresAt = time.Now().Add(24 * time.Hour)
	}
	c, err := service.Create(context.Background(), in)
	require.NoError(t, err)
	return c
}

func TestCreateUppercasesCode(t *testing.T) {
	service, _ := newService()
	c := createCoupon(t, service, coupon.CreateInput{
		Code: "save20", DiscountType: coupon.DiscountPercentage, DiscountValue: 20,
	})
	require.Equal(t, "SAVE20", c.Code)
	require.Equal(t, coupon.StatusActive, c.Status)
}

func TestValidatePercentageDiscount(t *testing.T) {
	service, _ := newService()
	createCoupon(t, service, coupon.CreateInput{
		Code: "SAVE20", DiscountType: coupon.DiscountPercentage, DiscountValue: 20,
	})

	_, quote, err := service.Validate(context.Background(), uuid.NewString(), "save20", uuid.NewString(), 1000)
	require.NoError(t, err)
	require.Equal(t, int64(200), quote.Discount)
	require.Equal(t, int64(800), quote.FinalPrice)
}

func TestValidateAmountDiscountCapsAtPrice(t *testing.T) {
	service, _ := newService()
	createCoupon(t, service, coupon.CreateInput{
		Code: "BIGCUT", DiscountType: coupon.DiscountAmount, DiscountValue: 5000,
	})

	_, quote, err := service.Validate(context.Background(), uuid.NewString(), "BIGCUT", uuid.NewString(), 1000)
	require.NoError(t, err)
	require.Equal(t, int64(1000), quote.Discount)
	require.Zero(t, quote.FinalPrice)
}

func TestValidateUnknownCode(t *testing.T) {
	service, _ := newService()
	_, _, err := service.Validate(context.Background(), uuid.NewString(), "NOPE", uuid.NewString(), 1000)
	require.ErrorIs(t, err, coupon.ErrInvalid)
}

func TestValidateExpiredFlipsStatus(t *testing.T) {
	service, repo := newService()
	c := createCoupon(t, service, coupon.CreateInput{
		Code: "LATE", DiscountType: coupon.DiscountAmount, DiscountValue: 100,
		ExpiresAt: time.Now().Add(time.Hour),
	})

	service.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, _, err := service.Validate(context.Background(), uuid.NewString(), "LATE", uuid.NewString(), 1000)
	require.ErrorIs(t, err, coupon.ErrExpired)
	require.Equal(t, coupon.StatusExpired, repo.status(c.ID))

	// Subsequent attempts keep reporting expired.
	_, _, err = service.Validate(context.Background(), uuid.NewString(), "LATE", uuid.NewString(), 1000)
	require.ErrorIs(t, err, coupon.ErrExpired)
}

func TestValidateCourseMismatch(t *testing.T) {
	service, _ := newService()
	courseID := uuid.NewString()
	createCoupon(t, service, coupon.CreateInput{
		Code: "GOONLY", DiscountType: coupon.DiscountAmount, DiscountValue: 100, CourseID: courseID,
	})

	_, _, err := service.Validate(context.Background(), uuid.NewString(), "GOONLY", uuid.NewString(), 1000)
	require.ErrorIs(t, err, coupon.ErrCourseMismatch)

	_, _, err = service.Validate(context.Background(), uuid.NewString(), "GOONLY", courseID, 1000)
	require.NoError(t, err)
}

func TestRedeemConsumesUse(t *testing.T) {
	service, _ := newService()
	createCoupon(t, service, coupon.CreateInput{
		Code: "ONCE", DiscountType: coupon.DiscountAmount, DiscountValue: 100, MaxUses: 1,
	})
	accountID := uuid.NewString()

	quote, err := service.Redeem(context.Background(), accountID, "ONCE", uuid.NewString(), 1000)
	require.NoError(t, err)
	require.Equal(t, int64(100), quote.Discount)

	// Same account again: single use per account.
	_, err = service.Redeem(context.Background(), accountID, "ONCE", uuid.NewString(), 1000)
	require.ErrorIs(t, err, coupon.ErrAlreadyUsed)

	// Different account: global limit reached.
	_, err = service.Redeem(context.Background(), uuid.NewString(), "ONCE", uuid.NewString(), 1000)
	require.ErrorIs(t, err, coupon.ErrExhausted)
}

func TestStatsCountByStatus(t *testing.T) {
	service, _ := newService()
	createCoupon(t, service, coupon.CreateInput{
		Code: "ALIVE", DiscountType: coupon.DiscountAmount, DiscountValue: 100,
	})
	paused := createCoupon(t, service, coupon.CreateInput{
		Code: "PAUSED", DiscountType: coupon.DiscountAmount, DiscountValue: 100,
	})
	require.NoError(t, service.SetStatus(context.Background(), paused.ID, coupon.StatusInactive))

	_, err := service.Redeem(context.Background(), uuid.NewString(), "ALIVE", uuid.NewString(), 1000)
	require.NoError(t, err)

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Active)
	require.Equal(t, 1, stats.Inactive)
	require.Zero(t, stats.Expired)
	require.Equal(t, 1, stats.Redemptions)
}

func TestValidateInactive(t *testing.T) {
	service, _ := newService()
	c := createCoupon(t, service, coupon.CreateInput{
		Code: "PAUSED", DiscountType: coupon.DiscountAmount, DiscountValue: 100,
	})
	require.NoError(t, service.SetStatus(context.Background(), c.ID, coupon.StatusInactive))

	_, _, err := service.Validate(context.Background(), uuid.NewString(), "PAUSED", uuid.NewString(), 1000)
	require.ErrorIs(t, err, coupon.ErrInvalid)
}
