package coupon

import (
	"errors"
	"time"
)

// Discount types.
const (
	DiscountPercentage = "percentage"
	DiscountAmount     = "amount"
)

// Coupon statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusExpired  = "expired"
)

var (
	// ErrInvalid covers unknown and deactivated codes; the two cases are
	// indistinguishable to the client on purpose.
	ErrInvalid = errors.New("coupon: invalid code")
	// ErrExpired means the coupon's expiry date has passed.
	ErrExpired = errors.New("coupon: expired")
	// ErrExhausted means the usage limit has been reached.
	ErrExhausted = errors.New("coupon: usage limit reached")
	// ErrCourseMismatch means the coupon is bound to a different course.
	ErrCourseMismatch = errors.New("coupon: not valid for this course")
	// ErrAlreadyUsed means this account already redeemed the coupon.
	ErrAlreadyUsed = errors.New("coupon: already used by this account")
)

// Coupon is a discount code. A zero MaxUses means unlimited; an empty
// CourseID means the coupon applies to every course.
type Coupon struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discountType"`
	DiscountValue int64     `json:"discountValue"`
	CourseID      string    `json:"courseId,omitempty"`
	MaxUses       int       `json:"maxUses"`
	UsedCount     int       `json:"usedCount"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Stats aggregates coupon counts by status plus total redemptions.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	Expired     int `json:"expired"`
	Redemptions int `json:"redemptions"`
}

// DiscountOn computes the discount the coupon grants against a price.
// Percentage discounts round down; the discount never exceeds the price.
func (c *Coupon) DiscountOn(price int64) int64 {
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = price * c.DiscountValue / 100
	case DiscountAmount:
		discount = c.DiscountValue
	}
	if discount > price {
		discount = price
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
