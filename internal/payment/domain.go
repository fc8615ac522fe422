package payment

import (
	"errors"
	"time"
)

// Payment statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Payment methods.
const (
	MethodBkash  = "bkash"
	MethodNagad  = "nagad"
	MethodRocket = "rocket"
	MethodBank   = "bank"
)

var (
	// ErrAlreadyDecided rejects a second decision on the same payment.
	ErrAlreadyDecided = errors.New("payment: already decided")
	// ErrAlreadyOwned rejects paying for a course the account already has.
	ErrAlreadyOwned = errors.New("payment: course already owned")
	// ErrAmountMismatch rejects a submission whose amount does not match
	// the course price after discounts.
	ErrAmountMismatch = errors.New("payment: amount mismatch")
)

// Payment is a manual payment claim awaiting an admin decision. The
// student reports a mobile-wallet transaction; an admin verifies it out of
// band and accepts or rejects.
type Payment struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"accountId"`
	CourseID      string     `json:"courseId"`
	CourseTitle   string     `json:"courseTitle"`
	Amount        int64      `json:"amount"`
	Discount      int64      `json:"discount"`
	CouponCode    string     `json:"couponCode,omitempty"`
	Method        string     `json:"method"`
	TransactionID string     `json:"transactionId"`
	SenderNumber  string     `json:"senderNumber,omitempty"`
	Status        string     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	DecidedBy     string     `json:"decidedBy,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
