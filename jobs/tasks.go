package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotify carries outbound email and SMS notifications.
	QueueNotify = "notify"

	// TaskTypeOTPEmail delivers a verification code by email.
	TaskTypeOTPEmail = "mail:otp"
	// TaskTypeWelcomeEmail greets a freshly verified account.
	TaskTypeWelcomeEmail = "mail:welcome"
	// TaskTypePaymentEmail reports a payment decision by email.
	TaskTypePaymentEmail = "mail:payment_status"
	// TaskTypeOTPSMS delivers a verification code by SMS.
	TaskTypeOTPSMS = "sms:otp"
	// TaskTypePaymentSMS reports a payment decision by SMS.
	TaskTypePaymentSMS = "sms:payment_status"
)

// OTPEmailPayload describes a verification-code email.
type OTPEmailPayload struct {
	To       string `json:"to"`
	FullName string `json:"fullName"`
	Code     string `json:"code"`
}

// WelcomeEmailPayload describes a welcome email.
type WelcomeEmailPayload struct {
	To       string `json:"to"`
	FullName string `json:"fullName"`
}

// PaymentEmailPayload describes a payment status notification email.
type PaymentEmailPayload struct {
	To         string `json:"to"`
	FullName   string `json:"fullName"`
	CourseName string `json:"courseName"`
	Amount     int64  `json:"amount"`
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
}

// OTPSMSPayload describes a verification-code text message.
type OTPSMSPayload struct {
	Phone    string `json:"phone"`
	FullName string `json:"fullName"`
	Code     string `json:"code"`
}

// PaymentSMSPayload describes a payment status text message.
type PaymentSMSPayload struct {
	Phone      string `json:"phone"`
	FullName   string `json:"fullName"`
	CourseName string `json:"courseName"`
	Amount     int64  `json:"amount"`
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

// NewOTPEmailTask constructs an Asynq task for an OTP email.
func NewOTPEmailTask(payload OTPEmailPayload) (*asynq.Task, error) {
	return newTask(TaskTypeOTPEmail, payload)
}

// NewWelcomeEmailTask constructs an Asynq task for a welcome email.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	return newTask(TaskTypeWelcomeEmail, payload)
}

// NewPaymentEmailTask constructs an Asynq task for a payment status email.
func NewPaymentEmailTask(payload PaymentEmailPayload) (*asynq.Task, error) {
	return newTask(TaskTypePaymentEmail, payload)
}

// NewOTPSMSTask constructs an Asynq task for an OTP text message.
func NewOTPSMSTask(payload OTPSMSPayload) (*asynq.Task, error) {
	return newTask(TaskTypeOTPSMS, payload)
}

// NewPaymentSMSTask constructs an Asynq task for a payment status text.
func NewPaymentSMSTask(payload PaymentSMSPayload) (*asynq.Task, error) {
	return newTask(TaskTypePaymentSMS, payload)
}
