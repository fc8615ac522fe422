package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig carries settings for the bulk SMS gateway.
type SMSConfig struct {
	APIURL   string
	APIKey   string
	SenderID string
}

// SMSSender delivers text messages through an HTTP gateway.
type SMSSender struct {
	cfg    SMSConfig
	client *http.Client
}

// NewSMSSender constructs an SMSSender.
func NewSMSSender(cfg SMSConfig) *SMSSender {
	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a single message to the gateway.
func (s *SMSSender) Send(ctx context.Context, phone, message string) error {
	form := url.Values{}
	form.Set("api_key", s.cfg.APIKey)
	form.Set("senderid", s.cfg.SenderID)
	form.Set("number", phone)
	form.Set("message", message)
	form.Set("type", "text")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}

func otpSMSBody(code string) string {
	return fmt.Sprintf("Your LearnHub verification code is %s. It expires in 10 minutes.", code)
}

func paymentSMSBody(p PaymentSMSPayload) string {
	if p.Accepted {
		return fmt.Sprintf("LearnHub: your payment of %d for %s was accepted. The course is now active.", p.Amount, p.CourseName)
	}
	return fmt.Sprintf("LearnHub: your payment of %d for %s was rejected. Contact support for details.", p.Amount, p.CourseName)
}
