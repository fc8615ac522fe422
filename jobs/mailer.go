package jobs

import (
	"fmt"
	"net/smtp"
	"strings"
)

// MailerConfig carries SMTP connection settings.
type MailerConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Mailer delivers transactional email over SMTP.
type Mailer struct {
	cfg MailerConfig
}

// NewMailer constructs a Mailer.
func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers a single plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}

func otpEmailBody(fullName, code string) string {
	return fmt.Sprintf("Hi %s,\n\nYour LearnHub verification code is %s. It expires in 10 minutes.\n\nIf you did not request this, ignore this email.\n", fullName, code)
}

func welcomeEmailBody(fullName string) string {
	return fmt.Sprintf("Hi %s,\n\nYour email is verified and your LearnHub account is ready. Happy learning!\n", fullName)
}

func paymentEmailBody(p PaymentEmailPayload) string {
	if p.Accepted {
		return fmt.Sprintf("Hi %s,\n\nYour payment of %d for %q was accepted. The course is now available in your account.\n", p.FullName, p.Amount, p.CourseName)
	}
	body := fmt.Sprintf("Hi %s,\n\nYour payment of %d for %q was rejected.", p.FullName, p.Amount, p.CourseName)
	if p.Reason != "" {
		body += " Reason: " + p.Reason + "."
	}
	return body + "\n\nPlease contact support if you believe this is a mistake.\n"
}
