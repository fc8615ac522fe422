package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/learnhub/learnhub/internal/auth"
	jobmetrics "github.com/learnhub/learnhub/internal/jobs"
	"github.com/learnhub/learnhub/internal/shared"
)

// Processor executes notification tasks pulled off the queue.
type Processor struct {
	mailer  *Mailer
	sms     *SMSSender
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(mailer *Mailer, sms *SMSSender, metrics *jobmetrics.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{mailer: mailer, sms: sms, metrics: metrics, logger: logger}
}

// Register wires the processor's handlers onto the mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeOTPEmail, p.HandleOTPEmail)
	mux.HandleFunc(TaskTypeWelcomeEmail, p.HandleWelcomeEmail)
	mux.HandleFunc(TaskTypePaymentEmail, p.HandlePaymentEmail)
	mux.HandleFunc(TaskTypeOTPSMS, p.HandleOTPSMS)
	mux.HandleFunc(TaskTypePaymentSMS, p.HandlePaymentSMS)
}

// HandleOTPEmail sends the verification code email.
func (p *Processor) HandleOTPEmail(ctx context.Context, task *asynq.Task) error {
	tracker := p.metrics.Track(TaskTypeOTPEmail)
	var payload OTPEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode otp email payload: %w", err))
	}
	err := p.mailer.Send(payload.To, "Your LearnHub verification code", otpEmailBody(payload.FullName, payload.Code))
	if err != nil {
		p.logger.Error("otp email delivery failed", slog.String("to", payload.To), slog.Any("error", err))
	}
	return tracker.End(err)
}

// HandleWelcomeEmail sends the post-verification welcome email.
func (p *Processor) HandleWelcomeEmail(ctx context.Context, task *asynq.Task) error {
	tracker := p.metrics.Track(TaskTypeWelcomeEmail)
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode welcome email payload: %w", err))
	}
	err := p.mailer.Send(payload.To, "Welcome to LearnHub", welcomeEmailBody(payload.FullName))
	if err != nil {
		p.logger.Error("welcome email delivery failed", slog.String("to", payload.To), slog.Any("error", err))
	}
	return tracker.End(err)
}

// HandlePaymentEmail sends the payment decision email.
func (p *Processor) HandlePaymentEmail(ctx context.Context, task *asynq.Task) error {
	tracker := p.metrics.Track(TaskTypePaymentEmail)
	var payload PaymentEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode payment email payload: %w", err))
	}
	subject := "Your LearnHub payment was accepted"
	if !payload.Accepted {
		subject = "Your LearnHub payment was rejected"
	}
	err := p.mailer.Send(payload.To, subject, paymentEmailBody(payload))
	if err != nil {
		p.logger.Error("payment email delivery failed", slog.String("to", payload.To), slog.Any("error", err))
	}
	return tracker.End(err)
}

// HandleOTPSMS sends the verification code text message.
func (p *Processor) HandleOTPSMS(ctx context.Context, task *asynq.Task) error {
	tracker := p.metrics.Track(TaskTypeOTPSMS)
	var payload OTPSMSPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode otp sms payload: %w", err))
	}
	err := p.sms.Send(ctx, payload.Phone, otpSMSBody(payload.Code))
	if err != nil {
		p.logger.Error("otp sms delivery failed", slog.String("phone", payload.Phone), slog.Any("error", err))
	}
	return tracker.End(err)
}

// HandlePaymentSMS sends the payment decision text message.
func (p *Processor) HandlePaymentSMS(ctx context.Context, task *asynq.Task) error {
	tracker := p.metrics.Track(TaskTypePaymentSMS)
	var payload PaymentSMSPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode payment sms payload: %w", err))
	}
	err := p.sms.Send(ctx, payload.Phone, paymentSMSBody(payload))
	if err != nil {
		p.logger.Error("payment sms delivery failed", slog.String("phone", payload.Phone), slog.Any("error", err))
	}
	return tracker.End(err)
}

// Worker wraps the asynq server and its mux.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewWorker constructs the queue worker with the processor registered.
func NewWorker(redisAddr string, processor *Processor, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				QueueNotify:  6,
				QueueDefault: 4,
			},
		},
	)
	mux := asynq.NewServeMux()
	processor.Register(mux)
	return &Worker{server: server, mux: mux, logger: logger}
}

// Run starts the worker and blocks until the context is cancelled or the
// server stops on its own.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.logger.Info("stopping job worker")
		w.server.Shutdown()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Client enqueues notification tasks.
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewClient constructs a queue client.
func NewClient(redisAddr string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		logger: logger,
	}
}

// Close releases the underlying redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, err error) error {
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueNotify), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	c.logger.Debug("task enqueued", slog.String("type", task.Type()), slog.String("id", info.ID))
	return nil
}

// EnqueueOTPEmail queues a verification code email.
func (c *Client) EnqueueOTPEmail(ctx context.Context, payload OTPEmailPayload) error {
	task, err := NewOTPEmailTask(payload)
	return c.enqueue(ctx, task, err)
}

// EnqueueWelcomeEmail queues a welcome email.
func (c *Client) EnqueueWelcomeEmail(ctx context.Context, payload WelcomeEmailPayload) error {
	task, err := NewWelcomeEmailTask(payload)
	return c.enqueue(ctx, task, err)
}

// EnqueuePaymentStatusEmail queues a payment decision email.
func (c *Client) EnqueuePaymentStatusEmail(ctx context.Context, payload PaymentEmailPayload) error {
	task, err := NewPaymentEmailTask(payload)
	return c.enqueue(ctx, task, err)
}

// EnqueueOTPSMS queues a verification code text message.
func (c *Client) EnqueueOTPSMS(ctx context.Context, payload OTPSMSPayload) error {
	task, err := NewOTPSMSTask(payload)
	return c.enqueue(ctx, task, err)
}

// EnqueuePaymentStatusSMS queues a payment decision text message.
func (c *Client) EnqueuePaymentStatusSMS(ctx context.Context, payload PaymentSMSPayload) error {
	task, err := NewPaymentSMSTask(payload)
	return c.enqueue(ctx, task, err)
}

// Handler exposes queue introspection endpoints for operators.
type Handler struct {
	inspector *asynq.Inspector
	guard     auth.Guard
	logger    *slog.Logger
}

// NewHandler constructs the queue health handler.
func NewHandler(redisAddr string, guard auth.Guard, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		inspector: asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr}),
		guard:     guard,
		logger:    logger,
	}
}

// MountRoutes registers the queue endpoints. Queue stats leak operational
// detail, so the whole surface sits behind the admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.KindAdmin))
		r.Use(h.guard.RequireRole(auth.KindAdmin, auth.RoleAdmin, auth.RoleSuperAdmin))
		r.Get("/health", h.health)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	queues := []string{QueueNotify, QueueDefault}
	stats := make(map[string]map[string]string, len(queues))
	for _, queue := range queues {
		info, err := h.inspector.GetQueueInfo(queue)
		if err != nil {
			stats[queue] = map[string]string{"status": "unavailable"}
			continue
		}
		stats[queue] = map[string]string{
			"status":    "ok",
			"pending":   strconv.Itoa(info.Pending),
			"active":    strconv.Itoa(info.Active),
			"retry":     strconv.Itoa(info.Retry),
			"archived":  strconv.Itoa(info.Archived),
			"processed": strconv.Itoa(info.Processed),
			"failed":    strconv.Itoa(info.Failed),
		}
	}
	shared.OK(w, http.StatusOK, "queue health", stats)
}
