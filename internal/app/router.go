package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/learnhub/learnhub/internal/admin"
	"github.com/learnhub/learnhub/internal/blog"
	"github.com/learnhub/learnhub/internal/coupon"
	"github.com/learnhub/learnhub/internal/course"
	"github.com/learnhub/learnhub/internal/coursemodule"
	"github.com/learnhub/learnhub/internal/observability"
	"github.com/learnhub/learnhub/internal/payment"
	"github.com/learnhub/learnhub/internal/student"
	"github.com/learnhub/learnhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	StudentHandler *student.Handler
	AdminHandler   *admin.Handler
	CourseHandler  *course.Handler
	ModuleHandler  *coursemodule.Handler
	BlogHandler    *blog.Handler
	CouponHandler  *coupon.Handler
	PaymentHandler *payment.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", params.StudentHandler.MountRoutes)
		r.Route("/admins", params.AdminHandler.MountRoutes)
		r.Route("/courses", params.CourseHandler.MountRoutes)
		r.Route("/modules", params.ModuleHandler.MountRoutes)
		r.Route("/blogs", params.BlogHandler.MountRoutes)
		r.Route("/coupons", params.CouponHandler.MountRoutes)
		r.Route("/payments", params.PaymentHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
