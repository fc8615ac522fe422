package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub/internal/account"
	"github.com/learnhub/learnhub/internal/admin"
	"github.com/learnhub/learnhub/internal/app"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/blog"
	"github.com/learnhub/learnhub/internal/coupon"
	"github.com/learnhub/learnhub/internal/course"
	"github.com/learnhub/learnhub/internal/coursemodule"
	"github.com/learnhub/learnhub/internal/observability"
	"github.com/learnhub/learnhub/internal/payment"
	"github.com/learnhub/learnhub/internal/shared"
	"github.com/learnhub/learnhub/internal/student"
	"github.com/learnhub/learnhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobsClient := jobs.NewClient(cfg.RedisAddr, logger)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	codec := auth.NewCodec(cfg.AuthAccessSecret, cfg.AuthRefreshSecret, cfg.AuthAccessTTL, cfg.AuthRefreshTTL)
	accountRepo := account.NewRepository(dbpool)
	resolver := auth.NewResolver(codec, account.NewAuthSource(accountRepo))
	guard := auth.Guard{Resolver: resolver, Logger: logger}
	policy := auth.CookiePolicy{
		PlatformSuffix: cfg.CookiePlatformSuffix,
		RootDomain:     cfg.CookieRootDomain,
		AccessTTL:      cfg.AuthAccessTTL,
		RefreshTTL:     cfg.AuthRefreshTTL,
	}

	auditLogger := shared.NewAuditLogger(dbpool)

	studentService := student.NewService(accountRepo, codec, resolver, jobsClient, logger)
	studentHandler := student.NewHandler(studentService, guard, policy, logger)

	adminService := admin.NewService(accountRepo, codec, resolver, logger).WithAudit(auditLogger)
	adminHandler := admin.NewHandler(adminService, guard, policy, logger)

	catalogCache := course.NewCache(redisClient, cfg.CatalogCacheTTL)
	courseRepo := course.NewRepository(dbpool)
	courseService := course.NewService(courseRepo, catalogCache, logger)
	courseHandler := course.NewHandler(courseService, guard, logger)
	go func() {
		if err := catalogCache.ListenForInvalidation(ctx); err != nil && ctx.Err() == nil {
			logger.Error("catalog invalidation listener", slog.Any("error", err))
		}
	}()

	moduleRepo := coursemodule.NewRepository(dbpool)
	moduleService := coursemodule.NewService(moduleRepo, coursemodule.NewRepoEnrollments(accountRepo), logger)
	moduleHandler := coursemodule.NewHandler(moduleService, guard, logger)

	blogRepo := blog.NewRepository(dbpool)
	blogService := blog.NewService(blogRepo, logger)
	blogHandler := blog.NewHandler(blogService, guard, logger)

	couponRepo := coupon.NewRepository(dbpool)
	couponService := coupon.NewService(couponRepo, logger)
	couponHandler := coupon.NewHandler(couponService, guard, logger)

	paymentRepo := payment.NewRepository(dbpool)
	paymentService := payment.NewService(paymentRepo, courseRepo, accountRepo, couponService, jobsClient, logger)
	paymentHandler := payment.NewHandler(paymentService, guard, logger)

	jobHandler := jobs.NewHandler(cfg.RedisAddr, guard, logger)
	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		StudentHandler: studentHandler,
		AdminHandler:   adminHandler,
		CourseHandler:  courseHandler,
		ModuleHandler:  moduleHandler,
		BlogHandler:    blogHandler,
		CouponHandler:  couponHandler,
		PaymentHandler: paymentHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
