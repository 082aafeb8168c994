package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/contractsonly/api/internal/config"
	"github.com/contractsonly/api/internal/database"
	"github.com/contractsonly/api/internal/handler"
	"github.com/contractsonly/api/internal/jobs"
	"github.com/contractsonly/api/internal/middleware"
	"github.com/contractsonly/api/internal/model"
	"github.com/contractsonly/api/internal/realtime"
	"github.com/contractsonly/api/internal/repository"
	"github.com/contractsonly/api/internal/service"
)

// Job names as registered with the runner
const (
	jobWeeklyDigest     = "weekly-digest"
	jobVerifyPostings   = "verify-postings"
	jobExpirePostings   = "expire-postings"
	jobRefreshAnalytics = "refresh-analytics"
)

func main() {
	// .env is a development convenience; real deployments set the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.String("error", err.Error()))
	}

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewPostgres(database.Config{
		DSN:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, &model.JobPosting{}, &model.DigestSubscriber{}); err != nil {
			slog.Error("failed to migrate database", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	slog.Info("connected to database", slog.Bool("auto_migrate", cfg.Database.AutoMigrate))

	// Initialize repositories
	postingRepo := repository.NewPostingRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)

	// Initialize services
	unsubscribeTokens := service.NewUnsubscribeTokens(service.UnsubscribeTokensConfig{
		Secret: cfg.Email.UnsubscribeSecret,
	})

	emailSender := service.NewResendClient(service.ResendConfig{
		APIKey:  cfg.Email.ResendAPIKey,
		From:    cfg.Email.From,
		BaseURL: cfg.Email.APIURL,
	})

	digestService := service.NewDigestService(service.DigestServiceConfig{
		Subscribers: subscriberRepo,
		Postings:    postingRepo,
		Sender:      emailSender,
		Tokens:      unsubscribeTokens,
		AppBaseURL:  cfg.Email.AppBaseURL,
		APIBaseURL:  cfg.Email.APIBaseURL,
		Logger:      logger,
	})

	var pageFetcher service.PageFetcher
	if cfg.Verification.FetchPages {
		pageFetcher = service.NewHTTPPageFetcher(nil)
	}
	verificationService := service.NewVerificationService(service.VerificationServiceConfig{
		Postings: postingRepo,
		Fetcher:  pageFetcher,
		Logger:   logger,
	})

	postingService := service.NewPostingService(service.PostingServiceConfig{
		Postings: postingRepo,
		TTL:      cfg.Verification.PostingTTL,
		Logger:   logger,
	})

	// Live feed of job results
	hub := realtime.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	// Register jobs
	registry := jobs.NewRegistry()
	mustRegister(registry, jobWeeklyDigest, digestService.SendWeeklyDigests, jobs.WithTimeout(5*time.Minute))
	mustRegister(registry, jobVerifyPostings, verificationService.VerifyPending,
		jobs.WithTimeout(8*time.Minute),
		jobs.WithMaxRetries(1),
	)
	mustRegister(registry, jobExpirePostings, postingService.ExpireStale)
	if cfg.Analytics.RefreshURL != "" {
		reportService := service.NewReportService(service.ReportServiceConfig{
			RefreshURL: cfg.Analytics.RefreshURL,
			Secret:     cfg.Cron.Secret,
			Postings:   postingRepo,
			Logger:     logger,
		})
		mustRegister(registry, jobRefreshAnalytics, reportService.Refresh)
	}

	runner := jobs.NewRunner(jobs.RunnerConfig{
		Defaults: jobs.JobConfig{
			MaxRetries: cfg.Jobs.MaxRetries,
			RetryDelay: cfg.Jobs.RetryDelay,
			Timeout:    cfg.Jobs.Timeout,
		},
		Logger:   logger,
		Probes:   jobs.DefaultProbes(cfg.Health.MemoryFloorBytes(), cfg.Health.RequiredEnv, db),
		OnResult: hub.PublishJobResult,
	})

	slog.Info("jobs registered", slog.String("jobs", strings.Join(registry.Names(), ",")))

	// In-process scheduler for deployments without an external cron
	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = jobs.NewScheduler(runner, registry, jobs.SchedulerConfig{
			Interval:   cfg.Scheduler.Interval,
			StartDelay: 30 * time.Second,
			Logger:     logger,
			OnBatch:    hub.PublishBatch,
		})
		scheduler.Start()
		slog.Info("scheduler started", slog.Duration("interval", cfg.Scheduler.Interval))
	}

	// Rate limiting: Redis when configured so all instances share a budget
	var limiter middleware.Limiter
	var memoryLimiter *middleware.MemoryLimiter
	if cfg.RateLimit.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, rate limiting will fail open until it recovers",
				slog.String("addr", cfg.RateLimit.RedisAddr),
				slog.String("error", err.Error()),
			)
		}
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit.RequestsPerMinute)
	} else {
		memoryLimiter = middleware.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute, 0)
		defer memoryLimiter.Stop()
		limiter = memoryLimiter
	}

	// Initialize handlers
	cronAuth := middleware.CronAuth(middleware.NewStaticSecret(cfg.Cron.Secret, cfg.Cron.SecretHash))
	rateLimit := middleware.RateLimit(limiter)
	protected := func(h http.Handler) http.Handler {
		return middleware.Chain(h, rateLimit, cronAuth)
	}

	cronHandler := handler.NewCronHandler(handler.CronHandlerConfig{
		Runner:  runner,
		Jobs:    registry,
		Logger:  logger,
		OnBatch: hub.PublishBatch,
	})
	healthHandler := handler.NewHealthHandler(runner)
	digestHandler := handler.NewDigestHandler(handler.DigestHandlerConfig{
		Unsubscriber: digestService,
		RedirectURL:  strings.TrimRight(cfg.Email.AppBaseURL, "/") + "/unsubscribed",
		Logger:       logger,
	})
	liveHandler := handler.NewLiveHandler(hub, cfg.Server.AllowedOrigins, logger)

	// Setup routes
	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)
	cronHandler.RegisterRoutes(mux, protected)
	liveHandler.RegisterRoutes(mux, protected)
	digestHandler.RegisterRoutes(mux)

	// Apply global middleware
	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.AccessLog(logger),
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Compress,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}

func mustRegister(r *jobs.Registry, name string, work jobs.WorkFunc, opts ...jobs.Option) {
	if err := r.Register(name, work, opts...); err != nil {
		slog.Error("failed to register job", slog.String("job", name), slog.String("error", err.Error()))
		os.Exit(1)
	}
}
