package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/averulo-backend/internal/api"
	"github.com/baharkarakas/averulo-backend/internal/api/handlers"
	"github.com/baharkarakas/averulo-backend/internal/auth"
	"github.com/baharkarakas/averulo-backend/internal/cache"
	"github.com/baharkarakas/averulo-backend/internal/config"
	"github.com/baharkarakas/averulo-backend/internal/db"
	"github.com/baharkarakas/averulo-backend/internal/gateway"
	"github.com/baharkarakas/averulo-backend/internal/logger"
	"github.com/baharkarakas/averulo-backend/internal/metrics"
	"github.com/baharkarakas/averulo-backend/internal/middleware"
	"github.com/baharkarakas/averulo-backend/internal/notify"
	"github.com/baharkarakas/averulo-backend/internal/obs"
	"github.com/baharkarakas/averulo-backend/internal/repository"
	"github.com/baharkarakas/averulo-backend/internal/repository/memory"
	"github.com/baharkarakas/averulo-backend/internal/repository/postgres"
	"github.com/baharkarakas/averulo-backend/internal/services"
	"github.com/baharkarakas/averulo-backend/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	shutdownTracer, err := obs.InitTracer(ctx, "averulo-backend", cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	// ---------- storage ----------
	var repos repository.Repositories
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on exit")
		repos = memory.New().Repositories()
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()
		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
		}
		repos = postgres.NewRepositories(pool)
	}

	var otpStore cache.Store = cache.NewMemory()
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rs.Close()
		otpStore = rs
	}

	// ---------- notifications ----------
	var mailer notify.Mailer = notify.LogMailer{Log: log}
	if cfg.MailjetAPIKey != "" {
		mailer = notify.NewMailjet(cfg.MailjetAPIKey, cfg.MailjetSecretKey, cfg.EmailFrom)
	}
	notifier := notify.Multi{notify.Log{Log: log}, notify.NewEmail(mailer)}
	if cfg.RabbitURL != "" {
		pub, err := notify.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		notifier = append(notifier, pub)
	}

	wp := worker.NewPool(cfg.Workers)
	defer wp.Stop()

	// ---------- services ----------
	notes := services.NewNotifications(notifier, repos.Users, repos.Properties, wp, log)
	gw := gateway.NewPaystack(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackTimeout)
	rec := services.NewReconciler(repos.Store, notes, cfg.PaymentCurrency, log)

	bookingSvc := services.NewBookingService(repos, notes, log)
	paymentSvc := services.NewPaymentService(repos, gw, rec, services.PaymentConfig{
		Currency:    cfg.PaymentCurrency,
		CallbackURL: cfg.PaystackCallbackURL,
	}, log)
	webhookSvc := services.NewWebhookService(cfg.PaystackSecretKey, repos, rec, log)
	propertySvc := services.NewPropertyService(repos.Properties)
	userSvc := services.NewUserService(repos.Users)

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	otp := auth.NewOTPService(otpStore, mailer, repos.Users, tm, cfg.OTPTTL, cfg.IsDev(), log)

	r := api.NewRouter(api.Options{
		CORSOrigins: cfg.CORSOrigins,
		RateRPS:     cfg.RateRPS,
		OTPRateRPS:  cfg.OTPRateRPS,
	}, api.Deps{
		Auth:       middleware.NewAuthMiddleware(tm, cfg.IsDev()),
		Users:      handlers.NewAuthHandler(otp, userSvc, log),
		Properties: handlers.NewPropertyHandler(propertySvc, log),
		Bookings:   handlers.NewBookingHandler(bookingSvc, log),
		Payments:   handlers.NewPaymentHandler(paymentSvc, log),
		Webhook:    handlers.NewWebhookHandler(webhookSvc, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
