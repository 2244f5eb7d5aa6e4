package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"taskbox/internal/auth"
	"taskbox/internal/config"
	"taskbox/internal/db"
	"taskbox/internal/mail"
	"taskbox/internal/maintenance"
	"taskbox/internal/oauth"
	"taskbox/internal/observability"
	"taskbox/internal/todo"
	"taskbox/internal/web"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

// Build wires the whole application: config, database, services,
// handlers, and the route table. Both the long-running server and the
// serverless entry point call this.
func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	var notifier mail.Notifier = mail.NopMailer{}
	if cfg.SMTPHost != "" {
		notifier = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		})
	} else {
		logger.Warn("smtp_not_configured", map[string]any{"note": "otp mail will be discarded"})
	}

	authRepo := auth.NewRepository(database)
	tokens := auth.NewTokenService(cfg.Tokens)
	otp := auth.NewOTPManager(cfg.OTPTTL, cfg.LockDuration)
	google := oauth.NewGoogleVerifier(cfg.GoogleClientID)
	authService := auth.NewService(authRepo, tokens, otp, notifier, google, logger)
	authHandler := auth.NewHandler(authService)

	todoRepo := todo.NewRepository(database)
	todoHandler := todo.NewHandler(todoRepo)

	cleanupHandler := maintenance.NewCleanupHandler(authRepo, logger, cfg.CronSecret, cfg.CleanupLockRetention)

	loginLimiter := auth.NewLoginRateLimiter(10, time.Minute)
	authed := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(authService, h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(authService, auth.RequireAdmin(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/signup", authHandler.Register)
	mux.Handle("POST /api/v1/auth/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/v1/auth/google", authHandler.GoogleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/v1/auth/verify-account", authHandler.VerifyAccount)
	mux.HandleFunc("POST /api/v1/auth/resend-otp", authHandler.ResendOTP)
	mux.HandleFunc("GET /api/v1/auth/otp-expire-time", authHandler.OTPExpireTime)
	mux.Handle("POST /api/v1/auth/forgot-password-email-submit", loginLimiter.Middleware(http.HandlerFunc(authHandler.ForgotPassword)))
	mux.HandleFunc("POST /api/v1/auth/reset-password", authHandler.ResetPassword)
	mux.Handle("PUT /api/v1/auth/update-profile", authed(authHandler.UpdateProfile))
	mux.Handle("GET /api/v1/auth/me", authed(authHandler.Me))
	mux.Handle("GET /api/v1/auth/users", admin(authHandler.ListUsers))
	mux.Handle("DELETE /api/v1/auth/user/{userId}", admin(authHandler.DeleteUser))

	mux.Handle("POST /api/v1/todo/create", authed(todoHandler.Create))
	mux.Handle("GET /api/v1/todo/todos", authed(todoHandler.List))
	mux.Handle("DELETE /api/v1/todo/delete/{todoId}", authed(todoHandler.Delete))
	mux.Handle("PUT /api/v1/todo/update", authed(todoHandler.Update))
	mux.Handle("PATCH /api/v1/todo/update/{todoId}", authed(todoHandler.UpdateStatus))

	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))

	handler := observability.RecoverMiddleware(logger,
		observability.RequestLoggingMiddleware(logger,
			web.CORSMiddleware(cfg.Origin, mux)))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
