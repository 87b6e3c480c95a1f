package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	"github.com/diagnosis/luxsuv-identity/internal/http/handlers"
	identitymw "github.com/diagnosis/luxsuv-identity/internal/http/middleware"
	"github.com/diagnosis/luxsuv-identity/internal/http/response"
	"github.com/diagnosis/luxsuv-identity/internal/notify"
	"github.com/diagnosis/luxsuv-identity/internal/platform/mailer"
	"github.com/diagnosis/luxsuv-identity/internal/platform/sms"
	"github.com/diagnosis/luxsuv-identity/internal/repo/postgres"
	"github.com/diagnosis/luxsuv-identity/internal/service"
	"github.com/diagnosis/luxsuv-identity/pkg/auth"
	"github.com/diagnosis/luxsuv-identity/pkg/config"
	"github.com/diagnosis/luxsuv-identity/pkg/database"
	"github.com/diagnosis/luxsuv-identity/pkg/events"
	"github.com/diagnosis/luxsuv-identity/pkg/logger"
	mw "github.com/diagnosis/luxsuv-identity/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Key misconfiguration is fatal at startup, never per-request.
	if cfg.IsProduction() && cfg.Auth.JWTSecret == "dev-only-secret-change-in-prod" {
		logger.Error("JWT_SECRET must be set in production")
		os.Exit(1)
	}
	codec, err := auth.NewCodec(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Error("Failed to initialize token codec", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var eventBus events.Publisher = events.NoopPublisher{}
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	}
	defer eventBus.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	dispatcher := notify.NewDispatcher(buildSMSSender(cfg), buildEmailSender(cfg))
	dispatcher.Start(ctx)

	userRepo := postgres.NewUserRepository(pool)
	authService := service.NewAuthService(userRepo, dispatcher, codec, eventBus, cfg)
	userService := service.NewUserService(userRepo)

	h := handlers.New(authService, userService, cfg)
	authGuard := identitymw.NewAuth(codec, userRepo, cfg.Auth.CookieName)
	loginLimiter := identitymw.NewRateLimiter(redisClient, identitymw.RateLimitConfig{
		Requests: 5,
		Window:   time.Minute,
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("identity"))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter.Middleware()).Post("/login", h.Login)
			r.Post("/verify", h.Verify)
			r.Post("/register", h.Register)
			r.Post("/logout", h.Logout)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(authGuard.RequireAuth)
			r.Get("/", h.GetProfile)
			r.Patch("/", h.UpdateProfile)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authGuard.RequireRoles(domain.RoleAdmin))
			r.Get("/users", h.ListUsers)
			r.Get("/users/{id}", h.GetUser)
			r.Patch("/users/{id}", h.UpdateUser)
			r.Delete("/users/{id}", h.DeleteUser)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("identity service listening", "port", cfg.Server.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	// Close both queues and let in-flight deliveries finish.
	dispatcher.Shutdown()

	logger.Info("Shutdown complete")
}

func buildSMSSender(cfg *config.Config) sms.Sender {
	if cfg.SMS.Enabled {
		return sms.NewTwilioSender(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.From)
	}
	return sms.NewDevSender()
}

func buildEmailSender(cfg *config.Config) mailer.Sender {
	if cfg.Email.DevMode {
		return mailer.NewDevSender()
	}
	if cfg.Email.MailerSendKey != "" {
		sender, err := mailer.NewMailerSendSender(cfg.Email.MailerSendKey, "LuxSUV", cfg.Email.SMTPFrom)
		if err == nil {
			return sender
		}
		logger.Warn("MailerSend unavailable, falling back to SMTP", "error", err)
	}
	return mailer.NewSMTPSender(
		cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
		cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS,
	)
}
