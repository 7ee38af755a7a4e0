package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/zuricore/identity-service/app/docs"
	"github.com/zuricore/identity-service/app/logger"
	"github.com/zuricore/identity-service/app/metrics"
	idmw "github.com/zuricore/identity-service/app/middleware"
	"github.com/zuricore/identity-service/app/models"
	"github.com/zuricore/identity-service/app/services"
	"github.com/zuricore/identity-service/app/store"
)

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

type config struct {
	addr        string
	env         string
	corsOrigins []string
	maxBodySize int64
	db          dbConfig
}

type application struct {
	config   config
	store    store.Storage
	identity *services.IdentityService
	sessions *services.SessionManager
	redis    *redis.Client
	db       interface {
		PingContext(ctx context.Context) error
		Close() error
	}
	amqpConn interface {
		IsClosed() bool
		Close() error
	}
	amqpCh interface {
		IsClosed() bool
		Close() error
	}
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(idmw.RequestIDTracing())
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(idmw.Metrics())
	r.Use(idmw.SecurityHeaders(app.config.env == "production"))
	r.Use(idmw.CORS(app.config.corsOrigins))
	r.Use(idmw.BodyLimit(app.config.maxBodySize))
	r.Use(middleware.Timeout(60 * time.Second))

	signupLimit := idmw.RouteLimit{Name: "signup", Capacity: 10, Window: 5 * time.Minute}
	loginLimit := idmw.RouteLimit{Name: "login", Capacity: 5, Window: time.Minute}
	verifyLimit := idmw.RouteLimit{Name: "verify", Capacity: 10, Window: time.Minute}
	forgotLimit := idmw.RouteLimit{Name: "forgotPassword", Capacity: 3, Window: time.Hour}
	resetLimit := idmw.RouteLimit{Name: "resetPassword", Capacity: 5, Window: time.Minute}
	twoFactorLimit := idmw.RouteLimit{Name: "twoFactor", Capacity: 5, Window: time.Minute}
	protectedLimit := idmw.RouteLimit{Name: "protected", Capacity: 120, Window: time.Minute}
	healthLimit := idmw.RouteLimit{Name: "health", Capacity: 20, Window: time.Minute}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(idmw.RateLimit(app.redis, healthLimit, idmw.PrincipalIP())).
			Get("/health", app.healthCheckHandler)
		r.Get("/metrics", metrics.Handler().ServeHTTP)
		r.Get("/openapi.json", docs.Handler().ServeHTTP)

		r.Route("/auth", func(r chi.Router) {
			r.With(idmw.RateLimit(app.redis, signupLimit, idmw.PrincipalIP())).
				Post("/signup", app.signUpHandler)
			r.With(idmw.RateLimit(app.redis, loginLimit, idmw.PrincipalIP())).
				Post("/login", app.loginHandler)
			r.With(idmw.RateLimit(app.redis, verifyLimit, idmw.PrincipalIP())).
				Get("/verify/{token}", app.verifyHandler)
			r.With(idmw.RateLimit(app.redis, verifyLimit, idmw.PrincipalIP())).
				Post("/resend-verification", app.resendVerificationHandler)
			r.With(idmw.RateLimit(app.redis, forgotLimit, idmw.PrincipalIP())).
				Post("/forgot-password", app.forgotPasswordHandler)
			r.With(idmw.RateLimit(app.redis, resetLimit, idmw.PrincipalIP())).
				Post("/reset-password/{token}", app.resetPasswordHandler)
			r.Get("/change-email/{token}", app.changeEmailHandler)

			// authenticated account management
			r.Group(func(pr chi.Router) {
				pr.Use(idmw.Authenticate(app.sessions))
				pr.Use(idmw.RateLimit(app.redis, protectedLimit, idmw.PrincipalUserOrIP()))
				pr.Patch("/password", app.changePasswordHandler)
				pr.Post("/request-email-change", app.requestEmailChangeHandler)
				pr.Post("/2fa/enable", app.enable2FAHandler)
				pr.With(idmw.RateLimit(app.redis, twoFactorLimit, idmw.PrincipalUserOrIP())).
					Post("/2fa/send-code", app.send2FACodeHandler)
				pr.With(idmw.RateLimit(app.redis, twoFactorLimit, idmw.PrincipalUserOrIP())).
					Post("/2fa/verify-code", app.verify2FACodeHandler)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(idmw.Authenticate(app.sessions))
			pr.Use(idmw.RateLimit(app.redis, protectedLimit, idmw.PrincipalUserOrIP()))

			pr.Route("/users", func(r chi.Router) {
				r.With(idmw.RequireRoles(models.RoleAdmin)).Get("/", app.listUsersHandler)
				r.Get("/me", app.currentUserHandler)
				r.Get("/{id}", app.getUserHandler)
				r.Patch("/{id}", app.updateUserHandler)
				r.With(idmw.RequireRoles(models.RoleAdmin)).Delete("/{id}", app.deleteUserHandler)
			})
			pr.Get("/roles", app.listRolesHandler)
		})
	})
	return r
}

// runWithGracefulShutdown serves until SIGTERM/SIGINT, drains in-flight
// requests, then closes dependencies in order.
func (app *application) runWithGracefulShutdown(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", app.config.addr).Str("env", app.config.env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("starting graceful shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	if err := app.db.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("error closing database")
	}
	if err := app.redis.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("error closing redis")
	}
	if app.amqpCh != nil && !app.amqpCh.IsClosed() {
		if err := app.amqpCh.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("error closing rabbitmq channel")
		}
	}
	if app.amqpConn != nil && !app.amqpConn.IsClosed() {
		if err := app.amqpConn.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("error closing rabbitmq connection")
		}
	}

	logger.Logger.Info().Msg("graceful shutdown completed")
	return nil
}
