package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/identity-api/internal/application/auth"
	"github.com/identity-api/internal/application/notification"
	"github.com/identity-api/internal/application/otp"
	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/identity-api/internal/infrastructure/jwt"
	"github.com/identity-api/internal/infrastructure/smtp"
	"github.com/identity-api/internal/infrastructure/sns"
	"github.com/identity-api/internal/transport/http/handler"
	appmiddleware "github.com/identity-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	RoleRepo    *dynamo.RoleRepo
	OtpRepo     *dynamo.OtpRepo
	RefreshRepo *dynamo.RefreshTokenRepo
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(otp.ServiceDeps{
		OtpRepo:     deps.OtpRepo,
		CodeLength:  cfg.OTPCodeLength,
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
	})
	dispatcher := notification.NewDispatcher(deps.Mailer, deps.SMSSender)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		RefreshRepo: deps.RefreshRepo,
		OtpLedger:   otpSvc,
		TokenIssuer: deps.JWTProvider,
		Dispatcher:  dispatcher,
		Policy: auth.PasswordPolicy{
			MinLength:    cfg.PasswordMinLength,
			RequireMixed: cfg.PasswordRequireMixed,
		},
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(deps.UserRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.Post("/auth/verify-email", authH.VerifyEmail)
		r.With(sensitiveRL.Limit).Post("/auth/password-reset/request", authH.RequestPasswordReset)
		r.With(sensitiveRL.Limit).Post("/auth/password-reset/confirm", authH.ResetPassword)
		r.With(sensitiveRL.Limit).Post("/auth/resend-otp", authH.ResendOtp)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/users/me", userH.Me)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/roles", handler.NewRoleHandler(deps.RoleRepo).List)
				r.Put("/users/{id}/role", userH.AssignRole)
			})
		})
	})

	return r
}
