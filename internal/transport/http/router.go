package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-otp-gate/internal/application/account"
	otpapp "github.com/go-otp-gate/internal/application/otp"
	"github.com/go-otp-gate/internal/config"
	jwtinfra "github.com/go-otp-gate/internal/infrastructure/jwt"
	"github.com/go-otp-gate/internal/infrastructure/smtp"
	"github.com/go-otp-gate/internal/pkg/clock"
	"github.com/go-otp-gate/internal/transport/http/handler"
	appmiddleware "github.com/go-otp-gate/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    UserRepository
	OtpRepo     OtpRepository
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	Clock       clock.Clock
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var identityMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		identityMw = appmiddleware.Identity(deps.JWTProvider)
	} else {
		identityMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otpapp.NewService(otpapp.ServiceDeps{
		OtpRepo:  deps.OtpRepo,
		UserRepo: deps.UserRepo,
		Mailer:   deps.Mailer,
		Clock:    deps.Clock,
		CodeTTL:  cfg.OTPCodeTTL,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:    deps.UserRepo,
		JWTProvider: deps.JWTProvider,
	})

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOtpHandler(otpSvc)
	userH := handler.NewUserHandler(accountSvc, otpSvc)
	sessionH := handler.NewSessionHandler(accountSvc)
	pageH := handler.NewPageHandler(cfg.Gate, int(cfg.OTPCodeTTL.Seconds()))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/otp/{action}", otpH.Action)
	})

	// Page views run behind the access gate: identity is resolved first,
	// then the gate redirects unverified or misplaced visitors.
	gate := appmiddleware.NewGate(cfg.Gate, deps.UserRepo)
	r.Group(func(r chi.Router) {
		r.Use(identityMw)
		r.Use(gate.Handler)
		r.Get(cfg.Gate.OTPPath, pageH.VerifyOTP)
		r.Get(cfg.Gate.AccountPath, pageH.Account)
		r.Get(cfg.Gate.LoginPath, pageH.Login)
	})

	return r
}
