package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type healthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Uptime: time.Since(h.started).Seconds()})
}

// NewRouter wires every route. limiter may be nil to disable rate limiting.
func NewRouter(h *Handler, limiter ratelimit.Limiter, corsOrigins []string, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if limiter != nil {
		r.Use(rateLimit(limiter, logger))
	}

	r.Get("/health", h.Health)

	authenticated := requireAuth(h.jwtSecret)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/mfa-verify", h.MFALogin)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Post("/email/send-verification", h.SendEmailVerification)
		r.Post("/email/verify", h.VerifyEmail)
		r.Post("/email/verify-code", h.VerifyEmailWithCode)
		r.Post("/email/resend-code", h.ResendVerificationCode)

		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/forgot-password/verifyOtp", h.VerifyForgotOTP)
		r.Post("/reset-password", h.ResetPassword)

		r.Route("/mfa", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/setup", h.MFASetup)
			r.Post("/verify", h.MFAVerify)
			r.Post("/disable", h.MFADisable)
			r.Get("/status", h.MFAStatus)
		})
	})

	r.Route("/options", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.SaveOption)
		r.Get("/", h.ListOptions)
		r.Get("/{type}", h.ListOptionsByType)
	})

	return r
}
