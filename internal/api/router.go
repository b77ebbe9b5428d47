package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/averulo-backend/internal/api/handlers"
	"github.com/baharkarakas/averulo-backend/internal/metrics"
	"github.com/baharkarakas/averulo-backend/internal/middleware"
	"github.com/baharkarakas/averulo-backend/internal/models"
)

const maxJSONBody = 1 << 20

type Options struct {
	CORSOrigins []string
	RateRPS     int
	OTPRateRPS  int
}

type Deps struct {
	Auth       *middleware.AuthMiddleware
	Users      *handlers.AuthHandler
	Properties *handlers.PropertyHandler
	Bookings   *handlers.BookingHandler
	Payments   *handlers.PaymentHandler
	Webhook    *handlers.WebhookHandler
}

func NewRouter(opt Options, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Registered ahead of the JSON group: the signature covers the raw bytes.
		r.Post("/payments/webhook/paystack", d.Webhook.Paystack)

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBody(maxJSONBody))

			// ---------- auth ----------
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(opt.OTPRateRPS))
				r.Post("/auth/send-otp", d.Users.SendOTP)
				r.Post("/auth/verify-otp", d.Users.VerifyOTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(opt.RateRPS))

				// ---------- properties (public reads) ----------
				r.Get("/properties", d.Properties.List)
				r.Get("/properties/{id}", d.Properties.Get)

				r.Group(func(r chi.Router) {
					r.Use(d.Auth.Auth)

					r.Get("/me", d.Users.Me)
					r.With(middleware.RequireRole(models.RoleHost, models.RoleAdmin)).
						Post("/properties", d.Properties.Create)

					// ---------- bookings ----------
					r.Post("/bookings", d.Bookings.Create)
					r.Get("/bookings/me", d.Bookings.ListMine)
					r.With(middleware.RequireRole(models.RoleHost, models.RoleAdmin)).
						Get("/bookings/host", d.Bookings.ListForHost)
					r.Get("/bookings/{id}", d.Bookings.Get)
					r.With(middleware.RequireRole(models.RoleHost, models.RoleAdmin)).
						Patch("/bookings/{id}/approve", d.Bookings.Transition(models.BookingApproved))
					r.With(middleware.RequireRole(models.RoleHost, models.RoleAdmin)).
						Patch("/bookings/{id}/reject", d.Bookings.Transition(models.BookingRejected))
					r.Patch("/bookings/{id}/cancel", d.Bookings.Transition(models.BookingCancelled))

					// ---------- payments ----------
					r.Post("/payments/init", d.Payments.Init)
					r.Get("/payments/verify/{reference}", d.Payments.Verify)
					r.Get("/payments/me", d.Payments.ListMine)
					r.Get("/payments/by-booking/{bookingId}", d.Payments.ListByBooking)
				})
			})
		})
	})

	return r
}
