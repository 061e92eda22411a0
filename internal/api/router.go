package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/fraudlab/cardsim-backend/internal/api/handlers"
	"github.com/fraudlab/cardsim-backend/internal/config"
	"github.com/fraudlab/cardsim-backend/internal/metrics"
	"github.com/fraudlab/cardsim-backend/internal/middleware"
	"github.com/fraudlab/cardsim-backend/internal/models"
)

type RouterDeps struct {
	Cfg    config.Config
	Auth   *middleware.AuthMiddleware
	Users  *handlers.AuthHandler
	Credit *handlers.CreditHandler
	Fraud  *handlers.FraudHandler
	Unlock *handlers.UnlockHandler
	Redis  redis.UniversalClient
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(d.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", d.Users.Register)
		r.Post("/auth/login", d.Users.Login)
		r.Post("/auth/refresh", d.Users.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Auth)

			r.Post("/credit/requests", d.Credit.SubmitRequest)
			r.Get("/credit/requests/me", d.Credit.MyRequests)
			r.Get("/credit/cards/me", d.Credit.MyCards)
			r.Get("/credit/cards/{id}", d.Credit.GetCard)

			r.Get("/credit/otp/pending", d.Credit.PendingOtp)
			r.Group(func(r chi.Router) {
				if d.Redis != nil {
					r.Use(middleware.RedisRateLimit(d.Redis, "otp-share", 10, time.Minute))
				}
				r.Post("/credit/otp/share", d.Credit.ShareOtp)
			})
			r.Post("/credit/otp/report", d.Credit.ReportOtp)

			r.Post("/credit/unlock/request", d.Unlock.Request)
			r.Group(func(r chi.Router) {
				if d.Redis != nil {
					r.Use(middleware.RedisRateLimit(d.Redis, "unlock-verify", 10, time.Minute))
				}
				r.Post("/credit/unlock/verify", d.Unlock.Verify)
			})
			r.Get("/credit/unlock/status", d.Unlock.Status)

			// simulator surface: drives the attacker side of a drill
			r.Post("/fraud/otp/initiate", d.Fraud.InitiateOtp)
			r.Post("/fraud/payment", d.Fraud.Payment)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/credit/requests/{id}/approve", d.Credit.Approve)
				r.Post("/credit/requests/{id}/reject", d.Credit.Reject)
				r.Post("/credit/cards/{id}/leak", d.Credit.Leak)
				r.Get("/fraud/transactions", d.Fraud.ListTransactions)
			})
		})
	})

	return r
}
