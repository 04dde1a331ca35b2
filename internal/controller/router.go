package controller

import (
	"time"

	"github.com/commercegate/paypal-sessions/internal/infrastructure/config"
	"github.com/commercegate/paypal-sessions/internal/infrastructure/observability"
	customMW "github.com/commercegate/paypal-sessions/internal/middleware"
	"github.com/commercegate/paypal-sessions/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool           *pgxpool.Pool
	RedisClient    *redis.Client
	SessionService *service.SessionService
	Metrics        *observability.Metrics
	CORSConfig     config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	sessionH := NewSessionController(deps.SessionService)
	webhookH := NewWebhookController(deps.SessionService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", sessionH.CreateSession)
		r.Get("/sessions", sessionH.ListSessions)
		r.Get("/sessions/{id}", sessionH.GetSession)
		r.Put("/sessions/{id}", sessionH.UpdateSession)
		r.Delete("/sessions/{id}", sessionH.DeleteSession)

		r.Post("/sessions/{id}/authorize", sessionH.AuthorizeSession)
		r.Post("/sessions/{id}/capture", sessionH.CaptureSession)
		r.Post("/sessions/{id}/cancel", sessionH.CancelSession)
		r.Post("/sessions/{id}/refund", sessionH.RefundSession)
	})

	r.Post("/webhooks/paypal", webhookH.HandlePayPal)

	return r
}
