package controller

import (
	"time"

	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/config"
	"github.com/merchantkit/unionpay-bridge/internal/infrastructure/observability"
	customMW "github.com/merchantkit/unionpay-bridge/internal/middleware"
	"github.com/merchantkit/unionpay-bridge/internal/repository/postgres"
	"github.com/merchantkit/unionpay-bridge/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool            *pgxpool.Pool
	RedisClient     *redis.Client
	Initiator       *service.Initiator
	Reconciler      *service.Reconciler
	RefundProcessor *service.RefundProcessor
	IdempotencyRepo *postgres.IdempotencyRepository
	Metrics         *observability.Metrics
	CORSConfig      config.CORSConfig
	WebhookSecret   string
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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	callbackH := NewCallbackController(deps.Reconciler, deps.Metrics, deps.WebhookSecret)
	orderH := NewOrderController(deps.Initiator, deps.RefundProcessor, deps.Metrics)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Provider-facing callbacks. These paths are registered with the
	// provider at transaction creation and must stay stable.
	r.Route("/gateway/unionpay", func(r chi.Router) {
		r.Post("/notify", callbackH.Notify)
		r.Get("/return/{orderID}", callbackH.Return)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating endpoints.
		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)

		r.Post("/orders/{orderID}/checkout", orderH.Checkout)
		r.With(idempotencyMW).Post("/orders/{orderID}/refund", orderH.Refund)
	})

	return r
}
