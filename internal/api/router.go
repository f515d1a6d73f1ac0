package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artzymeri/miteinander/internal/api/middleware"
	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/handlers"
	"github.com/artzymeri/miteinander/internal/realtime"
	"github.com/artzymeri/miteinander/internal/store"
)

// Deps carries everything the router wires together.
type Deps struct {
	Logger        zerolog.Logger
	Store         store.DataStore
	Redis         *store.RedisStore // optional
	Authenticator *auth.Authenticator
	Gateway       *realtime.Gateway

	AllowedOrigins []string
	RateLimit      bool
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (needs Redis counters)
	if d.RateLimit && d.Redis != nil {
		limiter := middleware.NewRateLimiter(d.Redis, d.Logger)
		r.Use(limiter.Middleware)
	}

	// CORS. Websocket origin checks happen separately at upgrade time.
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(d.Store, d.Redis, d.Gateway)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/who/{role}/{id}", h.Who)

	// Websocket entry point; authentication happens inside the handshake
	r.Get("/ws", d.Gateway.HandleWS)

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Authenticator))

		r.Get("/notifications", h.GetNotifications)
	})

	return r
}
