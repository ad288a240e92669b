package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/internal/service"
	"github.com/azha0089/HealthyLife/pkg/health"
	"github.com/azha0089/HealthyLife/pkg/middleware"
)

// Services bundles the application services the router dispatches to.
type Services struct {
	Recipes   *service.RecipeService
	Ratings   *service.RatingService
	Favorites *service.FavoriteService
	Events    *service.EventService
	Users     *service.UserService
}

// RouterConfig holds the transport-level settings of the router.
type RouterConfig struct {
	ServiceName    string
	CORS           middleware.CORSConfig
	TokenValidator middleware.TokenValidator
	// RateLimiter may be nil to disable per-IP limiting.
	RateLimiter *middleware.RateLimiter
	PprofCIDRs  []string
}

// NewRouter creates a chi router with every HealthyLife route registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authHandler := NewAuthHandler(svc.Users, logger)
	recipeHandler := NewRecipeHandler(svc.Recipes, logger)
	ratingHandler := NewRatingHandler(svc.Ratings, logger)
	favoriteHandler := NewFavoriteHandler(svc.Favorites, logger)
	eventHandler := NewEventHandler(svc.Events, logger)
	userHandler := NewUserHandler(svc.Users, logger)

	requireAuth := middleware.Auth(cfg.TokenValidator)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Use(ContentTypeJSON)

		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.List)
			r.Get("/popular", recipeHandler.Popular)
			r.Get("/counts", recipeHandler.Counts)
			r.With(middleware.CacheControl(time.Hour)).Get("/filters", recipeHandler.Filters)
			r.Get("/{recipeId}", recipeHandler.Get)
			r.Get("/{recipeId}/related", recipeHandler.Related)
			r.Get("/{recipeId}/ratings", ratingHandler.List)

			r.With(requireAuth).Post("/{recipeId}/ratings", ratingHandler.Submit)
			r.With(requireAuth).Get("/{recipeId}/ratings/me", ratingHandler.Mine)
		})

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.Me)

			r.Get("/favorites", favoriteHandler.List)
			r.Get("/favorites/{recipeId}", favoriteHandler.Check)
			r.Post("/favorites/{recipeId}", favoriteHandler.Add)
			r.Delete("/favorites/{recipeId}", favoriteHandler.Remove)
			r.Post("/favorites/{recipeId}/toggle", favoriteHandler.Toggle)

			r.Get("/events", eventHandler.List)
			r.Post("/events", eventHandler.Submit)
			r.Get("/events/{eventId}", eventHandler.Get)
			r.Post("/events/{eventId}/bookings", eventHandler.Book)
			r.Delete("/events/{eventId}/bookings", eventHandler.CancelBooking)
			r.Get("/bookings/me", eventHandler.MyBookings)
		})

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Post("/recipes", recipeHandler.Create)
			r.Post("/recipes/batch-delete", recipeHandler.BatchDelete)
			r.Put("/recipes/{recipeId}", recipeHandler.Update)
			r.Delete("/recipes/{recipeId}", recipeHandler.Delete)

			r.Get("/events/pending", eventHandler.ListPending)
			r.Post("/events", eventHandler.CreateApproved)
			r.Post("/events/{eventId}/approve", eventHandler.Approve)
			r.Post("/events/{eventId}/reject", eventHandler.Reject)
			r.Put("/events/{eventId}", eventHandler.Update)
			r.Delete("/events/{eventId}", eventHandler.Delete)

			r.Get("/users", userHandler.List)
			r.Get("/users/stats", userHandler.Stats)
			r.Post("/users", userHandler.Create)
			r.Post("/users/roles", userHandler.UpdateRoles)
			r.Get("/users/{userId}", userHandler.Get)
			r.Put("/users/{userId}", userHandler.Update)
			r.Delete("/users/{userId}", userHandler.Delete)
		})
	})

	return r
}
