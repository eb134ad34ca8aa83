package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lcportal/lcportal/internal/api/handlers"
	"github.com/lcportal/lcportal/internal/api/middleware"
	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/repository"
	"github.com/lcportal/lcportal/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	applicationService *service.ApplicationService,
	notificationService *service.NotificationService,
	authService *service.AuthService,
	rateLimitService *service.RateLimitService,
	companyRepo *repository.CompanyRepository,
	userRepo *repository.UserRepository,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)

	// Create handlers
	applicationHandler := handlers.NewApplicationHandler(applicationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	authHandler := handlers.NewAuthHandler(authService)
	companyHandler := handlers.NewCompanyHandler(companyRepo, userRepo)
	userHandler := handlers.NewUserHandler(userRepo)

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	r.Route("/api", func(r chi.Router) {
		// Health checks (no auth required)
		r.Get("/health", handlers.Health)
		r.Get("/ready", handlers.Ready)

		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if rateLimitService != nil {
				rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimitService)
				r.Use(rateLimitMiddleware.RateLimit)
			}

			r.Get("/auth/me", authHandler.Me)

			// Company endpoints
			r.Route("/company", func(r chi.Router) {
				r.Post("/", companyHandler.Register)
				r.Get("/me", companyHandler.GetMine)
				r.Put("/me", companyHandler.UpdateMine)
			})

			// Application endpoints
			r.Route("/applications", func(r chi.Router) {
				r.Get("/", applicationHandler.List)
				r.Post("/", applicationHandler.Create)
				r.Get("/stats/dashboard", applicationHandler.DashboardStats)

				r.With(middleware.Authorize(domain.RoleAdmin, domain.RoleComplianceOfficer)).
					Get("/admin/pending", applicationHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", applicationHandler.Get)
					r.Put("/", applicationHandler.Update)
					r.With(middleware.Authorize(domain.RoleUser, domain.RoleAdmin)).
						Delete("/", applicationHandler.Delete)
					r.Put("/step", applicationHandler.UpdateStep)
					r.Post("/submit", applicationHandler.Submit)
				})
			})

			// Notification endpoints
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Put("/read-all", notificationHandler.MarkAllRead)
				r.Put("/{id}/read", notificationHandler.MarkRead)
			})

			// Admin endpoints
			r.With(middleware.Authorize(domain.RoleAdmin)).
				Get("/users", userHandler.List)
		})
	})

	return r
}
