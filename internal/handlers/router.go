package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/boomlift-maintenance/internal/middleware"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

// RouterConfig holds the handlers and middleware mounted by NewRouter
type RouterConfig struct {
	Auth     *AuthHandler
	Records  *RecordHandler
	Import   *ImportHandler
	Summary  *SummaryHandler
	Health   *HealthHandler
	AuthMW   *middleware.AuthMiddleware
	RateMW   *middleware.RateLimitMiddleware
	MaxPosts int
	Window   time.Duration
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	rateMW := cfg.RateMW
	if rateMW == nil {
		rateMW = middleware.NewRateLimitMiddleware()
	}
	can := cfg.AuthMW.RequirePermission

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Method(http.MethodGet, "/health", cfg.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.AuthMW.Authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.Auth.Login)
			r.Post("/register", cfg.Auth.Register)
			r.Get("/profile", cfg.Auth.GetProfile)
			r.Post("/change-password", cfg.Auth.ChangePassword)
		})
		r.With(cfg.AuthMW.RequireRole(models.RoleAdmin)).Get("/users", cfg.Auth.ListUsers)

		r.Route("/records", func(r chi.Router) {
			r.With(can(models.PermSubmitRecord), rateMW.RateLimit(cfg.MaxPosts, cfg.Window)).Post("/", cfg.Records.Submit)
			r.With(can(models.PermViewRecords)).Get("/", cfg.Records.List)
			r.With(can(models.PermViewRecords)).Get("/latest/{assetID}", cfg.Records.Latest)
			r.With(can(models.PermImportRecords)).Post("/import", cfg.Import.Import)
		})

		r.Route("/summary", func(r chi.Router) {
			r.Use(can(models.PermViewSummaries))
			r.Get("/", cfg.Summary.Report)
			r.Get("/technicians", cfg.Summary.Technicians)
			r.Get("/sites", cfg.Summary.Sites)
			r.Get("/assets", cfg.Summary.Assets)
			r.Get("/period", cfg.Summary.Period)
			r.Get("/export", cfg.Summary.Export)
		})
	})

	return r
}
