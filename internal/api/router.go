package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/larder-io/larder/internal/db"
	"github.com/larder-io/larder/internal/metrics"
)

// RouterConfig holds all dependencies needed to build the HTTP router.
type RouterConfig struct {
	DB      *gorm.DB
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter builds and returns the fully configured Chi router. Resources are
// registered under /api/v1; /healthz and /metrics are served at the root and
// do not open a transaction.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(Metrics(cfg.Metrics))

	// --- Initialize handlers ---
	foodHandler := NewFoodHandler(cfg.Metrics, cfg.Logger)
	unitHandler := NewUnitHandler(cfg.Metrics, cfg.Logger)
	tagHandler := NewTagHandler(cfg.Metrics, cfg.Logger)

	r.Get("/healthz", healthz(cfg.DB))
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Transactional(cfg.DB, cfg.Logger.Named("tx")))

		r.Route("/foods", foodHandler.Routes)
		r.Route("/units", unitHandler.Routes)
		r.Route("/tags", func(r chi.Router) {
			tagHandler.Routes(r)
			r.Get("/slug/{slug}", tagHandler.GetByKey("slug"))
		})
	})

	return r
}

// healthz handles GET /healthz.
func healthz(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx, database); err != nil {
			ErrUnavailable(w, "Database unavailable.")
			return
		}
		JSON(w, http.StatusOK, envelope{"status": "ok"})
	}
}
