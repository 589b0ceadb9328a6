package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fulfilhub/dashboard/internal/auth"
	"github.com/fulfilhub/dashboard/internal/dashboard"
	"github.com/fulfilhub/dashboard/internal/observability"
	"github.com/fulfilhub/dashboard/internal/rbac"
	"github.com/fulfilhub/dashboard/internal/shared"
	"github.com/fulfilhub/dashboard/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CSRFManager      *shared.CSRFManager
	Gate             *rbac.Gate
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router. Operational endpoints sit outside the access
// gate; every page route goes through the gate and the CSRF check.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		if params.Gate != nil {
			r.Use(params.Gate.Middleware)
		}
		if params.CSRFManager != nil {
			r.Use(CSRFMiddleware(params.CSRFManager, logger))
		}

		// The gate always redirects "/"; this only answers when no gate is installed.
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
		})
		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(r)
		}
		if params.DashboardHandler != nil {
			r.Route(rbac.DashboardPath, params.DashboardHandler.MountRoutes)
		}
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
