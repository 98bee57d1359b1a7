// Package app wires the storefront components into an HTTP server.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/internal/transport/web"
	"github.com/abgdnv/storefront/internal/view"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/abgdnv/storefront/pkg/telemetry"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Catalog  *catalog.Loader
	Sessions *session.Store
	Renderer *view.Renderer
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger

	cookie      session.CookieConfig
	metricsPath string
}

// SetupDependencies builds the catalog loader, session store and renderer. A nil
// fetcher gets the HTTP catalog client from cfg; a nil metrics disables /metrics.
// The loader is returned unstarted.
func SetupDependencies(cfg *config.Config, fetcher catalog.Fetcher, publisher messaging.Publisher, metrics *telemetry.Metrics, logger *slog.Logger) (*Dependencies, error) {
	if fetcher == nil {
		fetcher = catalog.NewClient(catalog.ClientConfig{
			URL:     cfg.Catalog.URL,
			Timeout: cfg.Catalog.Timeout,
			Breaker: cfg.Catalog.CircuitBreaker,
		}, nil, logger)
	}
	sessions, err := session.NewStore(session.Config{
		AlertTTL:      cfg.Alert.TTL,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
	}, publisher, logger)
	if err != nil {
		return nil, err
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Dependencies{
		Catalog:     catalog.NewLoader(fetcher, logger),
		Sessions:    sessions,
		Renderer:    renderer,
		Metrics:     metrics,
		Logger:      logger,
		cookie:      session.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
		metricsPath: cfg.Telemetry.Metrics.Path,
	}, nil
}

// SetupHttpHandler builds the router with every route and middleware.
// Used by E2E tests to run the application inside an httptest.Server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return server.Instrument("storefront", mux)
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	sessionMW := session.Middleware(deps.Sessions, deps.cookie, deps.Logger)

	rest.NewHandler(deps.Catalog, deps.Logger).RegisterRoutes(mux, sessionMW)
	mux.Group(func(r chi.Router) {
		r.Use(sessionMW)
		web.NewHandler(deps.Catalog, deps.Renderer, deps.Logger).RegisterRoutes(r)
	})
	if deps.Metrics != nil && deps.metricsPath != "" {
		mux.Handle(deps.metricsPath, deps.Metrics.Handler())
	}
}

// SetupHttpServer creates and configures the storefront HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(server.FromConfig(cfg.HTTPServer), SetupHttpHandler(deps))
}
