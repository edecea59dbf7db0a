package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Strategy mounts the relay routes. TypedAction and GenericForward are
// the two implementations, selected by relay.mode.
type Strategy interface {
	Name() string
	Mount(r chi.Router)
}

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(accessLog(g.logger, g.deps.Redactor))
	r.Use(g.resp.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: g.cfg.Server.CORS.AllowedOrigins,
		AllowedMethods: g.cfg.Server.CORS.AllowedMethods,
		AllowedHeaders: g.cfg.Server.CORS.AllowedHeaders,
		MaxAge:         300,
	}))

	// Unknown paths and known paths with the wrong method look the same.
	r.NotFound(g.resp.notFound)
	r.MethodNotAllowed(g.resp.notFound)

	// Public.
	r.Get("/health", g.handleHealth())
	if g.cfg.Metrics.IsEnabled() && g.deps.Metrics != nil {
		r.Method(http.MethodGet, g.cfg.Metrics.Path, g.deps.Metrics.Handler())
	}

	// Relay and status, behind auth when configured.
	r.Group(func(r chi.Router) {
		if g.cfg.Server.Auth.IsConfigured() {
			r.Use(authMiddleware(g.cfg.Server.Auth, g.resp))
		}
		r.Get("/status", g.handleStatus())
		g.strategy.Mount(r)
	})

	return r
}
