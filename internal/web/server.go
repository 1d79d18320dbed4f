// Package web serves the workspace over HTTP: a JSON API for loading,
// querying and exporting tables plus a small HTML view.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datamaster/internal/config"
	"github.com/JonMunkholm/datamaster/internal/core"
	"github.com/JonMunkholm/datamaster/internal/logging"
	"github.com/JonMunkholm/datamaster/internal/web/middleware"
)

// Server is the HTTP front end of a workspace.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer wires the middleware and routes for service.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(withActor)

	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.router.Use(limiter.Handler)
	}
}

func (s *Server) setupRoutes() {
	// Loads and imports decode whole inputs, so they share a stricter limit.
	loadLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		loadLimit = middleware.NewRateLimiter(s.cfg.Rate.LoadLimit, max(1, s.cfg.Rate.LoadLimit/4)).Handler
	}

	auth := middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys)

	s.router.Get("/health", s.handleHealth)

	// Pages
	s.router.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/", s.handleIndex)
		r.Get("/tables/{name}", s.handleTableView)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth)

		r.Get("/tables", s.handleListTables)

		r.Route("/tables/{name}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(loadLimit)
				r.Post("/", s.handleLoad)
				r.Post("/records", s.handleLoadRecords)
			})

			r.Get("/", s.handleTableInfo)
			r.Delete("/", s.handleDrop)
			r.Post("/query", s.handleQuery)
			r.Post("/filter", s.handleFilter)
			r.Get("/export", s.handleExport)
			r.Get("/history", s.handleHistory)
			r.Post("/undo", s.handleUndo)
		})

		r.With(loadLimit).Post("/import/{name}", s.handleImport)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v with status. A value that cannot be encoded becomes a
// 500 error response instead of a truncated body.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		if _, isErr := v.(ErrorResponse); isErr {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		respondError(w, r, fmt.Errorf("encode response: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Debug("response write failed", "path", r.URL.Path, "error", err)
	}
}
