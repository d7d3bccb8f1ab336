// Package web provides the REST surface of the backoffice: CRUD per entity,
// the participants view, spreadsheet import uploads, and the block export.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/malvinas3d/backoffice/internal/catalog"
	"github.com/malvinas3d/backoffice/internal/config"
	"github.com/malvinas3d/backoffice/internal/importer"
	"github.com/malvinas3d/backoffice/internal/store"
)

// Server is the HTTP server for the backoffice API.
type Server struct {
	store    store.Store
	importer *importer.Service
	catalog  *catalog.Importer
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(st store.Store, imp *importer.Service, cat *catalog.Importer, cfg *config.Config) *Server {
	s := &Server{
		store:    st,
		importer: imp,
		catalog:  cat,
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         s.cfg.CORS.MaxAge,
	}))

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Subscribers
		r.Get("/subscribers", s.handleListSubscribers)
		r.Post("/subscribers", s.handleUpsertSubscriber)
		r.Get("/subscribers/{id}", s.handleGetSubscriber)
		r.Put("/subscribers/{id}", s.handleUpdateSubscriber)
		r.Delete("/subscribers/{id}", s.handleDeleteSubscriber)
		r.Get("/subscribers/{id}/capability", s.handleGetCapability)
		r.Get("/subscribers/{id}/blocks", s.handleSubscriberBlocks)

		// Receiving nodes
		r.Get("/nodes", s.handleListNodes)
		r.Post("/nodes", s.handleUpsertNode)
		r.Get("/nodes/{id}", s.handleGetNode)
		r.Put("/nodes/{id}", s.handleUpdateNode)
		r.Delete("/nodes/{id}", s.handleDeleteNode)

		// Blocks
		r.Get("/blocks", s.handleListBlocks)
		r.Post("/blocks", s.handleUpsertBlock)
		r.Get("/blocks/{id}", s.handleGetBlock)
		r.Put("/blocks/{id}", s.handleUpdateBlock)
		r.Delete("/blocks/{id}", s.handleDeleteBlock)

		// Map-block catalog
		r.Get("/map-blocks", s.handleListMapBlocks)
		r.Post("/map-blocks", s.handleUpsertMapBlock)
		r.Get("/map-blocks/{id}", s.handleGetMapBlock)
		r.Put("/map-blocks/{id}", s.handleUpdateMapBlock)
		r.Delete("/map-blocks/{id}", s.handleDeleteMapBlock)

		// Derived participants view
		r.Get("/participants", s.handleListParticipants)

		// Block export
		r.Get("/export/blocks", s.handleExportBlocks)

		// Spreadsheet imports
		r.Post("/imports/catalog", s.handleImportCatalog)
		r.Post("/imports/{type}", s.handleImport)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
