package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskerhq/tasker/internal/config"
	"github.com/taskerhq/tasker/internal/handler"
	"github.com/taskerhq/tasker/internal/server/middleware"
	"github.com/taskerhq/tasker/internal/service"
	"github.com/taskerhq/tasker/internal/store"
)

// Server is the top-level HTTP server. It owns the Chi router, the store,
// and the authentication service, and wires the three credential resolvers
// in front of the business routes.
type Server struct {
	cfg        config.Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired, ready for
// ListenAndServe.
func New(cfg config.Config, st *store.Store, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		authSvc: authSvc,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: s.cfg.CORSAllowCredentials,
		MaxAge:           300,
	}))
	r.Use(middleware.MaxBodySize(s.cfg.MaxBodySize))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	authHandler := handler.NewAuthHandler(s.authSvc)
	userHandler := handler.NewUserHandler(s.authSvc, s.store)
	taskHandler := handler.NewTaskHandler(s.store)
	categoryHandler := handler.NewCategoryHandler(s.store)
	keyHandler := handler.NewKeyHandler(s.authSvc)

	requireUser := middleware.RequireUser(s.authSvc, s.logger)
	requireSession := middleware.RequireSession(s.authSvc, s.logger)
	requireAPIKey := middleware.RequireAPIKey(s.authSvc, s.logger)
	optionalAPIKey := middleware.OptionalAPIKey(s.authSvc, s.logger)

	r.Route("/api/v1", func(r chi.Router) {

		// Credential-issuing endpoints get the tight rate limit.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.RateLimitAuth))

			r.Post("/auth/simple", authHandler.SimpleAuth)
			r.With(requireSession).Get("/auth/verify", authHandler.VerifyAuth)

			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.RateLimitAPI))

			// Machine endpoints authenticated by API key. /status still
			// accepts anonymous callers while clients migrate.
			r.With(optionalAPIKey).Get("/status", s.handleStatus)
			r.With(requireAPIKey).Get("/stats", s.handleStats)

			// Everything below requires a user-bound token.
			r.Group(func(r chi.Router) {
				r.Use(requireUser)

				r.Get("/me", userHandler.Me)
				r.Put("/me", userHandler.UpdateMe)
				r.Post("/verify-token", userHandler.VerifyToken)

				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", taskHandler.List)
					r.Post("/", taskHandler.Create)
					r.Get("/{taskID}", taskHandler.Get)
					r.Put("/{taskID}", taskHandler.Update)
					r.Delete("/{taskID}", taskHandler.Delete)
				})

				r.Route("/categories", func(r chi.Router) {
					r.Get("/", categoryHandler.List)
					r.Post("/", categoryHandler.Create)
					r.Get("/{categoryID}", categoryHandler.Get)
					r.Delete("/{categoryID}", categoryHandler.Delete)
				})

				r.Route("/keys", func(r chi.Router) {
					r.Get("/", keyHandler.List)
					r.Post("/", keyHandler.Create)
					r.Patch("/{keyID}", keyHandler.Toggle)
					r.Delete("/{keyID}", keyHandler.Delete)
				})
			})
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database is
// reachable, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status":   "degraded",
			"database": "error: " + err.Error(),
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// handleStatus reports API availability. When a valid API key is presented
// it confirms which key authenticated; anonymous callers still get a basic
// answer while they migrate to keys.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":        "ok",
		"authenticated": false,
	}
	if p := middleware.GetPrincipal(r.Context()); p != nil && p.Kind == middleware.PrincipalAPIKey {
		resp["authenticated"] = true
		resp["key_name"] = p.APIKey.Name
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// handleStats returns row counts for monitoring. API-key-only.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.CountAll(r.Context())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to gather stats"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or
// SIGTERM is received, then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "profile", s.cfg.Profile)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
