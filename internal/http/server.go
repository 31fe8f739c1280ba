package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/Clark-Hu/mangareview/internal/auth"
	"github.com/Clark-Hu/mangareview/internal/config"
	"github.com/Clark-Hu/mangareview/internal/metrics"
	"github.com/Clark-Hu/mangareview/internal/service"
	"github.com/Clark-Hu/mangareview/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	svc     *service.Service
	tokens  auth.TokenService
	logger  *zap.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, svc *service.Service, tokens auth.TokenService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		store:  st,
		svc:    svc,
		tokens: tokens,
		logger: logger,
		router: newRouter(cfg, logger),
	}
	s.registerRoutes()
	return s
}

func newRouter(cfg config.Config, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observe(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	requireUser := auth.RequireUser(s.tokens, s.svc, s.respondError)
	limitWrites := s.writeLimiter()

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.With(limitWrites).Post("/register", s.handleRegister)
	s.router.With(limitWrites).Post("/login", s.handleLogin)
	s.router.With(requireUser).Post("/logout", s.handleLogout)
	s.router.With(requireUser).Get("/liked_reviews", s.handleLikedReviews)

	s.router.Route("/users", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/", s.handleListUsers)
		r.Get("/{userID}", s.handleGetUser)
		r.With(auth.RequireAdmin(s.respondError)).Delete("/{userID}", s.handleDeleteUser)
	})

	s.router.Route("/series", func(r chi.Router) {
		r.Get("/", s.handleListSeries)
		r.With(requireUser, limitWrites).Post("/", s.handleCreateSeries)
		r.Route("/{seriesID}", func(r chi.Router) {
			r.Get("/", s.handleGetSeries)
			r.With(requireUser, limitWrites).Put("/", s.handleUpdateSeries)
			r.With(requireUser, limitWrites).Delete("/", s.handleDeleteSeries)

			r.Get("/reviews", s.handleListReviews)
			r.With(requireUser, limitWrites).Post("/reviews", s.handleCreateReview)
			r.Route("/reviews/{reviewID}", func(r chi.Router) {
				r.Get("/", s.handleGetReview)
				r.Group(func(r chi.Router) {
					r.Use(requireUser, limitWrites)
					r.Put("/", s.handleUpdateReview)
					r.Delete("/", s.handleDeleteReview)
					r.Put("/like", s.handleLike)
					r.Put("/unlike", s.handleUnlike)
				})
			})
		})
	})
}

// writeLimiter throttles mutating requests per client IP.
func (s *Server) writeLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(
		s.cfg.RateLimitReqs,
		s.cfg.RateLimitWindow(),
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
		}),
	)
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http: listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
