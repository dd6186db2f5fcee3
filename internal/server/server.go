package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uimarket/uimarket/config"
	"github.com/uimarket/uimarket/internal/db"
	"github.com/uimarket/uimarket/internal/handlers"
	"github.com/uimarket/uimarket/internal/mq"
	"github.com/uimarket/uimarket/internal/services"
	"github.com/uimarket/uimarket/internal/store"
	"github.com/uimarket/uimarket/internal/store/memstore"
	"github.com/uimarket/uimarket/internal/tokenstore"
)

// Dependencies are the backends the HTTP API runs on. Revoker and Events
// are optional.
type Dependencies struct {
	Users      services.UserRepository
	Components services.ComponentRepository
	Revoker    handlers.TokenRevoker
	Events     services.EventPublisher
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []func() error
}

// New validates cfg, connects every configured backend and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{}
	deps, err := s.open(ctx, cfg)
	if err != nil {
		_ = s.closeAll()
		return nil, err
	}

	s.router = NewRouter(cfg, deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) open(ctx context.Context, cfg config.Config) (Dependencies, error) {
	var deps Dependencies

	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		mem := memstore.New()
		deps.Users = mem.Users()
		deps.Components = mem.Components()
		slog.Warn("using in-memory store; data is lost on exit")
	default:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return deps, fmt.Errorf("open database: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		deps.Users = store.NewUserRepository(conn)
		deps.Components = store.NewComponentRepository(conn)
	}

	if cfg.Redis.URL != "" {
		client, err := tokenstore.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return deps, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		deps.Revoker = tokenstore.NewRedisRevoker(client)
	}

	if cfg.MQ.Backend != "" {
		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return deps, err
		}
		s.closers = append(s.closers, broker.Close)
		publisher, err := mq.NewEventPublisher(broker, cfg.MQ.Channel)
		if err != nil {
			return deps, err
		}
		deps.Events = publisher
	}

	return deps, nil
}

// NewRouter mounts the API on a chi router with the standard middleware.
func NewRouter(cfg config.Config, deps Dependencies) *chi.Mux {
	userService := services.NewUserService(deps.Users, cfg.Auth.BcryptCost)
	componentService := services.NewComponentService(deps.Components, deps.Users, deps.Events)
	favoriteService := services.NewFavoriteService(componentService, deps.Users, deps.Events)
	auth := handlers.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, deps.Revoker)

	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, auth)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userService, auth)
		})
		r.Route("/components", func(r chi.Router) {
			handlers.ComponentRouter(r, componentService, favoriteService, auth)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, then closes every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeAll())
}

func (s *Server) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
