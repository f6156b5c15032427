// Package server hosts geoql's web UI: a single-page query console that
// runs DSL text against the configured backend and renders results without
// a full-page reload, using datastar to patch the results fragment in place.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/net/http2"
	"golang.org/x/sync/errgroup"

	"github.com/geoql-project/geoql/internal/config"
	"github.com/geoql-project/geoql/internal/macro"
	"github.com/geoql-project/geoql/internal/store"
)

// Server is geoql's web UI and query API.
type Server struct {
	cfg          *config.Config
	backend      store.Backend
	sessionStore *sessions.CookieStore
	notifier     *Notifier
	logger       *slog.Logger
	macros       *macro.Registry
	watcher      *store.Watcher
}

// New builds a Server bound to an already-open backend. The caller retains
// ownership of backend and must close it after Serve returns.
func New(cfg *config.Config, backend store.Backend, logger *slog.Logger) *Server {
	sessionStore := sessions.NewCookieStore(sessionSecret(cfg))
	sessionStore.MaxAge(86400)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	macros, err := macro.NewLoader(cfg.MacroDir).Load()
	if err != nil {
		logger.Warn("failed to load macros, continuing with none", "error", err)
		macros = macro.NewRegistry(nil)
	}

	watcher, err := store.NewWatcher(cfg.AreaDir, logger)
	if err != nil {
		logger.Warn("failed to watch area snapshot directory, console won't auto-reload on make-area commits", "error", err)
		watcher = nil
	}

	return &Server{
		cfg:          cfg,
		backend:      backend,
		sessionStore: sessionStore,
		notifier:     NewNotifier(),
		logger:       logger,
		macros:       macros,
		watcher:      watcher,
	}
}

// sessionSecret derives a cookie-signing key from cfg.BackendDSN, or uses
// a fixed built-in key when no DSN is configured; Config has no separate
// secret setting. Sessions only carry a generated session id, never
// credentials.
func sessionSecret(cfg *config.Config) []byte {
	if cfg.BackendDSN != "" {
		return []byte("geoql-session-" + cfg.BackendDSN)
	}
	return []byte("geoql-session-default")
}

// Serve starts the HTTP server on cfg.ServerAddr and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.cfg.ServerAddr
	s.logger.Info("starting web server", "addr", addr)

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewRouter()
	r.Use(middleware.Logger, middleware.Recoverer, middleware.Compress(5))
	s.routes(r)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
		return fmt.Errorf("server: configure http2: %w", err)
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	})

	if s.watcher != nil {
		eg.Go(func() error {
			s.watcher.Run(s.notifier.Broadcast)
			return nil
		})
		eg.Go(func() error {
			<-egctx.Done()
			return s.watcher.Close()
		})
	}

	return eg.Wait()
}
