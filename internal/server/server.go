// Package server exposes the browsing API and the websocket endpoints over
// HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/voclinx/linkarr/internal/browse"
	"github.com/voclinx/linkarr/internal/config"
	"github.com/voclinx/linkarr/internal/metrics"
	"github.com/voclinx/linkarr/internal/replicator"
)

const shutdownTimeout = 5 * time.Second

// Server is the linkarr HTTP server.
type Server struct {
	cfg        *config.Config
	log        *slog.Logger
	browser    *browse.Browser
	replicator *replicator.Replicator
	handler    http.Handler

	// sockets tracks hijacked websocket handlers, which http.Server.Shutdown
	// does not wait for.
	sockets sync.WaitGroup
}

// New builds the server and its routes. Nothing listens until Run.
func New(cfg *config.Config, log *slog.Logger) *Server {
	metrics.Register()

	s := &Server{
		cfg:        cfg,
		log:        log.With("component", "server"),
		browser:    browse.New(log, cfg.HideSystemDirs),
		replicator: replicator.New(log),
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/list_dir", s.handleListDir).Methods(http.MethodGet)
	api.HandleFunc("/filter_dir", s.handleFilterDir).Methods(http.MethodGet)
	api.HandleFunc("/default_dir", s.handleDefaultDir).Methods(http.MethodGet)
	api.HandleFunc("/ws/link_files", s.handleLinkFiles).Methods(http.MethodGet)
	api.HandleFunc("/ws/watch_dir", s.handleWatchDir).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	// Preflights must be answered for GET-only routes too, so CORS wraps
	// the router instead of being router middleware.
	s.handler = newCORS().Handler(router)
	return s
}

// newCORS allows every origin. The request's own origin is echoed back so
// credentialed requests are accepted too.
func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is done, then shuts down
// gracefully. Open websocket sessions see their request context cancelled
// and stop before their next link; shutdown waits for them to return.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	group, groupCtx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return groupCtx },
	}

	group.Go(func() error {
		s.log.Info("Listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.log.Info("Shutting down")
		// The group context is already cancelled, so shutdown needs its own.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return s.waitSockets(shutdownCtx)
	})
	return group.Wait()
}

// waitSockets blocks until every websocket handler has returned or ctx is
// done.
func (s *Server) waitSockets(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sockets.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn("Websocket handlers still running after shutdown timeout")
		return ctx.Err()
	}
}
