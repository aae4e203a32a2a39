package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voclinx/linkarr/internal/browse"
	"github.com/voclinx/linkarr/internal/models"
	"github.com/voclinx/linkarr/internal/session"
	"github.com/voclinx/linkarr/internal/watcher"
	"github.com/voclinx/linkarr/internal/websocket"
)

// changedNotice is sent on /api/ws/watch_dir after the directory changes.
const changedNotice = "changed"

var errPathRequired = errors.New("path query parameter is required")

func (s *Server) handleListDir(w http.ResponseWriter, r *http.Request) {
	s.serveListing(w, r, s.browser.List)
}

func (s *Server) handleFilterDir(w http.ResponseWriter, r *http.Request) {
	s.serveListing(w, r, s.browser.Filter)
}

func (s *Server) serveListing(w http.ResponseWriter, r *http.Request, list func(string) ([]models.DirEntry, error)) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, errPathRequired)
		return
	}

	entries, err := list(path)
	switch {
	case errors.Is(err, browse.ErrNotExist), errors.Is(err, browse.ErrNotDirectory):
		s.writeError(w, http.StatusBadRequest, err)
	case err != nil:
		s.log.Error("Listing failed", "path", path, "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
	default:
		s.writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleDefaultDir(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.DefaultDirResponse{Dir: s.cfg.DefaultDir})
}

func (s *Server) handleLinkFiles(w http.ResponseWriter, r *http.Request) {
	s.sockets.Add(1)
	defer s.sockets.Done()

	conn, err := websocket.Upgrade(w, r, s.cfg.PingInterval, s.log)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	session.New(conn, s.replicator, s.cfg.CompletionGrace, s.log).Run(r.Context())
}

func (s *Server) handleWatchDir(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, errPathRequired)
		return
	}

	dir, err := browse.CheckDir(path)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	dw, err := watcher.New(dir, s.cfg.WatchDebounce, s.log)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer dw.Close()

	s.sockets.Add(1)
	defer s.sockets.Done()

	conn, err := websocket.Upgrade(w, r, s.cfg.PingInterval, s.log)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything; reading only detects that it left.
	go func() {
		for {
			if _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	if err := dw.Run(ctx, func() error { return conn.WriteText(changedNotice) }); err != nil {
		s.log.Debug("Watch ended", "path", path, "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, models.ErrorResponse{Detail: err.Error()})
}
