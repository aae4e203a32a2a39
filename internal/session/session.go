// Package session drives one client's link request over a websocket and
// streams progress notices back to it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voclinx/linkarr/internal/event"
	"github.com/voclinx/linkarr/internal/metrics"
	"github.com/voclinx/linkarr/internal/models"
	"github.com/voclinx/linkarr/internal/replicator"
)

// State is a session lifecycle state.
type State int32

const (
	AwaitingRequest State = iota
	Processing
	Completed
	Disconnected
)

func (s State) String() string {
	switch s {
	case AwaitingRequest:
		return "awaiting_request"
	case Processing:
		return "processing"
	case Completed:
		return "completed"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

var errUnsupportedSource = errors.New("not a regular file or directory")

// Conn is the message channel a session talks over.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteText(text string) error
	Close() error
}

// Replicator plans tree replication jobs.
type Replicator interface {
	Replicate(source, destination string) (*replicator.Job, error)
}

// Session is one client's link request lifetime.
type Session struct {
	ID string

	conn       Conn
	replicator Replicator
	grace      time.Duration
	log        *slog.Logger

	state atomic.Int32

	// peer is cancelled once the client is gone or the server stops.
	peer     context.Context
	stopPeer context.CancelFunc
	goneOnce sync.Once
}

// New creates a session on conn. grace is how long the connection is kept
// open after the final notice so it can be flushed to the client.
func New(conn Conn, r Replicator, grace time.Duration, log *slog.Logger) *Session {
	id := uuid.New().String()
	peer, stopPeer := context.WithCancel(context.Background())
	return &Session{
		ID:         id,
		conn:       conn,
		replicator: r,
		grace:      grace,
		log:        log.With("component", "session", "session_id", id),
		peer:       peer,
		stopPeer:   stopPeer,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Gone is closed once the peer has been observed to disconnect.
func (s *Session) Gone() <-chan struct{} {
	return s.peer.Done()
}

// Run serves the session until it completes or the peer disconnects. When
// ctx is done the session is treated as disconnected: no further link is
// started and the connection is closed. The connection is always closed on
// return.
func (s *Session) Run(ctx context.Context) {
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()
	defer s.conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Session crashed", "panic", r, "stack", string(debug.Stack()))
			s.finish(Completed, outcomeFault)
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		s.markGone("server shutting down")
		_ = s.conn.Close()
	})
	defer stop()

	s.log.Info("Session opened")

	req, ok := s.awaitRequest()
	if !ok {
		s.finish(Disconnected, outcomeDisconnected)
		return
	}

	go s.watchPeer()

	s.state.Store(int32(Processing))
	s.log.Info("Link request received",
		"sources", len(req.Sources),
		"destination", req.Destination,
	)

	outcome := s.process(req)

	if s.disconnected() {
		s.finish(Disconnected, outcomeDisconnected)
		return
	}

	s.finish(Completed, outcome)

	// Let the final notice reach the client before the close frame.
	select {
	case <-s.peer.Done():
	case <-time.After(s.grace):
	}
}

func (s *Session) finish(state State, outcome string) {
	s.state.Store(int32(state))
	metrics.SessionsTotal.WithLabelValues(outcome).Inc()
	s.log.Info("Session finished", "state", state.String(), "outcome", outcome)
}

// awaitRequest reads frames until one carries a confirmed link request.
// Frames that do not decode, or are not confirmed, are ignored.
func (s *Session) awaitRequest() (models.LinkRequest, bool) {
	s.state.Store(int32(AwaitingRequest))
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.markGone("client disconnected before sending a request")
			return models.LinkRequest{}, false
		}

		var req models.LinkRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.log.Warn("Ignoring malformed frame", "error", err, "raw", string(data))
			continue
		}
		if !req.Confirm {
			s.log.Debug("Ignoring unconfirmed request")
			continue
		}
		return req, true
	}
}

// watchPeer keeps reading so that a close from the peer is noticed while
// links are being made.
func (s *Session) watchPeer() {
	for {
		if _, err := s.conn.ReadMessage(); err != nil {
			s.markGone("client disconnected")
			return
		}
	}
}

func (s *Session) markGone(reason string) {
	s.goneOnce.Do(func() {
		s.stopPeer()
		s.log.Info("Session interrupted", "reason", reason)
	})
}

func (s *Session) disconnected() bool {
	return s.peer.Err() != nil
}

// notify sends one notice and reports whether the session should go on.
func (s *Session) notify(text string) bool {
	if s.disconnected() {
		return false
	}
	if err := s.conn.WriteText(text); err != nil {
		s.log.Warn("Failed to send notice", "error", err)
		s.markGone("write failed")
		return false
	}
	return !s.disconnected()
}

// Session outcomes, as counted in linkarr_sessions_total.
const (
	outcomeCompleted    = "completed"
	outcomeRejected     = "rejected"
	outcomeFault        = "fault"
	outcomeDisconnected = "disconnected"
)

// process handles every source of req in order and returns the outcome.
// A request whose destination is unusable is rejected before any source is
// looked at.
func (s *Session) process(req models.LinkRequest) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Session fault", "panic", r, "stack", string(debug.Stack()))
			s.notify(faultNotice)
			outcome = outcomeFault
		}
	}()

	if info, err := os.Stat(req.Destination); err != nil || !info.IsDir() {
		s.log.Warn("Invalid destination", "destination", req.Destination, "error", err)
		s.notify(destinationNotice(req.Destination))
		return outcomeRejected
	}

	for i, src := range req.Sources {
		if s.disconnected() {
			return outcomeDisconnected
		}
		s.processSource(i+1, len(req.Sources), src, req.Destination)
	}

	s.notify(CompletedNotice)
	return outcomeCompleted
}

func (s *Session) processSource(index, count int, src, dst string) {
	info, err := os.Stat(src)
	if err != nil {
		s.sourceFailed(index, count, src, err)
		return
	}

	switch {
	case info.Mode().IsRegular():
		s.linkFile(index, count, src, dst)
	case info.IsDir():
		s.linkTree(index, count, src, dst)
	default:
		s.sourceFailed(index, count, src, errUnsupportedSource)
	}
}

func (s *Session) linkFile(index, count int, src, dst string) {
	if !s.notify(fileNotice(index, count, src)) {
		return
	}

	// A symlinked source is linked through to the file it names.
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		s.sourceFailed(index, count, src, err)
		return
	}
	target := filepath.Join(dst, filepath.Base(src))
	if s.disconnected() {
		return
	}
	if err := replicator.LinkFile(resolved, target); err != nil {
		s.log.Warn("Failed to link file", "path", src, "target", target, "error", err)
		s.notify(sourceErrorNotice(index, count, src, err))
		return
	}
	s.log.Info("Hardlink created", "path", src, "target", target)
}

func (s *Session) linkTree(index, count int, src, dst string) {
	job, err := s.replicator.Replicate(src, dst)
	if err != nil {
		s.sourceFailed(index, count, src, err)
		return
	}

	s.log.Info("Linking directory", "path", job.Source, "root", job.Root, "total_files", job.Total)

	linked, failed := 0, 0
	for ev := range job.Events(s.peer) {
		var ok bool
		switch ev.Type {
		case event.FileLinked:
			linked++
			ok = s.notify(treeNotice(index, count, ev))
		case event.FileFailed:
			failed++
			ok = s.notify(treeErrorNotice(index, count, ev))
		default:
			ok = !s.disconnected()
		}
		if !ok {
			break
		}
	}

	s.log.Info("Directory linked", "path", job.Source, "linked", linked, "failed", failed, "total_files", job.Total)
}

func (s *Session) sourceFailed(index, count int, src string, err error) {
	metrics.LinkFailures.Inc()
	s.log.Warn("Cannot link source", "path", src, "error", err)
	s.notify(sourceErrorNotice(index, count, src, err))
}
