package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/bootloader/errors"
)

// Status is the lifecycle state of a bridge session.
type Status uint8

const (
	StatusIdle Status = iota
	StatusProbing
	StatusConnected
	StatusFailed
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusProbing:
		return "probing"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	case StatusDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

var transitions = map[Status][]Status{
	StatusIdle:      {StatusProbing},
	StatusProbing:   {StatusConnected, StatusFailed},
	StatusConnected: {StatusDisconnected},
}

// Disconnecter is the part of a connected plugin the session needs to close it.
type Disconnecter interface {
	Disconnect(ctx context.Context) error
}

// Session is one link between a host page and a code server.
type Session struct {
	handle       Disconnecter
	onDisconnect func()
	id           string
	module       string
	connector    string
	status       Status
	pending      bool
	mu           sync.Mutex
}

// New creates an idle session for module using the page's shared identity.
func New(state *PageState, module string) *Session {
	return &Session{
		id:     state.SessionID(),
		module: module,
	}
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// Module returns the module the session was opened for.
func (s *Session) Module() string {
	return s.module
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connector names the connector kind that accepted the connection.
func (s *Session) Connector() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connector
}

// Transition moves the session to a new state.
func (s *Session) Transition(to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to Status) error {
	for _, allowed := range transitions[s.status] {
		if allowed == to {
			Logger().Debug("session transition",
				zap.String("session", s.id),
				zap.String("module", s.module),
				zap.Stringer("from", s.status),
				zap.Stringer("to", to))
			s.status = to
			return nil
		}
	}
	return errors.InvalidState(errors.PhaseSession, s.status.String(), to.String())
}

// Attach hands a connected plugin to the session, which then owns it.
// The session must be probing. A disconnect signal that arrived while probing
// is delivered once the session is connected.
func (s *Session) Attach(connector string, h Disconnecter) error {
	s.mu.Lock()
	if err := s.transitionLocked(StatusConnected); err != nil {
		s.mu.Unlock()
		return err
	}
	s.handle = h
	s.connector = connector
	pending := s.pending
	s.pending = false
	s.mu.Unlock()

	if pending {
		s.Disconnected()
	}
	return nil
}

// OnDisconnected sets the recovery action for an unexpected disconnect.
func (s *Session) OnDisconnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = fn
}

// Disconnected delivers the plugin's disconnect signal. Recovery only applies
// to a connected session and runs on the first delivery; the handler is
// swapped out before it runs. Signals while probing are held until Attach,
// signals in any other state discard the handler. It reports whether the
// action ran.
func (s *Session) Disconnected() bool {
	s.mu.Lock()
	switch s.status {
	case StatusConnected:
	case StatusProbing:
		s.pending = true
		s.mu.Unlock()
		return false
	default:
		s.onDisconnect = nil
		s.mu.Unlock()
		return false
	}
	fn := s.onDisconnect
	s.onDisconnect = nil
	s.status = StatusDisconnected
	s.handle = nil
	s.mu.Unlock()

	Logger().Info("code server disconnected",
		zap.String("session", s.id),
		zap.String("module", s.module),
		zap.Error(errors.UnexpectedDisconnect(s.id)))
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Close disconnects on page unload. A missing handle, an error or a panic from
// the plugin are all tolerated; the handle is discarded either way and a
// signal caused by this disconnect does not trigger recovery.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.onDisconnect = nil
	if s.status == StatusConnected {
		s.status = StatusDisconnected
	}
	s.mu.Unlock()

	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("plugin disconnect panicked",
				zap.String("session", s.id),
				zap.Any("panic", r))
		}
	}()
	if err := h.Disconnect(ctx); err != nil {
		Logger().Warn("plugin disconnect failed",
			zap.String("session", s.id),
			zap.Error(err))
	}
}
