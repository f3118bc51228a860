// Package session implements the client side of the connection
// lifecycle: dialing, heartbeats, reconnection with backoff, and the
// guard that discards stale snapshots after a reconnect.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"deepfall/server/internal/net/proto"
	"deepfall/server/internal/world"
)

// State names a phase of the connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateGivenUp      State = "givenUp"
)

// Conn is the minimal transport surface the session drives.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a connection to the server. Tests substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct{}

func (WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return wsConn{conn}, nil
}

type wsConn struct{ conn *websocket.Conn }

func (c wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c wsConn) Close() error { return c.conn.Close() }

// Config tunes a session.
type Config struct {
	URL    string
	Dialer Dialer
	Logger logrus.FieldLogger

	// BackoffBase scales retry delays linearly: attempt n waits n*base.
	BackoffBase time.Duration
	// MaxAttempts bounds consecutive failed reconnects before giving up.
	MaxAttempts int

	// Join is sent on every (re)connect.
	Join proto.JoinPayload

	// OnState observes lifecycle transitions.
	OnState func(State)
	// OnSnapshot receives accepted, non-stale snapshots.
	OnSnapshot func(world.Snapshot)
	// OnMessage receives every other accepted server message.
	OnMessage func(proto.ServerMessage)
}

const (
	defaultBackoffBase = 500 * time.Millisecond
	defaultMaxAttempts = 5
)

// ErrGivenUp reports that reconnection attempts are exhausted.
var ErrGivenUp = errors.New("session: reconnect attempts exhausted")

// Session drives one client connection through its lifecycle.
type Session struct {
	cfg Config

	mu       sync.Mutex
	state    State
	conn     Conn
	runID    string
	lastTick uint64
	attempts int
}

// New builds an idle session.
func New(cfg Config) *Session {
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	if cfg.Logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		cfg.Logger = logger
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Session{cfg: cfg, state: StateDisconnected}
}

// State reports the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID reports the run the session is bound to; empty before the
// first join confirmation.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	changed := s.state != next
	s.state = next
	s.mu.Unlock()
	if changed && s.cfg.OnState != nil {
		s.cfg.OnState(next)
	}
}

// Backoff returns the wait before the given 1-based attempt.
func (s *Session) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * s.cfg.BackoffBase
}

// Connect dials, joins, and pumps messages until the context ends or
// the connection drops. A drop transitions to Reconnecting and retries
// with linear backoff; exhausting the attempts returns ErrGivenUp.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(StateConnecting)
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return ctx.Err()
		}
		if err == nil {
			s.setState(StateDisconnected)
			return nil
		}

		s.mu.Lock()
		s.attempts++
		attempt := s.attempts
		s.mu.Unlock()
		if attempt >= s.cfg.MaxAttempts {
			s.setState(StateGivenUp)
			return ErrGivenUp
		}
		s.setState(StateReconnecting)
		s.cfg.Logger.WithError(err).WithField("attempt", attempt).Warn("connection lost, retrying")

		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(s.Backoff(attempt)):
		}
	}
}

func (s *Session) runOnce(ctx context.Context) error {
	conn, err := s.cfg.Dialer.Dial(ctx, s.cfg.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	join := s.cfg.Join
	s.mu.Lock()
	if s.runID != "" {
		join.ResumeRunID = s.runID
	}
	s.mu.Unlock()
	data, err := proto.ClientMessage{V: proto.ProtocolVersion, Type: proto.TypeJoin, Join: &join}.Encode()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(data); err != nil {
		return err
	}

	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.handleFrame(frame); err != nil {
			s.cfg.Logger.WithError(err).Debug("dropping server frame")
		}
	}
}

// handleFrame validates one server frame and applies the staleness
// guards before surfacing it.
func (s *Session) handleFrame(frame []byte) error {
	msg, err := proto.DecodeServerMessage(frame)
	if err != nil {
		return err
	}

	switch msg.Type {
	case proto.TypeJoined:
		if msg.Joined == nil {
			return errors.New("joined without payload")
		}
		s.mu.Lock()
		rebound := s.runID != "" && s.runID != msg.Joined.RunID
		s.runID = msg.Joined.RunID
		if rebound {
			// A new run invalidates everything the old one produced.
			s.lastTick = 0
		}
		s.attempts = 0
		s.mu.Unlock()
		s.setState(StateConnected)
		if s.cfg.OnSnapshot != nil {
			s.cfg.OnSnapshot(msg.Joined.State)
		}
		s.mu.Lock()
		s.lastTick = msg.Joined.State.Tick
		s.mu.Unlock()
	case proto.TypeState:
		if msg.State == nil {
			return errors.New("state without payload")
		}
		if !s.acceptSnapshot(*msg.State) {
			return nil
		}
		if s.cfg.OnSnapshot != nil {
			s.cfg.OnSnapshot(*msg.State)
		}
	default:
		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(msg)
		}
	}
	return nil
}

// acceptSnapshot enforces the reconnect guards: a snapshot from a
// different run, or one no newer than what was already applied, is
// discarded.
func (s *Session) acceptSnapshot(snap world.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID == "" || snap.RunID != s.runID {
		return false
	}
	if snap.Tick <= s.lastTick {
		return false
	}
	s.lastTick = snap.Tick
	return true
}

// Send transmits one client message over the live connection.
func (s *Session) Send(msg proto.ClientMessage) error {
	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()
	if conn == nil || state != StateConnected {
		return errors.New("session: not connected")
	}
	msg.V = proto.ProtocolVersion
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return conn.WriteMessage(data)
}
