// Package ws owns the websocket endpoint: upgrading, the per-
// connection read loop, and buffered outbound delivery with a
// slow-consumer cutoff.
package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"deepfall/server/internal/net/proto"
)

// Hub is the server side the handler hands connections to. The first
// frame on every connection must be a join; afterwards decoded
// messages flow to HandleMessage until the socket drops.
type Hub interface {
	// Connect registers the player and returns the join confirmation.
	Connect(join proto.JoinPayload, out Sender) (playerID string, joined proto.ServerMessage, err error)
	// HandleMessage processes one decoded non-join message.
	HandleMessage(playerID string, msg proto.ClientMessage, now time.Time)
	// Disconnect drops the player's subscription. The simulation keeps
	// their character alive for a reconnect window.
	Disconnect(playerID string)
}

// Sender delivers server messages to one client.
type Sender interface {
	Send(msg proto.ServerMessage) bool
	Close()
}

const (
	outboundBuffer = 64
	writeTimeout   = 5 * time.Second
	readLimit      = 32 * 1024
	joinTimeout    = 10 * time.Second
)

// Handler terminates websocket connections for a hub.
type Handler struct {
	hub      Hub
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewHandler builds a handler bound to the hub.
func NewHandler(hub Hub, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades and runs the connection until it drops.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	socket.SetReadLimit(readLimit)

	conn := newConn(socket, h.logger)
	go conn.writeLoop()

	playerID, err := h.join(socket, conn)
	if err != nil {
		h.logger.WithError(err).Debug("join failed")
		conn.Close()
		return
	}

	h.readLoop(socket, conn, playerID)
	h.hub.Disconnect(playerID)
	conn.Close()
}

// join reads the mandatory first frame and registers the player.
func (h *Handler) join(socket *websocket.Conn, conn *conn) (string, error) {
	socket.SetReadDeadline(time.Now().Add(joinTimeout))
	defer socket.SetReadDeadline(time.Time{})

	_, frame, err := socket.ReadMessage()
	if err != nil {
		return "", err
	}
	msg, err := proto.DecodeClientMessage(frame)
	if err != nil {
		conn.Send(proto.NewError("bad_message", err.Error()))
		return "", err
	}
	if msg.Type != proto.TypeJoin {
		conn.Send(proto.NewError("join_required", "first message must be a join"))
		return "", errors.New("first frame was not a join")
	}

	playerID, joined, err := h.hub.Connect(*msg.Join, conn)
	if err != nil {
		conn.Send(proto.NewError("join_rejected", err.Error()))
		return "", err
	}
	conn.Send(joined)
	return playerID, nil
}

// readLoop pumps frames until the socket errors. Malformed frames are
// answered with an error message and dropped; they never reach the
// simulation.
func (h *Handler) readLoop(socket *websocket.Conn, conn *conn, playerID string) {
	for {
		_, frame, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).WithField("player", playerID).Debug("websocket closed")
			}
			return
		}
		msg, err := proto.DecodeClientMessage(frame)
		if err != nil {
			conn.Send(proto.NewError("bad_message", err.Error()))
			continue
		}
		if msg.Type == proto.TypeJoin {
			// Re-joining over a live connection is a protocol error.
			conn.Send(proto.NewError("already_joined", "connection already joined"))
			continue
		}
		h.hub.HandleMessage(playerID, msg, time.Now())
	}
}

// conn wraps one socket with a buffered outbound queue. A consumer
// that cannot drain the buffer loses the connection rather than
// stalling the broadcast fanout.
type conn struct {
	socket *websocket.Conn
	logger logrus.FieldLogger

	outbound chan []byte
	once     sync.Once
	done     chan struct{}
}

func newConn(socket *websocket.Conn, logger logrus.FieldLogger) *conn {
	return &conn{
		socket:   socket,
		logger:   logger,
		outbound: make(chan []byte, outboundBuffer),
		done:     make(chan struct{}),
	}
}

var _ Sender = (*conn)(nil)

// Send queues a message. It reports false when the connection is
// closed or the buffer is full; a full buffer closes the connection.
func (c *conn) Send(msg proto.ServerMessage) bool {
	data, err := msg.Encode()
	if err != nil {
		c.logger.WithError(err).Error("encode server message")
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbound <- data:
		return true
	default:
		c.logger.Warn("outbound buffer full, dropping connection")
		c.Close()
		return false
	}
}

// Close tears the connection down once.
func (c *conn) Close() {
	c.once.Do(func() {
		close(c.done)
		c.socket.Close()
	})
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.outbound:
			c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		}
	}
}
