// Package signal is the websocket transport for room sessions: it upgrades
// connections, dispatches client envelopes to the room lifecycle layer and
// relays opaque signaling payloads between the two peers of a room.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/app"
	"github.com/gsiros/WebRTC-service/internal/config"
	"github.com/gsiros/WebRTC-service/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	rooms   *app.Rooms
	cfg     *config.Config
	limiter *JoinRateLimiter

	mu    sync.RWMutex
	peers map[domain.ClientID]*peerEntry
}

// peerEntry binds a live connection to the cancel of its pump context, so a
// kick can tear the peer down from another goroutine.
type peerEntry struct {
	conn   *wsConn
	cancel context.CancelFunc
}

func NewController(rooms *app.Rooms, cfg *config.Config) *Controller {
	return &Controller{
		rooms:   rooms,
		cfg:     cfg,
		limiter: NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateWindow),
		peers:   make(map[domain.ClientID]*peerEntry),
	}
}

// wsConn wraps one websocket with a buffered outbound channel. Sends that
// would block are dropped with ErrBackpressure instead of stalling the room.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the connection's pumps. The client
// token cookie set by the router middleware becomes the stable client id.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	id := domain.ClientID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("client", string(id)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}
	handle := domain.NewConn(id)

	ctx, cancel := context.WithCancel(ctx)
	ctl.bind(id, conn, cancel)

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, handle, conn)
	}()
}

func (ctl *Controller) bind(id domain.ClientID, conn *wsConn, cancel context.CancelFunc) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if old, ok := ctl.peers[id]; ok {
		old.cancel()
		old.conn.Close()
	}
	ctl.peers[id] = &peerEntry{conn: conn, cancel: cancel}
}

func (ctl *Controller) unbind(id domain.ClientID, conn *wsConn) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if entry, ok := ctl.peers[id]; ok && entry.conn == conn {
		delete(ctl.peers, id)
	}
}

func (ctl *Controller) lookup(id domain.ClientID) (*wsConn, bool) {
	ctl.mu.RLock()
	defer ctl.mu.RUnlock()
	entry, ok := ctl.peers[id]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// evict tears down a kicked peer's connection. The kicked notice is queued
// first but delivery is best effort; the close path on the peer's own
// goroutine then releases whatever membership state its handle still holds.
func (ctl *Controller) evict(id domain.ClientID, code domain.RoomCode) {
	ctl.mu.RLock()
	entry, ok := ctl.peers[id]
	ctl.mu.RUnlock()
	if !ok {
		return
	}
	b, err := json.Marshal(map[string]any{"type": "kicked", "room": code})
	if err == nil {
		_ = entry.conn.TrySend(b)
	}
	entry.cancel()
	entry.conn.Close()
}

// relayToPeer forwards raw bytes to every other member of the handle's room.
// Delivery is best-effort: a slow or gone peer is logged and skipped.
func (ctl *Controller) relayToPeer(handle *domain.Conn, data []byte) {
	members, err := ctl.rooms.Members(handle.RoomCode)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("code", string(handle.RoomCode)).Msg("relay on dead room")
		return
	}
	for _, m := range members {
		if m.ID == handle.ClientID {
			continue
		}
		peer, ok := ctl.lookup(m.ID)
		if !ok {
			continue
		}
		if err := peer.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("peer", string(m.ID)).Msg("relay dropped")
		}
	}
}
