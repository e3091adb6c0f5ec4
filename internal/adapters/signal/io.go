package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	period := ctl.cfg.PingPeriod
	if period <= 0 {
		period = 54 * time.Second
	}
	ping := time.NewTicker(period)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, handle *domain.Conn, c *wsConn) {
	defer ctl.disconnect(handle, c)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("client", string(handle.ClientID)).Msg("readPump read error")
				return
			}
			ctl.dispatch(handle, c, data)
		}
	}
}

// disconnect is the transport-close path: the membership the handle still
// holds is released so the room can dissolve. This runs on the connection's
// own goroutine, the only writer of the handle's membership fields.
func (ctl *Controller) disconnect(handle *domain.Conn, c *wsConn) {
	log.Info().Str("module", "signal").Str("client", string(handle.ClientID)).Msg("connection closed")
	ctl.unbind(handle.ClientID, c)
	if handle.InRoom() {
		code := handle.RoomCode
		handle.RoomCode = ""
		if err := ctl.rooms.Leave(code, handle.ClientID); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("code", string(code)).Msg("leave on close")
		} else {
			ctl.notifyRoom(code, map[string]any{"type": "peer_left", "id": handle.ClientID})
		}
	}
	c.Close()
}

func (ctl *Controller) dispatch(handle *domain.Conn, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendErr(c, "bad_payload")
		return
	}

	switch env.Type {
	case "create":
		ctl.handleCreate(handle, c, data)
	case "join":
		ctl.handleJoin(handle, c, data)
	case "leave":
		ctl.handleLeave(handle, c)
	case "kick":
		ctl.handleKick(handle, c, data)
	case "chat":
		ctl.handleChat(handle, c, data)
	case "file":
		ctl.handleFile(handle, c, data)
	case "history":
		ctl.handleHistory(handle, c)
	case "members":
		ctl.handleMembers(handle, c)
	case "ping":
		ctl.handlePing(c)
	case "offer", "answer", "candidate":
		// Opaque media negotiation payloads; forwarded verbatim.
		ctl.relayToPeer(handle, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown envelope")
		ctl.sendErr(c, "unknown_type")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendErr(c *wsConn, kind string) {
	ctl.sendJSON(c, map[string]any{"type": "error", "error": kind})
}

// notifyRoom sends v to every current member of the room.
func (ctl *Controller) notifyRoom(code domain.RoomCode, v any) {
	members, err := ctl.rooms.Members(code)
	if err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, m := range members {
		if peer, ok := ctl.lookup(m.ID); ok {
			_ = peer.TrySend(b)
		}
	}
}
