package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/domain"
)

// errKind maps lifecycle errors onto wire error codes.
func errKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrRoomExists):
		return "room_exists"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, domain.ErrAlreadyMember):
		return "already_member"
	default:
		return "bad_payload"
	}
}

func (ctl *Controller) handleCreate(handle *domain.Conn, c *wsConn, data []byte) {
	if handle.InRoom() {
		ctl.sendErr(c, "already_member")
		return
	}
	if !ctl.limiter.Allow(handle.ClientID) {
		ctl.sendErr(c, "rate_limited")
		return
	}
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create payload")
		ctl.sendErr(c, "bad_payload")
		return
	}

	view, err := ctl.rooms.Create(domain.RoomCode(p.Room), p.Name, handle)
	if err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
		Room any    `json:"room"`
	}{"room_created", view})
}

func (ctl *Controller) handleJoin(handle *domain.Conn, c *wsConn, data []byte) {
	if handle.InRoom() {
		ctl.sendErr(c, "already_member")
		return
	}
	if !ctl.limiter.Allow(handle.ClientID) {
		ctl.sendErr(c, "rate_limited")
		return
	}
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendErr(c, "bad_payload")
		return
	}

	view, err := ctl.rooms.Join(domain.RoomCode(p.Room), p.Name, handle)
	if err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}

	// The joiner gets the full room state, the peer a join notice.
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
		Room any    `json:"room"`
	}{"room_state", view})

	joined, _ := json.Marshal(map[string]any{
		"type":     "peer_joined",
		"id":       handle.ClientID,
		"username": handle.Username,
	})
	ctl.relayToPeer(handle, joined)
}

func (ctl *Controller) handleLeave(handle *domain.Conn, c *wsConn) {
	if !handle.InRoom() {
		ctl.sendErr(c, "room_not_found")
		return
	}
	code := handle.RoomCode
	if err := ctl.rooms.Leave(code, handle.ClientID); err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}
	handle.RoomCode = ""
	ctl.sendJSON(c, map[string]any{"type": "left"})
	ctl.notifyRoom(code, map[string]any{"type": "peer_left", "id": handle.ClientID})
}

func (ctl *Controller) handleKick(handle *domain.Conn, c *wsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		ctl.sendErr(c, "bad_payload")
		return
	}
	if !handle.InRoom() {
		ctl.sendErr(c, "room_not_found")
		return
	}
	code := handle.RoomCode
	target := domain.ClientID(p.Target)
	if err := ctl.rooms.Kick(code, handle.ClientID, target); err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}

	// The target's handle is cleared by its own goroutine when the evicted
	// connection unwinds; only that goroutine writes handle fields.
	ctl.evict(target, code)
	ctl.sendJSON(c, map[string]any{"type": "member_kicked", "id": target})
}
