package signal

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/domain"
)

// handleChat appends the message to the room history before relaying it, so
// history order is exactly the order the room accepted messages in.
func (ctl *Controller) handleChat(handle *domain.Conn, c *wsConn, data []byte) {
	if !handle.InRoom() {
		ctl.sendErr(c, "room_not_found")
		return
	}
	var p struct {
		Type string `json:"type"`
		Body string `json:"body"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendErr(c, "bad_payload")
		return
	}

	msg := domain.Message{
		SenderID: handle.ClientID,
		Sender:   handle.Username,
		Body:     p.Body,
		SentAt:   time.Now(),
	}
	if err := ctl.rooms.RecordMessage(handle.RoomCode, msg); err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}

	out, _ := json.Marshal(struct {
		Type    string         `json:"type"`
		Message domain.Message `json:"message"`
	}{"chat", msg})
	ctl.relayToPeer(handle, out)
}

// handleFile records a shared file's descriptor on the room and tells the
// peer where to fetch it. The bytes themselves travel over HTTP upload.
func (ctl *Controller) handleFile(handle *domain.Conn, c *wsConn, data []byte) {
	if !handle.InRoom() {
		ctl.sendErr(c, "room_not_found")
		return
	}
	var p struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Name == "" {
		ctl.sendErr(c, "bad_payload")
		return
	}

	rec := domain.FileRecord{Name: p.Name, Owner: handle.Username, RoomCode: handle.RoomCode}
	if err := ctl.rooms.RecordFile(handle.RoomCode, rec); err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}

	out, _ := json.Marshal(struct {
		Type string            `json:"type"`
		File domain.FileRecord `json:"file"`
	}{"file", rec})
	ctl.relayToPeer(handle, out)
}

func (ctl *Controller) handleHistory(handle *domain.Conn, c *wsConn) {
	if !handle.InRoom() {
		ctl.sendErr(c, "room_not_found")
		return
	}
	history, err := ctl.rooms.History(handle.RoomCode)
	if err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}
	ctl.sendJSON(c, struct {
		Type     string           `json:"type"`
		Messages []domain.Message `json:"messages"`
	}{"history", history})
}

func (ctl *Controller) handleMembers(handle *domain.Conn, c *wsConn) {
	if !handle.InRoom() {
		ctl.sendErr(c, "room_not_found")
		return
	}
	members, err := ctl.rooms.Members(handle.RoomCode)
	if err != nil {
		ctl.sendErr(c, errKind(err))
		return
	}
	ctl.sendJSON(c, struct {
		Type    string `json:"type"`
		Members any    `json:"members"`
	}{"members", members})
}
