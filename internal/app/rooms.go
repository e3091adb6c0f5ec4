// Package app wires the room registry to the rest of the service: it is the
// operation layer the transport calls into, and it owns cleanup scheduling.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/core"
	"github.com/gsiros/WebRTC-service/internal/domain"
)

// ArtifactCleaner reclaims the stored file artifacts of a dissolved room.
// Implementations are best-effort and must never surface failures to the
// operation that triggered them.
type ArtifactCleaner interface {
	CleanRoom(ctx context.Context, code domain.RoomCode, records []domain.FileRecord)
}

// Rooms is the lifecycle manager over the registry.
type Rooms struct {
	reg     *core.Registry
	cleaner ArtifactCleaner
}

func NewRooms(reg *core.Registry, cleaner ArtifactCleaner) *Rooms {
	return &Rooms{reg: reg, cleaner: cleaner}
}

func (m *Rooms) Create(code domain.RoomCode, username string, conn *domain.Conn) (core.RoomView, error) {
	view, err := m.reg.Create(code, username, conn)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.rooms").Str("code", string(code)).Msg("create rejected")
		return core.RoomView{}, err
	}
	return view, nil
}

func (m *Rooms) Join(code domain.RoomCode, username string, conn *domain.Conn) (core.RoomView, error) {
	view, err := m.reg.Join(code, username, conn)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.rooms").Str("code", string(code)).Msg("join rejected")
		return core.RoomView{}, err
	}
	return view, nil
}

// Leave removes the member and, when the room dissolves, schedules artifact
// cleanup off the calling goroutine. The caller never waits on storage I/O.
func (m *Rooms) Leave(code domain.RoomCode, id domain.ClientID) error {
	records, dissolved, err := m.reg.RemoveMember(code, id)
	if err != nil {
		return err
	}
	if dissolved {
		m.scheduleCleanup(code, records)
	}
	return nil
}

// Kick is the privileged variant of Leave: only the room's creator may evict
// the other member. Mechanics past the authorization check are identical.
func (m *Rooms) Kick(code domain.RoomCode, actor, target domain.ClientID) error {
	members, err := m.reg.Members(code)
	if err != nil {
		return err
	}
	authorized := false
	for _, mem := range members {
		if mem.ID == actor && mem.Creator {
			authorized = true
			break
		}
	}
	if !authorized {
		log.Warn().Str("module", "app.rooms").Str("code", string(code)).Str("actor", string(actor)).Msg("kick denied")
		return domain.ErrNotAuthorized
	}
	log.Info().Str("module", "app.rooms").Str("code", string(code)).Str("target", string(target)).Msg("member kicked")
	return m.Leave(code, target)
}

func (m *Rooms) RecordMessage(code domain.RoomCode, msg domain.Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	return m.reg.AppendMessage(code, msg)
}

func (m *Rooms) RecordFile(code domain.RoomCode, rec domain.FileRecord) error {
	if err := m.reg.AppendFile(code, rec); err != nil {
		return err
	}
	log.Info().Str("module", "app.rooms").Str("code", string(code)).Str("file", rec.Name).Msg("file recorded")
	return nil
}

func (m *Rooms) History(code domain.RoomCode) ([]domain.Message, error) {
	return m.reg.History(code)
}

func (m *Rooms) Members(code domain.RoomCode) ([]core.MemberDTO, error) {
	return m.reg.Members(code)
}

func (m *Rooms) scheduleCleanup(code domain.RoomCode, records []domain.FileRecord) {
	if m.cleaner == nil {
		return
	}
	go m.cleaner.CleanRoom(context.Background(), code, records)
}
