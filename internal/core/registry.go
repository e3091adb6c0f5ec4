// Package core owns the authoritative set of active rooms and the state
// transitions that create, join and dissolve them. It never touches
// transport or storage resources.
package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/domain"
)

// Registry maps room codes to live rooms.
//
// Locking: mu guards the map, each Room guards its own state. The map lock
// is never held while waiting on a room lock; only a room's own teardown,
// already holding the room lock with gone set, takes the map lock to delete
// itself. That keeps join-vs-leave races resolvable without a global
// critical section per operation.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomCode]*Room)}
}

func (reg *Registry) lookup(code domain.RoomCode) (*Room, bool) {
	reg.mu.RLock()
	room, ok := reg.rooms[code]
	reg.mu.RUnlock()
	return room, ok
}

// Create inserts a new room with conn as its creator. The creator flag and
// the handle's room code are set in the same critical section as the insert,
// so no observer sees a creator-less room.
func (reg *Registry) Create(code domain.RoomCode, username string, conn *domain.Conn) (RoomView, error) {
	if err := domain.ValidateCode(code); err != nil {
		return RoomView{}, err
	}
	if err := domain.ValidateUsername(username); err != nil {
		return RoomView{}, err
	}

	room := newRoom(code)
	room.mu.Lock()
	defer room.mu.Unlock()

	reg.mu.Lock()
	if _, ok := reg.rooms[code]; ok {
		reg.mu.Unlock()
		return RoomView{}, domain.ErrRoomExists
	}
	reg.rooms[code] = room
	reg.mu.Unlock()

	conn.Username = username
	conn.RoomCode = code
	conn.Creator = true
	room.members = append(room.members, conn)

	log.Info().Str("module", "core.registry").Str("code", string(code)).Str("client", string(conn.ClientID)).Msg("room created")
	return room.snapshotLocked(), nil
}

// Join appends conn as the guest member. A join racing a teardown observes
// ErrRoomNotFound via the gone flag rather than resurrecting the room.
func (reg *Registry) Join(code domain.RoomCode, username string, conn *domain.Conn) (RoomView, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return RoomView{}, err
	}

	room, ok := reg.lookup(code)
	if !ok {
		return RoomView{}, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.gone {
		return RoomView{}, domain.ErrRoomNotFound
	}
	if len(room.members) >= domain.MaxRoomMembers {
		return RoomView{}, domain.ErrRoomFull
	}
	if _, dup := room.memberLocked(conn.ClientID); dup {
		return RoomView{}, domain.ErrAlreadyMember
	}

	conn.Username = username
	conn.RoomCode = code
	conn.Creator = false
	room.members = append(room.members, conn)

	log.Info().Str("module", "core.registry").Str("code", string(code)).Str("client", string(conn.ClientID)).Msg("member joined")
	return room.snapshotLocked(), nil
}

// Find is a read-only membership snapshot.
func (reg *Registry) Find(code domain.RoomCode) (RoomView, bool) {
	room, ok := reg.lookup(code)
	if !ok {
		return RoomView{}, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.gone {
		return RoomView{}, false
	}
	return room.snapshotLocked(), true
}

// RemoveMember removes the member with the given id. Removing an id that is
// not present is a no-op (the handle may already be gone from a racing
// leave). The handle itself is never written here: its owning transport
// goroutine clears the membership fields, so a kick does not race the
// target's own reads. When the last member goes, the room is deleted from
// the map in the same critical section and its file records are handed back
// so the caller can schedule artifact cleanup exactly once.
func (reg *Registry) RemoveMember(code domain.RoomCode, id domain.ClientID) (records []domain.FileRecord, dissolved bool, err error) {
	room, ok := reg.lookup(code)
	if !ok {
		return nil, false, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.gone {
		return nil, false, domain.ErrRoomNotFound
	}

	kept := room.members[:0]
	for _, m := range room.members {
		if m.ClientID == id {
			continue
		}
		kept = append(kept, m)
	}
	room.members = kept

	if len(room.members) > 0 {
		log.Info().Str("module", "core.registry").Str("code", string(code)).Str("client", string(id)).Msg("member removed")
		return nil, false, nil
	}

	room.gone = true
	reg.mu.Lock()
	if reg.rooms[code] == room {
		delete(reg.rooms, code)
	}
	reg.mu.Unlock()

	log.Info().Str("module", "core.registry").Str("code", string(code)).Msg("room dissolved")
	return room.files, true, nil
}

// AppendMessage appends to the room's history. Order of acceptance here is
// the order history reports, regardless of transport interleaving.
func (reg *Registry) AppendMessage(code domain.RoomCode, msg domain.Message) error {
	room, ok := reg.lookup(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.gone {
		return domain.ErrRoomNotFound
	}
	room.history = append(room.history, msg)
	return nil
}

// AppendFile records a file artifact descriptor for teardown-time cleanup.
func (reg *Registry) AppendFile(code domain.RoomCode, rec domain.FileRecord) error {
	room, ok := reg.lookup(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.gone {
		return domain.ErrRoomNotFound
	}
	room.files = append(room.files, rec)
	return nil
}

// History returns a copy of the room's message history.
func (reg *Registry) History(code domain.RoomCode) ([]domain.Message, error) {
	room, ok := reg.lookup(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.gone {
		return nil, domain.ErrRoomNotFound
	}
	out := make([]domain.Message, len(room.history))
	copy(out, room.history)
	return out, nil
}

// Members returns the membership projection for presence display.
func (reg *Registry) Members(code domain.RoomCode) ([]MemberDTO, error) {
	room, ok := reg.lookup(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.gone {
		return nil, domain.ErrRoomNotFound
	}
	return room.snapshotLocked().Members, nil
}

// Len reports the number of active rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
