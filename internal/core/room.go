package core

import (
	"sync"

	"github.com/gsiros/WebRTC-service/internal/domain"
)

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.ClientID `json:"id"`
	Username string          `json:"username"`
	Creator  bool            `json:"creator"`
}

// RoomView is the snapshot returned to callers of create/join; it lets the
// transport discover the existing peer to start signaling with.
type RoomView struct {
	Code    domain.RoomCode `json:"code"`
	Members []MemberDTO     `json:"members"`
}

// Room is the unit of session state: ordered membership, append-only chat
// history, append-only file records. All fields are guarded by mu; the
// Registry is the only package touching them.
//
// gone marks a room whose membership dropped to zero. It is set under mu in
// the same critical section that removes the room from the registry map, so
// an operation that grabbed the room pointer before removal observes the
// teardown instead of mutating a dead room.
type Room struct {
	code domain.RoomCode

	mu      sync.Mutex
	gone    bool
	members []*domain.Conn
	history []domain.Message
	files   []domain.FileRecord
}

func newRoom(code domain.RoomCode) *Room {
	return &Room{code: code}
}

// snapshotLocked copies the membership; callers must hold mu.
func (r *Room) snapshotLocked() RoomView {
	out := make([]MemberDTO, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, MemberDTO{ID: m.ClientID, Username: m.Username, Creator: m.Creator})
	}
	return RoomView{Code: r.code, Members: out}
}

// memberLocked returns the member with the given id; callers must hold mu.
func (r *Room) memberLocked(id domain.ClientID) (*domain.Conn, bool) {
	for _, m := range r.members {
		if m.ClientID == id {
			return m, true
		}
	}
	return nil, false
}
