package domain

import "time"

type RoomCode string

const (
	// MaxRoomMembers is the hard capacity of a room: one creator, one guest.
	MaxRoomMembers = 2

	MaxCodeLen     = 36
	MaxUsernameLen = 36
)

// Message is one chat entry in a room's history.
type Message struct {
	SenderID ClientID  `json:"sender_id"`
	Sender   string    `json:"sender"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// FileRecord describes a stored file artifact. It only drives cleanup;
// the bytes themselves live in the artifact store.
type FileRecord struct {
	Name     string   `json:"name"`
	Owner    string   `json:"owner"`
	RoomCode RoomCode `json:"room_code"`
}

func ValidateCode(code RoomCode) error {
	if len(code) == 0 {
		return ErrCodeEmpty
	}
	if len(code) > MaxCodeLen {
		return ErrCodeTooLong
	}
	return nil
}

func ValidateUsername(name string) error {
	if len(name) == 0 {
		return ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
