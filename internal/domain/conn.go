// Package domain contains entities without logic, just meta-data.
package domain

type ClientID string

// Conn is the handle for one transport-level peer. The transport layer owns
// its lifetime, and the membership fields (Username, RoomCode, Creator) are
// written only on the handle's own connection goroutine: set during its
// create/join call, cleared by it when its membership ends. The room layer
// never writes to a handle outside that goroutine's requests.
type Conn struct {
	ClientID ClientID
	Username string
	RoomCode RoomCode
	Creator  bool
}

// NewConn avoids raw literals in adapters and keeps construction obvious.
func NewConn(id ClientID) *Conn {
	return &Conn{ClientID: id, Username: "guest"}
}

// InRoom reports whether the handle currently belongs to a room.
func (c *Conn) InRoom() bool { return c.RoomCode != "" }
