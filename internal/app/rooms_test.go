package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gsiros/WebRTC-service/internal/core"
	"github.com/gsiros/WebRTC-service/internal/domain"
)

// fakeCleaner counts cleanup invocations and records what it was given.
type fakeCleaner struct {
	mu      sync.Mutex
	calls   int
	codes   []domain.RoomCode
	records [][]domain.FileRecord
	done    chan struct{}
}

func newFakeCleaner() *fakeCleaner {
	return &fakeCleaner{done: make(chan struct{}, 8)}
}

func (f *fakeCleaner) CleanRoom(_ context.Context, code domain.RoomCode, records []domain.FileRecord) {
	f.mu.Lock()
	f.calls++
	f.codes = append(f.codes, code)
	f.records = append(f.records, records)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fakeCleaner) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup was never scheduled")
	}
}

func (f *fakeCleaner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestRooms() (*Rooms, *fakeCleaner) {
	cleaner := newFakeCleaner()
	return NewRooms(core.NewRegistry(), cleaner), cleaner
}

func TestLeaveSchedulesCleanupOnce(t *testing.T) {
	m, cleaner := newTestRooms()

	connA := domain.NewConn("a")
	connB := domain.NewConn("b")
	if _, err := m.Create("ABC123", "alice", connA); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join("ABC123", "bob", connB); err != nil {
		t.Fatal(err)
	}
	rec := domain.FileRecord{Name: "photo.png", Owner: "alice", RoomCode: "ABC123"}
	if err := m.RecordFile("ABC123", rec); err != nil {
		t.Fatal(err)
	}

	if err := m.Leave("ABC123", "a"); err != nil {
		t.Fatal(err)
	}
	if cleaner.callCount() != 0 {
		t.Fatal("cleanup scheduled while a member remained")
	}

	if err := m.Leave("ABC123", "b"); err != nil {
		t.Fatal(err)
	}
	cleaner.wait(t)

	if got := cleaner.callCount(); got != 1 {
		t.Fatalf("cleanup scheduled %d times, want 1", got)
	}
	if cleaner.codes[0] != "ABC123" {
		t.Errorf("cleanup for %q, want ABC123", cleaner.codes[0])
	}
	if len(cleaner.records[0]) != 1 || cleaner.records[0][0] != rec {
		t.Errorf("cleanup records: %+v", cleaner.records[0])
	}

	if err := m.Leave("ABC123", "b"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("leave on dissolved room: got %v, want ErrRoomNotFound", err)
	}
	if got := cleaner.callCount(); got != 1 {
		t.Fatalf("cleanup re-scheduled by failed leave: %d calls", got)
	}
}

func TestKickAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   domain.ClientID
		target  domain.ClientID
		wantErr error
	}{
		{"creator kicks guest", "a", "b", nil},
		{"guest kicks creator", "b", "a", domain.ErrNotAuthorized},
		{"outsider kicks guest", "z", "b", domain.ErrNotAuthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestRooms()
			if _, err := m.Create("ROOM", "alice", domain.NewConn("a")); err != nil {
				t.Fatal(err)
			}
			if _, err := m.Join("ROOM", "bob", domain.NewConn("b")); err != nil {
				t.Fatal(err)
			}

			err := m.Kick("ROOM", tt.actor, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}

			members, err := m.Members("ROOM")
			if err != nil {
				t.Fatal(err)
			}
			wantLen := 2
			if tt.wantErr == nil {
				wantLen = 1
			}
			if len(members) != wantLen {
				t.Errorf("membership after kick attempt: %+v", members)
			}
		})
	}
}

// TestKickWhileTargetHandleInUse kicks a member whose goroutine is busy
// reading its own handle, as the transport does between messages. The
// registry must not write the target's handle, so this is race-free under
// the race detector and the handle keeps its fields until its own goroutine
// clears them.
func TestKickWhileTargetHandleInUse(t *testing.T) {
	m, _ := newTestRooms()
	connB := domain.NewConn("b")
	if _, err := m.Create("ROOM", "alice", domain.NewConn("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join("ROOM", "bob", connB); err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		inRoom := true
		for {
			select {
			case <-stop:
				if !inRoom {
					t.Error("handle mutated outside its owning goroutine")
				}
				return
			default:
				inRoom = connB.InRoom()
			}
		}
	}()

	if err := m.Kick("ROOM", "a", "b"); err != nil {
		t.Fatal(err)
	}
	close(stop)
	wg.Wait()

	members, err := m.Members("ROOM")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].ID != "a" {
		t.Fatalf("membership after kick: %+v", members)
	}
	if connB.RoomCode != "ROOM" {
		t.Error("removed handle was written by the room layer")
	}
}

func TestKickUnknownRoom(t *testing.T) {
	m, _ := newTestRooms()
	if err := m.Kick("NOPE", "a", "b"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
}

func TestKickOnEmptyTriggersCleanup(t *testing.T) {
	m, cleaner := newTestRooms()
	if _, err := m.Create("ROOM", "alice", domain.NewConn("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join("ROOM", "bob", domain.NewConn("b")); err != nil {
		t.Fatal(err)
	}

	if err := m.Kick("ROOM", "a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := m.Leave("ROOM", "a"); err != nil {
		t.Fatal(err)
	}
	cleaner.wait(t)
	if got := cleaner.callCount(); got != 1 {
		t.Fatalf("cleanup scheduled %d times, want 1", got)
	}
}

func TestRecordMessageStampsTime(t *testing.T) {
	m, _ := newTestRooms()
	if _, err := m.Create("ROOM", "alice", domain.NewConn("a")); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordMessage("ROOM", domain.Message{SenderID: "a", Sender: "alice", Body: "hi"}); err != nil {
		t.Fatal(err)
	}
	history, err := m.History("ROOM")
	if err != nil {
		t.Fatal(err)
	}
	if history[0].SentAt.IsZero() {
		t.Error("message accepted without a timestamp")
	}
}

func TestRecordOnUnknownRoom(t *testing.T) {
	m, _ := newTestRooms()
	if err := m.RecordMessage("NOPE", domain.Message{Body: "hi"}); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("RecordMessage: got %v, want ErrRoomNotFound", err)
	}
	if err := m.RecordFile("NOPE", domain.FileRecord{Name: "x"}); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("RecordFile: got %v, want ErrRoomNotFound", err)
	}
	if _, err := m.History("NOPE"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("History: got %v, want ErrRoomNotFound", err)
	}
	if _, err := m.Members("NOPE"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("Members: got %v, want ErrRoomNotFound", err)
	}
}

// TestMessageLinearization interleaves two writers on one room and checks
// the history is a valid interleaving: total order preserved per sender.
func TestMessageLinearization(t *testing.T) {
	m, _ := newTestRooms()
	if _, err := m.Create("ROOM", "alice", domain.NewConn("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Join("ROOM", "bob", domain.NewConn("b")); err != nil {
		t.Fatal(err)
	}

	const n = 100
	var wg sync.WaitGroup
	for _, sender := range []domain.ClientID{"a", "b"} {
		wg.Add(1)
		go func(sender domain.ClientID) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				msg := domain.Message{SenderID: sender, Body: fmt.Sprintf("%s-%d", sender, i)}
				if err := m.RecordMessage("ROOM", msg); err != nil {
					t.Errorf("record from %s: %v", sender, err)
					return
				}
			}
		}(sender)
	}
	wg.Wait()

	history, err := m.History("ROOM")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2*n {
		t.Fatalf("history has %d messages, want %d", len(history), 2*n)
	}

	next := map[domain.ClientID]int{}
	for i, msg := range history {
		want := fmt.Sprintf("%s-%d", msg.SenderID, next[msg.SenderID])
		if msg.Body != want {
			t.Fatalf("history[%d] = %q, want %q: not a valid interleaving", i, msg.Body, want)
		}
		next[msg.SenderID]++
	}
}

func TestNilCleanerIsSafe(t *testing.T) {
	m := NewRooms(core.NewRegistry(), nil)
	if _, err := m.Create("ROOM", "alice", domain.NewConn("a")); err != nil {
		t.Fatal(err)
	}
	if err := m.Leave("ROOM", "a"); err != nil {
		t.Fatal(err)
	}
}
