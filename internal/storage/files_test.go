package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsiros/WebRTC-service/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(afero.NewMemMapFs(), "files")
	require.NoError(t, err)
	return store
}

func TestArtifactKey(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.FileRecord
		want string
	}{
		{
			name: "plain",
			rec:  domain.FileRecord{Name: "notes.txt", Owner: "alice", RoomCode: "ABC123"},
			want: "alice_ABC123_notes.txt",
		},
		{
			name: "underscores collapsed so the code marker stays unique",
			rec:  domain.FileRecord{Name: "my_file.txt", Owner: "bob_1", RoomCode: "A_B"},
			want: "bob-1_A-B_my-file.txt",
		},
		{
			name: "path traversal stripped",
			rec:  domain.FileRecord{Name: "../../etc/passwd", Owner: "alice", RoomCode: "ABC123"},
			want: "alice_ABC123_passwd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ArtifactKey(tt.rec)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, got, CodeMarker(tt.rec.RoomCode))
		})
	}
}

func TestSaveOpenRoundtrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	n, err := store.Save(ctx, "alice_ROOM_a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	f, err := store.Open(ctx, "alice_ROOM_a.txt")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestDeleteIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "alice_ROOM_a.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "alice_ROOM_a.txt"))
	require.NoError(t, store.Delete(ctx, "alice_ROOM_a.txt"), "second delete must be a no-op")
	require.NoError(t, store.Delete(ctx, "never-existed"), "deleting a missing key must not error")
}

func TestDeleteMatching(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"alice_ROOM_a.txt", "bob_ROOM_b.txt", "carol_OTHER_c.txt"} {
		_, err := store.Save(ctx, key, strings.NewReader("x"))
		require.NoError(t, err)
	}

	removed, err := store.DeleteMatching(ctx, CodeMarker("ROOM"))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.Stat(ctx, "carol_OTHER_c.txt")
	assert.NoError(t, err, "unrelated artifact was swept")

	removed, err = store.DeleteMatching(ctx, CodeMarker("ROOM"))
	require.NoError(t, err)
	assert.Zero(t, removed, "second sweep found leftovers")
}

func TestDeleteMatchingCountsOnlyRemovals(t *testing.T) {
	base := afero.NewMemMapFs()
	rw, err := NewStore(base, "files")
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"alice_ROOM_a.txt", "bob_ROOM_b.txt"} {
		_, err := rw.Save(ctx, key, strings.NewReader("x"))
		require.NoError(t, err)
	}

	// Same directory behind a filesystem that refuses deletes: the sweep
	// must report zero removals and no error, leaving the files in place.
	frozen := &Store{fs: afero.NewReadOnlyFs(base), dir: "files"}
	removed, err := frozen.DeleteMatching(ctx, CodeMarker("ROOM"))
	require.NoError(t, err)
	assert.Zero(t, removed, "failed deletes were counted as removals")

	_, err = rw.Stat(ctx, "alice_ROOM_a.txt")
	assert.NoError(t, err)
}
