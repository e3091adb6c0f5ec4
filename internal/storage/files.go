// Package storage persists file artifact bytes on an afero filesystem.
// Keys embed the owning room's code so teardown can sweep by pattern.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/gsiros/WebRTC-service/internal/domain"
)

// Store reads and writes artifacts under a single directory. Production uses
// afero.NewOsFs; tests use afero.NewMemMapFs.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// ArtifactKey builds the storage key for a file record:
// <owner>_<code>_<name>. Path separators are stripped so a hostile filename
// cannot escape the store directory.
func ArtifactKey(rec domain.FileRecord) string {
	return fmt.Sprintf("%s%s%s", sanitize(rec.Owner), CodeMarker(rec.RoomCode), sanitize(rec.Name))
}

// CodeMarker is the substring every key of a room's artifacts contains.
func CodeMarker(code domain.RoomCode) string {
	return "_" + sanitize(string(code)) + "_"
}

func sanitize(s string) string {
	s = filepath.Base(s)
	if s == "." || s == string(filepath.Separator) {
		return ""
	}
	return strings.ReplaceAll(s, "_", "-")
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *Store) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	f, err := s.fs.Create(s.path(key))
	if err != nil {
		return 0, fmt.Errorf("create artifact %s: %w", key, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write artifact %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", key, err)
	}
	return f, nil
}

func (s *Store) Stat(ctx context.Context, key string) (os.FileInfo, error) {
	return s.fs.Stat(s.path(key))
}

// Delete removes one artifact. A missing artifact is not an error, which
// makes repeated cleanup passes no-ops.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.fs.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact %s: %w", key, err)
	}
	return nil
}

// DeleteMatching removes every artifact whose key contains substr and
// reports how many went. Individual failures stop nothing.
func (s *Store) DeleteMatching(ctx context.Context, substr string) (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan files dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), substr) {
			continue
		}
		err := s.fs.Remove(filepath.Join(s.dir, e.Name()))
		switch {
		case err == nil:
			removed++
		case os.IsNotExist(err):
			// Already reclaimed by a racing pass.
		default:
			log.Error().Err(err).Str("module", "storage").Str("key", e.Name()).Msg("sweep delete failed")
		}
	}
	return removed, nil
}
