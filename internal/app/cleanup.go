package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/domain"
	"github.com/gsiros/WebRTC-service/internal/storage"
)

// ArtifactStore is the slice of the file store the cleanup worker needs.
type ArtifactStore interface {
	Delete(ctx context.Context, key string) error
	DeleteMatching(ctx context.Context, substr string) (int, error)
}

// FileCleaner deletes a dissolved room's stored artifacts. The recorded
// descriptors are the authoritative set; a substring scan over the store
// follows as a fallback for artifacts that never got recorded. Every failure
// is logged and skipped, and deleting an already-gone artifact is a no-op,
// so a repeated pass for the same code is harmless.
type FileCleaner struct {
	store ArtifactStore
}

func NewFileCleaner(store ArtifactStore) *FileCleaner {
	return &FileCleaner{store: store}
}

func (c *FileCleaner) CleanRoom(ctx context.Context, code domain.RoomCode, records []domain.FileRecord) {
	for _, rec := range records {
		key := storage.ArtifactKey(rec)
		if err := c.store.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("module", "app.cleanup").Str("key", key).Msg("artifact delete failed")
		}
	}

	n, err := c.store.DeleteMatching(ctx, storage.CodeMarker(code))
	if err != nil {
		log.Error().Err(err).Str("module", "app.cleanup").Str("code", string(code)).Msg("fallback scan failed")
	}
	log.Info().Str("module", "app.cleanup").Str("code", string(code)).Int("recorded", len(records)).Int("swept", n).Msg("room artifacts cleaned")
}
