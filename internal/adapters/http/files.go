package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/gsiros/WebRTC-service/internal/app"
	"github.com/gsiros/WebRTC-service/internal/domain"
	"github.com/gsiros/WebRTC-service/internal/storage"
)

type FileHandlers struct {
	Rooms *app.Rooms
	Store *storage.Store
}

// Upload stores a shared file's bytes and records the artifact on the room,
// so teardown can reclaim it. Only a current member of the room may upload.
func (h *FileHandlers) Upload(c *gin.Context) {
	code := domain.RoomCode(c.PostForm("room_code"))
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	id := domain.ClientID(c.GetString("client_token"))
	members, err := h.Rooms.Members(code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	owner := ""
	for _, m := range members {
		if m.ID == id {
			owner = m.Username
			break
		}
	}
	if owner == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this room"})
		return
	}

	rec := domain.FileRecord{Name: file.Filename, Owner: owner, RoomCode: code}
	key := storage.ArtifactKey(rec)

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer src.Close()

	n, err := h.Store.Save(c.Request.Context(), key, src)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("key", key).Msg("artifact save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store failed"})
		return
	}

	if err := h.Rooms.RecordFile(code, rec); err != nil {
		// Room dissolved between the member check and the record; the
		// artifact would leak, so drop it now.
		_ = h.Store.Delete(c.Request.Context(), key)
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	log.Info().Str("module", "adapters.http").Str("key", key).Int64("size", n).Msg("artifact stored")
	c.JSON(http.StatusOK, gin.H{"key": key, "size": n})
}

// Download streams a stored artifact back to the requester.
func (h *FileHandlers) Download(c *gin.Context) {
	key := c.Param("key")

	info, err := h.Store.Stat(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	f, err := h.Store.Open(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	defer f.Close()

	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", f, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", key),
	})
}
