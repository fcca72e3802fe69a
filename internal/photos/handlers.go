package photos

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leafit/leafit-backend/internal/platform/httpx"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
)

const (
	formField = "photo"
	keyPrefix = "photos/"
	urlPrefix = "/api/photos/"
)

// ObjectStore is the blob storage the photo handlers need.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
}

type Handler struct {
	store    ObjectStore
	maxBytes int64
	log      *logger.Logger
}

func NewHandler(store ObjectStore, maxBytes int64, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{store: store, maxBytes: maxBytes, log: log.With("handler", "photos")}
}

// Register attaches photo routes. Uploads need auth; downloads are public.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("", requireAuth, h.Upload)
	rg.GET("/*key", h.Download)
}

// Upload stores one image and returns the URL to put in a diagnosis' photoUrl
func (h *Handler) Upload(c *gin.Context) {
	// leave room for multipart framing around the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+64<<10)

	fh, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Photo is too large"})
			return
		}
		httpx.BadRequest(c, "Photo file is required")
		return
	}
	if fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Photo is too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	if int64(len(data)) > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Photo is too large"})
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		httpx.BadRequest(c, "Only image uploads are allowed")
		return
	}

	key := keyPrefix + uuid.New().String() + extensionFor(contentType, fh.Filename)
	if err := h.store.Put(c.Request.Context(), key, data, contentType); err != nil {
		httpx.Error(c, h.log, err)
		return
	}

	h.log.Info("photo uploaded", "key", key, "size", len(data), "user_id", session.ActorFrom(c).UserID)
	c.JSON(http.StatusCreated, gin.H{"photoUrl": urlPrefix + key})
}

// Download streams a stored photo
func (h *Handler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !strings.HasPrefix(key, keyPrefix) || strings.Contains(key, "..") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}

	obj, err := h.store.Get(c.Request.Context(), key)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	defer obj.Body.Close()

	size := obj.Size
	if size <= 0 {
		size = -1
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, size, obj.ContentType, obj.Body, nil)
}

func extensionFor(contentType, filename string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return strings.ToLower(path.Ext(filename))
}
