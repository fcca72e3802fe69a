package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/diagnoses/domain"
	"github.com/leafit/leafit-backend/internal/platform/httpx"
)

var keepAliveInterval = 15 * time.Second

// StreamEvents streams changes to one diagnosis using Server-Sent Events
func (h *Handler) StreamEvents(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	ctx := c.Request.Context()

	// subscribe before the snapshot so no update slips between them
	events, stop, err := h.svc.Watch(ctx, id)
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	defer stop()

	d, err := h.svc.Get(ctx, id)
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if err := writeEvent(c, "initial", gin.H{"diagnosis": d}); err != nil {
		h.log.Warn("diagnosis stream closed", "diagnosis_id", id, "error", err)
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(c, ev.Type, ev); err != nil {
				h.log.Warn("diagnosis stream closed", "diagnosis_id", id, "event", ev.Type, "error", err)
				return
			}
			flusher.Flush()
			if ev.Type == domain.EventDeleted {
				return
			}
		}
	}
}

// writeEvent writes one SSE frame. Nothing is written when payload cannot be encoded.
func writeEvent(c *gin.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("write %s event: %w", name, err)
	}
	return nil
}
