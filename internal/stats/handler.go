package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafit/leafit-backend/internal/platform/httpx"
	"github.com/leafit/leafit-backend/internal/platform/logger"
)

type Handler struct {
	svc *Service
	log *logger.Logger
}

func NewHandler(svc *Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log.With("handler", "stats")}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
}

// Get returns the latest community snapshot
func (h *Handler) Get(c *gin.Context) {
	snap, err := h.svc.Current(c.Request.Context())
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
