package http

import "github.com/gin-gonic/gin"

// Register attaches treatment routes. Reads are public; writes need auth.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", requireAuth, h.Create)
	rg.PUT("/:id", requireAuth, h.Update)
	rg.DELETE("/:id", requireAuth, h.Delete)
	rg.POST("/:id/rate", requireAuth, h.Rate)
}
