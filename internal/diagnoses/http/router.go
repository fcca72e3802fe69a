package http

import "github.com/gin-gonic/gin"

// Register attaches diagnosis routes. Reads are public; writes need auth.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/events", h.StreamEvents)
	rg.POST("", requireAuth, h.Create)
	rg.PUT("/:id", requireAuth, h.Update)
	rg.DELETE("/:id", requireAuth, h.Delete)
	rg.POST("/:id/treatments", requireAuth, h.ApplyTreatment)
}
