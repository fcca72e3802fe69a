package http

import "github.com/gin-gonic/gin"

// Register attaches the auth routes. limit guards the credential endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth, limit gin.HandlerFunc) {
	rg.POST("/signup", limit, h.Signup)
	rg.POST("/login", limit, h.Login)
	rg.POST("/logout", h.Logout)
	rg.GET("/me", requireAuth, h.Me)
	rg.PUT("/profile", requireAuth, h.UpdateProfile)
}
