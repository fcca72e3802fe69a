package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leafit/leafit-backend/internal/platform/httpx"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
	"github.com/leafit/leafit-backend/internal/users/domain"
	"github.com/leafit/leafit-backend/internal/users/service"
)

type Handler struct {
	users    *service.UserService
	sessions *session.Manager
	log      *logger.Logger
}

func New(users *service.UserService, sessions *session.Manager, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{users: users, sessions: sessions, log: log.With("handler", "auth")}
}

type signupReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a user and logs them in
func (h *Handler) Signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.users.Signup(c.Request.Context(), domain.SignupRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}

	if err := h.sessions.Start(c, user.ID, user.Username); err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": user})
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}

	if err := h.sessions.Start(c, user.ID, user.Username); err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": user})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c); err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the logged-in user's profile
func (h *Handler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), session.ActorFrom(c).UserID)
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":   user.ID,
		"username": user.Username,
		"email":    user.Email,
		"bio":      user.Bio,
	})
}

type profileReq struct {
	Email *string `json:"email"`
	Bio   *string `json:"bio"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), session.ActorFrom(c).UserID, domain.UpdateProfileRequest{
		Email: req.Email,
		Bio:   req.Bio,
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}
