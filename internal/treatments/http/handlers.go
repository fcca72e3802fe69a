package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/platform/httpx"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
	"github.com/leafit/leafit-backend/internal/treatments/domain"
	"github.com/leafit/leafit-backend/internal/treatments/service"
)

type Handler struct {
	svc *service.TreatmentService
	log *logger.Logger
}

func New(svc *service.TreatmentService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log.With("handler", "treatments")}
}

type createReq struct {
	Name           string   `json:"name"`
	Instructions   string   `json:"instructions"`
	Type           string   `json:"type"`
	ProblemsSolved string   `json:"problemsSolved"`
	Ingredients    []string `json:"ingredients"`
}

// Create adds a treatment owned by the caller
func (h *Handler) Create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	t, err := h.svc.Create(c.Request.Context(), session.ActorFrom(c), domain.CreateTreatmentRequest{
		Name:           req.Name,
		Instructions:   req.Instructions,
		Type:           req.Type,
		ProblemsSolved: req.ProblemsSolved,
		Ingredients:    req.Ingredients,
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Treatment created successfully",
		"treatmentId": t.ID,
	})
}

// List returns treatments filtered by type, problem and free-text search
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), domain.ListFilter{
		Type:    c.Query("type"),
		Problem: c.Query("problem"),
		Search:  c.Query("search"),
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type updateReq struct {
	Instructions   *string  `json:"instructions"`
	Ingredients    []string `json:"ingredients"`
	Type           *string  `json:"type"`
	ProblemsSolved *string  `json:"problemsSolved"`
}

func (h *Handler) Update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	_, err := h.svc.Update(c.Request.Context(), session.ActorFrom(c), strings.TrimSpace(c.Param("id")), domain.UpdateTreatmentRequest{
		Instructions:   req.Instructions,
		Ingredients:    req.Ingredients,
		Type:           req.Type,
		ProblemsSolved: req.ProblemsSolved,
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Treatment updated successfully"})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), session.ActorFrom(c), strings.TrimSpace(c.Param("id"))); err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Treatment deleted successfully"})
}

type rateReq struct {
	Success *bool `json:"success"`
}

// Rate records one conclusive outcome for the treatment
func (h *Handler) Rate(c *gin.Context) {
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Success == nil {
		httpx.BadRequest(c, "success must be true or false")
		return
	}

	if _, err := h.svc.Rate(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Success); err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Treatment rated successfully"})
}
