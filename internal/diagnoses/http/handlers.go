package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/diagnoses/domain"
	"github.com/leafit/leafit-backend/internal/diagnoses/service"
	"github.com/leafit/leafit-backend/internal/platform/httpx"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
)

type Handler struct {
	svc *service.DiagnosisService
	log *logger.Logger
}

func New(svc *service.DiagnosisService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log.With("handler", "diagnoses")}
}

type createReq struct {
	PlantName   string `json:"plantName"`
	Symptoms    string `json:"symptoms"`
	PhotoURL    string `json:"photoUrl"`
	Description string `json:"description"`
}

// Create opens a diagnosis for the caller
func (h *Handler) Create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	d, err := h.svc.Create(c.Request.Context(), session.ActorFrom(c), domain.CreateDiagnosisRequest{
		PlantName:   req.PlantName,
		Symptoms:    req.Symptoms,
		PhotoURL:    req.PhotoURL,
		Description: req.Description,
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Diagnosis created successfully",
		"diagnosisId": d.ID,
	})
}

func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), domain.ListFilter{
		Search:       c.Query("search"),
		Status:       c.Query("status"),
		PlantSpecies: c.Query("plantSpecies"),
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type updateReq struct {
	Symptoms    *string `json:"symptoms"`
	Status      *string `json:"status"`
	Description *string `json:"description"`
	PhotoURL    *string `json:"photoUrl"`
}

func (h *Handler) Update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	_, err := h.svc.Update(c.Request.Context(), session.ActorFrom(c), strings.TrimSpace(c.Param("id")), domain.UpdateDiagnosisRequest{
		Symptoms:    req.Symptoms,
		Status:      req.Status,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Diagnosis updated successfully"})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), session.ActorFrom(c), strings.TrimSpace(c.Param("id"))); err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Diagnosis deleted successfully"})
}

type applyReq struct {
	TreatmentID string `json:"treatmentId"`
	Result      string `json:"result"`
}

// ApplyTreatment logs a treatment application and rates the treatment when
// the result is conclusive.
func (h *Handler) ApplyTreatment(c *gin.Context) {
	var req applyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body")
		return
	}

	err := h.svc.ApplyTreatment(c.Request.Context(), session.ActorFrom(c),
		strings.TrimSpace(c.Param("id")), req.TreatmentID, strings.TrimSpace(req.Result))
	if err != nil {
		httpx.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Treatment applied successfully"})
}
