// Package httpx writes error responses in the {"error": "..."} shape the web
// client expects.
package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/platform/apperr"
	"github.com/leafit/leafit-backend/internal/platform/logger"
)

// Error maps err onto a status code and body. Server errors are logged with
// the route and request id and never leak their text to the client.
func Error(c *gin.Context, log *logger.Logger, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"request_id", c.GetString("request_id"),
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
