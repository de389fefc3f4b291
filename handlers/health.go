package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports which optional integrations are configured so operators can
// tell a degraded deployment from a broken one.
type Health struct {
	GeminiConfigured  bool
	FlightsConfigured bool
	MailerConfigured  bool
}

func (h *Health) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "Roteirize API",
		"gemini":  h.GeminiConfigured,
		"voos":    h.FlightsConfigured,
		"email":   h.MailerConfigured,
	})
}
