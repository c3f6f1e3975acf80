package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
)

type InsightsHandler struct {
	insights *services.InsightsService
	log      *logger.Logger
}

func NewInsightsHandler(insights *services.InsightsService, log *logger.Logger) *InsightsHandler {
	return &InsightsHandler{insights: insights, log: log}
}

func (h *InsightsHandler) Sidebar(c *gin.Context) {
	data, err := h.insights.Sidebar(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
