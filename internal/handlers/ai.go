package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	ai  *services.AIService
	log *logger.Logger
}

func NewAIHandler(ai *services.AIService, log *logger.Logger) *AIHandler {
	return &AIHandler{ai: ai, log: log}
}

func (h *AIHandler) GenerateDescription(c *gin.Context) {
	var in services.DescriptionInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	text, err := h.ai.GenerateDescription(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *AIHandler) Summarize(c *gin.Context) {
	var in services.SummarizeInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	summary, err := h.ai.Summarize(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *AIHandler) Tip(c *gin.Context) {
	tip, err := h.ai.Tip(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tip)
}

func (h *AIHandler) CompareSummary(c *gin.Context) {
	var req struct {
		CompanyA string `json:"companyA" binding:"required"`
		CompanyB string `json:"companyB" binding:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	result, err := h.ai.CompareSummary(c.Request.Context(), req.CompanyA, req.CompanyB)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
