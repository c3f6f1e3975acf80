package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler 举报审核。路由组已经过 AdminRequired
type AdminHandler struct {
	experiences *services.ExperienceService
	log         *logger.Logger
}

func NewAdminHandler(experiences *services.ExperienceService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{experiences: experiences, log: log}
}

// Reported 被举报的面经，举报多的在前
func (h *AdminHandler) Reported(c *gin.Context) {
	list, err := h.experiences.ListReported(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) DismissReports(c *gin.Context) {
	if err := h.experiences.DismissReports(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) DeleteExperience(c *gin.Context) {
	id := c.Param("id")
	if err := h.experiences.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Info("Admin removed experience", "experience_id", id, "admin_id", middleware.CurrentUserID(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
