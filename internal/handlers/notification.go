package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	push          *services.PushService
	log           *logger.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, push *services.PushService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, push: push, log: log}
}

func (h *NotificationHandler) List(c *gin.Context) {
	list, unread, err := h.notifications.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	n, err := h.notifications.DeleteAll(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
}

func (h *NotificationHandler) PublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.push.PublicKey()})
}

func (h *NotificationHandler) Subscribe(c *gin.Context) {
	var in services.SubscriptionInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.push.Subscribe(c.Request.Context(), middleware.CurrentUserID(c), in); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	if err := h.push.Unsubscribe(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
