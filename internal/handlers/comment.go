package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
	log      *logger.Logger
}

func NewCommentHandler(comments *services.CommentService, log *logger.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, log: log}
}

// Create 发表评论或回复，body 中带 parentComment 即为回复
func (h *CommentHandler) Create(c *gin.Context) {
	var in services.AddCommentInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	view, err := h.comments.Add(c.Request.Context(), c.Param("experienceId"), middleware.CurrentUserID(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *CommentHandler) List(c *gin.Context) {
	list, err := h.comments.List(c.Request.Context(), c.Param("experienceId"), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CommentHandler) Like(c *gin.Context) {
	r, err := h.comments.ToggleLike(c.Request.Context(), c.Param("commentId"), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": r.Active, "likeCount": r.LikeCount, "dislikeCount": r.DislikeCount})
}

func (h *CommentHandler) Dislike(c *gin.Context) {
	r, err := h.comments.ToggleDislike(c.Request.Context(), c.Param("commentId"), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disliked": r.Active, "likeCount": r.LikeCount, "dislikeCount": r.DislikeCount})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	result, err := h.comments.Delete(c.Request.Context(), c.Param("commentId"), middleware.CurrentActor(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
