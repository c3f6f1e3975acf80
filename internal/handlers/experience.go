package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/services"
	"oaforum/internal/utils"

	"github.com/gin-gonic/gin"
)

type ExperienceHandler struct {
	experiences  *services.ExperienceService
	feed         *services.FeedService
	engagement   *services.EngagementService
	previewLimit int
	log          *logger.Logger
}

func NewExperienceHandler(experiences *services.ExperienceService, feed *services.FeedService, engagement *services.EngagementService, previewLimit int, log *logger.Logger) *ExperienceHandler {
	if previewLimit <= 0 {
		previewLimit = 3
	}
	return &ExperienceHandler{
		experiences:  experiences,
		feed:         feed,
		engagement:   engagement,
		previewLimit: previewLimit,
		log:          log,
	}
}

// List 游标分页的信息流。没有发布过面经的用户只能看到前几条预览
func (h *ExperienceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	viewerID := middleware.CurrentUserID(c)

	contributed := false
	if viewerID != "" {
		n, err := h.experiences.CountByAuthor(ctx, viewerID)
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		contributed = n > 0
	}

	if !contributed {
		page, err := h.feed.ListFeed(ctx, viewerID, "", h.previewLimit)
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		page.HasMore = false
		page.NextCursor = nil
		page.Locked = true
		c.JSON(http.StatusOK, page)
		return
	}

	limit := utils.StringToInt(c.Query("limit"), services.DefaultFeedLimit)
	page, err := h.feed.ListFeed(ctx, viewerID, c.Query("cursor"), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ExperienceHandler) Filter(c *gin.Context) {
	var criteria services.FilterCriteria
	if err := bindQuery(c, &criteria); err != nil {
		writeError(c, h.log, err)
		return
	}
	list, err := h.feed.ListByFilter(c.Request.Context(), middleware.CurrentUserID(c), criteria)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ExperienceHandler) Trending(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"), services.DefaultFeedLimit)
	list, err := h.feed.ListTrending(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ExperienceHandler) Create(c *gin.Context) {
	var in services.CreateExperienceInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	view, err := h.experiences.Create(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *ExperienceHandler) Detail(c *gin.Context) {
	view, err := h.experiences.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ExperienceHandler) Mine(c *gin.Context) {
	list, err := h.experiences.ListMine(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ExperienceHandler) Bookmarks(c *gin.Context) {
	list, err := h.experiences.ListBookmarked(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ExperienceHandler) toggle(c *gin.Context, kind services.SetKind, activeKey string) {
	result, err := h.engagement.Toggle(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), kind)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{activeKey: result.Active, "count": result.Count})
}

func (h *ExperienceHandler) Upvote(c *gin.Context) {
	h.toggle(c, services.SetUpvote, "upvoted")
}

func (h *ExperienceHandler) Bookmark(c *gin.Context) {
	h.toggle(c, services.SetBookmark, "bookmarked")
}

func (h *ExperienceHandler) ToggleUsed(c *gin.Context) {
	h.toggle(c, services.SetUsed, "used")
}

func (h *ExperienceHandler) Report(c *gin.Context) {
	if err := h.experiences.Report(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
