package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/services"
	"oaforum/internal/utils"

	"github.com/gin-gonic/gin"
)

const rewardLedgerLimit = 100

type UserHandler struct {
	users    *services.UserService
	rewards  *services.RewardService
	insights *services.InsightsService
	log      *logger.Logger
}

func NewUserHandler(users *services.UserService, rewards *services.RewardService, insights *services.InsightsService, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, rewards: rewards, insights: insights, log: log}
}

type companyRequest struct {
	Company string `json:"company" binding:"required,max=100"`
}

func (h *UserHandler) Leaderboard(c *gin.Context) {
	board, err := h.users.Leaderboard(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *UserHandler) FollowCompany(c *gin.Context) {
	var req companyRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	followed, err := h.users.FollowCompany(c.Request.Context(), middleware.CurrentUserID(c), req.Company)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "followedCompanies": followed})
}

func (h *UserHandler) UnfollowCompany(c *gin.Context) {
	var req companyRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	followed, err := h.users.UnfollowCompany(c.Request.Context(), middleware.CurrentUserID(c), req.Company)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "followedCompanies": followed})
}

func (h *UserHandler) FollowedCompanies(c *gin.Context) {
	followed, err := h.users.FollowedCompanies(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, followed)
}

func (h *UserHandler) Unlocks(c *gin.Context) {
	view, err := h.users.Unlocks(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Me 当前用户资料，/auth/me 和 /api/users/me/profile 共用
func (h *UserHandler) Me(c *gin.Context) {
	view, err := h.users.Profile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) PublicProfile(c *gin.Context) {
	view, err := h.users.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Rewards(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"), rewardLedgerLimit)
	if limit <= 0 || limit > rewardLedgerLimit {
		limit = rewardLedgerLimit
	}
	ledger, err := h.rewards.Ledger(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var in services.PreferencesInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	view, err := h.users.UpdatePreferences(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Compare 例如 /api/users/compare?companyA=AMAZON&companyB=GOOGLE
func (h *UserHandler) Compare(c *gin.Context) {
	result, err := h.insights.Compare(c.Request.Context(), c.Query("companyA"), c.Query("companyB"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
