package handlers

import (
	"net/http"

	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
)

type ShopHandler struct {
	shop *services.ShopService
	log  *logger.Logger
}

func NewShopHandler(shop *services.ShopService, log *logger.Logger) *ShopHandler {
	return &ShopHandler{shop: shop, log: log}
}

// Claim 每日领取，一个 UTC 自然日一次
func (h *ShopHandler) Claim(c *gin.Context) {
	result, err := h.shop.ClaimDaily(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ShopHandler) BuyPoints(c *gin.Context) {
	var req struct {
		Pack string `json:"pack"`
	}
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	result, err := h.shop.BuyPoints(c.Request.Context(), middleware.CurrentUserID(c), req.Pack)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ShopHandler) Packs(c *gin.Context) {
	c.JSON(http.StatusOK, services.ShopPacks)
}
