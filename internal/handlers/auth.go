package handlers

import (
	"net/http"
	"strings"
	"time"

	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth      *services.AuthService
	google    *services.GoogleAuth
	clientURL string
	tokenTTL  time.Duration
	log       *logger.Logger
}

func NewAuthHandler(auth *services.AuthService, google *services.GoogleAuth, clientURL string, tokenTTL time.Duration, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		google:    google,
		clientURL: strings.TrimRight(clientURL, "/"),
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var in services.Credentials
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.auth.Signup(c.Request.Context(), in); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "OTP sent to email"})
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var in services.VerifyOTPInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	result, err := h.auth.VerifyOTP(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in services.Credentials
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	result, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ForgotPassword 无论邮箱是否存在都返回相同的响应
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, an OTP has been sent"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var in services.ResetPasswordInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), in); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful"})
}

// Logout 清除 Google 登录写入的 cookie，Bearer token 由客户端自行丢弃
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setTokenCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) secureCookie() bool {
	return strings.HasPrefix(h.clientURL, "https://")
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, maxAge int) {
	// 前后端跨站部署时需要 SameSite=None，浏览器要求同时带 Secure
	if h.secureCookie() {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.secureCookie(), true)
}
