package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const oauthStateKey = "oauth_state"

// generateStateToken 生成随机 state token
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GoogleLogin 发起 Google OAuth 登录，state 存在 session 中用于校验回调
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if !h.google.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Google login is not configured"})
		return
	}
	state, err := generateStateToken()
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.google.AuthCodeURL(state))
}

// GoogleCallback 校验 state，换取用户信息后写入 token cookie 并跳回前端
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	session := sessions.Default(c)
	saved, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	_ = session.Save()

	if saved == "" || c.Query("state") != saved {
		h.redirectFailure(c, "invalid_state")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.redirectFailure(c, "missing_code")
		return
	}

	profile, err := h.google.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.Warn("Google exchange failed", "error", err)
		h.redirectFailure(c, "exchange_failed")
		return
	}
	result, err := h.auth.GoogleLogin(c.Request.Context(), profile)
	if err != nil {
		h.log.Warn("Google login rejected", "email", profile.Email, "error", err)
		h.redirectFailure(c, "login_failed")
		return
	}

	h.setTokenCookie(c, result.Token, int(h.tokenTTL.Seconds()))
	c.Redirect(http.StatusFound, h.clientURL+"/oauth-success")
}

func (h *AuthHandler) redirectFailure(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.clientURL+"/login?error="+url.QueryEscape(reason))
}
