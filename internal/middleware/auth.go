package middleware

import (
	"net/http"
	"strings"

	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	CheckUserKey = "user"
	TokenCookie  = "token"
)

// Authenticator 从 Bearer 头或 token cookie 解析 JWT 并加载用户
type Authenticator struct {
	tokens *services.TokenService
	db     *gorm.DB
	log    *logger.Logger
}

func NewAuthenticator(tokens *services.TokenService, db *gorm.DB, log *logger.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, db: db, log: log.With("component", "auth_middleware")}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func (a *Authenticator) resolve(c *gin.Context) (*models.User, string) {
	token := extractToken(c)
	if token == "" {
		return nil, "Not authorized, no token"
	}
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, "Not authorized, token failed"
	}
	var user models.User
	if err := a.db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.ID).Error; err != nil {
		return nil, "Not authorized, user not found"
	}
	return &user, ""
}

// LoadUser 可选登录：有合法 token 时设置当前用户，否则继续以游客身份处理
func (a *Authenticator) LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, _ := a.resolve(c); user != nil {
			c.Set(CheckUserKey, user)
		}
		c.Next()
	}
}

// AuthRequired 必须登录
func (a *Authenticator) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, reason := a.resolve(c)
		if user == nil {
			a.log.Debug("Rejected request", "path", c.Request.URL.Path, "reason", reason)
			abort(c, http.StatusUnauthorized, reason)
			return
		}
		c.Set(CheckUserKey, user)
		c.Next()
	}
}

// AdminRequired 需在 AuthRequired 之后使用
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			abort(c, http.StatusForbidden, "Admin only")
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// CurrentUserID 游客返回空字符串
func CurrentUserID(c *gin.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}

func CurrentActor(c *gin.Context) services.Actor {
	user := CurrentUser(c)
	if user == nil {
		return services.Actor{}
	}
	return services.Actor{ID: user.ID, Role: user.Role}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
