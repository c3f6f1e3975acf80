package router

import (
	"net/http"

	"oaforum/internal/handlers"
	"oaforum/internal/logger"
	"oaforum/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "oaforum_session"

// NewEngine 创建带公共中间件的 gin 引擎并注册路由
func NewEngine(log *logger.Logger, sessionSecret string, corsOrigins []string, h Handlers) *gin.Engine {
	handlers.RegisterValidation()

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS(corsOrigins))

	// session 只用于 OAuth state
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	RegisterRoutes(r, h)
	return r
}

// Handlers 所有路由用到的 handler，由 main 组装
type Handlers struct {
	Auth          *handlers.AuthHandler
	Experience    *handlers.ExperienceHandler
	Comment       *handlers.CommentHandler
	User          *handlers.UserHandler
	Notification  *handlers.NotificationHandler
	Shop          *handlers.ShopHandler
	Insights      *handlers.InsightsHandler
	AI            *handlers.AIHandler
	Admin         *handlers.AdminHandler
	Authenticator *middleware.Authenticator
	Limiter       *middleware.RateLimiter
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	authRequired := h.Authenticator.AuthRequired()
	optionalAuth := h.Authenticator.LoadUser()
	limit := h.Limiter.Middleware()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 认证 (Auth)
	auth := r.Group("/auth")
	{
		auth.POST("/signup", limit, h.Auth.Signup)                  // 注册并发送验证码
		auth.POST("/verify-otp", limit, h.Auth.VerifyOTP)           // 校验验证码
		auth.POST("/login", limit, h.Auth.Login)                    // 登录
		auth.POST("/forgot-password", limit, h.Auth.ForgotPassword) // 发送重置验证码
		auth.POST("/reset-password", limit, h.Auth.ResetPassword)   // 重置密码
		auth.POST("/logout", h.Auth.Logout)                         // 退出登录
		auth.GET("/google", h.Auth.GoogleLogin)                     // Google 登录
		auth.GET("/google/callback", h.Auth.GoogleCallback)         // Google 回调
		auth.GET("/me", authRequired, h.User.Me)                    // 当前用户
	}

	api := r.Group("/api")

	// 面经 (Experiences)
	exp := api.Group("/experiences")
	{
		exp.GET("", optionalAuth, h.Experience.List)                        // 信息流，游标分页
		exp.GET("/filter", optionalAuth, h.Experience.Filter)               // 条件筛选
		exp.GET("/trending", optionalAuth, h.Experience.Trending)           // 热门
		exp.GET("/mine", authRequired, h.Experience.Mine)                   // 我发布的
		exp.GET("/bookmarks", authRequired, h.Experience.Bookmarks)         // 我收藏的
		exp.POST("", authRequired, h.Experience.Create)                     // 发布
		exp.GET("/:id", optionalAuth, h.Experience.Detail)                  // 详情
		exp.POST("/:id/upvote", authRequired, h.Experience.Upvote)          // 点赞/取消
		exp.POST("/:id/bookmark", authRequired, h.Experience.Bookmark)      // 收藏/取消
		exp.POST("/:id/toggle-used", authRequired, h.Experience.ToggleUsed) // 标记用过/取消
		exp.POST("/:id/report", authRequired, h.Experience.Report)          // 举报

		admin := exp.Group("/admin", authRequired, middleware.AdminRequired())
		admin.GET("/reported", h.Admin.Reported)                                               // 被举报列表
		admin.POST("/:id/dismiss", h.Admin.DismissReports)                                     // 驳回举报
		exp.DELETE("/:id", authRequired, middleware.AdminRequired(), h.Admin.DeleteExperience) // 删除面经
	}

	// 评论 (Comments)
	comments := api.Group("/comments")
	{
		comments.GET("/:experienceId", optionalAuth, h.Comment.List)
		comments.POST("/:experienceId", authRequired, h.Comment.Create)
		comments.POST("/like/:commentId", authRequired, h.Comment.Like)
		comments.POST("/dislike/:commentId", authRequired, h.Comment.Dislike)
		comments.DELETE("/:commentId", authRequired, h.Comment.Delete)
	}

	// 用户 (Users)
	users := api.Group("/users")
	{
		users.GET("/leaderboard", h.User.Leaderboard)
		users.GET("/:id/public", h.User.PublicProfile)
		users.POST("/follow/company", authRequired, h.User.FollowCompany)
		users.POST("/unfollow/company", authRequired, h.User.UnfollowCompany)
		users.GET("/followed/companies", authRequired, h.User.FollowedCompanies)
		users.GET("/me/unlocks", authRequired, h.User.Unlocks)
		users.GET("/me/profile", authRequired, h.User.Me)
		users.GET("/me/rewards", authRequired, h.User.Rewards)
		users.PUT("/me/preferences", authRequired, h.User.UpdatePreferences)
		users.GET("/compare", authRequired, h.User.Compare)
	}

	// 通知 (Notifications)
	notifications := api.Group("/notifications", authRequired)
	{
		notifications.GET("", h.Notification.List)
		notifications.PUT("/clear", h.Notification.ReadAll)
		notifications.PUT("/:id/read", h.Notification.Read)
		notifications.DELETE("/all", h.Notification.DeleteAll)
		notifications.DELETE("/:id", h.Notification.Delete)
	}

	push := api.Group("/push")
	{
		push.GET("/public-key", h.Notification.PublicKey)
		push.POST("/subscribe", authRequired, h.Notification.Subscribe)
		push.DELETE("/subscribe", authRequired, h.Notification.Unsubscribe)
	}

	// 商店 (Shop)
	shop := api.Group("/shop")
	{
		shop.GET("/packs", h.Shop.Packs)
		shop.POST("/claim", authRequired, h.Shop.Claim)
		shop.POST("/buy-points", authRequired, h.Shop.BuyPoints)
	}

	api.GET("/sidebar/insights", h.Insights.Sidebar)

	// AI
	ai := api.Group("/ai", authRequired, limit)
	{
		ai.POST("/generate-description", h.AI.GenerateDescription)
		ai.POST("/summarize", h.AI.Summarize)
		ai.GET("/tip", h.AI.Tip)
		ai.POST("/compare-summary", h.AI.CompareSummary)
	}
}
