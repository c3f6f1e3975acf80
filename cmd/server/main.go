package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oaforum/internal/cache"
	"oaforum/internal/config"
	"oaforum/internal/db"
	"oaforum/internal/handlers"
	"oaforum/internal/logger"
	"oaforum/internal/middleware"
	"oaforum/internal/router"
	"oaforum/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("Server exited with error", "error", err)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.DBDriver, cfg.DatabaseURL, logg)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.PromoteAdmins(gdb, cfg.AdminEmails, logg); err != nil {
		return fmt.Errorf("promote admins: %w", err)
	}

	var store cache.Store
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = rdb
		logg.Info("Using redis cache", "addr", cfg.RedisAddr)
	} else {
		lru, err := cache.NewLRU(cfg.CacheSize)
		if err != nil {
			return err
		}
		store = lru
	}

	runner := services.NewAsyncRunner(logg)

	// 服务
	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	mailer, err := services.NewMailService(cfg.SMTP, logg, runner)
	if err != nil {
		return err
	}
	push := services.NewPushService(gdb, logg, cfg.Push)
	notifications := services.NewNotificationService(gdb, logg, push, runner)
	rewards := services.NewRewardService(gdb, logg, runner)
	trending := services.NewTrendingService(gdb, logg)
	trending.Start(ctx)

	experiences := services.NewExperienceService(gdb, logg, rewards, notifications, trending, runner)
	feed := services.NewFeedService(gdb, logg)
	engagement := services.NewEngagementService(gdb, logg, rewards, notifications, trending)
	comments := services.NewCommentService(gdb, logg, rewards, notifications, trending)
	users := services.NewUserService(gdb, logg)
	shop := services.NewShopService(gdb, logg)
	insights := services.NewInsightsService(gdb, logg, store, cfg.InsightsTTL)
	llm := services.NewLLMService(cfg.LLM, logg)
	ai := services.NewAIService(gdb, logg, llm, services.NewTipCache(cfg.TipTTL), insights)
	auth := services.NewAuthService(gdb, logg, tokens, mailer, cfg.AdminEmails)
	google := services.NewGoogleAuth(cfg.Google)

	limiter, err := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateBurst)
	if err != nil {
		return err
	}

	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(logg, cfg.SessionSecret, cfg.CORSOrigins, router.Handlers{
		Auth:          handlers.NewAuthHandler(auth, google, cfg.ClientURL, cfg.JWTTTL, logg),
		Experience:    handlers.NewExperienceHandler(experiences, feed, engagement, cfg.FeedPreview, logg),
		Comment:       handlers.NewCommentHandler(comments, logg),
		User:          handlers.NewUserHandler(users, rewards, insights, logg),
		Notification:  handlers.NewNotificationHandler(notifications, push, logg),
		Shop:          handlers.NewShopHandler(shop, logg),
		Insights:      handlers.NewInsightsHandler(insights, logg),
		AI:            handlers.NewAIHandler(ai, logg),
		Admin:         handlers.NewAdminHandler(experiences, logg),
		Authenticator: middleware.NewAuthenticator(tokens, gdb, logg),
		Limiter:       limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logg.Info("OA Forum server starting", "port", cfg.Port, "driver", cfg.DBDriver)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logg.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	// 等待后台的积分、通知和邮件任务完成
	runner.Wait()
	logg.Info("Server stopped gracefully")
	return nil
}
