package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"oaforum/internal/config"
	"oaforum/internal/logger"
	"oaforum/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionInput 浏览器 PushManager.subscribe() 返回的结构
type SubscriptionInput struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

type PushService struct {
	db     *gorm.DB
	log    *logger.Logger
	cfg    config.PushConfig
	client *http.Client
}

func NewPushService(db *gorm.DB, log *logger.Logger, cfg config.PushConfig) *PushService {
	if !cfg.Enabled() {
		log.Warn("PushService disabled: missing VAPID keys")
	}
	return &PushService{
		db:     db,
		log:    log,
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *PushService) PublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Subscribe 每个用户只保留一个订阅，重复订阅覆盖旧的
func (s *PushService) Subscribe(ctx context.Context, userID string, in SubscriptionInput) error {
	sub := models.PushSubscription{
		UserID:   userID,
		Endpoint: in.Endpoint,
		P256dh:   in.Keys.P256dh,
		Auth:     in.Keys.Auth,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh", "auth", "updated_at"}),
		}).Create(&sub).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("push_enabled", true).Error
	})
}

func (s *PushService) Unsubscribe(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.PushSubscription{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("push_enabled", false).Error
	})
}

// Send 推送到用户的订阅。推送服务返回 404/410 表示订阅已失效，直接删除
func (s *PushService) Send(ctx context.Context, userID string, payload []byte) error {
	if !s.cfg.Enabled() {
		return nil
	}

	var sub models.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Auth, P256dh: sub.P256dh},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             60 * 60 * 24,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		s.log.Info("Removing expired push subscription", "user_id", userID, "status", resp.StatusCode)
		return s.db.WithContext(ctx).Delete(&sub).Error
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service responded %d", resp.StatusCode)
	}
	return nil
}
