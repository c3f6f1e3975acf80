package services

import (
	"context"
	"encoding/json"
	"errors"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"

	"gorm.io/gorm"
)

const notificationListLimit = 50

type NotificationService struct {
	db     *gorm.DB
	log    *logger.Logger
	push   *PushService
	runner Runner
}

func NewNotificationService(db *gorm.DB, log *logger.Logger, push *PushService, runner Runner) *NotificationService {
	return &NotificationService{db: db, log: log, push: push, runner: runner}
}

// Notify 写入站内通知，再尽力推送到用户订阅的设备。推送失败不影响返回值
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if n.UserID == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return err
	}

	if s.push == nil {
		return nil
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "push_enabled").First(&user, "id = ?", n.UserID).Error; err != nil {
		return nil
	}
	if !user.PushEnabled {
		return nil
	}
	payload, _ := json.Marshal(map[string]string{
		"title": n.Title,
		"body":  n.Body,
		"url":   n.URL,
		"type":  string(n.Type),
	})
	if err := s.push.Send(ctx, n.UserID, payload); err != nil {
		s.log.Warn("Push delivery failed", "user_id", n.UserID, "error", err)
	}
	return nil
}

// NotifyAsync 后台发送通知
func (s *NotificationService) NotifyAsync(n models.Notification) {
	s.runner.Go("notify "+string(n.Type), func(ctx context.Context) error {
		return s.Notify(ctx, n)
	})
}

// List 最新 50 条通知和未读数
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(notificationListLimit).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	var unread int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	var n models.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("Notification")
		}
		return err
	}
	return s.db.WithContext(ctx).Model(&n).Update("is_read", true).Error
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Notification")
	}
	return nil
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
