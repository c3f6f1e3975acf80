package services

import (
	"context"

	"oaforum/internal/logger"
	"oaforum/internal/models"

	"gorm.io/gorm"
)

// 积分动作
const (
	ActionPostExperience = "POST_EXPERIENCE"
	ActionUpvoteReceived = "UPVOTE_RECEIVED"
	ActionUpvoteRevoked  = "UPVOTE_REVOKED"
	ActionComment        = "COMMENT"
	ActionDailyClaim     = "DAILY_CLAIM"
	ActionShopPurchase   = "SHOP_PURCHASE"
)

// 积分值
const (
	PointsPostExperience = 10
	PointsUpvoteReceived = 2
	PointsComment        = 1
	PointsDailyClaim     = 5
	CoinsDailyClaim      = 1
)

type RewardService struct {
	db     *gorm.DB
	log    *logger.Logger
	runner Runner
}

func NewRewardService(db *gorm.DB, log *logger.Logger, runner Runner) *RewardService {
	return &RewardService{db: db, log: log, runner: runner}
}

// AddPoints 使用事务写入积分流水并更新余额
func (s *RewardService) AddPoints(ctx context.Context, userID string, amount int, action string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return addPointsTx(tx, userID, amount, action)
	})
}

// AddPointsAsync 异步发放积分，失败只记日志
func (s *RewardService) AddPointsAsync(userID string, amount int, action string) {
	if userID == "" || amount == 0 {
		return
	}
	s.runner.Go("reward "+action, func(ctx context.Context) error {
		return s.AddPoints(ctx, userID, amount, action)
	})
}

// Ledger 返回用户最近的积分流水
func (s *RewardService) Ledger(ctx context.Context, userID string, limit int) ([]models.PointLog, error) {
	var logs []models.PointLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func addPointsTx(tx *gorm.DB, userID string, amount int, action string) error {
	entry := models.PointLog{
		UserID: userID,
		Amount: amount,
		Action: action,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	// 撤回积分时余额最低为 0
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("CASE WHEN points + ? < 0 THEN 0 ELSE points + ? END", amount, amount)).
		Error
}
