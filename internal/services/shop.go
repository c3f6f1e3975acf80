package services

import (
	"context"
	"errors"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"

	"gorm.io/gorm"
)

type ShopPack struct {
	Coins  int `json:"coins"`
	Points int `json:"points"`
}

// ShopPacks 金币兑换积分的价格表
var ShopPacks = map[string]ShopPack{
	"small":  {Coins: 10, Points: 5},
	"medium": {Coins: 20, Points: 12},
	"large":  {Coins: 50, Points: 35},
}

type ClaimResult struct {
	Success bool `json:"success"`
	Coins   int  `json:"coins"`
	Points  int  `json:"points"`
}

type PurchaseResult struct {
	Success     bool `json:"success"`
	CoinsLeft   int  `json:"coinsLeft"`
	TotalPoints int  `json:"totalPoints"`
}

type ShopService struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewShopService(db *gorm.DB, log *logger.Logger) *ShopService {
	return &ShopService{db: db, log: log, now: time.Now}
}

// ClaimDaily 每个 UTC 自然日领取一次：+1 金币 +5 积分。
// 用条件更新判断是否已领取，并发请求只有一个成功
func (s *ShopService) ClaimDaily(ctx context.Context, userID string) (*ClaimResult, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Where("last_daily_visit IS NULL OR last_daily_visit < ?", dayStart).
			Updates(map[string]any{
				"coins":            gorm.Expr("coins + ?", CoinsDailyClaim),
				"last_daily_visit": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
				return err
			}
			return apperror.BadRequest("Already claimed today")
		}
		if err := addPointsTx(tx, userID, PointsDailyClaim, ActionDailyClaim); err != nil {
			return err
		}
		return tx.Select("id", "coins", "points").First(&user, "id = ?", userID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("User")
		}
		return nil, err
	}
	return &ClaimResult{Success: true, Coins: user.Coins, Points: user.Points}, nil
}

// BuyPoints 用金币兑换积分，余额不足时不扣款
func (s *ShopService) BuyPoints(ctx context.Context, userID, pack string) (*PurchaseResult, error) {
	selected, ok := ShopPacks[pack]
	if !ok {
		return nil, apperror.BadRequest("Invalid pack")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND coins >= ?", userID, selected.Coins).
			UpdateColumn("coins", gorm.Expr("coins - ?", selected.Coins))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
				return err
			}
			return apperror.BadRequest("Not enough coins")
		}
		if err := addPointsTx(tx, userID, selected.Points, ActionShopPurchase); err != nil {
			return err
		}
		return tx.Select("id", "coins", "points").First(&user, "id = ?", userID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("User")
		}
		return nil, err
	}

	s.log.Info("Points purchased", "user_id", userID, "pack", pack)
	return &PurchaseResult{Success: true, CoinsLeft: user.Coins, TotalPoints: user.Points}, nil
}
