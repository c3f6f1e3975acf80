package services

import (
	"context"
	"errors"
	"fmt"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetKind 面经上的三种成员集合
type SetKind string

const (
	SetUpvote   SetKind = "upvote"
	SetBookmark SetKind = "bookmark"
	SetUsed     SetKind = "used"
)

type membershipSet struct {
	counter string
	newRow  func(experienceID, userID string) any
}

var experienceSets = map[SetKind]membershipSet{
	SetUpvote: {
		counter: "upvote_count",
		newRow: func(e, u string) any {
			return &models.ExperienceUpvote{ExperienceID: e, UserID: u}
		},
	},
	SetBookmark: {
		counter: "bookmark_count",
		newRow: func(e, u string) any {
			return &models.ExperienceBookmark{ExperienceID: e, UserID: u}
		},
	},
	SetUsed: {
		counter: "used_count",
		newRow: func(e, u string) any {
			return &models.ExperienceUse{ExperienceID: e, UserID: u}
		},
	},
}

// ToggleResult 切换后的成员状态和回读的计数
type ToggleResult struct {
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}

type EngagementService struct {
	db            *gorm.DB
	log           *logger.Logger
	rewards       *RewardService
	notifications *NotificationService
	trending      *TrendingService
}

func NewEngagementService(db *gorm.DB, log *logger.Logger, rewards *RewardService, notifications *NotificationService, trending *TrendingService) *EngagementService {
	return &EngagementService{
		db:            db,
		log:           log,
		rewards:       rewards,
		notifications: notifications,
		trending:      trending,
	}
}

// Toggle 切换用户在某个集合中的成员关系。
// 点赞为可撤销的切换：再次调用取消点赞，同时撤回给作者的积分；作者不能给自己点赞
func (s *EngagementService) Toggle(ctx context.Context, experienceID, userID string, kind SetKind) (*ToggleResult, error) {
	set, ok := experienceSets[kind]
	if !ok {
		return nil, apperror.BadRequest("Unknown engagement type")
	}

	var exp models.Experience
	if err := s.db.WithContext(ctx).Select("id", "author_id").First(&exp, "id = ?", experienceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Experience")
		}
		return nil, err
	}
	isAuthor := exp.AuthorID != nil && *exp.AuthorID == userID
	if kind == SetUpvote && isAuthor {
		return nil, apperror.Forbidden("You cannot upvote your own experience")
	}

	result := &ToggleResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := toggleMember(tx, set.newRow(experienceID, userID),
			map[string]any{"experience_id": experienceID, "user_id": userID},
			&models.Experience{}, experienceID, set.counter)
		if err != nil {
			return err
		}
		result.Active = active
		result.Count, err = readCounter(tx, &models.Experience{}, experienceID, set.counter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("toggle %s: %w", kind, err)
	}

	if kind == SetUpvote && exp.AuthorID != nil {
		if result.Active {
			s.rewards.AddPointsAsync(*exp.AuthorID, PointsUpvoteReceived, ActionUpvoteReceived)
			if !s.hasUnreadLike(ctx, *exp.AuthorID, experienceID) {
				s.notifications.NotifyAsync(models.Notification{
					UserID:       *exp.AuthorID,
					Title:        "New upvote",
					Body:         "Someone found your experience helpful",
					Type:         models.NotificationTypeLike,
					ExperienceID: &experienceID,
					URL:          experienceURL(experienceID),
				})
			}
		} else {
			s.rewards.AddPointsAsync(*exp.AuthorID, -PointsUpvoteReceived, ActionUpvoteRevoked)
		}
	}
	s.trending.ScheduleUpdate(experienceID)

	return result, nil
}

// hasUnreadLike 作者还有未读的同一面经点赞通知时不再重复提醒，反复点赞/取消不会刷屏
func (s *EngagementService) hasUnreadLike(ctx context.Context, authorID, experienceID string) bool {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND experience_id = ? AND type = ? AND is_read = ?",
			authorID, experienceID, models.NotificationTypeLike, false).
		Count(&n).Error
	if err != nil {
		s.log.Warn("Failed to check pending upvote notification", "experience_id", experienceID, "error", err)
		return false
	}
	return n > 0
}

// toggleMember 在事务内切换一条成员记录并同步计数列。
// 先尝试插入，唯一键冲突说明已是成员，改为删除；计数只随实际插入或删除的行变化
func toggleMember(tx *gorm.DB, row any, key map[string]any, counterModel any, counterID, counter string) (bool, error) {
	ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if ins.Error != nil {
		return false, ins.Error
	}
	if ins.RowsAffected == 1 {
		return true, adjustCounter(tx, counterModel, counterID, counter, 1)
	}

	del := tx.Where(key).Delete(row)
	if del.Error != nil {
		return false, del.Error
	}
	if del.RowsAffected == 1 {
		return false, adjustCounter(tx, counterModel, counterID, counter, -1)
	}
	return false, nil
}

// removeMember 删除成员记录（不存在则无操作），返回是否删除
func removeMember(tx *gorm.DB, row any, key map[string]any, counterModel any, counterID, counter string) (bool, error) {
	del := tx.Where(key).Delete(row)
	if del.Error != nil {
		return false, del.Error
	}
	if del.RowsAffected == 0 {
		return false, nil
	}
	return true, adjustCounter(tx, counterModel, counterID, counter, -1)
}

func adjustCounter(tx *gorm.DB, model any, id, counter string, delta int) error {
	q := tx.Model(model).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(counter+" >= ?", -delta)
	}
	return q.UpdateColumn(counter, gorm.Expr(counter+" + ?", delta)).Error
}

func readCounter(tx *gorm.DB, model any, id, counter string) (int64, error) {
	var n int64
	err := tx.Model(model).Select(counter).Where("id = ?", id).Row().Scan(&n)
	return n, err
}

func experienceURL(id string) string {
	return "/experience/" + id
}
