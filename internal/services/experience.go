package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateExperienceInput 发布面经的请求体。topics 和 questionPatterns 只接受字符串，
// 由 utils.ParseTags 统一解析；传数组会在绑定阶段失败
type CreateExperienceInput struct {
	Company          string  `json:"company" binding:"required,max=100"`
	Role             string  `json:"role" binding:"required,max=100"`
	OAPlatform       string  `json:"oaPlatform" binding:"max=100"`
	Difficulty       string  `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD easy medium hard"`
	QuestionsCount   int     `json:"questionsCount" binding:"min=0,max=100"`
	Topics           string  `json:"topics"`
	QuestionPatterns string  `json:"questionPatterns"`
	ExperienceText   string  `json:"experienceText" binding:"max=20000"`
	Rating           int     `json:"rating" binding:"omitempty,min=1,max=5"`
	Year             int     `json:"year" binding:"omitempty,min=2000,max=2100"`
	SalaryLPA        float64 `json:"salaryLPA" binding:"min=0,max=200"`
	IsAnonymous      bool    `json:"isAnonymous"`
}

type ExperienceService struct {
	db            *gorm.DB
	log           *logger.Logger
	rewards       *RewardService
	notifications *NotificationService
	trending      *TrendingService
	runner        Runner
}

func NewExperienceService(db *gorm.DB, log *logger.Logger, rewards *RewardService, notifications *NotificationService, trending *TrendingService, runner Runner) *ExperienceService {
	return &ExperienceService{
		db:            db,
		log:           log,
		rewards:       rewards,
		notifications: notifications,
		trending:      trending,
		runner:        runner,
	}
}

func (in *CreateExperienceInput) toModel(authorID string) (*models.Experience, error) {
	company := strings.TrimSpace(in.Company)
	key := utils.NormalizeCompany(company)
	if key == "" {
		return nil, apperror.ValidationFailed("company", "Company is required")
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		return nil, apperror.ValidationFailed("role", "Role is required")
	}
	if in.SalaryLPA < 0 || in.SalaryLPA > 200 {
		return nil, apperror.ValidationFailed("salaryLPA", "Salary must be between 0 and 200")
	}
	difficulty := strings.ToUpper(strings.TrimSpace(in.Difficulty))
	switch difficulty {
	case "", models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return nil, apperror.ValidationFailed("difficulty", "Difficulty must be EASY, MEDIUM or HARD")
	}

	return &models.Experience{
		AuthorID:         &authorID,
		Company:          company,
		CompanyKey:       key,
		Role:             role,
		OAPlatform:       strings.TrimSpace(in.OAPlatform),
		Difficulty:       difficulty,
		QuestionsCount:   in.QuestionsCount,
		Topics:           utils.ParseTags(in.Topics),
		QuestionPatterns: utils.ParseTags(in.QuestionPatterns),
		ExperienceText:   utils.NormalizeMarkdown(in.ExperienceText),
		Rating:           in.Rating,
		Year:             in.Year,
		SalaryLPA:        in.SalaryLPA,
		IsAnonymous:      in.IsAnonymous,
	}, nil
}

// Create 发布面经：写入面经和标签行，奖励 10 积分，通知关注该公司的用户
func (s *ExperienceService) Create(ctx context.Context, authorID string, in CreateExperienceInput) (*ExperienceView, error) {
	exp, err := in.toModel(authorID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exp).Error; err != nil {
			return err
		}
		tags := make([]models.ExperienceTag, 0, len(exp.Topics)+len(exp.QuestionPatterns))
		for _, t := range exp.Topics {
			tags = append(tags, models.ExperienceTag{ExperienceID: exp.ID, Kind: models.TagKindTopic, Value: t})
		}
		for _, p := range exp.QuestionPatterns {
			tags = append(tags, models.ExperienceTag{ExperienceID: exp.ID, Kind: models.TagKindPattern, Value: p})
		}
		if len(tags) == 0 {
			return nil
		}
		return tx.Create(&tags).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create experience: %w", err)
	}

	s.log.Info("Experience created", "experience_id", exp.ID, "company", exp.CompanyKey)
	s.rewards.AddPointsAsync(authorID, PointsPostExperience, ActionPostExperience)
	s.notifyFollowers(*exp)
	s.trending.ScheduleUpdate(exp.ID)

	return s.Get(ctx, exp.ID, authorID)
}

// notifyFollowers 给关注该公司且开启了 newCompanyOA 的用户发送 NEW_POST
func (s *ExperienceService) notifyFollowers(exp models.Experience) {
	s.runner.Go("notify followers", func(ctx context.Context) error {
		var followers []models.User
		err := s.db.WithContext(ctx).
			Where("id IN (?)", s.db.Model(&models.CompanyFollow{}).Select("user_id").Where("company_key = ?", exp.CompanyKey)).
			Where("id <> ?", *exp.AuthorID).
			Find(&followers).Error
		if err != nil {
			return err
		}

		for _, u := range followers {
			if !u.NotificationPrefs.Data().NewCompanyOA {
				continue
			}
			if err := s.notifications.Notify(ctx, models.Notification{
				UserID:       u.ID,
				Title:        "New " + exp.Company + " OA",
				Body:         exp.Role + " experience just posted",
				Type:         models.NotificationTypeNewPost,
				ExperienceID: &exp.ID,
				URL:          experienceURL(exp.ID),
			}); err != nil {
				s.log.Warn("Failed to notify follower", "user_id", u.ID, "error", err)
			}
		}
		return nil
	})
}

// Get 返回单篇面经，附带渲染后的 HTML
func (s *ExperienceService) Get(ctx context.Context, id, viewerID string) (*ExperienceView, error) {
	var exp models.Experience
	if err := s.db.WithContext(ctx).Preload("Author").First(&exp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Experience")
		}
		return nil, err
	}

	views, err := decorate(ctx, s.db, viewerID, []models.Experience{exp})
	if err != nil {
		return nil, err
	}
	view := views[0]
	view.ExperienceHTML = utils.RenderMarkdown(exp.ExperienceText)
	return &view, nil
}

func (s *ExperienceService) ListMine(ctx context.Context, userID string) ([]ExperienceView, error) {
	var rows []models.Experience
	err := s.db.WithContext(ctx).Preload("Author").
		Where("author_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decorate(ctx, s.db, userID, rows)
}

// ListBookmarked 用户收藏的面经，按收藏时间倒序
func (s *ExperienceService) ListBookmarked(ctx context.Context, userID string) ([]ExperienceView, error) {
	var rows []models.Experience
	err := s.db.WithContext(ctx).Preload("Author").
		Joins("JOIN experience_bookmarks ON experience_bookmarks.experience_id = experiences.id").
		Where("experience_bookmarks.user_id = ?", userID).
		Order("experience_bookmarks.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decorate(ctx, s.db, userID, rows)
}

// CountByAuthor 用户发布过的面经数，未发布过的用户只能预览 feed
func (s *ExperienceService) CountByAuthor(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Experience{}).Where("author_id = ?", userID).Count(&n).Error
	return n, err
}

// Report 举报是幂等的集合添加，重复举报不重复计数
func (s *ExperienceService) Report(ctx context.Context, id, userID string) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ExperienceReport{ExperienceID: id, UserID: userID})
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			return nil
		}
		return adjustCounter(tx, &models.Experience{}, id, "report_count", 1)
	})
}

// ListReported 被举报的面经，举报多的在前
func (s *ExperienceService) ListReported(ctx context.Context) ([]ExperienceView, error) {
	var rows []models.Experience
	err := s.db.WithContext(ctx).Preload("Author").
		Where("report_count > 0").
		Order("report_count DESC").Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decorate(ctx, s.db, "", rows)
}

// DismissReports 管理员驳回举报，清空举报记录和计数
func (s *ExperienceService) DismissReports(ctx context.Context, id string) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("experience_id = ?", id).Delete(&models.ExperienceReport{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Experience{}).Where("id = ?", id).UpdateColumn("report_count", 0).Error
	})
}

// Delete 管理员删除面经及其所有关联数据
func (s *ExperienceService) Delete(ctx context.Context, id string) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("experience_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentDislike{}).Error; err != nil {
			return err
		}
		for _, model := range []any{
			&models.Comment{},
			&models.ExperienceTag{},
			&models.ExperienceUpvote{},
			&models.ExperienceBookmark{},
			&models.ExperienceUse{},
			&models.ExperienceReport{},
		} {
			if err := tx.Where("experience_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Experience{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("delete experience: %w", err)
	}
	s.log.Info("Experience deleted", "experience_id", id)
	return nil
}

func (s *ExperienceService) exists(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Experience{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("Experience")
	}
	return nil
}
