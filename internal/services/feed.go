package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/utils"

	"gorm.io/gorm"
)

const (
	DefaultFeedLimit = 10
	MaxFeedLimit     = 50
	MaxFilterResults = 200
)

// Cursor 上一页最后一条的 (createdAt, id)，服务端不保存分页状态
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// EncodeCursor 序列化为不透明的 base64url 令牌
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeCursor(token string) (Cursor, error) {
	var c Cursor
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, apperror.BadRequest("Invalid cursor")
	}
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" || c.CreatedAt.IsZero() {
		return c, apperror.BadRequest("Invalid cursor")
	}
	return c, nil
}

type FeedPage struct {
	Data       []ExperienceView `json:"data"`
	HasMore    bool             `json:"hasMore"`
	NextCursor *string          `json:"nextCursor"`
	Locked     bool             `json:"locked"`
}

// FilterCriteria 筛选条件，空字段不参与过滤
type FilterCriteria struct {
	Company    string   `form:"company"`
	Role       string   `form:"role"`
	Topic      string   `form:"topic"`
	Pattern    string   `form:"pattern"`
	MinSalary  *float64 `form:"minSalary" binding:"omitempty,min=0,max=200"`
	MaxSalary  *float64 `form:"maxSalary" binding:"omitempty,min=0,max=200"`
	Difficulty string   `form:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD easy medium hard"`
	Platform   string   `form:"platform"`
}

type FeedService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedService(db *gorm.DB, log *logger.Logger) *FeedService {
	return &FeedService{db: db, log: log}
}

// ClampLimit 默认 10，最大 50
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultFeedLimit
	case limit > MaxFeedLimit:
		return MaxFeedLimit
	default:
		return limit
	}
}

// ListFeed 按 (created_at, id) 倒序返回一页面经。
// 多取一条判断 hasMore，nextCursor 取自实际返回的最后一条
func (s *FeedService) ListFeed(ctx context.Context, viewerID, cursorToken string, limit int) (*FeedPage, error) {
	limit = ClampLimit(limit)

	q := s.db.WithContext(ctx).Preload("Author")
	if cursorToken != "" {
		c, err := DecodeCursor(cursorToken)
		if err != nil {
			return nil, err
		}
		// created_at 不唯一，相同时间按 id 继续往后取
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Experience
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}

	page := &FeedPage{}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	if page.HasMore {
		last := rows[len(rows)-1]
		next := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}

	views, err := decorate(ctx, s.db, viewerID, rows)
	if err != nil {
		return nil, fmt.Errorf("decorate feed: %w", err)
	}
	page.Data = views
	return page, nil
}

// ListByFilter 不分页的筛选查询，结果最多 200 条
func (s *FeedService) ListByFilter(ctx context.Context, viewerID string, f FilterCriteria) ([]ExperienceView, error) {
	q := s.db.WithContext(ctx).Model(&models.Experience{}).Preload("Author")

	if key := utils.NormalizeCompany(f.Company); key != "" {
		q = q.Where("company_key = ?", key)
	}
	if role := strings.TrimSpace(f.Role); role != "" {
		q = q.Where("LOWER(role) LIKE ?", "%"+strings.ToLower(role)+"%")
	}
	for _, tag := range utils.ParseTags(f.Topic) {
		q = q.Where("id IN (?)", s.tagSubquery(models.TagKindTopic, tag))
	}
	for _, tag := range utils.ParseTags(f.Pattern) {
		q = q.Where("id IN (?)", s.tagSubquery(models.TagKindPattern, tag))
	}
	if f.MinSalary != nil {
		q = q.Where("salary_lpa >= ?", *f.MinSalary)
	}
	if f.MaxSalary != nil {
		q = q.Where("salary_lpa <= ?", *f.MaxSalary)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", strings.ToUpper(f.Difficulty))
	}
	if p := strings.TrimSpace(f.Platform); p != "" {
		q = q.Where("LOWER(oa_platform) = ?", strings.ToLower(p))
	}

	var rows []models.Experience
	if err := q.Order("created_at DESC").Order("id DESC").Limit(MaxFilterResults).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("filter experiences: %w", err)
	}
	return decorate(ctx, s.db, viewerID, rows)
}

// ListTrending 按热度排序
func (s *FeedService) ListTrending(ctx context.Context, viewerID string, limit int) ([]ExperienceView, error) {
	var rows []models.Experience
	err := s.db.WithContext(ctx).Preload("Author").
		Order("hot_score DESC").Order("created_at DESC").
		Limit(ClampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list trending: %w", err)
	}
	return decorate(ctx, s.db, viewerID, rows)
}

func (s *FeedService) tagSubquery(kind, value string) *gorm.DB {
	return s.db.Model(&models.ExperienceTag{}).
		Select("experience_id").
		Where("kind = ? AND value = ?", kind, value)
}
