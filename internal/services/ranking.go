package services

import (
	"context"
	"sync"
	"time"

	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/utils"

	"gorm.io/gorm"
)

const (
	trendingQueueSize   = 1000
	trendingBatchSize   = 50
	trendingBatchWindow = 500 * time.Millisecond
	trendingRefresh     = time.Hour
	trendingRecentDays  = 7
	trendingTopKeep     = 30
)

// TrendingService 异步重算面经热度 hot_score。
// 互动后调用 ScheduleUpdate 入队，同一面经在队列中只保留一份
type TrendingService struct {
	db      *gorm.DB
	log     *logger.Logger
	queue   chan string
	pending map[string]bool
	mu      sync.Mutex
	now     func() time.Time
}

func NewTrendingService(db *gorm.DB, log *logger.Logger) *TrendingService {
	return &TrendingService{
		db:      db,
		log:     log,
		queue:   make(chan string, trendingQueueSize),
		pending: make(map[string]bool),
		now:     time.Now,
	}
}

// ScheduleUpdate 将面经加入更新队列，不阻塞调用方
func (s *TrendingService) ScheduleUpdate(experienceID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.pending[experienceID] {
		s.mu.Unlock()
		return
	}
	s.pending[experienceID] = true
	s.mu.Unlock()

	select {
	case s.queue <- experienceID:
	default:
		s.mu.Lock()
		delete(s.pending, experienceID)
		s.mu.Unlock()
		s.log.Warn("Trending queue full, skipping update", "experience_id", experienceID)
	}
}

// Start 启动后台 worker 和定时刷新，ctx 取消后退出
func (s *TrendingService) Start(ctx context.Context) {
	go s.worker(ctx)
	go s.refreshLoop(ctx)
}

func (s *TrendingService) worker(ctx context.Context) {
	batch := make([]string, 0, trendingBatchSize)
	ticker := time.NewTicker(trendingBatchWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= trendingBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *TrendingService) processBatch(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.UpdateScore(ctx, id); err != nil {
			s.log.Warn("Failed to update hot score", "experience_id", id, "error", err)
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
}

// UpdateScore 根据反规范化计数同步重算单篇面经的热度
func (s *TrendingService) UpdateScore(ctx context.Context, experienceID string) error {
	var exp models.Experience
	err := s.db.WithContext(ctx).
		Select("id", "created_at", "upvote_count", "bookmark_count", "used_count", "comment_count").
		First(&exp, "id = ?", experienceID).Error
	if err != nil {
		return err
	}

	score := utils.HotScore(exp.CreatedAt, s.now(), exp.UpvoteCount, exp.BookmarkCount, exp.UsedCount, exp.CommentCount)
	return s.db.WithContext(ctx).Model(&models.Experience{}).
		Where("id = ?", experienceID).
		UpdateColumn("hot_score", score).Error
}

func (s *TrendingService) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(trendingRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.RefreshHot(ctx)
			s.log.Info("Refreshed hot scores", "count", n)
		}
	}
}

// RefreshHot 时间衰减需要定期重算：最近 7 天的面经和当前最热的 30 篇（去重）
func (s *TrendingService) RefreshHot(ctx context.Context) int {
	processed := make(map[string]bool)
	since := s.now().AddDate(0, 0, -trendingRecentDays)

	var recent []string
	if err := s.db.WithContext(ctx).Model(&models.Experience{}).Where("created_at >= ?", since).Pluck("id", &recent).Error; err != nil {
		s.log.Warn("Failed to load recent experiences", "error", err)
	}
	var top []string
	if err := s.db.WithContext(ctx).Model(&models.Experience{}).Order("hot_score DESC").Limit(trendingTopKeep).Pluck("id", &top).Error; err != nil {
		s.log.Warn("Failed to load top experiences", "error", err)
	}

	for _, id := range append(recent, top...) {
		if processed[id] {
			continue
		}
		processed[id] = true
		if err := s.UpdateScore(ctx, id); err != nil {
			s.log.Warn("Failed to update hot score", "experience_id", id, "error", err)
		}
	}
	return len(processed)
}
