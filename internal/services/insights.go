package services

import (
	"context"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/cache"
	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	sidebarCacheKey  = "insights:sidebar"
	sidebarCompanies = 5
	sidebarTags      = 6
	compareTagsLimit = 5
)

type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// PatternCount 题型及其出现次数对应的可信度
type PatternCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Level string `json:"level"`
}

type SidebarInsights struct {
	TrendingCompanies []NameCount    `json:"trendingCompanies"`
	TopTopics         []NameCount    `json:"topTopics"`
	TopPatterns       []PatternCount `json:"topPatterns"`
}

type CompanyStats struct {
	Company     string           `json:"company"`
	Key         string           `json:"key"`
	Total       int64            `json:"total"`
	AvgSalary   float64          `json:"avgSalary"`
	Difficulty  map[string]int64 `json:"difficulty"`
	TopTopics   []NameCount      `json:"topTopics"`
	TopPatterns []PatternCount   `json:"topPatterns"`
}

type CompareResult struct {
	CompanyA CompanyStats `json:"companyA"`
	CompanyB CompanyStats `json:"companyB"`
}

type InsightsService struct {
	db    *gorm.DB
	log   *logger.Logger
	store cache.Store
	ttl   time.Duration
}

func NewInsightsService(db *gorm.DB, log *logger.Logger, store cache.Store, ttl time.Duration) *InsightsService {
	return &InsightsService{db: db, log: log, store: store, ttl: ttl}
}

// Sidebar 侧边栏统计，结果在缓存中保留 ttl
func (s *InsightsService) Sidebar(ctx context.Context) (*SidebarInsights, error) {
	var cached SidebarInsights
	if ok, err := cache.GetJSON(ctx, s.store, sidebarCacheKey, &cached); err != nil {
		s.log.Warn("Insights cache read failed", "error", err)
	} else if ok {
		return &cached, nil
	}

	out := &SidebarInsights{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.TrendingCompanies, err = s.topCompanies(gctx, sidebarCompanies)
		return err
	})
	g.Go(func() error {
		var err error
		out.TopTopics, err = s.topTags(gctx, models.TagKindTopic, "", sidebarTags)
		return err
	})
	g.Go(func() error {
		patterns, err := s.topTags(gctx, models.TagKindPattern, "", sidebarTags)
		out.TopPatterns = withLevels(patterns)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.store, sidebarCacheKey, out, s.ttl); err != nil {
		s.log.Warn("Insights cache write failed", "error", err)
	}
	return out, nil
}

// Compare 并行统计两家公司的面经
func (s *InsightsService) Compare(ctx context.Context, companyA, companyB string) (*CompareResult, error) {
	keyA, keyB := utils.NormalizeCompany(companyA), utils.NormalizeCompany(companyB)
	if keyA == "" || keyB == "" {
		return nil, apperror.BadRequest("companyA and companyB are required")
	}

	result := &CompareResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.companyStats(gctx, keyA)
		if err == nil {
			result.CompanyA = *stats
		}
		return err
	})
	g.Go(func() error {
		stats, err := s.companyStats(gctx, keyB)
		if err == nil {
			result.CompanyB = *stats
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *InsightsService) companyStats(ctx context.Context, key string) (*CompanyStats, error) {
	stats := &CompanyStats{
		Company:    key,
		Key:        key,
		Difficulty: map[string]int64{models.DifficultyEasy: 0, models.DifficultyMedium: 0, models.DifficultyHard: 0},
	}

	var agg struct {
		Company   string
		Total     int64
		AvgSalary float64
	}
	err := s.db.WithContext(ctx).Model(&models.Experience{}).
		Select("COALESCE(MAX(company), '') AS company, COUNT(*) AS total, COALESCE(AVG(salary_lpa), 0) AS avg_salary").
		Where("company_key = ?", key).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	stats.Total = agg.Total
	stats.AvgSalary = agg.AvgSalary
	if agg.Company != "" {
		stats.Company = agg.Company
	}

	var byDifficulty []NameCount
	err = s.db.WithContext(ctx).Model(&models.Experience{}).
		Select("difficulty AS name, COUNT(*) AS count").
		Where("company_key = ? AND difficulty <> ''", key).
		Group("difficulty").
		Scan(&byDifficulty).Error
	if err != nil {
		return nil, err
	}
	for _, d := range byDifficulty {
		stats.Difficulty[d.Name] = d.Count
	}

	if stats.TopTopics, err = s.topTags(ctx, models.TagKindTopic, key, compareTagsLimit); err != nil {
		return nil, err
	}
	patterns, err := s.topTags(ctx, models.TagKindPattern, key, compareTagsLimit)
	if err != nil {
		return nil, err
	}
	stats.TopPatterns = withLevels(patterns)
	return stats, nil
}

func (s *InsightsService) topCompanies(ctx context.Context, limit int) ([]NameCount, error) {
	rows := []NameCount{}
	err := s.db.WithContext(ctx).Model(&models.Experience{}).
		Select("MAX(company) AS name, COUNT(*) AS count").
		Group("company_key").
		Order("count DESC").Order("name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// topTags 统计标签出现次数，companyKey 非空时只统计该公司
func (s *InsightsService) topTags(ctx context.Context, kind, companyKey string, limit int) ([]NameCount, error) {
	rows := []NameCount{}
	q := s.db.WithContext(ctx).Model(&models.ExperienceTag{}).
		Select("value AS name, COUNT(*) AS count").
		Where("kind = ?", kind)
	if companyKey != "" {
		q = q.Where("experience_id IN (?)",
			s.db.Model(&models.Experience{}).Select("id").Where("company_key = ?", companyKey))
	}
	err := q.Group("value").
		Order("count DESC").Order("name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func withLevels(tags []NameCount) []PatternCount {
	out := make([]PatternCount, len(tags))
	for i, t := range tags {
		out[i] = PatternCount{Name: t.Name, Count: t.Count, Level: utils.PatternLevel(int(t.Count))}
	}
	return out
}
