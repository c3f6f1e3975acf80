package services

import (
	"context"
	"fmt"
	"strings"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/utils"

	"gorm.io/gorm"
)

const coachPrompt = "You are an expert interview coach."

type DescriptionInput struct {
	Role             string `json:"role" binding:"required"`
	Platform         string `json:"platform" binding:"required"`
	Difficulty       string `json:"difficulty" binding:"required"`
	Topics           string `json:"topics" binding:"required"`
	QuestionPatterns string `json:"questionPatterns"`
}

type SummarizeInput struct {
	Text             string `json:"text" binding:"required,max=20000"`
	Topics           string `json:"topics"`
	Difficulty       string `json:"difficulty"`
	QuestionPatterns string `json:"questionPatterns"`
}

type CompareSummary struct {
	Comparison *CompareResult `json:"comparison"`
	Summary    string         `json:"summary"`
}

type AIService struct {
	db       *gorm.DB
	log      *logger.Logger
	llm      *LLMService
	tips     *TipCache
	insights *InsightsService
}

func NewAIService(db *gorm.DB, log *logger.Logger, llm *LLMService, tips *TipCache, insights *InsightsService) *AIService {
	return &AIService{db: db, log: log, llm: llm, tips: tips, insights: insights}
}

func (s *AIService) requireLLM() error {
	if !s.llm.Enabled() {
		return apperror.Unavailable("AI service is not configured")
	}
	return nil
}

// GenerateDescription 根据表单字段生成一篇简短的面经草稿
func (s *AIService) GenerateDescription(ctx context.Context, in DescriptionInput) (string, error) {
	if err := s.requireLLM(); err != nil {
		return "", err
	}
	topics := utils.ParseTags(in.Topics)
	if strings.TrimSpace(in.Role) == "" || strings.TrimSpace(in.Platform) == "" || len(topics) == 0 {
		return "", apperror.BadRequest("Missing fields")
	}
	patterns := utils.ParseTags(in.QuestionPatterns)

	var b strings.Builder
	b.WriteString("You are generating a SHORT, CLEAN OA / interview experience.\n")
	b.WriteString("Keep it concise, use bullet points, focus on topics and question patterns.\n\n")
	fmt.Fprintf(&b, "Role: %s\nPlatform: %s\nDifficulty: %s\n", in.Role, in.Platform, strings.ToUpper(in.Difficulty))
	fmt.Fprintf(&b, "Topics: %s\nQuestion Patterns: %s\n\n", strings.Join(topics, ", "), joinOr(patterns, ", ", "Not specified"))
	b.WriteString("Format strictly with these markdown sections:\n")
	b.WriteString("## Overview\n## Topics Covered\n## Question Patterns\n## Question Level\n## Example Question\n## Sample C++ Snippet\n## Tips\n")

	return s.llm.Chat(ctx, []ChatMessage{
		{Role: "system", Content: coachPrompt},
		{Role: "user", Content: b.String()},
	}, 0.5, 600)
}

// Summarize 提炼面经中的题型
func (s *AIService) Summarize(ctx context.Context, in SummarizeInput) (string, error) {
	if err := s.requireLLM(); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Text) == "" {
		return "", apperror.ValidationFailed("text", "Text is required")
	}

	var b strings.Builder
	b.WriteString("Summarize the following OA / interview experience. VERY SHORT, pattern focused, no filler.\n\n")
	fmt.Fprintf(&b, "## Topics\n- %s\n\n", joinOr(utils.ParseTags(in.Topics), "\n- ", "N/A"))
	fmt.Fprintf(&b, "## Question Patterns\n- %s\n\n", joinOr(utils.ParseTags(in.QuestionPatterns), "\n- ", "General DSA"))
	fmt.Fprintf(&b, "## Question Level\n- %s\n\n", strings.ToUpper(in.Difficulty))
	b.WriteString("## Example Question\n## Sample Code (C++)\n\nText:\n")
	b.WriteString(in.Text)

	return s.llm.Chat(ctx, []ChatMessage{{Role: "user", Content: b.String()}}, 0.3, 400)
}

// Tip 当前题型趋势的一句备考建议，面经总数不变时复用缓存
func (s *AIService) Tip(ctx context.Context) (*TipEntry, error) {
	if err := s.requireLLM(); err != nil {
		return nil, err
	}

	var basis int64
	if err := s.db.WithContext(ctx).Model(&models.Experience{}).Count(&basis).Error; err != nil {
		return nil, err
	}

	entry, stale, err := s.tips.Get(ctx, basis, s.computeTip)
	if err != nil {
		if !stale {
			return nil, err
		}
		s.log.Warn("Serving stale AI tip", "error", err)
	}
	return &entry, nil
}

func (s *AIService) computeTip(ctx context.Context) (string, error) {
	insights, err := s.insights.Sidebar(ctx)
	if err != nil {
		return "", err
	}
	topics, patterns := names(insights.TopTopics), patternNames(insights.TopPatterns)
	prompt := fmt.Sprintf("Most reported OA topics: %s.\nMost reported question patterns: %s.\n"+
		"Give ONE practical preparation tip in at most two sentences.",
		joinOr(topics, ", ", "none yet"), joinOr(patterns, ", ", "none yet"))
	return s.llm.Chat(ctx, []ChatMessage{
		{Role: "system", Content: coachPrompt},
		{Role: "user", Content: prompt},
	}, 0.7, 120)
}

// CompareSummary 对比两家公司的统计并让模型给出结论
func (s *AIService) CompareSummary(ctx context.Context, companyA, companyB string) (*CompareSummary, error) {
	if err := s.requireLLM(); err != nil {
		return nil, err
	}
	cmp, err := s.insights.Compare(ctx, companyA, companyB)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Compare the OA processes of two companies in 4 short bullet points.\n\n")
	for _, st := range []CompanyStats{cmp.CompanyA, cmp.CompanyB} {
		fmt.Fprintf(&b, "%s: %d experiences, average salary %.1f LPA, difficulty EASY=%d MEDIUM=%d HARD=%d, topics %s, patterns %s\n",
			st.Company, st.Total, st.AvgSalary,
			st.Difficulty[models.DifficultyEasy], st.Difficulty[models.DifficultyMedium], st.Difficulty[models.DifficultyHard],
			joinOr(names(st.TopTopics), ", ", "n/a"), joinOr(patternNames(st.TopPatterns), ", ", "n/a"))
	}

	summary, err := s.llm.Chat(ctx, []ChatMessage{
		{Role: "system", Content: coachPrompt},
		{Role: "user", Content: b.String()},
	}, 0.4, 400)
	if err != nil {
		return nil, err
	}
	return &CompareSummary{Comparison: cmp, Summary: summary}, nil
}

func joinOr(items []string, sep, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, sep)
}

func names(items []NameCount) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func patternNames(items []PatternCount) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
