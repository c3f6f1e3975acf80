package services

import (
	"context"

	"oaforum/internal/models"

	"gorm.io/gorm"
)

// AuthorView 面经和评论中公开的作者信息
type AuthorView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Points   int    `json:"points"`
}

func newAuthorView(u *models.User, anonymous bool) *AuthorView {
	if u == nil || anonymous {
		return nil
	}
	return &AuthorView{ID: u.ID, Username: u.Username(), Role: u.Role, Points: u.Points}
}

// ExperienceView 面经加上相对当前用户的派生字段，每次请求重新计算，不落库
type ExperienceView struct {
	models.Experience
	Author         *AuthorView `json:"author"`
	IsUpvotedByMe  bool        `json:"isUpvotedByMe"`
	IsBookmarked   bool        `json:"isBookmarked"`
	IsUsedByMe     bool        `json:"isUsedByMe"`
	SavedCount     int64       `json:"savedCount"`
	UsedCount      int64       `json:"usedCount"`
	HelpedCount    int64       `json:"helpedCount"`
	ExperienceHTML string      `json:"experienceHtml,omitempty"`
}

type idCount struct {
	ExperienceID string
	N            int64
}

// decorate 批量计算当前页的成员标记和集合大小。viewerID 为空时所有标记为 false
func decorate(ctx context.Context, db *gorm.DB, viewerID string, exps []models.Experience) ([]ExperienceView, error) {
	views := make([]ExperienceView, len(exps))
	if len(exps) == 0 {
		return views, nil
	}

	ids := make([]string, len(exps))
	for i := range exps {
		ids[i] = exps[i].ID
	}

	saved, err := countMembers(ctx, db, &models.ExperienceBookmark{}, ids)
	if err != nil {
		return nil, err
	}
	used, err := countMembers(ctx, db, &models.ExperienceUse{}, ids)
	if err != nil {
		return nil, err
	}

	var upvotedByMe, bookmarkedByMe, usedByMe map[string]bool
	if viewerID != "" {
		if upvotedByMe, err = viewerMembership(ctx, db, &models.ExperienceUpvote{}, viewerID, ids); err != nil {
			return nil, err
		}
		if bookmarkedByMe, err = viewerMembership(ctx, db, &models.ExperienceBookmark{}, viewerID, ids); err != nil {
			return nil, err
		}
		if usedByMe, err = viewerMembership(ctx, db, &models.ExperienceUse{}, viewerID, ids); err != nil {
			return nil, err
		}
	}

	for i := range exps {
		e := exps[i]
		views[i] = ExperienceView{
			Experience:    e,
			Author:        newAuthorView(e.Author, e.IsAnonymous),
			IsUpvotedByMe: upvotedByMe[e.ID],
			IsBookmarked:  bookmarkedByMe[e.ID],
			IsUsedByMe:    usedByMe[e.ID],
			SavedCount:    saved[e.ID],
			UsedCount:     used[e.ID],
			HelpedCount:   saved[e.ID] + used[e.ID],
		}
	}
	return views, nil
}

func countMembers(ctx context.Context, db *gorm.DB, model any, ids []string) (map[string]int64, error) {
	var rows []idCount
	err := db.WithContext(ctx).Model(model).
		Select("experience_id, COUNT(*) AS n").
		Where("experience_id IN ?", ids).
		Group("experience_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ExperienceID] = r.N
	}
	return counts, nil
}

func viewerMembership(ctx context.Context, db *gorm.DB, model any, viewerID string, ids []string) (map[string]bool, error) {
	var hits []string
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND experience_id IN ?", viewerID, ids).
		Pluck("experience_id", &hits).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(hits))
	for _, id := range hits {
		set[id] = true
	}
	return set, nil
}
