package services

import (
	"context"
	"errors"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const leaderboardSize = 10

type LeaderboardEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// Unlock 积分解锁的资源
type Unlock struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	RequiredPoints int    `json:"requiredPoints"`
	Unlocked       bool   `json:"unlocked"`
	Link           string `json:"link,omitempty"`
}

var unlockCatalog = []Unlock{
	{Key: "company-insights", Title: "Company insights", RequiredPoints: 20, Link: "/unlocks/company-insights"},
	{Key: "pattern-sheets", Title: "Pattern cheat sheets", RequiredPoints: 50, Link: "/unlocks/pattern-sheets"},
	{Key: "verified-badge", Title: "Verified contributor badge", RequiredPoints: utils.VerifiedPoints},
	{Key: "mock-oa", Title: "Mock OA pack", RequiredPoints: 200, Link: "/unlocks/mock-oa"},
	{Key: "mentor-chat", Title: "Mentor chat access", RequiredPoints: 500, Link: "/unlocks/mentor-chat"},
}

type UnlocksView struct {
	Points  int      `json:"points"`
	Unlocks []Unlock `json:"unlocks"`
}

type CompanyTag struct {
	Company  string `json:"company"`
	Count    int64  `json:"count"`
	Verified bool   `json:"verified"`
}

type ProfileView struct {
	ID                string                    `json:"id"`
	Email             string                    `json:"email,omitempty"`
	Username          string                    `json:"username"`
	Role              string                    `json:"role,omitempty"`
	Points            int                       `json:"points"`
	Coins             *int                      `json:"coins,omitempty"`
	Level             string                    `json:"level"`
	PushEnabled       *bool                     `json:"pushEnabled,omitempty"`
	NotificationPrefs *models.NotificationPrefs `json:"notificationPrefs,omitempty"`
	ExperienceCount   int64                     `json:"experienceCount"`
	CompanyTags       []CompanyTag              `json:"companyTags"`
}

type PreferencesInput struct {
	PushEnabled       *bool                     `json:"pushEnabled"`
	NotificationPrefs *models.NotificationPrefs `json:"notificationPrefs"`
}

type UserService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserService(db *gorm.DB, log *logger.Logger) *UserService {
	return &UserService{db: db, log: log}
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("User")
		}
		return nil, err
	}
	return &user, nil
}

// Leaderboard 积分前 10 名
func (s *UserService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Select("id", "email", "points").
		Order("points DESC").Order("created_at ASC").
		Limit(leaderboardSize).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, len(users))
	for i := range users {
		entries[i] = LeaderboardEntry{ID: users[i].ID, Username: users[i].Username(), Points: users[i].Points}
	}
	return entries, nil
}

func (s *UserService) FollowCompany(ctx context.Context, userID, company string) ([]string, error) {
	key := utils.NormalizeCompany(company)
	if key == "" {
		return nil, apperror.ValidationFailed("company", "Company is required")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CompanyFollow{UserID: userID, CompanyKey: key}).Error
	if err != nil {
		return nil, err
	}
	return s.FollowedCompanies(ctx, userID)
}

func (s *UserService) UnfollowCompany(ctx context.Context, userID, company string) ([]string, error) {
	key := utils.NormalizeCompany(company)
	if key == "" {
		return nil, apperror.ValidationFailed("company", "Company is required")
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_key = ?", userID, key).
		Delete(&models.CompanyFollow{}).Error
	if err != nil {
		return nil, err
	}
	return s.FollowedCompanies(ctx, userID)
}

func (s *UserService) FollowedCompanies(ctx context.Context, userID string) ([]string, error) {
	keys := []string{}
	err := s.db.WithContext(ctx).Model(&models.CompanyFollow{}).
		Where("user_id = ?", userID).
		Order("company_key ASC").
		Pluck("company_key", &keys).Error
	return keys, err
}

func (s *UserService) Unlocks(ctx context.Context, userID string) (*UnlocksView, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocks := make([]Unlock, len(unlockCatalog))
	for i, u := range unlockCatalog {
		u.Unlocked = user.Points >= u.RequiredPoints
		if !u.Unlocked {
			u.Link = ""
		}
		unlocks[i] = u
	}
	return &UnlocksView{Points: user.Points, Unlocks: unlocks}, nil
}

// Profile 当前用户的完整资料
func (s *UserService) Profile(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	prefs := user.NotificationPrefs.Data()
	view.Email = user.Email
	view.Role = user.Role
	view.Coins = &user.Coins
	view.PushEnabled = &user.PushEnabled
	view.NotificationPrefs = &prefs
	return view, nil
}

// PublicProfile 不含邮箱和金币等私有字段
func (s *UserService) PublicProfile(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

func (s *UserService) profile(ctx context.Context, user *models.User) (*ProfileView, error) {
	// 匿名发布的面经不计入公开的公司标签
	var rows []struct {
		Company string
		Count   int64
	}
	err := s.db.WithContext(ctx).Model(&models.Experience{}).
		Select("MAX(company) AS company, COUNT(*) AS count").
		Where("author_id = ? AND is_anonymous = ?", user.ID, false).
		Group("company_key").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	verified := user.Points >= utils.VerifiedPoints
	view := &ProfileView{
		ID:          user.ID,
		Username:    user.Username(),
		Points:      user.Points,
		Level:       utils.GetUserLevel(user.Points),
		CompanyTags: make([]CompanyTag, 0, len(rows)),
	}
	for _, r := range rows {
		view.CompanyTags = append(view.CompanyTags, CompanyTag{Company: r.Company, Count: r.Count, Verified: verified})
		view.ExperienceCount += r.Count
	}
	return view, nil
}

func (s *UserService) UpdatePreferences(ctx context.Context, userID string, in PreferencesInput) (*ProfileView, error) {
	updates := map[string]any{}
	if in.PushEnabled != nil {
		updates["push_enabled"] = *in.PushEnabled
	}
	if in.NotificationPrefs != nil {
		updates["notification_prefs"] = datatypes.NewJSONType(*in.NotificationPrefs)
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, apperror.NotFound("User")
		}
	}
	return s.Profile(ctx, userID)
}
