package services

import (
	"testing"
	"time"

	"oaforum/internal/db"
	"oaforum/internal/logger"
	"oaforum/internal/models"

	"github.com/rs/xid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type testEnv struct {
	db            *gorm.DB
	log           *logger.Logger
	runner        Runner
	rewards       *RewardService
	notifications *NotificationService
	trending      *TrendingService
	engagement    *EngagementService
	feed          *FeedService
	experiences   *ExperienceService
	comments      *CommentService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open("sqlite", "file:"+xid.New().String()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// newTestEnv 副作用同步执行，便于断言积分和通知
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := newTestDB(t)
	log := logger.Nop()
	runner := InlineRunner{Log: log}

	e := &testEnv{db: gdb, log: log, runner: runner}
	e.rewards = NewRewardService(gdb, log, runner)
	e.notifications = NewNotificationService(gdb, log, nil, runner)
	e.trending = NewTrendingService(gdb, log)
	e.engagement = NewEngagementService(gdb, log, e.rewards, e.notifications, e.trending)
	e.feed = NewFeedService(gdb, log)
	e.experiences = NewExperienceService(gdb, log, e.rewards, e.notifications, e.trending, runner)
	e.comments = NewCommentService(gdb, log, e.rewards, e.notifications, e.trending)
	return e
}

func createUser(t *testing.T, gdb *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		Email:             email,
		IsVerified:        true,
		Role:              models.RoleUser,
		NotificationPrefs: datatypes.NewJSONType(models.DefaultNotificationPrefs()),
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func seedExperience(t *testing.T, gdb *gorm.DB, authorID, company string, createdAt time.Time) *models.Experience {
	t.Helper()
	e := &models.Experience{
		AuthorID:   &authorID,
		Company:    company,
		CompanyKey: company,
		Role:       "SDE",
		Difficulty: models.DifficultyMedium,
		CreatedAt:  createdAt,
	}
	require.NoError(t, gdb.Create(e).Error)
	return e
}

func reloadUser(t *testing.T, gdb *gorm.DB, id string) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, gdb.First(&u, "id = ?", id).Error)
	return &u
}

func reloadExperience(t *testing.T, gdb *gorm.DB, id string) *models.Experience {
	t.Helper()
	var e models.Experience
	require.NoError(t, gdb.First(&e, "id = ?", id).Error)
	return &e
}
