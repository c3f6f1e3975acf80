package services

import (
	"context"
	"testing"
	"time"

	"oaforum/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrendingUpdateScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	now := time.Now().UTC()

	quiet := seedExperience(t, env.db, author.ID, "amazon", now.Add(-time.Hour))
	busy := seedExperience(t, env.db, author.ID, "google", now.Add(-time.Hour))
	require.NoError(t, env.db.Model(busy).Updates(map[string]any{"upvote_count": 5, "comment_count": 3}).Error)

	require.NoError(t, env.trending.UpdateScore(ctx, quiet.ID))
	require.NoError(t, env.trending.UpdateScore(ctx, busy.ID))

	assert.Zero(t, reloadExperience(t, env.db, quiet.ID).HotScore)
	assert.Greater(t, reloadExperience(t, env.db, busy.ID).HotScore, 0.0)

	assert.Error(t, env.trending.UpdateScore(ctx, "missing"))
}

func TestTrendingRefreshHot(t *testing.T) {
	env := newTestEnv(t)
	author := createUser(t, env.db, "author@example.com")
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		exp := seedExperience(t, env.db, author.ID, "amazon", now.Add(-time.Duration(i)*time.Hour))
		require.NoError(t, env.db.Model(exp).Update("upvote_count", 2).Error)
	}
	seedExperience(t, env.db, author.ID, "old", now.AddDate(0, -2, 0))

	// 旧面经不在最近 7 天，但热度前 30 也会重算
	assert.Equal(t, 4, env.trending.RefreshHot(context.Background()))
}

func TestTrendingRefreshHotLogsStoreFailure(t *testing.T) {
	gdb := newTestDB(t)
	core, logs := observer.New(zap.WarnLevel)
	trending := NewTrendingService(gdb, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	assert.Equal(t, 0, trending.RefreshHot(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("Failed to load recent experiences").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to load top experiences").Len())
}

func TestScheduleUpdateDedupes(t *testing.T) {
	env := newTestEnv(t)
	env.trending.ScheduleUpdate("a")
	env.trending.ScheduleUpdate("a")
	env.trending.ScheduleUpdate("b")
	assert.Len(t, env.trending.queue, 2)

	var nilTrending *TrendingService
	nilTrending.ScheduleUpdate("a")
}
