package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	users := NewUserService(env.db, env.log)

	for i := 0; i < 12; i++ {
		u := createUser(t, env.db, fmt.Sprintf("user%02d@example.com", i))
		require.NoError(t, env.db.Model(u).Update("points", i*10).Error)
	}

	board, err := users.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board, leaderboardSize)
	assert.Equal(t, "user11", board[0].Username)
	assert.Equal(t, 110, board[0].Points)
	assert.Equal(t, "user02", board[9].Username)
}

func TestFollowCompanies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.db, env.log)
	user := createUser(t, env.db, "user@example.com")

	followed, err := users.FollowCompany(ctx, user.ID, "  Amazon ")
	require.NoError(t, err)
	assert.Equal(t, []string{"AMAZON"}, followed)

	followed, err = users.FollowCompany(ctx, user.ID, "AMAZON")
	require.NoError(t, err)
	assert.Equal(t, []string{"AMAZON"}, followed)

	followed, err = users.FollowCompany(ctx, user.ID, "Google")
	require.NoError(t, err)
	assert.Equal(t, []string{"AMAZON", "GOOGLE"}, followed)

	followed, err = users.UnfollowCompany(ctx, user.ID, "amazon")
	require.NoError(t, err)
	assert.Equal(t, []string{"GOOGLE"}, followed)

	_, err = users.FollowCompany(ctx, user.ID, "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUnlocks(t *testing.T) {
	env := newTestEnv(t)
	users := NewUserService(env.db, env.log)
	user := createUser(t, env.db, "user@example.com")
	require.NoError(t, env.db.Model(user).Update("points", 60).Error)

	view, err := users.Unlocks(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, view.Points)
	require.Len(t, view.Unlocks, len(unlockCatalog))
	assert.True(t, view.Unlocks[0].Unlocked)
	assert.True(t, view.Unlocks[1].Unlocked)
	assert.False(t, view.Unlocks[3].Unlocked)
	assert.Empty(t, view.Unlocks[3].Link)

	_, err = users.Unlocks(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.db, env.log)
	user := createUser(t, env.db, "jane@example.com")
	require.NoError(t, env.db.Model(user).Updates(map[string]any{"points": 150, "coins": 3}).Error)

	now := time.Now().UTC()
	seedExperience(t, env.db, user.ID, "amazon", now)
	seedExperience(t, env.db, user.ID, "amazon", now)
	anon := seedExperience(t, env.db, user.ID, "google", now)
	require.NoError(t, env.db.Model(anon).Update("is_anonymous", true).Error)

	public, err := users.PublicProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", public.Username)
	assert.Empty(t, public.Email)
	assert.Nil(t, public.Coins)
	assert.Equal(t, "Verified", public.Level)
	assert.EqualValues(t, 2, public.ExperienceCount)
	require.Len(t, public.CompanyTags, 1)
	assert.Equal(t, CompanyTag{Company: "amazon", Count: 2, Verified: true}, public.CompanyTags[0])

	private, err := users.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", private.Email)
	require.NotNil(t, private.Coins)
	assert.Equal(t, 3, *private.Coins)
	assert.True(t, private.NotificationPrefs.NewCompanyOA)
}

func TestUpdatePreferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.db, env.log)
	user := createUser(t, env.db, "user@example.com")

	enabled := true
	prefs := models.NotificationPrefs{NewCompanyOA: false, CommentReply: true, WeeklyDigest: true}
	view, err := users.UpdatePreferences(ctx, user.ID, PreferencesInput{PushEnabled: &enabled, NotificationPrefs: &prefs})
	require.NoError(t, err)
	assert.True(t, *view.PushEnabled)
	assert.Equal(t, prefs, *view.NotificationPrefs)

	stored := reloadUser(t, env.db, user.ID)
	assert.Equal(t, prefs, stored.NotificationPrefs.Data())

	_, err = users.UpdatePreferences(ctx, "missing", PreferencesInput{PushEnabled: &enabled})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
