package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleTwiceRestoresState(t *testing.T) {
	for _, kind := range []SetKind{SetUpvote, SetBookmark, SetUsed} {
		t.Run(string(kind), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			author := createUser(t, env.db, "author@example.com")
			user := createUser(t, env.db, "user@example.com")
			exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())

			on, err := env.engagement.Toggle(ctx, exp.ID, user.ID, kind)
			require.NoError(t, err)
			assert.True(t, on.Active)
			assert.EqualValues(t, 1, on.Count)

			off, err := env.engagement.Toggle(ctx, exp.ID, user.ID, kind)
			require.NoError(t, err)
			assert.False(t, off.Active)
			assert.EqualValues(t, 0, off.Count)
		})
	}
}

func TestToggleConcurrentUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())

	const n = 8
	users := make([]*models.User, n)
	for i := range users {
		users[i] = createUser(t, env.db, fmt.Sprintf("user%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := env.engagement.Toggle(ctx, exp.ID, userID, SetBookmark); err != nil {
				errs <- err
			}
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var members int64
	require.NoError(t, env.db.Model(&models.ExperienceBookmark{}).Where("experience_id = ?", exp.ID).Count(&members).Error)
	assert.EqualValues(t, n, members)
	assert.EqualValues(t, n, reloadExperience(t, env.db, exp.ID).BookmarkCount)
}

func TestUpvoteRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	voter := createUser(t, env.db, "voter@example.com")
	exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())

	_, err := env.engagement.Toggle(ctx, exp.ID, author.ID, SetUpvote)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	res, err := env.engagement.Toggle(ctx, exp.ID, voter.ID, SetUpvote)
	require.NoError(t, err)
	assert.True(t, res.Active)
	assert.Equal(t, PointsUpvoteReceived, reloadUser(t, env.db, author.ID).Points)

	var notes []models.Notification
	require.NoError(t, env.db.Where("user_id = ?", author.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationTypeLike, notes[0].Type)

	// 再次点赞即取消，积分同时撤回
	res, err = env.engagement.Toggle(ctx, exp.ID, voter.ID, SetUpvote)
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.EqualValues(t, 0, res.Count)
	assert.Equal(t, 0, reloadUser(t, env.db, author.ID).Points)

	var ledger []models.PointLog
	require.NoError(t, env.db.Where("user_id = ?", author.ID).Order("created_at, id").Find(&ledger).Error)
	require.Len(t, ledger, 2)
	assert.Equal(t, ActionUpvoteRevoked, ledger[1].Action)
}

func TestRepeatedUpvotesCollapseNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	voter := createUser(t, env.db, "voter@example.com")
	other := createUser(t, env.db, "other@example.com")
	exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())

	countLikes := func() int64 {
		var n int64
		require.NoError(t, env.db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", author.ID, models.NotificationTypeLike).
			Count(&n).Error)
		return n
	}

	// 同一用户反复点赞/取消只产生一条未读提醒
	for i := 0; i < 5; i++ {
		_, err := env.engagement.Toggle(ctx, exp.ID, voter.ID, SetUpvote)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, countLikes())

	_, err := env.engagement.Toggle(ctx, exp.ID, other.ID, SetUpvote)
	require.NoError(t, err)
	assert.EqualValues(t, 1, countLikes())

	// 读过之后的新点赞重新提醒
	require.NoError(t, env.notifications.MarkAllRead(ctx, author.ID))
	_, err = env.engagement.Toggle(ctx, exp.ID, other.ID, SetUpvote)
	require.NoError(t, err)
	_, err = env.engagement.Toggle(ctx, exp.ID, other.ID, SetUpvote)
	require.NoError(t, err)
	assert.EqualValues(t, 2, countLikes())
}

func TestToggleUnknownExperience(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env.db, "user@example.com")

	_, err := env.engagement.Toggle(context.Background(), "missing", user.ID, SetBookmark)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.engagement.Toggle(context.Background(), "missing", user.ID, SetKind("star"))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
