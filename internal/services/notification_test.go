package services

import (
	"context"
	"testing"

	"oaforum/internal/apperror"
	"oaforum/internal/config"
	"oaforum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "user@example.com")
	other := createUser(t, env.db, "other@example.com")

	for _, title := range []string{"one", "two", "three"} {
		require.NoError(t, env.notifications.Notify(ctx, models.Notification{
			UserID: user.ID, Title: title, Type: models.NotificationTypeComment,
		}))
	}
	require.NoError(t, env.notifications.Notify(ctx, models.Notification{UserID: "", Title: "dropped"}))

	list, unread, err := env.notifications.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.EqualValues(t, 3, unread)

	require.NoError(t, env.notifications.MarkRead(ctx, user.ID, list[0].ID))
	assert.ErrorIs(t, env.notifications.MarkRead(ctx, other.ID, list[1].ID), apperror.ErrNotFound)
	_, unread, err = env.notifications.List(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	require.NoError(t, env.notifications.MarkAllRead(ctx, user.ID))
	_, unread, err = env.notifications.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	assert.ErrorIs(t, env.notifications.Delete(ctx, other.ID, list[0].ID), apperror.ErrNotFound)
	require.NoError(t, env.notifications.Delete(ctx, user.ID, list[0].ID))

	n, err := env.notifications.DeleteAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPushSubscribeUpserts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "user@example.com")
	push := NewPushService(env.db, env.log, config.PushConfig{})

	in := SubscriptionInput{Endpoint: "https://push.example.com/a"}
	in.Keys.P256dh, in.Keys.Auth = "p1", "a1"
	require.NoError(t, push.Subscribe(ctx, user.ID, in))

	in.Endpoint = "https://push.example.com/b"
	require.NoError(t, push.Subscribe(ctx, user.ID, in))

	var subs []models.PushSubscription
	require.NoError(t, env.db.Where("user_id = ?", user.ID).Find(&subs).Error)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example.com/b", subs[0].Endpoint)
	assert.True(t, reloadUser(t, env.db, user.ID).PushEnabled)

	// 未配置 VAPID 时发送直接跳过
	assert.NoError(t, push.Send(ctx, user.ID, []byte(`{}`)))

	require.NoError(t, push.Unsubscribe(ctx, user.ID))
	assert.False(t, reloadUser(t, env.db, user.ID).PushEnabled)
}
