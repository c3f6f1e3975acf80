package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCommentAndReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	commenter := createUser(t, env.db, "commenter@example.com")
	exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())

	top, err := env.comments.Add(ctx, exp.ID, commenter.ID, AddCommentInput{Text: "  Was the DP part hard?  "})
	require.NoError(t, err)
	assert.Equal(t, "Was the DP part hard?", top.Text)
	assert.EqualValues(t, 1, reloadExperience(t, env.db, exp.ID).CommentCount)
	assert.Equal(t, PointsComment, reloadUser(t, env.db, commenter.ID).Points)

	reply, err := env.comments.Add(ctx, exp.ID, author.ID, AddCommentInput{Text: "Medium", ParentComment: &top.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentCommentID)

	// 回复不增加面经的评论数
	assert.EqualValues(t, 1, reloadExperience(t, env.db, exp.ID).CommentCount)
	var parent models.Comment
	require.NoError(t, env.db.First(&parent, "id = ?", top.ID).Error)
	assert.EqualValues(t, 1, parent.ReplyCount)

	var types []models.NotificationType
	require.NoError(t, env.db.Model(&models.Notification{}).Order("created_at, id").Pluck("type", &types).Error)
	assert.Equal(t, []models.NotificationType{models.NotificationTypeComment, models.NotificationTypeReply}, types)

	_, err = env.comments.Add(ctx, exp.ID, commenter.ID, AddCommentInput{Text: "nested", ParentComment: &reply.ID})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.EqualError(t, err, "Replies to replies are not allowed")
}

func TestAddCommentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "user@example.com")
	exp := seedExperience(t, env.db, user.ID, "ACME", time.Now().UTC())
	missing := "nope"

	tests := []struct {
		name    string
		expID   string
		in      AddCommentInput
		wantErr error
	}{
		{"blank", exp.ID, AddCommentInput{Text: "   "}, apperror.ErrValidation},
		{"too long", exp.ID, AddCommentInput{Text: strings.Repeat("a", 1001)}, apperror.ErrValidation},
		{"unknown experience", "missing", AddCommentInput{Text: "hi"}, apperror.ErrNotFound},
		{"unknown parent", exp.ID, AddCommentInput{Text: "hi", ParentComment: &missing}, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.comments.Add(ctx, tt.expID, user.ID, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeleteTopLevelCommentCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	other := createUser(t, env.db, "other@example.com")
	exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())

	top, err := env.comments.Add(ctx, exp.ID, author.ID, AddCommentInput{Text: "top"})
	require.NoError(t, err)
	sibling, err := env.comments.Add(ctx, exp.ID, other.ID, AddCommentInput{Text: "sibling"})
	require.NoError(t, err)
	for _, text := range []string{"r1", "r2"} {
		r, err := env.comments.Add(ctx, exp.ID, other.ID, AddCommentInput{Text: text, ParentComment: &top.ID})
		require.NoError(t, err)
		_, err = env.comments.ToggleLike(ctx, r.ID, author.ID)
		require.NoError(t, err)
	}
	require.EqualValues(t, 2, reloadExperience(t, env.db, exp.ID).CommentCount)

	_, err = env.comments.Delete(ctx, top.ID, Actor{ID: other.ID, Role: models.RoleUser})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	res, err := env.comments.Delete(ctx, top.ID, Actor{ID: author.ID, Role: models.RoleUser})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.EqualValues(t, 2, res.RepliesDeleted)
	assert.EqualValues(t, 1, reloadExperience(t, env.db, exp.ID).CommentCount)

	var remaining, likes int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("experience_id = ?", exp.ID).Count(&remaining).Error)
	require.NoError(t, env.db.Model(&models.CommentLike{}).Count(&likes).Error)
	assert.EqualValues(t, 1, remaining)
	assert.EqualValues(t, 0, likes)

	// 管理员可以删除他人的评论
	_, err = env.comments.Delete(ctx, sibling.ID, Actor{ID: author.ID, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 0, reloadExperience(t, env.db, exp.ID).CommentCount)
}

func TestDeleteReplyDecrementsParentOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "user@example.com")
	exp := seedExperience(t, env.db, user.ID, "ACME", time.Now().UTC())

	top, err := env.comments.Add(ctx, exp.ID, user.ID, AddCommentInput{Text: "top"})
	require.NoError(t, err)
	reply, err := env.comments.Add(ctx, exp.ID, user.ID, AddCommentInput{Text: "reply", ParentComment: &top.ID})
	require.NoError(t, err)

	res, err := env.comments.Delete(ctx, reply.ID, Actor{ID: user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.RepliesDeleted)

	var parent models.Comment
	require.NoError(t, env.db.First(&parent, "id = ?", top.ID).Error)
	assert.EqualValues(t, 0, parent.ReplyCount)
	assert.EqualValues(t, 1, reloadExperience(t, env.db, exp.ID).CommentCount)
}

func TestCommentLikeDislikeExclusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "user@example.com")
	exp := seedExperience(t, env.db, user.ID, "ACME", time.Now().UTC())
	c, err := env.comments.Add(ctx, exp.ID, user.ID, AddCommentInput{Text: "hello"})
	require.NoError(t, err)

	r, err := env.comments.ToggleDislike(ctx, c.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, r.Active)
	assert.EqualValues(t, 1, r.DislikeCount)

	r, err = env.comments.ToggleLike(ctx, c.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, r.Active)
	assert.EqualValues(t, 1, r.LikeCount)
	assert.EqualValues(t, 0, r.DislikeCount)

	r, err = env.comments.ToggleLike(ctx, c.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, r.Active)
	assert.EqualValues(t, 0, r.LikeCount)

	_, err = env.comments.ToggleLike(ctx, "missing", user.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListCommentsThreaded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	viewer := createUser(t, env.db, "viewer@example.com")
	exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())

	first, err := env.comments.Add(ctx, exp.ID, author.ID, AddCommentInput{Text: "first"})
	require.NoError(t, err)
	_, err = env.comments.Add(ctx, exp.ID, viewer.ID, AddCommentInput{Text: "second", IsAnonymous: true})
	require.NoError(t, err)
	_, err = env.comments.Add(ctx, exp.ID, viewer.ID, AddCommentInput{Text: "reply", ParentComment: &first.ID})
	require.NoError(t, err)
	_, err = env.comments.ToggleLike(ctx, first.ID, viewer.ID)
	require.NoError(t, err)

	list, err := env.comments.List(ctx, exp.ID, viewer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Text)
	assert.True(t, list[0].LikedByMe)
	require.Len(t, list[0].Replies, 1)
	assert.Equal(t, "reply", list[0].Replies[0].Text)
	assert.Nil(t, list[1].Author, "anonymous author hidden")
	assert.Empty(t, list[1].Replies)
}
