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
	"gorm.io/datatypes"
)

func TestCreateExperience(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	follower := createUser(t, env.db, "follower@example.com")
	muted := createUser(t, env.db, "muted@example.com")
	require.NoError(t, env.db.Model(muted).Update("notification_prefs",
		datatypes.NewJSONType(models.NotificationPrefs{NewCompanyOA: false})).Error)
	for _, u := range []*models.User{follower, muted, author} {
		require.NoError(t, env.db.Create(&models.CompanyFollow{UserID: u.ID, CompanyKey: "JPMORGAN"}).Error)
	}

	view, err := env.experiences.Create(ctx, author.ID, CreateExperienceInput{
		Company:          "J.P. Morgan",
		Role:             "Analyst",
		Difficulty:       "medium",
		Topics:           "dp, Graphs  dp",
		QuestionPatterns: "",
		ExperienceText:   "## Round 1\r\n\r\n\r\n\r\nTwo questions   \n",
		SalaryLPA:        18,
	})
	require.NoError(t, err)
	assert.Equal(t, "JPMORGAN", view.CompanyKey)
	assert.Equal(t, models.DifficultyMedium, view.Difficulty)
	assert.Equal(t, []string{"DP", "GRAPHS"}, []string(view.Topics))
	assert.Empty(t, view.QuestionPatterns)
	assert.Equal(t, "## Round 1\n\nTwo questions\n", view.ExperienceText)
	assert.Contains(t, view.ExperienceHTML, "<h2")

	assert.Equal(t, PointsPostExperience, reloadUser(t, env.db, author.ID).Points)

	var tags int64
	require.NoError(t, env.db.Model(&models.ExperienceTag{}).Where("experience_id = ?", view.ID).Count(&tags).Error)
	assert.EqualValues(t, 2, tags)

	var notified []string
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationTypeNewPost).
		Pluck("user_id", &notified).Error)
	assert.Equal(t, []string{follower.ID}, notified)
}

func TestCreateExperienceValidation(t *testing.T) {
	env := newTestEnv(t)
	author := createUser(t, env.db, "author@example.com")

	tests := []struct {
		name string
		in   CreateExperienceInput
	}{
		{"punctuation company", CreateExperienceInput{Company: "...", Role: "SDE"}},
		{"blank role", CreateExperienceInput{Company: "Acme", Role: "  "}},
		{"salary above range", CreateExperienceInput{Company: "Acme", Role: "SDE", SalaryLPA: 201}},
		{"unknown difficulty", CreateExperienceInput{Company: "Acme", Role: "SDE", Difficulty: "brutal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.experiences.Create(context.Background(), author.ID, tt.in)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestReportIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	reporter := createUser(t, env.db, "reporter@example.com")
	exp := seedExperience(t, env.db, author.ID, "ACME", time.Now().UTC())
	seedExperience(t, env.db, author.ID, "OTHER", time.Now().UTC())

	require.NoError(t, env.experiences.Report(ctx, exp.ID, reporter.ID))
	require.NoError(t, env.experiences.Report(ctx, exp.ID, reporter.ID))
	assert.EqualValues(t, 1, reloadExperience(t, env.db, exp.ID).ReportCount)

	reported, err := env.experiences.ListReported(ctx)
	require.NoError(t, err)
	require.Len(t, reported, 1)
	assert.Equal(t, exp.ID, reported[0].ID)

	assert.ErrorIs(t, env.experiences.Report(ctx, "missing", reporter.ID), apperror.ErrNotFound)

	require.NoError(t, env.experiences.DismissReports(ctx, exp.ID))
	assert.Zero(t, reloadExperience(t, env.db, exp.ID).ReportCount)
	reported, err = env.experiences.ListReported(ctx)
	require.NoError(t, err)
	assert.Empty(t, reported)

	// 驳回后可以再次举报
	require.NoError(t, env.experiences.Report(ctx, exp.ID, reporter.ID))
	assert.EqualValues(t, 1, reloadExperience(t, env.db, exp.ID).ReportCount)
}

func TestDeleteExperienceRemovesRelations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	user := createUser(t, env.db, "user@example.com")

	view, err := env.experiences.Create(ctx, author.ID, CreateExperienceInput{Company: "Acme", Role: "SDE", Topics: "dp"})
	require.NoError(t, err)
	_, err = env.engagement.Toggle(ctx, view.ID, user.ID, SetUpvote)
	require.NoError(t, err)
	c, err := env.comments.Add(ctx, view.ID, user.ID, AddCommentInput{Text: "nice"})
	require.NoError(t, err)
	_, err = env.comments.ToggleLike(ctx, c.ID, author.ID)
	require.NoError(t, err)

	require.NoError(t, env.experiences.Delete(ctx, view.ID))

	for _, model := range []any{
		&models.Experience{}, &models.ExperienceTag{}, &models.ExperienceUpvote{},
		&models.Comment{}, &models.CommentLike{},
	} {
		var n int64
		require.NoError(t, env.db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}
	assert.ErrorIs(t, env.experiences.Delete(ctx, view.ID), apperror.ErrNotFound)
}

func TestListMineAndBookmarked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")
	reader := createUser(t, env.db, "reader@example.com")
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	older := seedExperience(t, env.db, author.ID, "ACME", base)
	newer := seedExperience(t, env.db, author.ID, "ACME", base.Add(time.Hour))

	mine, err := env.experiences.ListMine(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)

	n, err := env.experiences.CountByAuthor(ctx, reader.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.engagement.Toggle(ctx, older.ID, reader.ID, SetBookmark)
	require.NoError(t, err)
	saved, err := env.experiences.ListBookmarked(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, older.ID, saved[0].ID)
	assert.True(t, saved[0].IsBookmarked)
}

func TestGetExperienceSanitizesHTML(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := createUser(t, env.db, "author@example.com")

	view, err := env.experiences.Create(ctx, author.ID, CreateExperienceInput{
		Company: "Acme", Role: "SDE", IsAnonymous: true,
		ExperienceText: "hello <script>alert(1)</script>",
	})
	require.NoError(t, err)

	got, err := env.experiences.Get(ctx, view.ID, "")
	require.NoError(t, err)
	assert.False(t, strings.Contains(got.ExperienceHTML, "<script"))
	assert.Nil(t, got.Author)

	_, err = env.experiences.Get(ctx, "missing", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
