package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"

	"gorm.io/gorm"
)

const maxCommentLength = 1000

type AddCommentInput struct {
	Text          string  `json:"text" binding:"required"`
	ParentComment *string `json:"parentComment"`
	IsAnonymous   bool    `json:"isAnonymous"`
}

// CommentView 评论加作者和当前用户的点赞状态，顶层评论带 replies
type CommentView struct {
	models.Comment
	Author       *AuthorView   `json:"author"`
	LikedByMe    bool          `json:"likedByMe"`
	DislikedByMe bool          `json:"dislikedByMe"`
	Replies      []CommentView `json:"replies,omitempty"`
}

type DeleteCommentResult struct {
	Success        bool  `json:"success"`
	RepliesDeleted int64 `json:"repliesDeleted"`
}

// Actor 执行操作的用户，用于作者或管理员的权限判断
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

type CommentService struct {
	db            *gorm.DB
	log           *logger.Logger
	rewards       *RewardService
	notifications *NotificationService
	trending      *TrendingService
}

func NewCommentService(db *gorm.DB, log *logger.Logger, rewards *RewardService, notifications *NotificationService, trending *TrendingService) *CommentService {
	return &CommentService{
		db:            db,
		log:           log,
		rewards:       rewards,
		notifications: notifications,
		trending:      trending,
	}
}

// Add 添加评论或回复。回复只允许一层：父评论本身不能是回复
func (s *CommentService) Add(ctx context.Context, experienceID, userID string, in AddCommentInput) (*CommentView, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "Comment cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return nil, apperror.ValidationFailed("text", "Comment must be at most 1000 characters")
	}

	var exp models.Experience
	if err := s.db.WithContext(ctx).Select("id", "author_id").First(&exp, "id = ?", experienceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Experience")
		}
		return nil, err
	}

	var parent *models.Comment
	if in.ParentComment != nil && *in.ParentComment != "" {
		parent = &models.Comment{}
		if err := s.db.WithContext(ctx).First(parent, "id = ?", *in.ParentComment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("Parent comment")
			}
			return nil, err
		}
		if parent.ExperienceID != experienceID {
			return nil, apperror.BadRequest("Parent comment belongs to another experience")
		}
		if parent.IsReply() {
			return nil, apperror.BadRequest("Replies to replies are not allowed")
		}
	}

	comment := models.Comment{
		ExperienceID: experienceID,
		AuthorID:     &userID,
		Text:         text,
		IsAnonymous:  in.IsAnonymous,
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if parent != nil {
			return adjustCounter(tx, &models.Comment{}, parent.ID, "reply_count", 1)
		}
		return adjustCounter(tx, &models.Experience{}, experienceID, "comment_count", 1)
	})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	s.rewards.AddPointsAsync(userID, PointsComment, ActionComment)
	s.notifyCommented(exp, parent, comment)
	if parent == nil {
		s.trending.ScheduleUpdate(experienceID)
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", userID).Error; err == nil {
		comment.Author = &author
	}
	return &CommentView{Comment: comment, Author: newAuthorView(comment.Author, comment.IsAnonymous)}, nil
}

// notifyCommented 顶层评论通知面经作者，回复通知父评论作者，自己的不通知
func (s *CommentService) notifyCommented(exp models.Experience, parent *models.Comment, c models.Comment) {
	n := models.Notification{
		ExperienceID: &exp.ID,
		CommentID:    &c.ID,
		Body:         preview(c.Text, 80),
		URL:          experienceURL(exp.ID) + "#comment-" + c.ID,
	}
	switch {
	case parent != nil:
		if parent.AuthorID == nil || *parent.AuthorID == *c.AuthorID {
			return
		}
		n.UserID = *parent.AuthorID
		n.Title = "New reply to your comment"
		n.Type = models.NotificationTypeReply
	default:
		if exp.AuthorID == nil || *exp.AuthorID == *c.AuthorID {
			return
		}
		n.UserID = *exp.AuthorID
		n.Title = "New comment on your experience"
		n.Type = models.NotificationTypeComment
	}
	s.notifications.NotifyAsync(n)
}

// List 返回顶层评论及其回复，均按时间正序
func (s *CommentService) List(ctx context.Context, experienceID, viewerID string) ([]CommentView, error) {
	var all []models.Comment
	err := s.db.WithContext(ctx).Preload("Author").
		Where("experience_id = ?", experienceID).
		Order("created_at ASC").Order("id ASC").
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	liked, disliked := map[string]bool{}, map[string]bool{}
	if viewerID != "" && len(all) > 0 {
		ids := make([]string, len(all))
		for i := range all {
			ids[i] = all[i].ID
		}
		if liked, err = viewerCommentFlags(ctx, s.db, &models.CommentLike{}, viewerID, ids); err != nil {
			return nil, err
		}
		if disliked, err = viewerCommentFlags(ctx, s.db, &models.CommentDislike{}, viewerID, ids); err != nil {
			return nil, err
		}
	}

	toView := func(c models.Comment) CommentView {
		return CommentView{
			Comment:      c,
			Author:       newAuthorView(c.Author, c.IsAnonymous),
			LikedByMe:    liked[c.ID],
			DislikedByMe: disliked[c.ID],
		}
	}

	replies := make(map[string][]CommentView)
	for _, c := range all {
		if c.IsReply() {
			pid := *c.ParentCommentID
			replies[pid] = append(replies[pid], toView(c))
		}
	}

	result := make([]CommentView, 0, len(all))
	for _, c := range all {
		if c.IsReply() {
			continue
		}
		v := toView(c)
		v.Replies = replies[c.ID]
		if v.Replies == nil {
			v.Replies = []CommentView{}
		}
		result = append(result, v)
	}
	return result, nil
}

type CommentReaction struct {
	Active       bool  `json:"active"`
	LikeCount    int64 `json:"likeCount"`
	DislikeCount int64 `json:"dislikeCount"`
}

// ToggleLike 点赞和点踩互斥：点赞时移除同一用户的点踩
func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID string) (*CommentReaction, error) {
	return s.toggleReaction(ctx, commentID, userID, true)
}

func (s *CommentService) ToggleDislike(ctx context.Context, commentID, userID string) (*CommentReaction, error) {
	return s.toggleReaction(ctx, commentID, userID, false)
}

func (s *CommentService) toggleReaction(ctx context.Context, commentID, userID string, like bool) (*CommentReaction, error) {
	if err := s.commentExists(ctx, commentID); err != nil {
		return nil, err
	}

	key := map[string]any{"comment_id": commentID, "user_id": userID}
	var row, opposite any = &models.CommentLike{CommentID: commentID, UserID: userID}, &models.CommentDislike{CommentID: commentID, UserID: userID}
	counter, oppositeCounter := "like_count", "dislike_count"
	if !like {
		row, opposite = opposite, row
		counter, oppositeCounter = oppositeCounter, counter
	}

	result := &CommentReaction{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := toggleMember(tx, row, key, &models.Comment{}, commentID, counter)
		if err != nil {
			return err
		}
		if active {
			if _, err := removeMember(tx, opposite, key, &models.Comment{}, commentID, oppositeCounter); err != nil {
				return err
			}
		}
		result.Active = active
		if result.LikeCount, err = readCounter(tx, &models.Comment{}, commentID, "like_count"); err != nil {
			return err
		}
		result.DislikeCount, err = readCounter(tx, &models.Comment{}, commentID, "dislike_count")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("toggle comment reaction: %w", err)
	}
	return result, nil
}

// Delete 作者或管理员可删除。删除顶层评论会一并删除回复，面经评论数只减一
func (s *CommentService) Delete(ctx context.Context, commentID string, actor Actor) (*DeleteCommentResult, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Comment")
		}
		return nil, err
	}
	isAuthor := comment.AuthorID != nil && *comment.AuthorID == actor.ID
	if !isAuthor && !actor.IsAdmin() {
		return nil, apperror.Forbidden("Not allowed")
	}

	result := &DeleteCommentResult{Success: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		replyIDs := tx.Model(&models.Comment{}).Select("id").Where("parent_comment_id = ?", comment.ID)
		for _, model := range []any{&models.CommentLike{}, &models.CommentDislike{}} {
			if err := tx.Where("comment_id = ? OR comment_id IN (?)", comment.ID, replyIDs).Delete(model).Error; err != nil {
				return err
			}
		}

		del := tx.Where("parent_comment_id = ?", comment.ID).Delete(&models.Comment{})
		if del.Error != nil {
			return del.Error
		}
		result.RepliesDeleted = del.RowsAffected

		if err := tx.Delete(&models.Comment{}, "id = ?", comment.ID).Error; err != nil {
			return err
		}
		if comment.IsReply() {
			return adjustCounter(tx, &models.Comment{}, *comment.ParentCommentID, "reply_count", -1)
		}
		return adjustCounter(tx, &models.Experience{}, comment.ExperienceID, "comment_count", -1)
	})
	if err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}

	if !comment.IsReply() {
		s.trending.ScheduleUpdate(comment.ExperienceID)
	}
	return result, nil
}

func (s *CommentService) commentExists(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("Comment")
	}
	return nil
}

func viewerCommentFlags(ctx context.Context, db *gorm.DB, model any, viewerID string, ids []string) (map[string]bool, error) {
	var hits []string
	err := db.WithContext(ctx).Model(model).
		Where("user_id = ? AND comment_id IN ?", viewerID, ids).
		Pluck("comment_id", &hits).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(hits))
	for _, id := range hits {
		set[id] = true
	}
	return set, nil
}

// preview 截取通知正文
func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}
