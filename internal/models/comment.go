package models

import (
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"
)

// Comment 面经下的评论，ParentCommentID 为空表示顶层评论。
// 回复只允许一层，由 service 在写入时检查
type Comment struct {
	ID              string    `gorm:"primaryKey;size:20" json:"id"`
	ExperienceID    string    `gorm:"size:20;not null;index" json:"experienceId"`
	AuthorID        *string   `gorm:"size:20;index" json:"-"`
	Author          *User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	ParentCommentID *string   `gorm:"size:20;index" json:"parentComment"`
	Text            string    `gorm:"size:1000;not null" json:"text"`
	IsAnonymous     bool      `gorm:"default:false" json:"isAnonymous"`
	LikeCount       int64     `gorm:"not null;default:0" json:"likeCount"`
	DislikeCount    int64     `gorm:"not null;default:0" json:"dislikeCount"`
	ReplyCount      int64     `gorm:"not null;default:0" json:"replyCount"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = xid.New().String()
	}
	return nil
}

func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}

type CommentLike struct {
	CommentID string    `gorm:"primaryKey;size:20"`
	UserID    string    `gorm:"primaryKey;size:20;index"`
	CreatedAt time.Time
}

type CommentDislike struct {
	CommentID string    `gorm:"primaryKey;size:20"`
	UserID    string    `gorm:"primaryKey;size:20;index"`
	CreatedAt time.Time
}
