package models

import (
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeLike    NotificationType = "LIKE"
	NotificationTypeComment NotificationType = "COMMENT"
	NotificationTypeReply   NotificationType = "REPLY"
	NotificationTypeNewPost NotificationType = "NEW_POST"
)

type Notification struct {
	ID           string           `gorm:"primaryKey;size:20" json:"id"`
	UserID       string           `gorm:"size:20;not null;index" json:"userId"` // Receiver
	Title        string           `gorm:"size:200;not null" json:"title"`
	Body         string           `gorm:"type:text" json:"body"`
	Type         NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	ExperienceID *string          `gorm:"size:20" json:"experienceId,omitempty"`
	CommentID    *string          `gorm:"size:20" json:"commentId,omitempty"`
	URL          string           `gorm:"size:255" json:"url"`
	IsRead       bool             `gorm:"default:false;index" json:"isRead"`
	CreatedAt    time.Time        `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = xid.New().String()
	}
	return nil
}

// PushSubscription 浏览器推送订阅，每个用户一条
type PushSubscription struct {
	ID        string    `gorm:"primaryKey;size:20" json:"id"`
	UserID    string    `gorm:"size:20;not null;uniqueIndex" json:"userId"`
	Endpoint  string    `gorm:"type:text;not null" json:"endpoint"`
	P256dh    string    `gorm:"size:255;not null" json:"p256dh"`
	Auth      string    `gorm:"size:255;not null" json:"auth"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = xid.New().String()
	}
	return nil
}
