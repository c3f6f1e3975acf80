package models

import (
	"strings"
	"time"

	"github.com/rs/xid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// NotificationPrefs 按类别开关通知
type NotificationPrefs struct {
	NewCompanyOA bool `json:"newCompanyOA"`
	CommentReply bool `json:"commentReply"`
	WeeklyDigest bool `json:"weeklyDigest"`
}

func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{NewCompanyOA: true, CommentReply: true, WeeklyDigest: false}
}

type User struct {
	ID                string                                `gorm:"primaryKey;size:20" json:"id"`
	Email             string                                `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password          string                                `gorm:"size:255" json:"-"` // bcrypt hash, empty for Google-only accounts
	GoogleID          *string                               `gorm:"uniqueIndex;size:64" json:"-"`
	IsVerified        bool                                  `gorm:"default:false" json:"isVerified"`
	Role              string                                `gorm:"size:20;default:'user';not null" json:"role"`
	Points            int                                   `gorm:"not null;default:0;index" json:"points"`
	Coins             int                                   `gorm:"not null;default:0" json:"coins"`
	PushEnabled       bool                                  `gorm:"default:false" json:"pushEnabled"`
	NotificationPrefs datatypes.JSONType[NotificationPrefs] `json:"notificationPrefs"`
	LastDailyVisit    *time.Time                            `json:"lastDailyVisit"`
	CreatedAt         time.Time                             `json:"createdAt"`
	UpdatedAt         time.Time                             `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = xid.New().String()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Username 邮箱 @ 之前的部分，用于排行榜和公开主页
func (u *User) Username() string {
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}

// CompanyFollow 用户关注的公司，CompanyKey 为规范化后的公司名
type CompanyFollow struct {
	UserID     string    `gorm:"primaryKey;size:20" json:"userId"`
	CompanyKey string    `gorm:"primaryKey;size:100;index" json:"companyKey"`
	CreatedAt  time.Time `json:"createdAt"`
}
