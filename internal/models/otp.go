package models

import (
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"
)

const (
	OTPPurposeVerify = "verify"
	OTPPurposeReset  = "reset"
)

// OTP 邮箱一次性验证码，5 分钟有效，重新生成或使用后删除
type OTP struct {
	ID        string    `gorm:"primaryKey;size:20"`
	Email     string    `gorm:"size:255;not null;index"`
	Purpose   string    `gorm:"size:10;not null"`
	Code      string    `gorm:"size:6;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (o *OTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = xid.New().String()
	}
	return nil
}

// Expired 判断验证码是否已过期
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
