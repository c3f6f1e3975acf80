package models

import (
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"
)

// PointLog 积分流水，Amount 为正表示奖励，为负表示撤销
type PointLog struct {
	ID        string    `gorm:"primaryKey;size:20" json:"id"`
	UserID    string    `gorm:"size:20;not null;index" json:"userId"`
	Amount    int       `gorm:"not null" json:"amount"`
	Action    string    `gorm:"size:50;not null;index" json:"action"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (p *PointLog) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = xid.New().String()
	}
	return nil
}
