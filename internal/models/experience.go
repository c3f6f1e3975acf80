package models

import (
	"time"

	"github.com/rs/xid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// Experience 一篇 OA 面经。ID 为 xid，按创建时间有序，作为游标分页的次序键
type Experience struct {
	ID               string                      `gorm:"primaryKey;size:20;index:idx_experiences_feed,priority:2" json:"id"`
	AuthorID         *string                     `gorm:"size:20;index" json:"-"`
	Author           *User                       `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Company          string                      `gorm:"size:100;not null" json:"company"`
	CompanyKey       string                      `gorm:"size:100;not null;index" json:"companyKey"`
	Role             string                      `gorm:"size:100;not null" json:"role"`
	OAPlatform       string                      `gorm:"size:100" json:"oaPlatform"`
	Difficulty       string                      `gorm:"size:10;index" json:"difficulty"`
	QuestionsCount   int                         `json:"questionsCount"`
	Topics           datatypes.JSONSlice[string] `json:"topics"`
	QuestionPatterns datatypes.JSONSlice[string] `json:"questionPatterns"`
	ExperienceText   string                      `gorm:"type:text" json:"experienceText"`
	Rating           int                         `json:"rating"`
	Year             int                         `json:"year"`
	SalaryLPA        float64                     `gorm:"index" json:"salaryLPA"`
	IsAnonymous      bool                        `gorm:"default:false" json:"isAnonymous"`

	// 反规范化计数，只通过原子表达式增减
	UpvoteCount   int64   `gorm:"not null;default:0" json:"upvoteCount"`
	BookmarkCount int64   `gorm:"not null;default:0" json:"bookmarkCount"`
	UsedCount     int64   `gorm:"not null;default:0" json:"-"`
	CommentCount  int64   `gorm:"not null;default:0" json:"commentCount"`
	ReportCount   int64   `gorm:"not null;default:0;index" json:"reportCount"`
	HotScore      float64 `gorm:"not null;default:0;index" json:"-"`

	CreatedAt time.Time `gorm:"index:idx_experiences_feed,priority:1" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Experience) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = xid.New().String()
	}
	return nil
}

const (
	TagKindTopic   = "topic"
	TagKindPattern = "pattern"
)

// ExperienceTag 展开的标签行，用于筛选和统计
type ExperienceTag struct {
	ExperienceID string `gorm:"primaryKey;size:20"`
	Kind         string `gorm:"primaryKey;size:10"`
	Value        string `gorm:"primaryKey;size:64;index"`
}

// 以下为成员集合，复合主键保证 (experience, user) 唯一

type ExperienceUpvote struct {
	ExperienceID string    `gorm:"primaryKey;size:20"`
	UserID       string    `gorm:"primaryKey;size:20;index"`
	CreatedAt    time.Time
}

type ExperienceBookmark struct {
	ExperienceID string    `gorm:"primaryKey;size:20"`
	UserID       string    `gorm:"primaryKey;size:20;index"`
	CreatedAt    time.Time
}

// ExperienceUse 用户标记"备考时用过"
type ExperienceUse struct {
	ExperienceID string    `gorm:"primaryKey;size:20"`
	UserID       string    `gorm:"primaryKey;size:20;index"`
	CreatedAt    time.Time
}

func (ExperienceUse) TableName() string {
	return "experience_used"
}

type ExperienceReport struct {
	ExperienceID string    `gorm:"primaryKey;size:20"`
	UserID       string    `gorm:"primaryKey;size:20;index"`
	CreatedAt    time.Time
}
