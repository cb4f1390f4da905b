package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeFlag string

const (
	FlagNone          ChallengeFlag = "none"
	FlagReviewed      ChallengeFlag = "reviewed"
	FlagImportant     ChallengeFlag = "important"
	FlagNeedsFollowUp ChallengeFlag = "needs_follow_up"
)

func (f ChallengeFlag) Valid() bool {
	switch f {
	case FlagNone, FlagReviewed, FlagImportant, FlagNeedsFollowUp:
		return true
	}
	return false
}

type GrowerChallenge struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Text      string        `gorm:"type:text;not null" json:"text"`
	Category  string        `gorm:"size:50;index" json:"category"`
	Flag      ChallengeFlag `gorm:"size:20;not null;default:none;index" json:"flag"`
	CreatedAt time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *GrowerChallenge) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	if c.Flag == "" {
		c.Flag = FlagNone
	}
	return
}
