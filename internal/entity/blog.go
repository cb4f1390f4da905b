package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BlogPost struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID      uuid.UUID  `gorm:"type:uuid;not null" json:"author_id"`
	Author        User       `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Slug          string     `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Excerpt       string     `gorm:"size:500" json:"excerpt"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	CoverImageURL *string    `gorm:"type:text" json:"cover_image_url,omitempty"`
	Published     bool       `gorm:"not null;default:false;index" json:"published"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *BlogPost) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
