package entity

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is an uploaded file. PostID stays nil until a forum post claims it.
type Attachment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PostID    *uuid.UUID `gorm:"type:uuid;index" json:"post_id,omitempty"`
	FileURL   string     `gorm:"type:text;not null" json:"file_url"`
	FileType  string     `gorm:"size:100" json:"file_type"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
