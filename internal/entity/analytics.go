package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AnalyticsEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Kind       string         `gorm:"size:40;not null;index" json:"kind"`
	Path       string         `gorm:"size:500" json:"path"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ResourceID *uuid.UUID     `gorm:"type:uuid" json:"resource_id,omitempty"`
	SessionKey string         `gorm:"size:64" json:"session_key,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	OccurredAt time.Time      `gorm:"index" json:"occurred_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
