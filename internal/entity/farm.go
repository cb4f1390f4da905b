package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FarmAssessment is immutable once stored. Profile and recommendations derive from Responses.
type FarmAssessment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Responses datatypes.JSON `gorm:"not null" json:"responses"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (a *FarmAssessment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewV7()
	}
	return
}

type FarmProfile struct {
	ID               uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	AssessmentID     uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"assessment_id"`
	UserID           uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	OverallScore     int                         `json:"overall_score"`
	CategoryScores   datatypes.JSON              `json:"category_scores"`
	Strengths        datatypes.JSONSlice[string] `json:"strengths"`
	ImprovementAreas datatypes.JSONSlice[string] `json:"improvement_areas"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *FarmProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type FarmRecommendation struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	ProfileID  uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`
	QuestionID string    `gorm:"size:50" json:"question_id"`
	Category   string    `gorm:"size:50;not null" json:"category"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Detail     string    `gorm:"type:text" json:"detail"`
	Priority   int       `gorm:"not null" json:"priority"`
	Position   int       `gorm:"not null" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
