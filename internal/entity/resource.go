package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResourceType string

const (
	ResourceUniversities  ResourceType = "universities"
	ResourceOrganizations ResourceType = "organizations"
	ResourceGrants        ResourceType = "grants"
	ResourceTools         ResourceType = "tools"
	ResourceTemplates     ResourceType = "templates"
	ResourceLearning      ResourceType = "learning"
	ResourceBulletins     ResourceType = "bulletins"
	ResourceIndustryNews  ResourceType = "industry_news"
)

var ResourceTypes = []ResourceType{
	ResourceUniversities, ResourceOrganizations, ResourceGrants, ResourceTools,
	ResourceTemplates, ResourceLearning, ResourceBulletins, ResourceIndustryNews,
}

func (t ResourceType) Valid() bool {
	for _, v := range ResourceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Resource is a catalog entry. Data holds type-specific attributes by convention
// (grants: award_min, award_max, due_date, status, eligibility, ...).
type Resource struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Type      ResourceType                `gorm:"size:32;not null;index" json:"type"`
	Title     string                      `gorm:"size:300;not null" json:"title"`
	URL       string                      `gorm:"type:text;index" json:"url"`
	Summary   string                      `gorm:"type:text" json:"summary"`
	Tags      datatypes.JSONSlice[string] `json:"tags"`
	Data      datatypes.JSON              `json:"data"`
	CreatedAt time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Resource) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

type ResourceFavorite struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_resource_favorites_unique,priority:1" json:"user_id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_resource_favorites_unique,priority:2" json:"resource_id"`
	Resource   Resource  `gorm:"constraint:OnDelete:CASCADE" json:"resource"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (f *ResourceFavorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
