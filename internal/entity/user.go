package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	RoleGuest  = "guest"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

func ValidRole(name string) bool {
	switch name {
	case RoleGuest, RoleMember, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	RoleID       *uint      `json:"role_id"`
	Role         Role       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	AvatarURL    *string    `gorm:"type:text" json:"avatar_url,omitempty"`
	// DisabledAt marks an account removed by an admin. Disabled users cannot sign in.
	DisabledAt   *time.Time `gorm:"index" json:"disabled_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Profile      *Profile   `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleName is "" when the role relation was not loaded or the role was removed.
func (u *User) RoleName() string {
	return u.Role.Name
}

// Profile holds the member directory attributes of a grower.
type Profile struct {
	UserID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName         string                      `gorm:"size:100;not null" json:"full_name"`
	FarmName         *string                     `gorm:"size:150" json:"farm_name,omitempty"`
	Phone            *string                     `gorm:"size:30" json:"phone,omitempty"`
	Website          *string                     `gorm:"size:255" json:"website,omitempty"`
	Bio              *string                     `gorm:"type:text" json:"bio,omitempty"`
	State            string                      `gorm:"size:2;index" json:"state"`
	County           string                      `gorm:"size:100" json:"county"`
	FarmType         string                      `gorm:"size:50;index" json:"farm_type"`
	CropTypes        datatypes.JSONSlice[string] `json:"crop_types"`
	ClimateControls  datatypes.JSONSlice[string] `json:"climate_controls"`
	GreenhouseSqFt   *int                        `json:"greenhouse_sq_ft,omitempty"`
	DirectoryVisible bool                        `gorm:"not null;default:true" json:"directory_visible"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}
