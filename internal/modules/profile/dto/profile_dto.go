package dto

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// AvatarFile is an avatar image uploaded with a profile update.
type AvatarFile struct {
	Reader   io.Reader
	FileName string
	Size     int64
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	FullName         *string  `json:"full_name" form:"full_name" binding:"omitempty,min=1,max=100"`
	FarmName         *string  `json:"farm_name" form:"farm_name" binding:"omitempty,max=150"`
	Phone            *string  `json:"phone" form:"phone" binding:"omitempty,max=30"`
	Website          *string  `json:"website" form:"website" binding:"omitempty,max=255"`
	Bio              *string  `json:"bio" form:"bio" binding:"omitempty,max=2000"`
	State            *string  `json:"state" form:"state" binding:"omitempty,len=2,alpha"`
	County           *string  `json:"county" form:"county" binding:"omitempty,max=100"`
	FarmType         *string  `json:"farm_type" form:"farm_type" binding:"omitempty,max=50"`
	CropTypes        []string `json:"crop_types" form:"crop_types" binding:"omitempty,max=30,dive,max=50"`
	ClimateControls  []string `json:"climate_controls" form:"climate_controls" binding:"omitempty,max=20,dive,max=50"`
	GreenhouseSqFt   *int     `json:"greenhouse_sq_ft" form:"greenhouse_sq_ft" binding:"omitempty,min=0,max=100000000"`
	DirectoryVisible *bool    `json:"directory_visible" form:"directory_visible"`
}

type DirectoryQuery struct {
	Q        string `form:"q" binding:"max=100"`
	State    string `form:"state" binding:"omitempty,len=2"`
	FarmType string `form:"farm_type" binding:"max=50"`
	Crop     string `form:"crop" binding:"max=50"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type SearchQuery struct {
	Q     string `form:"q" binding:"required,max=100"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// MemberResponse is a directory entry. Phone is omitted from directory listings.
type MemberResponse struct {
	UserID          uuid.UUID `json:"user_id"`
	Username        string    `json:"username"`
	FullName        string    `json:"full_name"`
	FarmName        *string   `json:"farm_name,omitempty"`
	Website         *string   `json:"website,omitempty"`
	Bio             *string   `json:"bio,omitempty"`
	State           string    `json:"state"`
	County          string    `json:"county"`
	FarmType        string    `json:"farm_type"`
	CropTypes       []string  `json:"crop_types"`
	ClimateControls []string  `json:"climate_controls"`
	GreenhouseSqFt  *int      `json:"greenhouse_sq_ft,omitempty"`
	AvatarURL       *string   `json:"avatar_url,omitempty"`
}

type ProfileResponse struct {
	MemberResponse
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	Phone            *string   `json:"phone,omitempty"`
	DirectoryVisible bool      `json:"directory_visible"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type SearchResponse struct {
	Data []MemberResponse `json:"data"`
	// Source is "index" when the search index answered and "database" for the fallback.
	Source string `json:"source"`
}
