package dto

import (
	"time"

	"github.com/google/uuid"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
)

type CreateChallengeInput struct {
	Text     string `json:"text" binding:"required,min=10,max=4000"`
	Category string `json:"category" binding:"max=50"`
}

type ListChallengesQuery struct {
	commonDto.PageQuery
	Flag     string `form:"flag" binding:"omitempty,oneof=none reviewed important needs_follow_up"`
	Category string `form:"category" binding:"max=50"`
}

type UpdateFlagInput struct {
	Flag string `json:"flag" binding:"required,oneof=none reviewed important needs_follow_up"`
}

type Submitter struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
}

type ChallengeResponse struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Flag      string    `json:"flag"`
	Submitter Submitter `json:"submitter"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
