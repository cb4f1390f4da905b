package dto

import (
	"time"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/modules/roadmap/scoring"
)

type SubmitInput struct {
	Responses scoring.Responses `json:"responses" binding:"required"`
}

type QuestionsResponse struct {
	Categories []scoring.Category `json:"categories"`
	Questions  []scoring.Question `json:"questions"`
}

type AssessmentResponse struct {
	ID        uuid.UUID         `json:"id"`
	Responses scoring.Responses `json:"responses"`
	CreatedAt time.Time         `json:"created_at"`
}

type ProfileResponse struct {
	ID uuid.UUID `json:"id"`
	scoring.Profile
	UpdatedAt time.Time `json:"updated_at"`
}

type RoadmapResponse struct {
	Assessment      AssessmentResponse       `json:"assessment"`
	Profile         ProfileResponse          `json:"profile"`
	Recommendations []scoring.Recommendation `json:"recommendations"`
}
