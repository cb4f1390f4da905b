package dto

import (
	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/agent/providers"
	profileDto "greenhouse.org/growersplatform/internal/modules/profile/dto"
)

type FindGrowerInput struct {
	Query string `json:"query" binding:"required,min=3,max=500"`
}

type FindGrowerResponse struct {
	Answer   string                      `json:"answer"`
	Growers  []profileDto.MemberResponse `json:"growers"`
	Degraded bool                        `json:"degraded"`
}

type AssessmentChatInput struct {
	Messages     []providers.Message `json:"messages" binding:"required,min=1,max=20,dive"`
	AssessmentID *uuid.UUID          `json:"assessment_id"`
}
