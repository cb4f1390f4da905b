package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds accepted by the ingestion endpoint.
var Kinds = []string{
	"page_view", "resource_view", "resource_click", "resource_favorite", "search",
	"forum_view", "forum_post", "ai_query", "assessment_start", "assessment_complete",
	"outbound_click", "signup",
}

type EventInput struct {
	Kind       string          `json:"kind" binding:"required,max=40"`
	Path       string          `json:"path" binding:"max=500"`
	ResourceID *uuid.UUID      `json:"resource_id"`
	SessionKey string          `json:"session_key" binding:"max=64"`
	Metadata   json.RawMessage `json:"metadata"`
	OccurredAt *time.Time      `json:"occurred_at"`
}

type BatchInput struct {
	Events []EventInput `json:"events" binding:"required,min=1,max=20,dive"`
}

type BatchResponse struct {
	Accepted int `json:"accepted"`
}

type SummaryQuery struct {
	Since string `form:"since"`
}

type KindCount struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

type SummaryResponse struct {
	Since  time.Time   `json:"since"`
	Total  int64       `json:"total"`
	Counts []KindCount `json:"counts"`
}
