package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ListResourcesRequest struct {
	Type    string `form:"type"`
	Q       string `form:"q"`
	Filters string `form:"filters"`
	Sort    string `form:"sort"`
	Cursor  string `form:"cursor"`
	Limit   int    `form:"limit" binding:"omitempty,min=1"`
}

type ResourceInput struct {
	Type    string         `json:"type" binding:"required"`
	Title   string         `json:"title" binding:"required,max=300"`
	URL     string         `json:"url" binding:"omitempty,url,max=2000"`
	Summary string         `json:"summary" binding:"max=5000"`
	Tags    []string       `json:"tags" binding:"max=30,dive,max=60"`
	Data    map[string]any `json:"data"`
}

type ResourceResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	URL       string          `json:"url"`
	Summary   string          `json:"summary"`
	Tags      []string        `json:"tags"`
	Data      json.RawMessage `json:"data"`
	Favorited bool            `json:"favorited"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ResourcePage struct {
	Items      []ResourceResponse `json:"items"`
	Total      int64              `json:"total"`
	NextCursor *string            `json:"nextCursor,omitempty"`
}

type FavoriteResponse struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Favorited  bool      `json:"favorited"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}
