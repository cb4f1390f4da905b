package dto

import (
	"github.com/google/uuid"
)

type AuthorResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
}

type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults for page (1) and limit (fallback).
func (p PageQuery) Normalize(fallback int) (page, limit int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = fallback
	}
	return page, limit
}

func (p PageQuery) Offset(fallback int) int {
	page, limit := p.Normalize(fallback)
	return (page - 1) * limit
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{CurrentPage: page, TotalPages: totalPages, TotalItems: total, Limit: limit}
}

type Paginated[T any] struct {
	Data []T           `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
