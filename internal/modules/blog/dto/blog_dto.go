package dto

import (
	"time"

	"github.com/google/uuid"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
)

type CreateBlogPostInput struct {
	Title         string  `json:"title" binding:"required,max=200"`
	Slug          *string `json:"slug" binding:"omitempty,max=200"`
	Excerpt       string  `json:"excerpt" binding:"max=500"`
	Content       string  `json:"content" binding:"required,max=100000"`
	CoverImageURL *string `json:"cover_image_url" binding:"omitempty,url,max=500"`
	Published     bool    `json:"published"`
}

type UpdateBlogPostInput struct {
	Title         *string `json:"title" binding:"omitempty,min=1,max=200"`
	Slug          *string `json:"slug" binding:"omitempty,max=200"`
	Excerpt       *string `json:"excerpt" binding:"omitempty,max=500"`
	Content       *string `json:"content" binding:"omitempty,min=1,max=100000"`
	CoverImageURL *string `json:"cover_image_url" binding:"omitempty,url,max=500"`
	Published     *bool   `json:"published"`
}

type ListBlogQuery struct {
	commonDto.PageQuery
	Q string `form:"q" binding:"max=100"`
}

type AdminListBlogQuery struct {
	commonDto.PageQuery
	Status string `form:"status" binding:"omitempty,oneof=published draft"`
}

type BlogPostSummary struct {
	ID            uuid.UUID                `json:"id"`
	Slug          string                   `json:"slug"`
	Title         string                   `json:"title"`
	Excerpt       string                   `json:"excerpt"`
	CoverImageURL *string                  `json:"cover_image_url,omitempty"`
	Published     bool                     `json:"published"`
	PublishedAt   *time.Time               `json:"published_at,omitempty"`
	Author        commonDto.AuthorResponse `json:"author"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

type BlogPostResponse struct {
	BlogPostSummary
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
