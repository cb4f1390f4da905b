package dto

import (
	"time"

	"github.com/google/uuid"
	attachmentDto "greenhouse.org/growersplatform/internal/modules/attachment/dto"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
)

type CreatePostInput struct {
	Title         string `json:"title" binding:"required,max=200"`
	Content       string `json:"content" binding:"required,max=20000"`
	Category      string `json:"category" binding:"max=50"`
	AttachmentIDs []uint `json:"attachment_ids" binding:"max=10"`
}

type UpdatePostInput struct {
	Title         *string `json:"title" binding:"omitempty,min=1,max=200"`
	Content       *string `json:"content" binding:"omitempty,min=1,max=20000"`
	Category      *string `json:"category" binding:"omitempty,max=50"`
	AttachmentIDs []uint  `json:"attachment_ids" binding:"max=10"`
}

type ListPostsQuery struct {
	commonDto.PageQuery
	Category string `form:"category"`
	Q        string `form:"q" binding:"max=200"`
	Sort     string `form:"sort" binding:"omitempty,oneof=newest top"`
}

type CreateCommentInput struct {
	Content  string  `json:"content" binding:"required,max=10000"`
	ParentID *string `json:"parent_id" binding:"omitempty,uuid"`
}

type UpdateCommentInput struct {
	Content string `json:"content" binding:"required,max=10000"`
}

type VoteInput struct {
	Value int `json:"value" binding:"required,oneof=1 -1"`
}

type PostResponse struct {
	ID           uuid.UUID                          `json:"id"`
	Title        string                             `json:"title"`
	Content      string                             `json:"content"`
	Category     string                             `json:"category"`
	IsDeleted    bool                               `json:"is_deleted"`
	EditedAt     *time.Time                         `json:"edited_at"`
	Author       commonDto.AuthorResponse           `json:"author"`
	Attachments  []attachmentDto.AttachmentResponse `json:"attachments"`
	Score        int64                              `json:"score"`
	MyVote       int                                `json:"my_vote"`
	Favorited    bool                               `json:"favorited"`
	CommentCount int64                              `json:"comment_count"`
	CreatedAt    time.Time                          `json:"created_at"`
	UpdatedAt    time.Time                          `json:"updated_at"`
}

type CommentResponse struct {
	ID        uuid.UUID                `json:"id"`
	PostID    uuid.UUID                `json:"post_id"`
	ParentID  *uuid.UUID               `json:"parent_id"`
	Content   string                   `json:"content"`
	IsDeleted bool                     `json:"is_deleted"`
	EditedAt  *time.Time               `json:"edited_at"`
	Author    commonDto.AuthorResponse `json:"author"`
	Score     int64                    `json:"score"`
	MyVote    int                      `json:"my_vote"`
	Replies   []*CommentResponse       `json:"replies"`
	CreatedAt time.Time                `json:"created_at"`
}

type PostDetailResponse struct {
	PostResponse
	Comments []*CommentResponse `json:"comments"`
}

type VoteResponse struct {
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Score      int64     `json:"score"`
	MyVote     int       `json:"my_vote"`
}

type FavoriteResponse struct {
	PostID    uuid.UUID `json:"post_id"`
	Favorited bool      `json:"favorited"`
}
