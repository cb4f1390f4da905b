package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentState is the lifecycle of user-authored forum content.
type ContentState string

const (
	ContentActive  ContentState = "active"
	ContentDeleted ContentState = "deleted"
)

// Tombstone replaces the body of deleted posts and comments.
const Tombstone = "[deleted]"

type ForumPost struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User         `json:"-"`
	Title       string       `gorm:"size:200;not null" json:"title"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	Category    string       `gorm:"size:50;index" json:"category"`
	State       ContentState `gorm:"size:16;not null;default:active;index" json:"state"`
	EditedAt    *time.Time   `json:"edited_at"`
	Attachments []Attachment `gorm:"foreignKey:PostID" json:"attachments,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *ForumPost) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	if p.State == "" {
		p.State = ContentActive
	}
	return
}

func (p *ForumPost) IsDeleted() bool { return p.State == ContentDeleted }

type ForumComment struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"post_id"`
	ParentID  *uuid.UUID   `gorm:"type:uuid;index" json:"parent_id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User         `json:"-"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	State     ContentState `gorm:"size:16;not null;default:active" json:"state"`
	EditedAt  *time.Time   `json:"edited_at"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *ForumComment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	if c.State == "" {
		c.State = ContentActive
	}
	return
}

func (c *ForumComment) IsDeleted() bool { return c.State == ContentDeleted }

type VoteEntity string

const (
	VotePost    VoteEntity = "post"
	VoteComment VoteEntity = "comment"
)

// Vote is unique per (user, entity_type, entity_id); re-voting updates Value.
type Vote struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_votes_unique,priority:1" json:"user_id"`
	EntityType VoteEntity `gorm:"size:16;not null;uniqueIndex:idx_votes_unique,priority:2;index:idx_votes_lookup,priority:1" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_votes_unique,priority:3;index:idx_votes_lookup,priority:2" json:"entity_id"`
	Value      int        `gorm:"not null" json:"value"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID, err = uuid.NewV7()
	}
	return
}

type PostFavorite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_post_favorites_unique,priority:1" json:"user_id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_post_favorites_unique,priority:2" json:"post_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (f *PostFavorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
