package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"required,max=100"`
	FarmName string `json:"farm_name" binding:"max=150"`
	State    string `json:"state" binding:"omitempty,len=2,alpha"`
	County   string `json:"county" binding:"max=100"`
	FarmType string `json:"farm_type" binding:"max=50"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72,nefield=CurrentPassword"`
}

type ChangeRoleInput struct {
	Role string `json:"role" binding:"required,oneof=guest member admin"`
}

type ListUsersQuery struct {
	Q     string `form:"q" binding:"max=100"`
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   int64        `json:"expires_at"`
	User        UserResponse `json:"user"`
}
