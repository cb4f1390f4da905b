package dto

import "time"

type AttachmentResponse struct {
	ID        uint      `json:"id"`
	FileURL   string    `json:"file_url"`
	FileType  string    `json:"file_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
