package models

import "time"

// TempFile represents an uploaded attachment waiting to be sent with a
// message. Files live on disk under the upload base dir and expire after a
// TTL.
type TempFile struct {
	ID         int64     `json:"id"`
	ChatID     string    `json:"chat_id"`
	FileName   string    `json:"file_name"`
	StoredPath string    `json:"stored_path"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
