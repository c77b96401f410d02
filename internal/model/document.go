package model

import "time"

// Document describes an uploaded source file feeding the knowledge base.
// The registry is the source of truth for what should exist in the index;
// the external index is eventually consistent with it.
type Document struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;index" json:"user_id"`
	FileName    string    `gorm:"size:256;not null" json:"file_name"`
	FileURL     string    `gorm:"size:512;not null" json:"file_url"`
	ObjectKey   string    `gorm:"size:512;not null" json:"object_key"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Preview     string    `gorm:"type:text" json:"preview,omitempty"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
