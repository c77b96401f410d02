package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat is the durable record of one full conversation.
type Chat struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	Turns     []Turn    `gorm:"foreignKey:ChatID;references:ID" json:"turns,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn is a single exchange entry. History is append-only; Seq preserves
// conversation order.
type Turn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    string    `gorm:"size:36;not null;index" json:"chat_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageKey  string    `gorm:"size:256" json:"image_key,omitempty"`
	Seq       int       `gorm:"not null" json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}
