package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	ChatListActive = "active"
	ChatListPinned = "pinned"
)

// ChatSummary is one listing entry. Title is derived from the first user
// message; CreatedAt is carried unchanged through pin/unpin round trips.
type ChatSummary struct {
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatList holds the ordered summaries of one projection kind for one user.
// One row per (UserID, Kind), created lazily. A chat id never appears twice
// in one list, and never in both lists of a user at the same time.
type ChatList struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"size:36;not null;index:idx_chat_list_user_kind,unique" json:"user_id"`
	Kind      string         `gorm:"size:16;not null;index:idx_chat_list_user_kind,unique" json:"kind"`
	Summaries datatypes.JSON `gorm:"type:json" json:"summaries"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SummaryList decodes the stored summaries; empty slice when unset.
func (l *ChatList) SummaryList() ([]ChatSummary, error) {
	if len(l.Summaries) == 0 {
		return nil, nil
	}
	var out []ChatSummary
	if err := json.Unmarshal(l.Summaries, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetSummaries encodes the ordered summaries back into the JSON column.
func (l *ChatList) SetSummaries(summaries []ChatSummary) error {
	if summaries == nil {
		summaries = []ChatSummary{}
	}
	b, err := json.Marshal(summaries)
	if err != nil {
		return err
	}
	l.Summaries = datatypes.JSON(b)
	return nil
}
