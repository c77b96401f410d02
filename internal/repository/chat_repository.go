package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"kbchat/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetByIDAndUserID loads a chat with its full history in conversation
// order; nil when absent.
func (r *ChatRepository) GetByIDAndUserID(chatID, userID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.
		Preload("Turns", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

// AppendTurns pushes a batch of turns onto the chat history atomically.
// Returns false when the chat does not exist for this user.
func (r *ChatRepository) AppendTurns(chatID, userID string, turns []model.Turn) (bool, error) {
	if len(turns) == 0 {
		return true, nil
	}

	found := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var chat model.Chat
		if err := lockForUpdate(tx).Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true

		var maxSeq int
		if err := tx.Model(&model.Turn{}).Where("chat_id = ?", chatID).
			Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return err
		}
		for i := range turns {
			turns[i].ChatID = chatID
			turns[i].Seq = maxSeq + i + 1
		}
		if err := tx.Create(&turns).Error; err != nil {
			return err
		}
		return tx.Model(&model.Chat{}).Where("id = ?", chatID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return false, fmt.Errorf("append turns failed: %w", err)
	}
	return found, nil
}
