package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kbchat/internal/model"
)

// ChatListRepository owns the two listing projections and every transition
// that has to keep them consistent with the chat store. Each transition
// runs in one transaction with the user's projection rows locked, so a chat
// id can never end up in both projections even under concurrent requests.
type ChatListRepository struct {
	db *gorm.DB
}

func NewChatListRepository(db *gorm.DB) *ChatListRepository {
	return &ChatListRepository{db: db}
}

// Summaries returns the ordered listing of one projection kind; empty when
// the projection was never created.
func (r *ChatListRepository) Summaries(userID, kind string) ([]model.ChatSummary, error) {
	var list model.ChatList
	err := r.db.Where("user_id = ? AND kind = ?", userID, kind).First(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat list failed: %w", err)
	}
	summaries, err := list.SummaryList()
	if err != nil {
		return nil, fmt.Errorf("decode chat list failed: %w", err)
	}
	return summaries, nil
}

// CreateChat stores the chat record (with its initial turns) and appends
// its summary at the end of the active projection, creating the projection
// lazily.
func (r *ChatListRepository) CreateChat(chat *model.Chat, summary model.ChatSummary) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		active, err := r.listFor(tx, chat.UserID, model.ChatListActive, true)
		if err != nil {
			return err
		}
		summaries, err := active.SummaryList()
		if err != nil {
			return err
		}
		if indexOf(summaries, summary.ChatID) >= 0 {
			return nil
		}
		return r.saveSummaries(tx, active, append(summaries, summary))
	})
	if err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

// Rename updates the title in whichever projection currently lists the
// chat: active first, then pinned. Returns false when neither matched.
func (r *ChatListRepository) Rename(userID, chatID, title string) (bool, error) {
	renamed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, kind := range []string{model.ChatListActive, model.ChatListPinned} {
			list, err := r.listFor(tx, userID, kind, false)
			if err != nil {
				return err
			}
			if list == nil {
				continue
			}
			summaries, err := list.SummaryList()
			if err != nil {
				return err
			}
			i := indexOf(summaries, chatID)
			if i < 0 {
				continue
			}
			summaries[i].Title = title
			if err := r.saveSummaries(tx, list, summaries); err != nil {
				return err
			}
			renamed = true
			return nil
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rename chat failed: %w", err)
	}
	return renamed, nil
}

// Pin moves the chat's summary from the active projection to the pinned
// one. Pinning an already-pinned chat is a no-op. When the active
// projection has no entry (listing drift), the summary is rebuilt from the
// chat record and the given title. Returns false when the chat is unknown.
func (r *ChatListRepository) Pin(userID, chatID, title string) (bool, error) {
	found := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		pinned, err := r.listFor(tx, userID, model.ChatListPinned, true)
		if err != nil {
			return err
		}
		pinnedSummaries, err := pinned.SummaryList()
		if err != nil {
			return err
		}
		if indexOf(pinnedSummaries, chatID) >= 0 {
			found = true
			return nil
		}

		active, err := r.listFor(tx, userID, model.ChatListActive, false)
		var summary *model.ChatSummary
		if err != nil {
			return err
		}
		if active != nil {
			activeSummaries, decodeErr := active.SummaryList()
			if decodeErr != nil {
				return decodeErr
			}
			if i := indexOf(activeSummaries, chatID); i >= 0 {
				s := activeSummaries[i]
				summary = &s
				activeSummaries = append(activeSummaries[:i], activeSummaries[i+1:]...)
				if saveErr := r.saveSummaries(tx, active, activeSummaries); saveErr != nil {
					return saveErr
				}
			}
		}
		if summary == nil {
			var chat model.Chat
			if err := tx.Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}
			summary = &model.ChatSummary{ChatID: chatID, Title: title, CreatedAt: chat.CreatedAt}
		}

		found = true
		return r.saveSummaries(tx, pinned, append(pinnedSummaries, *summary))
	})
	if err != nil {
		return false, fmt.Errorf("pin chat failed: %w", err)
	}
	return found, nil
}

// Unpin moves the summary back to the active projection carrying its
// original title and createdAt, creating the active projection if missing.
// Returns false when the chat is not pinned.
func (r *ChatListRepository) Unpin(userID, chatID string) (bool, error) {
	found := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		pinned, err := r.listFor(tx, userID, model.ChatListPinned, false)
		if err != nil {
			return err
		}
		if pinned == nil {
			return nil
		}
		pinnedSummaries, err := pinned.SummaryList()
		if err != nil {
			return err
		}
		i := indexOf(pinnedSummaries, chatID)
		if i < 0 {
			return nil
		}
		summary := pinnedSummaries[i]
		pinnedSummaries = append(pinnedSummaries[:i], pinnedSummaries[i+1:]...)
		if err := r.saveSummaries(tx, pinned, pinnedSummaries); err != nil {
			return err
		}

		active, err := r.listFor(tx, userID, model.ChatListActive, true)
		if err != nil {
			return err
		}
		activeSummaries, err := active.SummaryList()
		if err != nil {
			return err
		}
		if indexOf(activeSummaries, chatID) < 0 {
			activeSummaries = append(activeSummaries, summary)
		}
		if err := r.saveSummaries(tx, active, activeSummaries); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("unpin chat failed: %w", err)
	}
	return found, nil
}

// DeleteChat removes the chat from both projections, then deletes the
// record and its turns. The record delete is scoped to the owner; turns are
// only removed once that delete matched, so a caller holding someone else's
// chat id cannot destroy its history. The projection removals happen even
// when the record is already gone, so a listed-but-missing chat is repaired
// rather than treated as an error. Returns false when the chat record did
// not exist for this user.
func (r *ChatListRepository) DeleteChat(userID, chatID string) (bool, error) {
	existed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, kind := range []string{model.ChatListActive, model.ChatListPinned} {
			list, err := r.listFor(tx, userID, kind, false)
			if err != nil {
				return err
			}
			if list == nil {
				continue
			}
			summaries, err := list.SummaryList()
			if err != nil {
				return err
			}
			i := indexOf(summaries, chatID)
			if i < 0 {
				continue
			}
			summaries = append(summaries[:i], summaries[i+1:]...)
			if err := r.saveSummaries(tx, list, summaries); err != nil {
				return err
			}
		}

		res := tx.Where("id = ? AND user_id = ?", chatID, userID).Delete(&model.Chat{})
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		if !existed {
			// Someone else's chat id, or already gone. Either way the
			// history is not ours to destroy.
			return nil
		}
		return tx.Where("chat_id = ?", chatID).Delete(&model.Turn{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete chat failed: %w", err)
	}
	return existed, nil
}

func (r *ChatListRepository) listFor(tx *gorm.DB, userID, kind string, create bool) (*model.ChatList, error) {
	var list model.ChatList
	err := lockForUpdate(tx).Where("user_id = ? AND kind = ?", userID, kind).First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !create {
			return nil, nil
		}
		list = model.ChatList{UserID: userID, Kind: kind}
		if err := list.SetSummaries(nil); err != nil {
			return nil, err
		}
		if err := tx.Create(&list).Error; err != nil {
			return nil, err
		}
		return &list, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *ChatListRepository) saveSummaries(tx *gorm.DB, list *model.ChatList, summaries []model.ChatSummary) error {
	if err := list.SetSummaries(summaries); err != nil {
		return err
	}
	return tx.Model(&model.ChatList{}).Where("id = ?", list.ID).
		Update("summaries", list.Summaries).Error
}

func indexOf(summaries []model.ChatSummary, chatID string) int {
	for i := range summaries {
		if summaries[i].ChatID == chatID {
			return i
		}
	}
	return -1
}
