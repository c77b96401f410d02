package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kbchat/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Chat{}, &model.Turn{}, &model.ChatList{}))
	return db
}

func newChat(userID, title string) (*model.Chat, model.ChatSummary) {
	chat := &model.Chat{
		ID:     uuid.NewString(),
		UserID: userID,
		Turns: []model.Turn{
			{Role: model.RoleUser, Content: title, Seq: 1},
			{Role: model.RoleAssistant, Content: "answer", Seq: 2},
		},
	}
	summary := model.ChatSummary{ChatID: chat.ID, Title: title, CreatedAt: time.Now().UTC()}
	return chat, summary
}

func chatIDs(summaries []model.ChatSummary) []string {
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ChatID)
	}
	return ids
}

func TestCreateChatAppendsToActiveList(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	first, firstSummary := newChat("u1", "first question")
	second, secondSummary := newChat("u1", "second question")
	require.NoError(t, repo.CreateChat(first, firstSummary))
	require.NoError(t, repo.CreateChat(second, secondSummary))

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, chatIDs(active))

	pinned, err := repo.Summaries("u1", model.ChatListPinned)
	require.NoError(t, err)
	assert.Empty(t, pinned)
}

func TestPinMovesSummaryBetweenLists(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "pin me")
	require.NoError(t, repo.CreateChat(chat, summary))

	found, err := repo.Pin("u1", chat.ID, "pin me")
	require.NoError(t, err)
	require.True(t, found)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	pinned, err := repo.Summaries("u1", model.ChatListPinned)
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	assert.Equal(t, chat.ID, pinned[0].ChatID)
	assert.Equal(t, "pin me", pinned[0].Title)
}

func TestPinAlreadyPinnedIsNoOp(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "pin me")
	require.NoError(t, repo.CreateChat(chat, summary))

	found, err := repo.Pin("u1", chat.ID, "pin me")
	require.NoError(t, err)
	require.True(t, found)

	found, err = repo.Pin("u1", chat.ID, "a different title")
	require.NoError(t, err)
	require.True(t, found)

	pinned, err := repo.Summaries("u1", model.ChatListPinned)
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	assert.Equal(t, "pin me", pinned[0].Title)
}

func TestPinUnknownChat(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	found, err := repo.Pin("u1", uuid.NewString(), "ghost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPinRebuildsSummaryWhenListingDrifted(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatListRepository(db)

	// Chat record exists but was never listed.
	chat := &model.Chat{ID: uuid.NewString(), UserID: "u1"}
	require.NoError(t, db.Create(chat).Error)

	found, err := repo.Pin("u1", chat.ID, "recovered title")
	require.NoError(t, err)
	require.True(t, found)

	pinned, err := repo.Summaries("u1", model.ChatListPinned)
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	assert.Equal(t, "recovered title", pinned[0].Title)
	assert.WithinDuration(t, chat.CreatedAt, pinned[0].CreatedAt, time.Second)
}

func TestUnpinRoundTripPreservesSummary(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "round trip")
	require.NoError(t, repo.CreateChat(chat, summary))

	found, err := repo.Pin("u1", chat.ID, "round trip")
	require.NoError(t, err)
	require.True(t, found)

	found, err = repo.Unpin("u1", chat.ID)
	require.NoError(t, err)
	require.True(t, found)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, chat.ID, active[0].ChatID)
	assert.Equal(t, summary.Title, active[0].Title)
	assert.WithinDuration(t, summary.CreatedAt, active[0].CreatedAt, time.Second)

	pinned, err := repo.Summaries("u1", model.ChatListPinned)
	require.NoError(t, err)
	assert.Empty(t, pinned)
}

func TestUnpinNotPinned(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "still active")
	require.NoError(t, repo.CreateChat(chat, summary))

	found, err := repo.Unpin("u1", chat.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRenameUpdatesActiveEntry(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "old title")
	require.NoError(t, repo.CreateChat(chat, summary))

	renamed, err := repo.Rename("u1", chat.ID, "new title")
	require.NoError(t, err)
	require.True(t, renamed)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "new title", active[0].Title)
}

func TestRenamePinnedLeavesActiveUntouched(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	pinnedChat, pinnedSummary := newChat("u1", "pinned")
	activeChat, activeSummary := newChat("u1", "active")
	require.NoError(t, repo.CreateChat(pinnedChat, pinnedSummary))
	require.NoError(t, repo.CreateChat(activeChat, activeSummary))

	found, err := repo.Pin("u1", pinnedChat.ID, "pinned")
	require.NoError(t, err)
	require.True(t, found)

	renamed, err := repo.Rename("u1", pinnedChat.ID, "renamed pinned")
	require.NoError(t, err)
	require.True(t, renamed)

	pinned, err := repo.Summaries("u1", model.ChatListPinned)
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	assert.Equal(t, "renamed pinned", pinned[0].Title)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "active", active[0].Title)
}

func TestRenameUnknownChat(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	renamed, err := repo.Rename("u1", uuid.NewString(), "whatever")
	require.NoError(t, err)
	assert.False(t, renamed)
}

func TestDeleteChatRemovesEverywhere(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatListRepository(db)

	chat, summary := newChat("u1", "doomed")
	require.NoError(t, repo.CreateChat(chat, summary))

	existed, err := repo.DeleteChat("u1", chat.ID)
	require.NoError(t, err)
	require.True(t, existed)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	var chats int64
	require.NoError(t, db.Model(&model.Chat{}).Where("id = ?", chat.ID).Count(&chats).Error)
	assert.Zero(t, chats)

	var turns int64
	require.NoError(t, db.Model(&model.Turn{}).Where("chat_id = ?", chat.ID).Count(&turns).Error)
	assert.Zero(t, turns)
}

func TestDeletePinnedChat(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "doomed pin")
	require.NoError(t, repo.CreateChat(chat, summary))

	found, err := repo.Pin("u1", chat.ID, "doomed pin")
	require.NoError(t, err)
	require.True(t, found)

	existed, err := repo.DeleteChat("u1", chat.ID)
	require.NoError(t, err)
	require.True(t, existed)

	pinned, err := repo.Summaries("u1", model.ChatListPinned)
	require.NoError(t, err)
	assert.Empty(t, pinned)
}

func TestDeleteRepairsDriftedListing(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatListRepository(db)

	chat, summary := newChat("u1", "drifted")
	require.NoError(t, repo.CreateChat(chat, summary))
	// Record vanishes out of band; the listing entry stays behind.
	require.NoError(t, db.Where("id = ?", chat.ID).Delete(&model.Chat{}).Error)

	existed, err := repo.DeleteChat("u1", chat.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSummariesIsolatedPerUser(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "mine")
	require.NoError(t, repo.CreateChat(chat, summary))

	other, err := repo.Summaries("u2", model.ChatListActive)
	require.NoError(t, err)
	assert.Empty(t, other)

	found, err := repo.Pin("u2", chat.ID, "mine")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteOtherUsersChatKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatListRepository(db)

	chat, summary := newChat("u1", "not yours")
	require.NoError(t, repo.CreateChat(chat, summary))

	existed, err := repo.DeleteChat("u2", chat.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	// The owner's record, turns, and listing all survive.
	var turns int64
	require.NoError(t, db.Model(&model.Turn{}).Where("chat_id = ?", chat.ID).Count(&turns).Error)
	assert.Equal(t, int64(2), turns)

	var chats int64
	require.NoError(t, db.Model(&model.Chat{}).Where("id = ?", chat.ID).Count(&chats).Error)
	assert.Equal(t, int64(1), chats)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, chat.ID, active[0].ChatID)
}

func TestMutationsScopedToOwner(t *testing.T) {
	repo := NewChatListRepository(newTestDB(t))

	chat, summary := newChat("u1", "mine")
	require.NoError(t, repo.CreateChat(chat, summary))

	renamed, err := repo.Rename("u2", chat.ID, "hijacked")
	require.NoError(t, err)
	assert.False(t, renamed)

	found, err := repo.Unpin("u2", chat.ID)
	require.NoError(t, err)
	assert.False(t, found)

	active, err := repo.Summaries("u1", model.ChatListActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "mine", active[0].Title)
}
