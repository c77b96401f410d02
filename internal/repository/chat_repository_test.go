package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbchat/internal/model"
)

func TestGetByIDAndUserID(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRepository(db)

	chat, summary := newChat("u1", "hello")
	require.NoError(t, NewChatListRepository(db).CreateChat(chat, summary))

	got, err := repo.GetByIDAndUserID(chat.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, model.RoleUser, got.Turns[0].Role)
	assert.Equal(t, model.RoleAssistant, got.Turns[1].Role)

	got, err = repo.GetByIDAndUserID(chat.ID, "u2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAppendTurnsKeepsOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRepository(db)

	chat, summary := newChat("u1", "hello")
	require.NoError(t, NewChatListRepository(db).CreateChat(chat, summary))

	found, err := repo.AppendTurns(chat.ID, "u1", []model.Turn{
		{Role: model.RoleUser, Content: "follow-up"},
		{Role: model.RoleAssistant, Content: "follow-up answer"},
	})
	require.NoError(t, err)
	require.True(t, found)

	got, err := repo.GetByIDAndUserID(chat.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Turns, 4)
	for i, turn := range got.Turns {
		assert.Equal(t, i+1, turn.Seq)
	}
	assert.Equal(t, "follow-up answer", got.Turns[3].Content)
}

func TestAppendTurnsUnknownChat(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	found, err := repo.AppendTurns(uuid.NewString(), "u1", []model.Turn{
		{Role: model.RoleUser, Content: "lost"},
	})
	require.NoError(t, err)
	assert.False(t, found)
}
