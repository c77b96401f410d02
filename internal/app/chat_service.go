package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"kbchat/internal/ai"
	"kbchat/internal/model"
	"kbchat/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrChatNotFound      = errors.New("chat not found")
	ErrUnknownDataSource = errors.New("unknown data source")
	ErrUpstream          = errors.New("generation backend failed")
)

// FallbackResponse is returned whenever the backend produced no output.
const FallbackResponse = "No response generated."

// errorResponse is the absorbed-failure sentinel for the interactive chat
// endpoints: a generation problem never fails the caller there.
const errorResponse = "An error occurred while generating a response. Please try again."

const defaultTitleMaxLen = 30

// GenerationBackend is the retrieval/generation collaborator.
type GenerationBackend interface {
	RetrieveAndGenerate(ctx context.Context, prompt, knowledgeBaseID, dataSourceID, modelID, encryptionKeyRef string) (string, error)
	Generate(ctx context.Context, prompt, modelID string, params ai.GenerationParams) (string, error)
}

// ConversationContext is the rolling per-user turn window consulted when
// building prompts.
type ConversationContext interface {
	AppendTurn(ctx context.Context, userID, role, text string) error
	Context(ctx context.Context, userID string) (string, error)
}

// GenerationSettings scope every backend call to one knowledge base and
// model. DataSources is the fixed name->identifier map for instant lookup.
type GenerationSettings struct {
	KnowledgeBaseID  string
	ModelID          string
	EncryptionKeyRef string
	DataSources      map[string]string
	Params           ai.GenerationParams
	TitleMaxLen      int
}

// ChatService is the generation gateway plus the chat/session state
// machine over the two listing projections.
type ChatService struct {
	chatRepo     *repository.ChatRepository
	chatListRepo *repository.ChatListRepository
	convContext  ConversationContext
	backend      GenerationBackend
	settings     GenerationSettings
}

func NewChatService(
	chatRepo *repository.ChatRepository,
	chatListRepo *repository.ChatListRepository,
	convContext ConversationContext,
	backend GenerationBackend,
	settings GenerationSettings,
) *ChatService {
	if settings.TitleMaxLen <= 0 {
		settings.TitleMaxLen = defaultTitleMaxLen
	}
	return &ChatService{
		chatRepo:     chatRepo,
		chatListRepo: chatListRepo,
		convContext:  convContext,
		backend:      backend,
		settings:     settings,
	}
}

// Ask runs grounded generation over the knowledge base. Backend failures
// are absorbed into a sentinel reply; the user and assistant turns are
// pushed onto the conversation context right after a successful parse.
func (s *ChatService) Ask(ctx context.Context, userID, query string) (string, error) {
	if userID == "" {
		return "", ErrInvalidInput
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrInvalidInput
	}

	prompt, err := s.buildPrompt(ctx, userID, query)
	if err != nil {
		return "", err
	}

	answer, err := s.backend.RetrieveAndGenerate(
		ctx,
		prompt,
		s.settings.KnowledgeBaseID,
		"",
		s.settings.ModelID,
		s.settings.EncryptionKeyRef,
	)
	if err != nil {
		log.Printf("grounded generation failed for user %s: %v", userID, err)
		return errorResponse, nil
	}
	return s.finishExchange(ctx, userID, query, answer), nil
}

// AskFreeForm runs generation without retrieval grounding, with the fixed
// decoding parameters. Same absorption and context side effects as Ask.
func (s *ChatService) AskFreeForm(ctx context.Context, userID, query string) (string, error) {
	if userID == "" {
		return "", ErrInvalidInput
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrInvalidInput
	}

	prompt, err := s.buildPrompt(ctx, userID, query)
	if err != nil {
		return "", err
	}

	answer, err := s.backend.Generate(ctx, prompt, s.settings.ModelID, s.settings.Params)
	if err != nil {
		log.Printf("free-form generation failed for user %s: %v", userID, err)
		return errorResponse, nil
	}
	return s.finishExchange(ctx, userID, query, answer), nil
}

// InstantLookup answers a one-off query against a named data source. An
// unrecognized name fails fast before any backend call; a backend failure
// here is surfaced, not absorbed.
func (s *ChatService) InstantLookup(ctx context.Context, query, dataSource string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrInvalidInput
	}
	dataSourceID, ok := s.settings.DataSources[dataSource]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataSource, dataSource)
	}

	answer, err := s.backend.RetrieveAndGenerate(
		ctx,
		query,
		s.settings.KnowledgeBaseID,
		dataSourceID,
		s.settings.ModelID,
		s.settings.EncryptionKeyRef,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(answer) == "" {
		return FallbackResponse, nil
	}
	return answer, nil
}

// CreateChat stores a new chat seeded with the first exchange and lists it
// in the active projection. Returns the new chat id.
func (s *ChatService) CreateChat(userID, text, assistantResponse string) (string, error) {
	if userID == "" || strings.TrimSpace(text) == "" {
		return "", ErrInvalidInput
	}

	now := time.Now()
	chat := &model.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Turns: []model.Turn{
			{Role: model.RoleUser, Content: text, Seq: 1},
			{Role: model.RoleAssistant, Content: assistantResponse, Seq: 2},
		},
	}
	summary := model.ChatSummary{
		ChatID:    chat.ID,
		Title:     truncateTitle(text, s.settings.TitleMaxLen),
		CreatedAt: now,
	}
	if err := s.chatListRepo.CreateChat(chat, summary); err != nil {
		return "", err
	}
	return chat.ID, nil
}

// AppendToChat pushes one question/answer pair onto an existing chat as an
// atomic batch. Listing projections are untouched.
func (s *ChatService) AppendToChat(userID, chatID, question, assistantResponse string) error {
	if userID == "" || chatID == "" || strings.TrimSpace(question) == "" {
		return ErrInvalidInput
	}
	turns := []model.Turn{
		{Role: model.RoleUser, Content: question},
		{Role: model.RoleAssistant, Content: assistantResponse},
	}
	found, err := s.chatRepo.AppendTurns(chatID, userID, turns)
	if err != nil {
		return err
	}
	if !found {
		return ErrChatNotFound
	}
	return nil
}

// GetChat returns a chat with its full history in conversation order.
func (s *ChatService) GetChat(userID, chatID string) (*model.Chat, error) {
	if userID == "" || chatID == "" {
		return nil, ErrInvalidInput
	}
	chat, err := s.chatRepo.GetByIDAndUserID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

// ListChats returns the active projection in listing order.
func (s *ChatService) ListChats(userID string) ([]model.ChatSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.chatListRepo.Summaries(userID, model.ChatListActive)
}

// ListPinnedChats returns the pinned projection in listing order.
func (s *ChatService) ListPinnedChats(userID string) ([]model.ChatSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.chatListRepo.Summaries(userID, model.ChatListPinned)
}

// RenameChat updates the title in whichever projection lists the chat.
func (s *ChatService) RenameChat(userID, chatID, newTitle string) error {
	newTitle = strings.TrimSpace(newTitle)
	if userID == "" || chatID == "" || newTitle == "" {
		return ErrInvalidInput
	}
	renamed, err := s.chatListRepo.Rename(userID, chatID, newTitle)
	if err != nil {
		return err
	}
	if !renamed {
		return ErrChatNotFound
	}
	return nil
}

// PinChat moves a chat to the pinned projection; pinning an already-pinned
// chat is a no-op.
func (s *ChatService) PinChat(userID, chatID, title string) error {
	if userID == "" || chatID == "" {
		return ErrInvalidInput
	}
	found, err := s.chatListRepo.Pin(userID, chatID, title)
	if err != nil {
		return err
	}
	if !found {
		return ErrChatNotFound
	}
	return nil
}

// UnpinChat moves a chat back to the active projection with its original
// summary.
func (s *ChatService) UnpinChat(userID, chatID string) error {
	if userID == "" || chatID == "" {
		return ErrInvalidInput
	}
	found, err := s.chatListRepo.Unpin(userID, chatID)
	if err != nil {
		return err
	}
	if !found {
		return ErrChatNotFound
	}
	return nil
}

// DeleteChat removes a chat from both projections and the chat store.
func (s *ChatService) DeleteChat(userID, chatID string) error {
	if userID == "" || chatID == "" {
		return ErrInvalidInput
	}
	existed, err := s.chatListRepo.DeleteChat(userID, chatID)
	if err != nil {
		return err
	}
	if !existed {
		return ErrChatNotFound
	}
	return nil
}

func (s *ChatService) buildPrompt(ctx context.Context, userID, query string) (string, error) {
	history, err := s.convContext.Context(ctx, userID)
	if err != nil {
		return "", err
	}
	return "Context: " + history + "\nUser: " + query, nil
}

// finishExchange normalizes the reply and records both turns, user first.
func (s *ChatService) finishExchange(ctx context.Context, userID, query, answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = FallbackResponse
	}
	if err := s.convContext.AppendTurn(ctx, userID, model.RoleUser, query); err != nil {
		log.Printf("append user turn failed for user %s: %v", userID, err)
	}
	if err := s.convContext.AppendTurn(ctx, userID, model.RoleAssistant, answer); err != nil {
		log.Printf("append assistant turn failed for user %s: %v", userID, err)
	}
	return answer
}

func truncateTitle(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
