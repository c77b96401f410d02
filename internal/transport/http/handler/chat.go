package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbchat/internal/app"
	"kbchat/internal/transport/http/middleware"
	"kbchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

type InstantLookupRequest struct {
	Query      string `json:"query" binding:"required"`
	DataSource string `json:"dataSource" binding:"required"`
}

type CreateChatRequest struct {
	Text              string `json:"text" binding:"required"`
	AssistantResponse string `json:"assistantResponse"`
}

type AppendChatRequest struct {
	Question          string `json:"question" binding:"required"`
	AssistantResponse string `json:"assistantResponse"`
}

type PinChatRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	Title  string `json:"title"`
}

type RenameChatRequest struct {
	NewTitle string `json:"newTitle" binding:"required"`
}

// Ask serves grounded generation.
func (h *ChatHandler) Ask(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), userID, req.Query)
	if err != nil {
		h.writeChatError(c, err, "ask failed")
		return
	}
	response.OK(c, gin.H{"response": answer})
}

// AskFreeForm serves generation without retrieval grounding.
func (h *ChatHandler) AskFreeForm(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.chatService.AskFreeForm(c.Request.Context(), userID, req.Query)
	if err != nil {
		h.writeChatError(c, err, "ask failed")
		return
	}
	response.OK(c, gin.H{"response": answer})
}

// InstantLookup answers a one-off query against a named data source.
func (h *ChatHandler) InstantLookup(c *gin.Context) {
	var req InstantLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.chatService.InstantLookup(c.Request.Context(), req.Query, req.DataSource)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownDataSource):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrUpstream):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailure, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "instant lookup failed")
		}
		return
	}
	response.OK(c, gin.H{"response": answer})
}

// CreateChat stores a new chat from its first exchange.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	chatID, err := h.chatService.CreateChat(userID, req.Text, req.AssistantResponse)
	if err != nil {
		h.writeChatError(c, err, "create chat failed")
		return
	}
	response.OK(c, gin.H{"chatId": chatID})
}

// AppendToChat pushes one exchange onto an existing chat.
func (h *ChatHandler) AppendToChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AppendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.chatService.AppendToChat(userID, c.Param("id"), req.Question, req.AssistantResponse); err != nil {
		h.writeChatError(c, err, "append to chat failed")
		return
	}
	response.OK(c, gin.H{"chatId": c.Param("id")})
}

// GetChat returns one chat with its full history.
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	chat, err := h.chatService.GetChat(userID, c.Param("id"))
	if err != nil {
		h.writeChatError(c, err, "get chat failed")
		return
	}
	response.OK(c, chat)
}

// ListChats returns the active listing.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	summaries, err := h.chatService.ListChats(userID)
	if err != nil {
		h.writeChatError(c, err, "list chats failed")
		return
	}
	response.OK(c, summaries)
}

// ListPinnedChats returns the pinned listing.
func (h *ChatHandler) ListPinnedChats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	summaries, err := h.chatService.ListPinnedChats(userID)
	if err != nil {
		h.writeChatError(c, err, "list pinned chats failed")
		return
	}
	response.OK(c, summaries)
}

// PinChat moves a chat into the pinned listing.
func (h *ChatHandler) PinChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req PinChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.chatService.PinChat(userID, req.ChatID, req.Title); err != nil {
		h.writeChatError(c, err, "pin chat failed")
		return
	}
	response.OK(c, gin.H{"chatId": req.ChatID})
}

// UnpinChat moves a chat back into the active listing.
func (h *ChatHandler) UnpinChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.chatService.UnpinChat(userID, c.Param("id")); err != nil {
		h.writeChatError(c, err, "unpin chat failed")
		return
	}
	response.OK(c, gin.H{"chatId": c.Param("id")})
}

// RenameChat updates the listing title.
func (h *ChatHandler) RenameChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req RenameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.chatService.RenameChat(userID, c.Param("id"), req.NewTitle); err != nil {
		h.writeChatError(c, err, "rename chat failed")
		return
	}
	response.OK(c, gin.H{"chatId": c.Param("id")})
}

// DeleteChat removes a chat from both listings and the store.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.chatService.DeleteChat(userID, c.Param("id")); err != nil {
		h.writeChatError(c, err, "delete chat failed")
		return
	}
	response.OK(c, gin.H{"deletedChatId": c.Param("id")})
}

func (h *ChatHandler) writeChatError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func getUserIDFromContext(c *gin.Context) (string, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := userIDAny.(string)
	return userID, ok && userID != ""
}
