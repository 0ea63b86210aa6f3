package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/pkg/response"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *domain.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService *domain.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// GetChats handles GET /api/v1/chats
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	summaries, err := h.chatService.GetSummaries(r.Context(), userID)
	if err != nil {
		serviceError(w, h.logger, err, "Failed to load chats")
		return
	}
	response.OK(w, summaries)
}

// GetMessages handles GET /api/v1/chats/{userId}/messages
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.chatService.GetThread(r.Context(), userID, chi.URLParam(r, "userId"))
	if err != nil {
		serviceError(w, h.logger, err, "Failed to load messages")
		return
	}
	response.OK(w, msgs)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage handles POST /api/v1/chats/{userId}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), userID, chi.URLParam(r, "userId"), req.Text)
	if err != nil {
		serviceError(w, h.logger, err, "Failed to send message")
		return
	}
	response.Created(w, msg)
}
