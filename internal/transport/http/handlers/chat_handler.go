package handlers

import (
	"net/http"
	"time"

	"github.com/Sumit771/1-2-1/internal/service"
	"github.com/Sumit771/1-2-1/internal/transport/http/middleware"
)

// ClientConfig is the tuning the web client reads at startup.
type ClientConfig struct {
	MessageTTL       time.Duration
	MaxContentLength int
	TypingDebounce   time.Duration
}

type ChatHandler struct {
	chatService *service.ChatService
	client      ClientConfig
}

func NewChatHandler(chatService *service.ChatService, client ClientConfig) *ChatHandler {
	return &ChatHandler{chatService: chatService, client: client}
}

func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var input struct {
		OtherUserID string `json:"otherUserId"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	resp, err := h.chatService.CreateRoom(r.Context(), middleware.GetUserID(r.Context()), input.OtherUserID)
	if err != nil {
		writeServiceError(w, r, "create room", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.chatService.ListRooms(r.Context(), middleware.GetUserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *ChatHandler) RoomMessages(w http.ResponseWriter, r *http.Request) {
	msgs := h.chatService.RoomMessages(r.PathValue("roomId"))
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chatService.Stats())
}

func (h *ChatHandler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"onlineUserIds": h.chatService.OnlineUserIDs()})
}

func (h *ChatHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"messageTtlMs":     h.client.MessageTTL.Milliseconds(),
		"maxContentLength": h.client.MaxContentLength,
		"typingDebounceMs": h.client.TypingDebounce.Milliseconds(),
	})
}
