package chat

import (
	"time"

	"github.com/Sumit771/1-2-1/internal/domain"
)

// Server → client event types.
const (
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
	EventMessageNew      = "message:new"
	EventStatusUpdated   = "message:statusUpdated"
	EventUserJoined      = "user:joined"
	EventUserLeft        = "user:left"
	EventTypingIndicator = "typing:indicator"
)

// Event is a one-way notification fanned out to connections.
type Event struct {
	Type    string
	Payload any
}

type PresencePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type StatusUpdatedPayload struct {
	MessageID string               `json:"messageId"`
	Status    domain.MessageStatus `json:"status"`
}

type MembershipPayload struct {
	UserID      string   `json:"userId"`
	ActiveUsers []string `json:"activeUsers"`
}

type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// --- Client → server requests and their acknowledgements ---

type SendMessageRequest struct {
	RoomID   string `json:"roomId"`
	Content  string `json:"content,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type SendMessageAck struct {
	Success   bool       `json:"success,omitempty"`
	MessageID string     `json:"messageId,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type StatusUpdateRequest struct {
	RoomID    string               `json:"roomId"`
	MessageID string               `json:"messageId"`
	Status    domain.MessageStatus `json:"status"`
}

type JoinRoomRequest struct {
	RoomID    string `json:"roomId"`
	PublicKey string `json:"publicKey,omitempty"`
}

type JoinRoomAck struct {
	Success            bool             `json:"success,omitempty"`
	Messages           []domain.Message `json:"messages,omitempty"`
	ActiveUsers        []string         `json:"activeUsers,omitempty"`
	OtherUserPublicKey string           `json:"otherUserPublicKey,omitempty"`
	OtherUserID        string           `json:"otherUserId,omitempty"`
	Error              string           `json:"error,omitempty"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
}

type TypingRequest struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}
