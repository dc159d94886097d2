package service

import (
	"context"
	"strings"

	"github.com/Sumit771/1-2-1/internal/chat"
	"github.com/Sumit771/1-2-1/internal/domain"
	"github.com/Sumit771/1-2-1/internal/repository"
	"github.com/Sumit771/1-2-1/pkg/log"
)

var (
	ErrOtherUserRequired = domain.NewValidationError("otherUserId is required")
	ErrCannotChatSelf    = domain.NewValidationError("Cannot start a chat with yourself")
)

// ChatService is the request/response surface over the realtime core.
type ChatService struct {
	userRepo repository.UserRepository
	rooms    *chat.RoomRegistry
	messages *chat.MessageStore
	presence *chat.PresenceTracker
}

func NewChatService(userRepo repository.UserRepository, rooms *chat.RoomRegistry, messages *chat.MessageStore, presence *chat.PresenceTracker) *ChatService {
	return &ChatService{
		userRepo: userRepo,
		rooms:    rooms,
		messages: messages,
		presence: presence,
	}
}

type RoomResponse struct {
	RoomID   string           `json:"roomId"`
	Messages []domain.Message `json:"messages"`
}

// CreateRoom returns the room shared by the caller and otherUserID,
// creating it if needed, with its current history.
func (s *ChatService) CreateRoom(ctx context.Context, userID, otherUserID string) (*RoomResponse, error) {
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return nil, ErrOtherUserRequired
	}
	if otherUserID == userID {
		return nil, ErrCannotChatSelf
	}

	me, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if me == nil || other == nil {
		return nil, ErrUserNotFound
	}

	room := s.rooms.GetOrCreateRoom(me.ID, me.Username, other.ID, other.Username)

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldUserID, me.ID).Str("other_user_id", other.ID).Str(log.FieldRoomID, room.ID).Msg("room opened")

	return &RoomResponse{RoomID: room.ID, Messages: s.messages.Messages(room.ID)}, nil
}

// ListRooms summarises every room the user takes part in. Counts and the
// last message only consider unexpired messages.
func (s *ChatService) ListRooms(_ context.Context, userID string) []domain.RoomSummary {
	rooms := s.rooms.RoomsForUser(userID)
	summaries := make([]domain.RoomSummary, 0, len(rooms))
	for i := range rooms {
		rm := &rooms[i]
		otherID, otherName := rm.Other(userID)
		msgs := s.messages.Messages(rm.ID)

		summary := domain.RoomSummary{
			ID:              rm.ID,
			OtherUserID:     otherID,
			OtherUsername:   otherName,
			OtherUserOnline: s.presence.IsOnline(otherID),
			ActiveUsers:     rm.ActiveUsers,
			MessageCount:    len(msgs),
			CreatedAt:       rm.CreatedAt,
		}
		if n := len(msgs); n > 0 {
			last := msgs[n-1]
			summary.LastMessage = &domain.MessagePreview{
				Content:   last.Content,
				ImageRef:  last.ImageRef,
				CreatedAt: last.CreatedAt,
				SenderID:  last.SenderID,
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func (s *ChatService) RoomMessages(roomID string) []domain.Message {
	return s.messages.Messages(roomID)
}

type Stats struct {
	ActiveChatCount int `json:"activeChatCount"`
	OnlineUserCount int `json:"onlineUserCount"`
}

func (s *ChatService) Stats() Stats {
	return Stats{
		ActiveChatCount: s.rooms.Count(),
		OnlineUserCount: s.presence.OnlineCount(),
	}
}

func (s *ChatService) OnlineUserIDs() []string {
	return s.presence.OnlineUserIDs()
}
