package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Sumit771/1-2-1/internal/domain"
	"github.com/Sumit771/1-2-1/pkg/log"
)

// Identity resolves bearer tokens and user ids. The session manager never
// sees credentials beyond the opaque token.
type Identity interface {
	AuthenticateConnection(ctx context.Context, token string) (domain.UserIdentity, error)
	LookupUser(ctx context.Context, userID string) (domain.UserIdentity, error)
}

type Options struct {
	MaxContentLength int
	TypingClearDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = 5000
	}
	if o.TypingClearDelay <= 0 {
		o.TypingClearDelay = 3 * time.Second
	}
	return o
}

// SessionManager drives the per-connection protocol: authentication,
// room join/leave, message fan-out, typing relay and the disconnect
// cascade.
type SessionManager struct {
	rooms    *RoomRegistry
	messages *MessageStore
	presence *PresenceTracker
	hub      *Hub
	identity Identity
	opts     Options

	keysMu sync.Mutex
	keys   map[string]map[string]string // roomID -> userID -> public key
}

func NewSessionManager(rooms *RoomRegistry, messages *MessageStore, presence *PresenceTracker, hub *Hub, identity Identity, opts Options) *SessionManager {
	m := &SessionManager{
		rooms:    rooms,
		messages: messages,
		presence: presence,
		hub:      hub,
		identity: identity,
		opts:     opts.withDefaults(),
		keys:     make(map[string]map[string]string),
	}
	rooms.OnTeardown(m.onRoomDestroyed)
	return m
}

// Session is one authenticated connection.
type Session struct {
	conn         Conn
	user         domain.UserIdentity
	disconnected atomic.Bool
}

func (s *Session) User() domain.UserIdentity { return s.user }

func (s *Session) Conn() Conn { return s.conn }

// Authenticate resolves token to a user. No state is touched on failure.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (domain.UserIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.UserIdentity{}, domain.NewUnauthenticatedError("Missing authentication token")
	}
	user, err := m.identity.AuthenticateConnection(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return domain.UserIdentity{}, err
		}
		return domain.UserIdentity{}, fmt.Errorf("authenticate connection: %w", err)
	}
	return user, nil
}

// Open binds conn to an already authenticated user, marks the user online
// and announces it to every other connection.
func (m *SessionManager) Open(user domain.UserIdentity, conn Conn) *Session {
	s := &Session{conn: conn, user: user}

	m.presence.RegisterSession(user.ID, conn.ID())
	m.hub.Register(conn)
	m.hub.BroadcastAll(Event{Type: EventUserOnline, Payload: PresencePayload{UserID: user.ID, IsOnline: true}}, conn.ID())

	l := log.L()
	l.Info().Str(log.FieldUserID, user.ID).Str(log.FieldUsername, user.Username).Str(log.FieldConnID, conn.ID()).Msg("session opened")
	return s
}

// Connect authenticates token and opens a session for conn.
func (m *SessionManager) Connect(ctx context.Context, token string, conn Conn) (*Session, error) {
	user, err := m.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return m.Open(user, conn), nil
}

// SendMessage admits a message and fans it out to every subscriber of the
// room, the sender included.
func (m *SessionManager) SendMessage(ctx context.Context, s *Session, req SendMessageRequest) SendMessageAck {
	msg, err := m.sendMessage(ctx, s, req)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, s.user.ID).Str(log.FieldRoomID, req.RoomID).Msg("send message rejected")
		return SendMessageAck{Error: domain.PublicMessage(err, "Failed to send message")}
	}

	m.hub.BroadcastToRoom(msg.RoomID, Event{Type: EventMessageNew, Payload: msg}, "")

	ts := msg.CreatedAt
	return SendMessageAck{Success: true, MessageID: msg.ID, Timestamp: &ts}
}

func (m *SessionManager) sendMessage(ctx context.Context, s *Session, req SendMessageRequest) (domain.Message, error) {
	content := strings.TrimSpace(req.Content)
	imageRef := strings.TrimSpace(req.ImageURL)

	if req.RoomID == "" {
		return domain.Message{}, domain.NewValidationError("Room ID is required")
	}
	if content == "" && imageRef == "" {
		return domain.Message{}, domain.NewValidationError("Message content or image is required")
	}
	if utf8.RuneCountInString(content) > m.opts.MaxContentLength {
		return domain.Message{}, domain.NewValidationError("Message is too long")
	}

	if _, ok := m.rooms.GetRoom(req.RoomID); !ok {
		return domain.Message{}, domain.NewNotFoundError("Room not found")
	}

	sender, err := m.identity.LookupUser(ctx, s.user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Message{}, domain.NewNotFoundError("User not found")
		}
		return domain.Message{}, fmt.Errorf("lookup sender %s: %w", s.user.ID, err)
	}

	return m.messages.AddMessage(req.RoomID, sender.ID, sender.Username, content, imageRef)
}

// UpdateMessageStatus applies a status change and announces it to the
// room. Unknown rooms or messages are ignored.
func (m *SessionManager) UpdateMessageStatus(ctx context.Context, s *Session, req StatusUpdateRequest) {
	l := log.Ctx(ctx)
	if !req.Status.Valid() {
		l.Debug().Str(log.FieldUserID, s.user.ID).Str("status", string(req.Status)).Msg("ignoring unknown message status")
		return
	}

	msg, ok := m.messages.UpdateStatus(req.RoomID, req.MessageID, req.Status)
	if !ok {
		l.Debug().Str(log.FieldRoomID, req.RoomID).Str(log.FieldMessageID, req.MessageID).Msg("status update for unknown message")
		return
	}

	m.hub.BroadcastToRoom(req.RoomID, Event{
		Type:    EventStatusUpdated,
		Payload: StatusUpdatedPayload{MessageID: msg.ID, Status: msg.Status},
	}, "")
}

// JoinRoom subscribes the session to a room and returns the room's
// current history and live set together with the other participant's
// public key, if one has been shared.
func (m *SessionManager) JoinRoom(ctx context.Context, s *Session, req JoinRoomRequest) JoinRoomAck {
	rm, ok := m.rooms.GetRoom(req.RoomID)
	if !ok {
		return JoinRoomAck{Error: "Room not found"}
	}

	active, err := m.rooms.AddActiveUser(rm.ID, s.user.ID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, rm.ID).Msg("join room failed")
		return JoinRoomAck{Error: domain.PublicMessage(err, "Failed to join room")}
	}
	// The caller is live now, so the room cannot be torn down before the
	// key is stored.
	if req.PublicKey != "" {
		m.storeKey(rm.ID, s.user.ID, req.PublicKey)
	}
	m.hub.Subscribe(s.conn, rm.ID)

	m.hub.BroadcastToRoom(rm.ID, Event{
		Type:    EventUserJoined,
		Payload: MembershipPayload{UserID: s.user.ID, ActiveUsers: active},
	}, s.conn.ID())

	otherID, _ := rm.Other(s.user.ID)
	ack := JoinRoomAck{
		Success:     true,
		Messages:    m.messages.Messages(rm.ID),
		ActiveUsers: active,
		OtherUserID: otherID,
	}
	if key, ok := m.publicKey(rm.ID, otherID); ok {
		ack.OtherUserPublicKey = key
	}
	return ack
}

// LeaveRoom unsubscribes the session from the room and drops the user from
// its live set, which may destroy the room.
func (m *SessionManager) LeaveRoom(_ context.Context, s *Session, req LeaveRoomRequest) {
	m.hub.Unsubscribe(s.conn, req.RoomID)
	m.depart(req.RoomID, s)
}

func (m *SessionManager) depart(roomID string, s *Session) {
	dep := m.rooms.RemoveActiveUser(roomID, s.user.ID)
	if !dep.Found || dep.Destroyed {
		return
	}
	m.hub.BroadcastToRoom(roomID, Event{
		Type:    EventUserLeft,
		Payload: MembershipPayload{UserID: s.user.ID, ActiveUsers: dep.ActiveUsers},
	}, s.conn.ID())
}

// TypingStart relays the indicator to the other subscribers and schedules
// an automatic stop after the configured delay. The scheduled stop is not
// cancelled by a later TypingStop.
func (m *SessionManager) TypingStart(_ context.Context, s *Session, req TypingRequest) {
	if req.RoomID == "" {
		return
	}
	m.relayTyping(req.RoomID, s, true)

	roomID := req.RoomID
	time.AfterFunc(m.opts.TypingClearDelay, func() {
		m.relayTyping(roomID, s, false)
	})
}

func (m *SessionManager) TypingStop(_ context.Context, s *Session, req TypingRequest) {
	if req.RoomID == "" {
		return
	}
	m.relayTyping(req.RoomID, s, false)
}

func (m *SessionManager) relayTyping(roomID string, s *Session, typing bool) {
	m.hub.BroadcastToRoom(roomID, Event{
		Type:    EventTypingIndicator,
		Payload: TypingPayload{UserID: s.user.ID, IsTyping: typing},
	}, s.conn.ID())
}

// Disconnect tears the session down: presence is cleared, the user leaves
// every room it is live in and the rest of the server is told it went
// offline. Only the first call has an effect.
func (m *SessionManager) Disconnect(ctx context.Context, s *Session) {
	if !s.disconnected.CompareAndSwap(false, true) {
		return
	}

	m.presence.UnregisterSession(s.user.ID)
	m.hub.Unregister(s.conn)

	rooms := m.rooms.ActiveRoomIDs(s.user.ID)
	for _, roomID := range rooms {
		m.depart(roomID, s)
	}

	m.hub.BroadcastAll(Event{Type: EventUserOffline, Payload: PresencePayload{UserID: s.user.ID, IsOnline: false}}, s.conn.ID())

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldUserID, s.user.ID).Str(log.FieldConnID, s.conn.ID()).Int("rooms_left", len(rooms)).Msg("session closed")
}

func (m *SessionManager) storeKey(roomID, userID, key string) {
	m.keysMu.Lock()
	defer m.keysMu.Unlock()
	byUser, ok := m.keys[roomID]
	if !ok {
		byUser = make(map[string]string)
		m.keys[roomID] = byUser
	}
	byUser[userID] = key
}

func (m *SessionManager) publicKey(roomID, userID string) (string, bool) {
	m.keysMu.Lock()
	defer m.keysMu.Unlock()
	key, ok := m.keys[roomID][userID]
	return key, ok
}

func (m *SessionManager) onRoomDestroyed(roomID string) {
	m.keysMu.Lock()
	delete(m.keys, roomID)
	m.keysMu.Unlock()

	m.hub.DropRoom(roomID)

	l := log.L()
	l.Debug().Str(log.FieldRoomID, roomID).Msg("room destroyed")
}
