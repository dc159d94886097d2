package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/Sumit771/1-2-1/internal/domain"
)

// MessageStore manages the message sequences held by a RoomRegistry.
// Expired messages are never returned, whether or not they have been
// compacted away yet.
type MessageStore struct {
	rooms  *RoomRegistry
	images *ImageTracker
	ttl    time.Duration
	now    func() time.Time
}

func NewMessageStore(rooms *RoomRegistry, images *ImageTracker, ttl time.Duration) *MessageStore {
	return &MessageStore{
		rooms:  rooms,
		images: images,
		ttl:    ttl,
		now:    time.Now,
	}
}

// AddMessage appends a message to the room. At least one of content and
// imageRef must be non-empty. An attached image is tracked with the
// message's own expiry.
func (s *MessageStore) AddMessage(roomID, senderID, senderName, content, imageRef string) (domain.Message, error) {
	if content == "" && imageRef == "" {
		return domain.Message{}, domain.NewValidationError("Message content or image is required")
	}

	rm := s.rooms.lookup(roomID)
	if rm == nil {
		return domain.Message{}, domain.NewNotFoundError("Chat room not found")
	}

	now := s.now()
	msg := &domain.Message{
		ID:             uuid.NewString(),
		RoomID:         roomID,
		SenderID:       senderID,
		SenderUsername: senderName,
		Content:        content,
		ImageRef:       imageRef,
		Status:         domain.StatusSent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return domain.Message{}, domain.NewNotFoundError("Chat room not found")
	}
	rm.messages = append(rm.messages, msg)
	// Tracked under the room lock so a concurrent teardown always sees
	// and untracks the reference after it has been added.
	if imageRef != "" && s.images != nil {
		s.images.Track(imageRef, msg.ExpiresAt)
	}
	out := *msg
	rm.mu.Unlock()

	return out, nil
}

// Messages returns the room's unexpired messages in arrival order. An
// unknown room yields an empty slice.
func (s *MessageStore) Messages(roomID string) []domain.Message {
	out := []domain.Message{}
	rm := s.rooms.lookup(roomID)
	if rm == nil {
		return out
	}

	now := s.now()
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, m := range rm.messages {
		if !m.Expired(now) {
			out = append(out, *m)
		}
	}
	return out
}

// UpdateStatus overwrites the status of a message. It reports false when
// the room or an unexpired message with that id does not exist.
func (s *MessageStore) UpdateStatus(roomID, messageID string, status domain.MessageStatus) (domain.Message, bool) {
	rm := s.rooms.lookup(roomID)
	if rm == nil {
		return domain.Message{}, false
	}

	now := s.now()
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, m := range rm.messages {
		if m.ID == messageID && !m.Expired(now) {
			m.Status = status
			return *m, true
		}
	}
	return domain.Message{}, false
}

// Compact physically drops expired messages from every room and returns
// how many were removed.
func (s *MessageStore) Compact() int {
	now := s.now()
	removed := 0
	for _, rm := range s.rooms.all() {
		rm.mu.Lock()
		kept := rm.messages[:0]
		for _, m := range rm.messages {
			if m.Expired(now) {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		for i := len(kept); i < len(rm.messages); i++ {
			rm.messages[i] = nil
		}
		rm.messages = kept
		rm.mu.Unlock()
	}
	return removed
}
