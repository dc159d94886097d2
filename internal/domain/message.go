package domain

import "time"

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

// Valid reports whether s is one of the known delivery states.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusSeen:
		return true
	}
	return false
}

type Message struct {
	ID             string        `json:"id"`
	RoomID         string        `json:"roomId"`
	SenderID       string        `json:"senderId"`
	SenderUsername string        `json:"senderUsername"`
	Content        string        `json:"content,omitempty"`
	ImageRef       string        `json:"imageUrl,omitempty"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	ExpiresAt      time.Time     `json:"-"`
}

// Expired reports whether the message is past its TTL at now.
func (m *Message) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}
