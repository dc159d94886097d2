package domain

import "time"

// Room is a point-in-time copy of a 1:1 conversation between two users.
type Room struct {
	ID          string    `json:"id"`
	UserAID     string    `json:"userAId"`
	UserBID     string    `json:"userBId"`
	UserAName   string    `json:"userAName"`
	UserBName   string    `json:"userBName"`
	CreatedAt   time.Time `json:"createdAt"`
	ActiveUsers []string  `json:"activeUsers"`
}

// HasParticipant reports whether userID is one of the two room members.
func (r *Room) HasParticipant(userID string) bool {
	return r.UserAID == userID || r.UserBID == userID
}

// Other returns the id and username of the participant that is not userID.
func (r *Room) Other(userID string) (id, username string) {
	if r.UserAID == userID {
		return r.UserBID, r.UserBName
	}
	return r.UserAID, r.UserAName
}

// RoomSummary is the listing entry for one of the caller's rooms.
type RoomSummary struct {
	ID              string          `json:"id"`
	OtherUserID     string          `json:"otherUserId"`
	OtherUsername   string          `json:"otherUsername"`
	OtherUserOnline bool            `json:"otherUserOnline"`
	ActiveUsers     []string        `json:"activeUsers"`
	MessageCount    int             `json:"messageCount"`
	LastMessage     *MessagePreview `json:"lastMessage"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type MessagePreview struct {
	Content   string    `json:"content,omitempty"`
	ImageRef  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	SenderID  string    `json:"senderId"`
}
