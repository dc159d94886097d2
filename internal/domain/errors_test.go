package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := NewValidationError("Message is too long")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Message is too long", err.Error())

	wrapped := fmt.Errorf("adding message: %w", NewNotFoundError("Room not found"))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Room not found", PublicMessage(NewNotFoundError("Room not found"), "Failed"))
	assert.Equal(t, "Failed", PublicMessage(errors.New("db is on fire"), "Failed"))
	assert.Equal(t, "Failed", PublicMessage(fmt.Errorf("lookup: %w", ErrInternal), "Failed"))
}

func TestRoomOther(t *testing.T) {
	r := Room{UserAID: "1", UserAName: "alice", UserBID: "2", UserBName: "bob"}

	id, name := r.Other("1")
	assert.Equal(t, "2", id)
	assert.Equal(t, "bob", name)

	id, name = r.Other("2")
	assert.Equal(t, "1", id)
	assert.Equal(t, "alice", name)

	assert.True(t, r.HasParticipant("2"))
	assert.False(t, r.HasParticipant("3"))
}

func TestMessageStatusValid(t *testing.T) {
	assert.True(t, StatusSeen.Valid())
	assert.False(t, MessageStatus("read").Valid())
}
