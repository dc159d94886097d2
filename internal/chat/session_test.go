package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumit771/1-2-1/internal/domain"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func connect(t *testing.T, c *core, user domain.UserIdentity) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn("conn-"+user.ID, user.ID)
	s, err := c.sessions.Connect(context.Background(), "token-"+user.ID, conn)
	require.NoError(t, err)
	return s, conn
}

func TestConnect_RejectsBadToken(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice)
	conn := newFakeConn("c1", "")

	_, err := c.sessions.Connect(context.Background(), "", conn)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = c.sessions.Connect(context.Background(), "forged", conn)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	assert.Equal(t, 0, c.presence.OnlineCount())
	assert.Equal(t, 0, c.hub.ConnCount())
}

func TestConnect_AnnouncesPresenceToOthers(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	_, aliceConn := connect(t, c, alice)
	_, bobConn := connect(t, c, bob)

	online := aliceConn.received(EventUserOnline)
	require.Len(t, online, 1)
	assert.Equal(t, PresencePayload{UserID: "2", IsOnline: true}, online[0].Payload)
	assert.Empty(t, bobConn.received(EventUserOnline))

	assert.True(t, c.presence.IsOnline("1"))
	assert.True(t, c.presence.IsOnline("2"))
}

func TestEndToEnd_SendAndMarkSeen(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	ctx := context.Background()

	rm := c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	require.Equal(t, "1_2", rm.ID)

	sa, aliceConn := connect(t, c, alice)
	sb, bobConn := connect(t, c, bob)

	require.True(t, c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2"}).Success)
	require.True(t, c.sessions.JoinRoom(ctx, sb, JoinRoomRequest{RoomID: "1_2"}).Success)

	ack := c.sessions.SendMessage(ctx, sa, SendMessageRequest{RoomID: "1_2", Content: "hi"})
	require.True(t, ack.Success, ack.Error)
	require.NotEmpty(t, ack.MessageID)
	require.NotNil(t, ack.Timestamp)

	// The sender receives its own message too.
	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		evts := conn.received(EventMessageNew)
		require.Len(t, evts, 1)
		msg := evts[0].Payload.(domain.Message)
		assert.Equal(t, ack.MessageID, msg.ID)
		assert.Equal(t, domain.StatusSent, msg.Status)
		assert.Equal(t, "Alice", msg.SenderUsername)
	}

	aliceConn.reset()
	bobConn.reset()

	c.sessions.UpdateMessageStatus(ctx, sb, StatusUpdateRequest{RoomID: "1_2", MessageID: ack.MessageID, Status: domain.StatusSeen})

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		evts := conn.all()
		require.Len(t, evts, 1)
		assert.Equal(t, EventStatusUpdated, evts[0].Type)
		assert.Equal(t, StatusUpdatedPayload{MessageID: ack.MessageID, Status: domain.StatusSeen}, evts[0].Payload)
	}

	msgs := c.messages.Messages("1_2")
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.StatusSeen, msgs[0].Status)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestSendMessage_Validation(t *testing.T) {
	c := newCore(time.Hour, Options{MaxContentLength: 10}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, aliceConn := connect(t, c, alice)

	tests := []struct {
		name string
		req  SendMessageRequest
		want string
	}{
		{"missing room", SendMessageRequest{Content: "hi"}, "Room ID is required"},
		{"empty payload", SendMessageRequest{RoomID: "1_2", Content: "   "}, "Message content or image is required"},
		{"too long", SendMessageRequest{RoomID: "1_2", Content: strings.Repeat("x", 11)}, "Message is too long"},
		{"unknown room", SendMessageRequest{RoomID: "1_9", Content: "hi"}, "Room not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := c.sessions.SendMessage(ctx, sa, tt.req)
			assert.False(t, ack.Success)
			assert.Equal(t, tt.want, ack.Error)
			assert.Empty(t, ack.MessageID)
		})
	}

	ack := c.sessions.SendMessage(ctx, sa, SendMessageRequest{RoomID: "1_2", Content: strings.Repeat("é", 10)})
	assert.True(t, ack.Success)
	assert.Empty(t, aliceConn.received(EventMessageNew), "sender did not join the room")
}

func TestSendMessage_ImageOnly(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, _ := connect(t, c, alice)

	ack := c.sessions.SendMessage(ctx, sa, SendMessageRequest{RoomID: "1_2", ImageURL: "/api/images/1_a.jpg"})
	require.True(t, ack.Success)

	_, tracked := c.images.ExpiresAt("/api/images/1_a.jpg")
	assert.True(t, tracked)
}

func TestSendMessage_IdentityFailures(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, _ := connect(t, c, alice)

	delete(c.identity.users, "1")
	ack := c.sessions.SendMessage(ctx, sa, SendMessageRequest{RoomID: "1_2", Content: "hi"})
	assert.Equal(t, "User not found", ack.Error)

	c.identity.lookupErr = errors.New("connection refused")
	ack = c.sessions.SendMessage(ctx, sa, SendMessageRequest{RoomID: "1_2", Content: "hi"})
	assert.Equal(t, "Failed to send message", ack.Error)

	assert.Empty(t, c.messages.Messages("1_2"))
}

func TestUpdateMessageStatus_UnknownIsSilent(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, aliceConn := connect(t, c, alice)
	c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2"})
	aliceConn.reset()

	c.sessions.UpdateMessageStatus(ctx, sa, StatusUpdateRequest{RoomID: "1_2", MessageID: "nope", Status: domain.StatusSeen})
	c.sessions.UpdateMessageStatus(ctx, sa, StatusUpdateRequest{RoomID: "1_2", MessageID: "nope", Status: "read"})

	assert.Empty(t, aliceConn.all())
}

func TestJoinRoom(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, aliceConn := connect(t, c, alice)
	sb, _ := connect(t, c, bob)

	ack := c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2", PublicKey: "alice-key"})
	require.True(t, ack.Success)
	assert.Equal(t, []string{"1"}, ack.ActiveUsers)
	assert.Equal(t, "2", ack.OtherUserID)
	assert.Empty(t, ack.OtherUserPublicKey)
	assert.Empty(t, ack.Messages)

	c.sessions.SendMessage(ctx, sa, SendMessageRequest{RoomID: "1_2", Content: "hello"})

	ack = c.sessions.JoinRoom(ctx, sb, JoinRoomRequest{RoomID: "1_2", PublicKey: "bob-key"})
	require.True(t, ack.Success)
	assert.Equal(t, []string{"1", "2"}, ack.ActiveUsers)
	assert.Equal(t, "1", ack.OtherUserID)
	assert.Equal(t, "alice-key", ack.OtherUserPublicKey)
	require.Len(t, ack.Messages, 1)
	assert.Equal(t, "hello", ack.Messages[0].Content)

	joined := aliceConn.received(EventUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, MembershipPayload{UserID: "2", ActiveUsers: []string{"1", "2"}}, joined[0].Payload)
}

func TestJoinRoom_UnknownRoom(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice)
	sa, _ := connect(t, c, alice)

	ack := c.sessions.JoinRoom(context.Background(), sa, JoinRoomRequest{RoomID: "1_2", PublicKey: "k"})
	assert.False(t, ack.Success)
	assert.Equal(t, "Room not found", ack.Error)

	_, ok := c.sessions.publicKey("1_2", "1")
	assert.False(t, ok)
}

func TestLeaveRoom_NotifiesAndTearsDown(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, aliceConn := connect(t, c, alice)
	sb, bobConn := connect(t, c, bob)
	c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2", PublicKey: "alice-key"})
	c.sessions.JoinRoom(ctx, sb, JoinRoomRequest{RoomID: "1_2"})

	c.sessions.LeaveRoom(ctx, sb, LeaveRoomRequest{RoomID: "1_2"})

	left := aliceConn.received(EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, MembershipPayload{UserID: "2", ActiveUsers: []string{"1"}}, left[0].Payload)
	assert.False(t, c.hub.IsSubscribed(bobConn, "1_2"))

	c.sessions.LeaveRoom(ctx, sa, LeaveRoomRequest{RoomID: "1_2"})
	_, ok := c.rooms.GetRoom("1_2")
	assert.False(t, ok)
	_, ok = c.sessions.publicKey("1_2", "1")
	assert.False(t, ok)
	assert.False(t, c.hub.IsSubscribed(aliceConn, "1_2"))
}

func TestTyping_RelayAndAutoClear(t *testing.T) {
	c := newCore(time.Hour, Options{TypingClearDelay: 30 * time.Millisecond}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, aliceConn := connect(t, c, alice)
	sb, bobConn := connect(t, c, bob)
	c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2"})
	c.sessions.JoinRoom(ctx, sb, JoinRoomRequest{RoomID: "1_2"})

	c.sessions.TypingStart(ctx, sa, TypingRequest{RoomID: "1_2", IsTyping: true})

	got := bobConn.received(EventTypingIndicator)
	require.Len(t, got, 1)
	assert.Equal(t, TypingPayload{UserID: "1", IsTyping: true}, got[0].Payload)

	assert.Eventually(t, func() bool {
		return len(bobConn.received(EventTypingIndicator)) == 2
	}, timeout, tick)
	got = bobConn.received(EventTypingIndicator)
	assert.Equal(t, TypingPayload{UserID: "1", IsTyping: false}, got[1].Payload)

	assert.Empty(t, aliceConn.received(EventTypingIndicator), "typing is never echoed to the sender")
}

func TestTyping_ExplicitStopDoesNotCancelAutoClear(t *testing.T) {
	c := newCore(time.Hour, Options{TypingClearDelay: 30 * time.Millisecond}, alice, bob)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, _ := connect(t, c, alice)
	sb, bobConn := connect(t, c, bob)
	c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2"})
	c.sessions.JoinRoom(ctx, sb, JoinRoomRequest{RoomID: "1_2"})

	c.sessions.TypingStart(ctx, sa, TypingRequest{RoomID: "1_2", IsTyping: true})
	c.sessions.TypingStop(ctx, sa, TypingRequest{RoomID: "1_2"})

	assert.Eventually(t, func() bool {
		return len(bobConn.received(EventTypingIndicator)) == 3
	}, timeout, tick)
}

func TestTyping_AutoClearAfterRoomGone(t *testing.T) {
	c := newCore(time.Hour, Options{TypingClearDelay: 10 * time.Millisecond}, alice)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	sa, _ := connect(t, c, alice)
	c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2"})

	c.sessions.TypingStart(ctx, sa, TypingRequest{RoomID: "1_2", IsTyping: true})
	c.sessions.Disconnect(ctx, sa)

	assert.Never(t, func() bool { return c.rooms.Count() != 0 }, 50*time.Millisecond, tick)
}

func TestDisconnect_Cascade(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob, carol)
	ctx := context.Background()
	c.rooms.GetOrCreateRoom("1", "Alice", "2", "Bob")
	c.rooms.GetOrCreateRoom("1", "Alice", "3", "Carol")

	sa, _ := connect(t, c, alice)
	sb, bobConn := connect(t, c, bob)
	_, carolConn := connect(t, c, carol)

	c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_2"})
	c.sessions.JoinRoom(ctx, sb, JoinRoomRequest{RoomID: "1_2"})
	c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: "1_3"})

	c.sessions.Disconnect(ctx, sa)
	c.sessions.Disconnect(ctx, sa)

	assert.False(t, c.presence.IsOnline("1"))

	rm, ok := c.rooms.GetRoom("1_2")
	require.True(t, ok)
	assert.Equal(t, []string{"2"}, rm.ActiveUsers)
	_, ok = c.rooms.GetRoom("1_3")
	assert.False(t, ok, "alice was the only live user")

	left := bobConn.received(EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, MembershipPayload{UserID: "1", ActiveUsers: []string{"2"}}, left[0].Payload)

	for _, conn := range []*fakeConn{bobConn, carolConn} {
		offline := conn.received(EventUserOffline)
		require.Len(t, offline, 1)
		assert.Equal(t, PresencePayload{UserID: "1", IsOnline: false}, offline[0].Payload)
	}
}

func TestJoinRoom_ConcurrentTeardownStoresNoKey(t *testing.T) {
	c := newCore(time.Hour, Options{}, alice, bob)
	sa, _ := connect(t, c, alice)
	sb, _ := connect(t, c, bob)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		rm := c.rooms.GetOrCreateRoom(alice.ID, alice.Username, bob.ID, bob.Username)
		require.True(t, c.sessions.JoinRoom(ctx, sa, JoinRoomRequest{RoomID: rm.ID}).Success)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.sessions.JoinRoom(ctx, sb, JoinRoomRequest{RoomID: rm.ID, PublicKey: "bob-key"})
		}()
		go func() {
			defer wg.Done()
			c.sessions.LeaveRoom(ctx, sa, LeaveRoomRequest{RoomID: rm.ID})
		}()
		wg.Wait()

		if _, ok := c.rooms.GetRoom(rm.ID); ok {
			c.sessions.LeaveRoom(ctx, sb, LeaveRoomRequest{RoomID: rm.ID})
		}
		_, ok := c.rooms.GetRoom(rm.ID)
		require.False(t, ok)
		_, stored := c.sessions.publicKey(rm.ID, bob.ID)
		require.False(t, stored, "round %d: key kept for a destroyed room", i)
	}
}
