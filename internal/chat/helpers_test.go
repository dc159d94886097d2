package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sumit771/1-2-1/internal/domain"
)

type fakeConn struct {
	id     string
	userID string

	mu     sync.Mutex
	events []Event
	full   bool
	closed atomic.Bool
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() string { return c.userID }
func (c *fakeConn) Close()         { c.closed.Store(true) }

func (c *fakeConn) Send(evt Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.events = append(c.events, evt)
	return true
}

func (c *fakeConn) received(eventType string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type fakeIdentity struct {
	tokens    map[string]domain.UserIdentity
	users     map[string]domain.UserIdentity
	lookupErr error
}

func newFakeIdentity(users ...domain.UserIdentity) *fakeIdentity {
	f := &fakeIdentity{
		tokens: make(map[string]domain.UserIdentity),
		users:  make(map[string]domain.UserIdentity),
	}
	for _, u := range users {
		f.tokens["token-"+u.ID] = u
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeIdentity) AuthenticateConnection(_ context.Context, token string) (domain.UserIdentity, error) {
	u, ok := f.tokens[token]
	if !ok {
		return domain.UserIdentity{}, domain.NewUnauthenticatedError("Invalid token")
	}
	return u, nil
}

func (f *fakeIdentity) LookupUser(_ context.Context, id string) (domain.UserIdentity, error) {
	if f.lookupErr != nil {
		return domain.UserIdentity{}, f.lookupErr
	}
	u, ok := f.users[id]
	if !ok {
		return domain.UserIdentity{}, domain.NewNotFoundError("User not found")
	}
	return u, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type core struct {
	clock    *fakeClock
	images   *ImageTracker
	rooms    *RoomRegistry
	messages *MessageStore
	presence *PresenceTracker
	hub      *Hub
	identity *fakeIdentity
	sessions *SessionManager
}

func newCore(ttl time.Duration, opts Options, users ...domain.UserIdentity) *core {
	clock := newFakeClock()
	images := NewImageTracker()
	images.now = clock.Now
	rooms := NewRoomRegistry(images)
	rooms.now = clock.Now
	messages := NewMessageStore(rooms, images, ttl)
	messages.now = clock.Now
	presence := NewPresenceTracker()
	hub := NewHub()
	identity := newFakeIdentity(users...)

	return &core{
		clock:    clock,
		images:   images,
		rooms:    rooms,
		messages: messages,
		presence: presence,
		hub:      hub,
		identity: identity,
		sessions: NewSessionManager(rooms, messages, presence, hub, identity, opts),
	}
}

var (
	alice = domain.UserIdentity{ID: "1", Username: "Alice"}
	bob   = domain.UserIdentity{ID: "2", Username: "Bob"}
	carol = domain.UserIdentity{ID: "3", Username: "Carol"}
)
