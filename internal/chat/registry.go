package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/Sumit771/1-2-1/internal/domain"
)

const roomIDSeparator = "_"

// DeriveRoomID returns the id of the room shared by two users. The
// result does not depend on argument order.
func DeriveRoomID(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + roomIDSeparator + userB
}

// room is the mutable state behind a domain.Room. Fields below mu are
// guarded by it; the rest never change after creation.
type room struct {
	id        string
	userAID   string
	userAName string
	userBID   string
	userBName string
	createdAt time.Time

	mu       sync.Mutex
	messages []*domain.Message
	active   map[string]struct{}
	closed   bool
}

// snapshot copies the room. Caller must hold r.mu.
func (r *room) snapshot() domain.Room {
	return domain.Room{
		ID:          r.id,
		UserAID:     r.userAID,
		UserBID:     r.userBID,
		UserAName:   r.userAName,
		UserBName:   r.userBName,
		CreatedAt:   r.createdAt,
		ActiveUsers: r.activeUsers(),
	}
}

// activeUsers returns the live set in ascending order. Caller must hold r.mu.
func (r *room) activeUsers() []string {
	users := make([]string, 0, len(r.active))
	for id := range r.active {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// RoomRegistry owns every room and its message sequence. Rooms are
// created on first contact and destroyed when their last active user
// leaves.
//
// Lock order is registry before room; no method takes the registry lock
// while holding a room lock.
type RoomRegistry struct {
	mu         sync.RWMutex
	rooms      map[string]*room
	images     *ImageTracker
	now        func() time.Time
	onTeardown []func(roomID string)
}

func NewRoomRegistry(images *ImageTracker) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*room),
		images: images,
		now:    time.Now,
	}
}

// OnTeardown registers fn to run after a room has been destroyed.
// Hooks run outside of all registry locks.
func (r *RoomRegistry) OnTeardown(fn func(roomID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTeardown = append(r.onTeardown, fn)
}

// GetOrCreateRoom returns the room shared by the two users, creating an
// empty one if none exists. Concurrent calls for the same pair observe a
// single room.
func (r *RoomRegistry) GetOrCreateRoom(userA, nameA, userB, nameB string) domain.Room {
	id := DeriveRoomID(userA, userB)

	r.mu.Lock()
	rm, ok := r.rooms[id]
	if !ok {
		rm = &room{
			id:        id,
			userAID:   userA,
			userAName: nameA,
			userBID:   userB,
			userBName: nameB,
			createdAt: r.now(),
			active:    make(map[string]struct{}),
		}
		r.rooms[id] = rm
	}
	r.mu.Unlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshot()
}

func (r *RoomRegistry) GetRoom(roomID string) (domain.Room, bool) {
	rm := r.lookup(roomID)
	if rm == nil {
		return domain.Room{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return domain.Room{}, false
	}
	return rm.snapshot(), true
}

// RoomsForUser returns every room userID participates in, oldest first.
func (r *RoomRegistry) RoomsForUser(userID string) []domain.Room {
	var rooms []domain.Room
	for _, rm := range r.all() {
		if rm.userAID != userID && rm.userBID != userID {
			continue
		}
		rm.mu.Lock()
		if !rm.closed {
			rooms = append(rooms, rm.snapshot())
		}
		rm.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

// ActiveRoomIDs returns the ids of rooms in which userID is currently live.
func (r *RoomRegistry) ActiveRoomIDs(userID string) []string {
	var ids []string
	for _, rm := range r.all() {
		rm.mu.Lock()
		if _, ok := rm.active[userID]; ok && !rm.closed {
			ids = append(ids, rm.id)
		}
		rm.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}

// AddActiveUser puts userID into the room's live set and returns the
// resulting set.
func (r *RoomRegistry) AddActiveUser(roomID, userID string) ([]string, error) {
	rm := r.lookup(roomID)
	if rm == nil {
		return nil, domain.NewNotFoundError("Room not found")
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return nil, domain.NewNotFoundError("Room not found")
	}
	rm.active[userID] = struct{}{}
	return rm.activeUsers(), nil
}

// Departure describes the effect of RemoveActiveUser.
type Departure struct {
	// Found is false when the room does not exist.
	Found bool
	// Destroyed is true when this call emptied the live set and the room
	// was torn down.
	Destroyed bool
	// ActiveUsers is the live set after removal.
	ActiveUsers []string
}

// RemoveActiveUser drops userID from the room's live set. When that
// leaves the set empty the room is destroyed together with the image
// references held by its messages. Removing a user that was not live
// never destroys the room.
func (r *RoomRegistry) RemoveActiveUser(roomID, userID string) Departure {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return Departure{}
	}

	rm.mu.Lock()
	_, wasActive := rm.active[userID]
	delete(rm.active, userID)

	var refs []string
	destroyed := wasActive && len(rm.active) == 0
	if destroyed {
		rm.closed = true
		delete(r.rooms, roomID)
		for _, m := range rm.messages {
			if m.ImageRef != "" {
				refs = append(refs, m.ImageRef)
			}
		}
		rm.messages = nil
	}
	dep := Departure{Found: true, Destroyed: destroyed, ActiveUsers: rm.activeUsers()}
	rm.mu.Unlock()

	hooks := r.onTeardown
	r.mu.Unlock()

	if destroyed {
		if r.images != nil {
			r.images.Untrack(refs...)
		}
		for _, fn := range hooks {
			fn(roomID)
		}
	}
	return dep
}

// Count returns the number of live rooms.
func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RoomRegistry) lookup(roomID string) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

func (r *RoomRegistry) all() []*room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	return rooms
}
