package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumit771/1-2-1/internal/domain"
)

func TestDeriveRoomID(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"1", "2", "1_2"},
		{"2", "1", "1_2"},
		{"4821", "1033", "1033_4821"},
		{"abc", "abd", "abc_abd"},
		{"x", "x", "x_x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveRoomID(tt.a, tt.b))
		assert.Equal(t, DeriveRoomID(tt.a, tt.b), DeriveRoomID(tt.b, tt.a))
	}
}

func TestGetOrCreateRoom_ConcurrentFirstContact(t *testing.T) {
	reg := NewRoomRegistry(NewImageTracker())

	const n = 64
	ids := make([]string, n)
	created := make([]time.Time, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var rm domain.Room
			if i%2 == 0 {
				rm = reg.GetOrCreateRoom("1", "Alice", "2", "Bob")
			} else {
				rm = reg.GetOrCreateRoom("2", "Bob", "1", "Alice")
			}
			ids[i] = rm.ID
			created[i] = rm.CreatedAt
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, reg.Count())
	for i := 0; i < n; i++ {
		assert.Equal(t, "1_2", ids[i])
		assert.True(t, created[0].Equal(created[i]))
	}
}

func TestGetOrCreateRoom_KeepsFirstNames(t *testing.T) {
	reg := NewRoomRegistry(nil)

	first := reg.GetOrCreateRoom("1", "Alice", "2", "Bob")
	again := reg.GetOrCreateRoom("2", "Bob", "1", "Alice")

	assert.Equal(t, first.UserAID, again.UserAID)
	assert.Equal(t, "Alice", again.UserAName)
	assert.Empty(t, again.ActiveUsers)
}

func TestGetRoom_Unknown(t *testing.T) {
	reg := NewRoomRegistry(nil)
	_, ok := reg.GetRoom("1_2")
	assert.False(t, ok)
}

func TestRoomsForUser(t *testing.T) {
	clock := newFakeClock()
	reg := NewRoomRegistry(nil)
	reg.now = clock.Now

	reg.GetOrCreateRoom("1", "Alice", "3", "Carol")
	clock.Advance(time.Second)
	reg.GetOrCreateRoom("2", "Bob", "3", "Carol")
	clock.Advance(time.Second)
	reg.GetOrCreateRoom("1", "Alice", "2", "Bob")

	rooms := reg.RoomsForUser("1")
	require.Len(t, rooms, 2)
	assert.Equal(t, "1_3", rooms[0].ID)
	assert.Equal(t, "1_2", rooms[1].ID)

	assert.Len(t, reg.RoomsForUser("3"), 2)
	assert.Empty(t, reg.RoomsForUser("9"))
}

func TestAddActiveUser(t *testing.T) {
	reg := NewRoomRegistry(nil)
	reg.GetOrCreateRoom("1", "Alice", "2", "Bob")

	active, err := reg.AddActiveUser("1_2", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, active)

	active, err = reg.AddActiveUser("1_2", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, active)

	_, err = reg.AddActiveUser("9_9", "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveActiveUser_TeardownOnEmpty(t *testing.T) {
	clock := newFakeClock()
	images := NewImageTracker()
	images.now = clock.Now
	reg := NewRoomRegistry(images)
	store := NewMessageStore(reg, images, time.Hour)
	store.now = clock.Now

	var tornDown []string
	reg.OnTeardown(func(roomID string) { tornDown = append(tornDown, roomID) })

	reg.GetOrCreateRoom("1", "Alice", "2", "Bob")
	_, err := reg.AddActiveUser("1_2", "1")
	require.NoError(t, err)
	_, err = reg.AddActiveUser("1_2", "2")
	require.NoError(t, err)

	_, err = store.AddMessage("1_2", "1", "Alice", "", "/api/images/a.jpg")
	require.NoError(t, err)
	_, err = store.AddMessage("1_2", "2", "Bob", "look", "/api/images/b.jpg")
	require.NoError(t, err)
	images.Track("/api/images/other.jpg", clock.Now().Add(time.Hour))
	require.Equal(t, 3, images.Len())

	dep := reg.RemoveActiveUser("1_2", "1")
	assert.True(t, dep.Found)
	assert.False(t, dep.Destroyed)
	assert.Equal(t, []string{"2"}, dep.ActiveUsers)
	_, ok := reg.GetRoom("1_2")
	assert.True(t, ok)

	dep = reg.RemoveActiveUser("1_2", "2")
	assert.True(t, dep.Found)
	assert.True(t, dep.Destroyed)
	assert.Empty(t, dep.ActiveUsers)

	_, ok = reg.GetRoom("1_2")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Count())
	assert.Equal(t, []string{"1_2"}, tornDown)

	_, tracked := images.ExpiresAt("/api/images/a.jpg")
	assert.False(t, tracked)
	_, tracked = images.ExpiresAt("/api/images/b.jpg")
	assert.False(t, tracked)
	_, tracked = images.ExpiresAt("/api/images/other.jpg")
	assert.True(t, tracked)

	_, err = store.AddMessage("1_2", "1", "Alice", "late", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveActiveUser_InactiveUserNeverDestroys(t *testing.T) {
	reg := NewRoomRegistry(nil)
	reg.GetOrCreateRoom("1", "Alice", "2", "Bob")

	dep := reg.RemoveActiveUser("1_2", "1")
	assert.True(t, dep.Found)
	assert.False(t, dep.Destroyed)

	_, ok := reg.GetRoom("1_2")
	assert.True(t, ok)

	dep = reg.RemoveActiveUser("7_8", "7")
	assert.False(t, dep.Found)
}

func TestActiveRoomIDs(t *testing.T) {
	reg := NewRoomRegistry(nil)
	reg.GetOrCreateRoom("1", "Alice", "2", "Bob")
	reg.GetOrCreateRoom("1", "Alice", "3", "Carol")

	_, _ = reg.AddActiveUser("1_3", "1")
	_, _ = reg.AddActiveUser("1_2", "1")
	_, _ = reg.AddActiveUser("1_2", "2")

	assert.Equal(t, []string{"1_2", "1_3"}, reg.ActiveRoomIDs("1"))
	assert.Equal(t, []string{"1_2"}, reg.ActiveRoomIDs("2"))
	assert.Empty(t, reg.ActiveRoomIDs("3"))
}
