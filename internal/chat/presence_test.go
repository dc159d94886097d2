package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceTracker(t *testing.T) {
	p := NewPresenceTracker()
	assert.False(t, p.IsOnline("1"))

	p.RegisterSession("1", "conn-a")
	assert.True(t, p.IsOnline("1"))
	assert.Contains(t, p.OnlineUserIDs(), "1")
	assert.Equal(t, 1, p.OnlineCount())

	p.RegisterSession("1", "conn-b")
	h, ok := p.Handle("1")
	assert.True(t, ok)
	assert.Equal(t, "conn-b", h)
	assert.Equal(t, 1, p.OnlineCount())

	p.UnregisterSession("1")
	assert.False(t, p.IsOnline("1"))
	assert.NotContains(t, p.OnlineUserIDs(), "1")
	assert.Equal(t, 0, p.OnlineCount())

	p.UnregisterSession("1")
	assert.Equal(t, 0, p.OnlineCount())
}

func TestPresenceTracker_Concurrent(t *testing.T) {
	p := NewPresenceTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("%04d", i)
			p.RegisterSession(id, "h"+id)
			_ = p.IsOnline(id)
			_ = p.OnlineUserIDs()
		}(i)
	}
	wg.Wait()

	ids := p.OnlineUserIDs()
	assert.Len(t, ids, 50)
	assert.IsNonDecreasing(t, ids)
}
