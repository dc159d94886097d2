package chat

import (
	"sort"
	"sync"
)

// PresenceTracker maps each online user to the handle of its live
// connection. A user has at most one handle; registering again replaces
// the previous one.
type PresenceTracker struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{sessions: make(map[string]string)}
}

func (p *PresenceTracker) RegisterSession(userID, handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[userID] = handle
}

// UnregisterSession is a no-op for users that are not online.
func (p *PresenceTracker) UnregisterSession(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, userID)
}

// Handle returns the connection handle registered for userID.
func (p *PresenceTracker) Handle(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.sessions[userID]
	return h, ok
}

func (p *PresenceTracker) IsOnline(userID string) bool {
	_, ok := p.Handle(userID)
	return ok
}

func (p *PresenceTracker) OnlineCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// OnlineUserIDs returns the online user ids in ascending order.
func (p *PresenceTracker) OnlineUserIDs() []string {
	p.mu.RLock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
