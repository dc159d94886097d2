package chat

import (
	"sync"

	"github.com/Sumit771/1-2-1/pkg/log"
)

// Conn is a live client connection as seen by the Hub.
type Conn interface {
	ID() string
	UserID() string
	// Send queues evt for delivery without blocking. It returns false
	// when the connection cannot accept more events.
	Send(evt Event) bool
	Close()
}

// Hub tracks every live connection and which rooms each one is
// subscribed to, and fans events out to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
	rooms map[string]map[string]Conn
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]Conn),
		rooms: make(map[string]map[string]Conn),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	total := len(h.conns)
	h.mu.Unlock()

	l := log.L()
	l.Debug().Str(log.FieldConnID, c.ID()).Str(log.FieldUserID, c.UserID()).Int("total", total).Msg("hub: connection registered")
}

// Unregister removes c and all of its room subscriptions.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID())
	for roomID, subs := range h.rooms {
		delete(subs, c.ID())
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
	total := len(h.conns)
	h.mu.Unlock()

	l := log.L()
	l.Debug().Str(log.FieldConnID, c.ID()).Int("total", total).Msg("hub: connection unregistered")
}

func (h *Hub) Subscribe(c Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[string]Conn)
		h.rooms[roomID] = subs
	}
	subs[c.ID()] = c
}

func (h *Hub) Unsubscribe(c Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[roomID]; ok {
		delete(subs, c.ID())
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// DropRoom forgets every subscription to roomID.
func (h *Hub) DropRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}

func (h *Hub) IsSubscribed(c Conn, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][c.ID()]
	return ok
}

func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// BroadcastToRoom sends evt to every subscriber of roomID except the
// connection with id excludeConnID (empty excludes nobody).
func (h *Hub) BroadcastToRoom(roomID string, evt Event, excludeConnID string) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[roomID]))
	for id, c := range h.rooms[roomID] {
		if id != excludeConnID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, evt)
}

// BroadcastAll sends evt to every live connection except excludeConnID.
func (h *Hub) BroadcastAll(evt Event, excludeConnID string) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.conns))
	for id, c := range h.conns {
		if id != excludeConnID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, evt)
}

// deliver runs without the hub lock held. A connection whose buffer is
// full gets closed; its read loop then performs the disconnect.
func (h *Hub) deliver(targets []Conn, evt Event) {
	for _, c := range targets {
		if !c.Send(evt) {
			l := log.L()
			l.Warn().Str(log.FieldConnID, c.ID()).Str(log.FieldEvent, evt.Type).Msg("hub: send buffer full, closing connection")
			go c.Close()
		}
	}
}
