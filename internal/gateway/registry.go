// internal/gateway/registry.go
package gateway

import (
	"fmt"
	"sync"
)

type registryEntry struct {
	conn     *Connection
	roomCode string
}

// Registry is the process-wide set of live connections and the room each one is
// bound to. It is the source of truth for "is this session still here": member
// records in the store only say who joined, not who is still connected.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*registryEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*registryEntry)}
}

// Add registers a connection that is not bound to any room yet.
func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = &registryEntry{conn: c}
}

// Bind scopes c to roomCode. Rebinding to the same room is a no-op; a
// connection never moves to a different room.
func (r *Registry) Bind(c *Connection, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[c.ID]
	if !ok {
		return fmt.Errorf("connection %s is not registered", c.ID)
	}
	if e.roomCode != "" && e.roomCode != roomCode {
		return fmt.Errorf("connection %s is already bound to room %s", c.ID, e.roomCode)
	}
	e.roomCode = roomCode
	return nil
}

// Unbind clears the room of a connection whose handshake failed.
func (r *Registry) Unbind(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[c.ID]; ok {
		e.roomCode = ""
	}
}

// RoomOf returns the room c is bound to, if any.
func (r *Registry) RoomOf(c *Connection) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[c.ID]
	if !ok || e.roomCode == "" {
		return "", false
	}
	return e.roomCode, true
}

// Remove drops c and returns the room it was bound to ("" if none).
func (r *Registry) Remove(c *Connection) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[c.ID]
	if !ok {
		return ""
	}
	delete(r.conns, c.ID)
	return e.roomCode
}

// InRoom snapshots every live connection bound to roomCode except the given one.
func (r *Registry) InRoom(roomCode string, except *Connection) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Connection
	for _, e := range r.conns {
		if e.roomCode != roomCode || e.conn == except {
			continue
		}
		out = append(out, e.conn)
	}
	return out
}

// SessionPresent scans every live connection for one bound to roomCode carrying sessionID.
func (r *Registry) SessionPresent(roomCode, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.conns {
		if e.roomCode == roomCode && e.conn.SessionID == sessionID {
			return true
		}
	}
	return false
}

// Len is the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
