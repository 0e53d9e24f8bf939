// internal/gateway/connection.go
package gateway

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State of a single connection. Disconnected is terminal.
type State int

const (
	Unauthenticated State = iota
	Joined
	Disconnected
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Joined:
		return "joined"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Connection is one live channel (one browser tab). Several connections may
// carry the same SessionID.
type Connection struct {
	ID        string
	SessionID string

	mu     sync.Mutex
	state  State
	out    chan Message
	lagged chan struct{}
	logger *logrus.Logger
}

func newConnection(sessionID string, buffer int, logger *logrus.Logger) *Connection {
	return &Connection{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		state:     Unauthenticated,
		out:       make(chan Message, buffer),
		lagged:    make(chan struct{}),
		logger:    logger,
	}
}

// Out is drained by the transport's write pump. It is closed on disconnect.
func (c *Connection) Out() <-chan Message {
	return c.out
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Lagged is closed once the outbox has overflowed. The client has missed
// messages by then, so the transport should drop the socket and let it resync.
func (c *Connection) Lagged() <-chan struct{} {
	return c.lagged
}

// Send queues msg without blocking. A closed connection drops the message; a
// full outbox drops it and marks the connection lagged.
func (c *Connection) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disconnected {
		return false
	}
	select {
	case <-c.lagged:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
		c.logger.WithFields(logrus.Fields{
			"connID":    c.ID,
			"sessionID": c.SessionID,
			"type":      msg.Type,
		}).Warn("connection outbox full, marking lagged")
		close(c.lagged)
		return false
	}
}

func (c *Connection) sendError(message string) {
	c.Send(Message{Type: TypeError, Data: ErrorEvent{Message: message}})
}

// markJoined moves Unauthenticated -> Joined. It fails once the connection is gone.
func (c *Connection) markJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disconnected {
		return false
	}
	c.state = Joined
	return true
}

// close is idempotent; it reports whether this call did the closing.
func (c *Connection) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disconnected {
		return false
	}
	c.state = Disconnected
	close(c.out)
	return true
}
