// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the room channel.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	MissingSessionError websocket.StatusCode = 3001 // No session reached the handler.
	InvalidFrameError   websocket.StatusCode = 3002 // Client sent a frame that is not a JSON text frame.
	ClientLaggedError   websocket.StatusCode = 3003 // Client fell too far behind; reconnect to resync.
)
