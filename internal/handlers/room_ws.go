// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/menupick/internal/gateway"
	"github.com/jason-s-yu/menupick/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	roomSubprotocol   = "room"
	pingInterval      = 30 * time.Second
	pingTimeout       = 15 * time.Second
	writeTimeout      = 5 * time.Second
	disconnectTimeout = 5 * time.Second
)

// envelope is an incoming frame; Data is decoded by the gateway per type.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// RoomWSHandler upgrades to the room channel. The connection starts
// unauthenticated; the client joins a room with a connectRoom frame.
func RoomWSHandler(gw *gateway.Gateway, logger *logrus.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		sessionID, ok := middleware.SessionID(r.Context())

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{roomSubprotocol},
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != roomSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the room subprotocol")
			return
		}
		if !ok {
			c.Close(MissingSessionError, "missing session")
			return
		}

		conn := gw.Open(sessionID)
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path, sessionID, conn.ID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, cancel, c, conn, logger)

		readErr := readPump(ctx, c, gw, conn, logger)

		// The request context may already be gone; cleanup still has to reach the stores.
		dctx, dcancel := context.WithTimeout(context.Background(), disconnectTimeout)
		gw.Disconnect(dctx, conn)
		dcancel()

		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, conn.ID, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPump feeds client frames to the gateway until the socket fails or closes.
// It returns the error that ended it, or nil for a clean close.
func readPump(ctx context.Context, c *websocket.Conn, gw *gateway.Gateway, conn *gateway.Connection, logger *logrus.Logger) error {
	log := logger.WithFields(logrus.Fields{"connID": conn.ID, "sessionID": conn.SessionID})

	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			log.Warnf("received non-text frame type %d, closing", typ)
			c.Close(InvalidFrameError, "room frames are JSON text")
			return nil
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil || env.Type == "" {
			log.Debugf("invalid frame: %s", msg)
			conn.Send(gateway.Message{Type: gateway.TypeError, Data: gateway.ErrorEvent{Message: "invalid JSON format"}})
			continue
		}

		gw.Handle(ctx, conn, env.Type, env.Data)
	}
}

// writePump drains the connection's outbox onto the socket and keeps it alive
// with pings. It stops when the outbox is closed, a write fails or the client
// lags; in the last two cases it cancels ctx so readPump exits too.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, conn *gateway.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	log := logger.WithFields(logrus.Fields{"connID": conn.ID, "sessionID": conn.SessionID})

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Lagged():
			log.Warn("client lagged behind, closing")
			c.Close(ClientLaggedError, "too many pending messages, reconnect")
			cancel()
			return
		case msg, ok := <-conn.Out():
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warnf("failed to marshal outgoing %s: %v", msg.Type, err)
				continue
			}

			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				log.Warnf("failed to write to websocket: %v", err)
				cancel()
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				log.Warnf("ping failed: %v. Assuming disconnect.", err)
				cancel()
				return
			}
		}
	}
}
