// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// LogMiddleware is an HTTP middleware that logs incoming requests using Logrus.
// Logs the method, path, session and duration of each request.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			fields := logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}
			if rid := r.Header.Get("X-Request-ID"); rid != "" {
				fields["requestID"] = rid
			}
			logger.WithFields(fields).Info("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs a room channel being opened.
func LogWebSocketConnect(logger *logrus.Logger, remoteAddr, path, sessionID, connID string) {
	logger.WithFields(logrus.Fields{
		"remote":    remoteAddr,
		"path":      path,
		"sessionID": sessionID,
		"connID":    connID,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs a room channel going away. err is the read error
// that ended it, if any.
func LogWebSocketDisconnect(logger *logrus.Logger, remoteAddr, path, connID string, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"path":   path,
		"connID": connID,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
