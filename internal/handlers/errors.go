// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/jason-s-yu/menupick/internal/room"
	"github.com/sirupsen/logrus"
)

// AppError is an error that is safe to show to an HTTP client.
type AppError struct {
	Code    int
	Message string
	Field   string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// HandlerFunc is an http.HandlerFunc that reports failures as an AppError.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) *AppError

// WrapHandler turns a HandlerFunc into an http.HandlerFunc, logging and
// rendering any AppError it returns.
func WrapHandler(logger *logrus.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appErr := fn(w, r)
		if appErr == nil {
			return
		}
		entry := logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": appErr.Code,
		})
		if appErr.Err != nil {
			entry = entry.WithError(appErr.Err)
		}
		if appErr.Code >= http.StatusInternalServerError {
			entry.Error(appErr.Message)
		} else {
			entry.Warn(appErr.Message)
		}

		body := map[string]interface{}{"message": appErr.Message, "data": nil}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		writeJSON(w, appErr.Code, body)
	}
}

// roomError maps the room error taxonomy to client responses.
func roomError(err error) *AppError {
	switch {
	case errors.Is(err, room.ErrLocationOutOfBounds):
		return NewAppError(http.StatusBadRequest, "location is not supported", err)
	case errors.Is(err, room.ErrRoomCreationFailed):
		return NewAppError(http.StatusInternalServerError, "failed to create room", err)
	case errors.Is(err, room.ErrRoomLookupFailed):
		return NewAppError(http.StatusInternalServerError, "failed to look up room", err)
	default:
		return NewAppError(http.StatusInternalServerError, "internal error", err)
	}
}
