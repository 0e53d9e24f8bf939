// internal/handlers/room.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const maxRequestBody = 4 << 10

// RoomService is what the HTTP layer needs from the room lifecycle manager.
type RoomService interface {
	CreateRoom(ctx context.Context, lat, lng float64, radius int) (string, error)
	ValidRoom(ctx context.Context, roomCode string) (bool, error)
}

type CreateRoomRequest struct {
	Lat    float64 `json:"lat" validate:"latitude"`
	Lng    float64 `json:"lng" validate:"longitude"`
	Radius int     `json:"radius" validate:"required,min=1,max=20000"`
}

type RoomHandler struct {
	rooms    RoomService
	validate *validator.Validate
}

func NewRoomHandler(rooms RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// CreateRoom handles POST /api/room.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) *AppError {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewAppError(http.StatusBadRequest, "bad room request payload", err)
	}
	if err := h.validate.Struct(req); err != nil {
		appErr := NewAppError(http.StatusBadRequest, "invalid room request", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			appErr.Field = verrs[0].Field()
		}
		return appErr
	}

	roomCode, err := h.rooms.CreateRoom(r.Context(), req.Lat, req.Lng, req.Radius)
	if err != nil {
		return roomError(err)
	}
	writeData(w, http.StatusCreated, "room created", map[string]string{"roomCode": roomCode})
	return nil
}

// ValidRoom handles GET /api/room/valid?roomCode=.
func (h *RoomHandler) ValidRoom(w http.ResponseWriter, r *http.Request) *AppError {
	roomCode := r.URL.Query().Get("roomCode")
	if roomCode == "" {
		return &AppError{Code: http.StatusBadRequest, Message: "missing roomCode", Field: "roomCode"}
	}

	valid, err := h.rooms.ValidRoom(r.Context(), roomCode)
	if err != nil {
		return roomError(err)
	}
	writeData(w, http.StatusOK, "ok", map[string]bool{"valid": valid})
	return nil
}
