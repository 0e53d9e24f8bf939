// internal/gateway/messages.go
package gateway

import (
	"github.com/jason-s-yu/menupick/internal/models"
)

// Message types on the room channel.
const (
	// client -> server
	TypeConnectRoom = "connectRoom"
	TypeVote        = "vote"
	TypeUnvote      = "unvote"

	// server -> client
	TypeConnectResult   = "connectResult"
	TypeJoin            = "join"
	TypeLeave           = "leave"
	TypeCandidateUpdate = "candidateUpdate"
	TypeError           = "error"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type ConnectRoomRequest struct {
	RoomCode string  `json:"roomCode" validate:"required,max=64"`
	UserLat  float64 `json:"userLat" validate:"latitude"`
	UserLng  float64 `json:"userLng" validate:"longitude"`
}

type VoteRequest struct {
	RestaurantID string `json:"restaurantId" validate:"required,max=64"`
}

// RoomSnapshot is everything a freshly joined connection needs to render the room.
type RoomSnapshot struct {
	RoomCode       string               `json:"roomCode"`
	Lat            float64              `json:"lat"`
	Lng            float64              `json:"lng"`
	RestaurantList []models.Restaurant  `json:"restaurantList"`
	CandidateList  models.CandidateList `json:"candidateList"`
	UserList       models.JoinList      `json:"userList"`
	UserID         string               `json:"userId"`
	UserName       string               `json:"userName"`
}

// ConnectResult is either {ok:true, data} or {ok:false, message}; build it with
// connectOK or connectFail rather than by hand.
type ConnectResult struct {
	OK      bool          `json:"ok"`
	Message string        `json:"message,omitempty"`
	Data    *RoomSnapshot `json:"data,omitempty"`
}

func connectOK(s RoomSnapshot) ConnectResult {
	return ConnectResult{OK: true, Data: &s}
}

func connectFail(message string) ConnectResult {
	return ConnectResult{OK: false, Message: message}
}

type LeaveEvent struct {
	SessionID string `json:"sessionID"`
}

type CandidateUpdate struct {
	RestaurantID string `json:"restaurantId"`
	Count        int    `json:"count"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
