package database

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/menupick/internal/models"
)

// MemoryRoomStore is a process-local RoomStore for development (ROOM_STORE=memory) and tests.
type MemoryRoomStore struct {
	mu    sync.Mutex
	rooms map[string]models.Room
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{rooms: make(map[string]models.Room)}
}

func (s *MemoryRoomStore) Create(_ context.Context, room models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.RoomCode]; exists {
		return ErrRoomExists
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	room.DeletedAt = nil
	s.rooms[room.RoomCode] = room
	return nil
}

func (s *MemoryRoomStore) FindByCode(_ context.Context, roomCode string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomCode]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &r, nil
}

func (s *MemoryRoomStore) SoftDelete(_ context.Context, roomCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomCode]
	if !ok || r.DeletedAt != nil {
		return nil
	}
	now := time.Now()
	r.DeletedAt = &now
	s.rooms[roomCode] = r
	return nil
}
