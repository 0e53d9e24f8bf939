package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/menupick/internal/models"
)

var (
	// ErrRoomNotFound is returned by FindByCode when no record exists for the code.
	ErrRoomNotFound = errors.New("database: room not found")
	// ErrRoomExists is returned by Create when the room code is already taken.
	ErrRoomExists = errors.New("database: room code already exists")
)

// RoomStore is the durable record of which rooms exist and whether they were deleted.
type RoomStore interface {
	Create(ctx context.Context, room models.Room) error
	FindByCode(ctx context.Context, roomCode string) (*models.Room, error)
	// SoftDelete stamps deleted_at once; calling it again or racing it is harmless.
	SoftDelete(ctx context.Context, roomCode string) error
}

// PostgresRoomStore keeps room records in the rooms table.
type PostgresRoomStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRoomStore(pool *pgxpool.Pool) *PostgresRoomStore {
	return &PostgresRoomStore{pool: pool}
}

// Create inserts a new room row. CreatedAt defaults to now when zero.
func (s *PostgresRoomStore) Create(ctx context.Context, room models.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	q := `
	INSERT INTO rooms (room_code, lat, lng, created_at)
	VALUES ($1, $2, $3, $4)
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, room.RoomCode, room.Lat, room.Lng, room.CreatedAt)
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrRoomExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert room %s: %w", room.RoomCode, err)
	}
	return nil
}

// FindByCode fetches a room by code, deleted or not.
func (s *PostgresRoomStore) FindByCode(ctx context.Context, roomCode string) (*models.Room, error) {
	var r models.Room
	q := `
	SELECT room_code, lat, lng, created_at, deleted_at
	FROM rooms
	WHERE room_code = $1
	`
	err := s.pool.QueryRow(ctx, q, roomCode).Scan(&r.RoomCode, &r.Lat, &r.Lng, &r.CreatedAt, &r.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query room %s: %w", roomCode, err)
	}
	return &r, nil
}

// SoftDelete marks the room deleted if it is not already.
func (s *PostgresRoomStore) SoftDelete(ctx context.Context, roomCode string) error {
	q := `UPDATE rooms SET deleted_at = now() WHERE room_code = $1 AND deleted_at IS NULL`
	if _, err := s.pool.Exec(ctx, q, roomCode); err != nil {
		return fmt.Errorf("failed to soft delete room %s: %w", roomCode, err)
	}
	return nil
}
