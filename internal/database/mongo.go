package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/menupick/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConnectMongo connects to uri and pings the primary.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo url is empty")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// MongoRoomStore keeps room documents in the "rooms" collection, one document
// per room code: {roomCode, lat, lng, createdAt, deletedAt}.
type MongoRoomStore struct {
	coll *mongo.Collection
}

func NewMongoRoomStore(db *mongo.Database) *MongoRoomStore {
	return &MongoRoomStore{coll: db.Collection("rooms")}
}

// EnsureIndexes creates the unique roomCode index.
func (s *MongoRoomStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomCode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create roomCode index: %w", err)
	}
	return nil
}

func (s *MongoRoomStore) Create(ctx context.Context, room models.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	room.DeletedAt = nil
	if _, err := s.coll.InsertOne(ctx, room); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrRoomExists
		}
		return fmt.Errorf("failed to insert room %s: %w", room.RoomCode, err)
	}
	return nil
}

func (s *MongoRoomStore) FindByCode(ctx context.Context, roomCode string) (*models.Room, error) {
	var r models.Room
	err := s.coll.FindOne(ctx, bson.M{"roomCode": roomCode}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room %s: %w", roomCode, err)
	}
	return &r, nil
}

// SoftDelete only matches documents whose deletedAt is missing or null.
func (s *MongoRoomStore) SoftDelete(ctx context.Context, roomCode string) error {
	filter := bson.M{"roomCode": roomCode, "deletedAt": nil}
	update := bson.M{"$set": bson.M{"deletedAt": time.Now()}}
	if _, err := s.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to soft delete room %s: %w", roomCode, err)
	}
	return nil
}
