// internal/cache/room_state.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/menupick/internal/models"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound means the room's ephemeral state is gone (expired, evicted or never seeded).
	ErrNotFound = errors.New("cache: room state not found")
	// ErrUnknownRestaurant means a vote named an id outside the room's candidate list.
	ErrUnknownRestaurant = errors.New("cache: restaurant is not a candidate in this room")
)

// voteScript records one session's vote or unvote. KEYS[1] is the tally hash,
// KEYS[2] the session's ballot set. A session counts at most once per
// restaurant and can only take back its own vote. Unknown ids return -1 without
// touching anything. Returns {count, changed}.
var voteScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
	return {-1, 0}
end
local changed
if tonumber(ARGV[2]) > 0 then
	changed = redis.call('SADD', KEYS[2], ARGV[1])
	if changed == 1 then
		redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
	end
else
	changed = redis.call('SREM', KEYS[2], ARGV[1])
	if changed == 1 and tonumber(redis.call('HGET', KEYS[1], ARGV[1])) > 0 then
		redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
	end
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 and redis.call('EXISTS', KEYS[2]) == 1 then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return {tonumber(redis.call('HGET', KEYS[1], ARGV[1])), changed}
`)

// RoomState is the ephemeral per-room store. Every room owns three keys:
//
//	room:{code}:restaurants  string, JSON array of restaurants (write once)
//	room:{code}:candidates   hash, restaurant id -> vote count
//	room:{code}:members      hash, user id -> JSON member
//
// plus one room:{code}:votes:{session} set per voter, expiring with the tally.
//
// All of them expire after ttl; an expired restaurant list is how dead rooms are detected.
type RoomState struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRoomState wraps a connected client.
func NewRoomState(rdb *redis.Client, ttl time.Duration) *RoomState {
	return &RoomState{rdb: rdb, ttl: ttl}
}

func restaurantsKey(roomCode string) string { return fmt.Sprintf("room:%s:restaurants", roomCode) }
func candidatesKey(roomCode string) string  { return fmt.Sprintf("room:%s:candidates", roomCode) }
func membersKey(roomCode string) string     { return fmt.Sprintf("room:%s:members", roomCode) }
func ballotKey(roomCode, sessionID string) string {
	return fmt.Sprintf("room:%s:votes:%s", roomCode, sessionID)
}

// SeedRoom writes the restaurant list, a zeroed candidate list and an empty join
// list in a single MULTI/EXEC, so a reader never sees a half-seeded room.
func (s *RoomState) SeedRoom(ctx context.Context, roomCode string, restaurants []models.Restaurant) error {
	data, err := json.Marshal(restaurants)
	if err != nil {
		return fmt.Errorf("failed to marshal restaurant list: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, restaurantsKey(roomCode), data, s.ttl)
		queueEmptyCandidates(ctx, pipe, roomCode, restaurants, s.ttl)
		pipe.Del(ctx, membersKey(roomCode))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed room %s: %w", roomCode, err)
	}
	return nil
}

// SetRestaurantList stores the frozen restaurant list of a room.
func (s *RoomState) SetRestaurantList(ctx context.Context, roomCode string, restaurants []models.Restaurant) error {
	data, err := json.Marshal(restaurants)
	if err != nil {
		return fmt.Errorf("failed to marshal restaurant list: %w", err)
	}
	if err := s.rdb.Set(ctx, restaurantsKey(roomCode), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set restaurant list for room %s: %w", roomCode, err)
	}
	return nil
}

// GetRestaurantList returns ErrNotFound when the room has no ephemeral state left.
func (s *RoomState) GetRestaurantList(ctx context.Context, roomCode string) ([]models.Restaurant, error) {
	data, err := s.rdb.Get(ctx, restaurantsKey(roomCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant list for room %s: %w", roomCode, err)
	}
	var restaurants []models.Restaurant
	if err := json.Unmarshal(data, &restaurants); err != nil {
		return nil, fmt.Errorf("corrupt restaurant list for room %s: %w", roomCode, err)
	}
	return restaurants, nil
}

// CreateEmptyCandidateList seeds a zero count for every restaurant id, replacing any old tally.
func (s *RoomState) CreateEmptyCandidateList(ctx context.Context, roomCode string, restaurants []models.Restaurant) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueEmptyCandidates(ctx, pipe, roomCode, restaurants, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create candidate list for room %s: %w", roomCode, err)
	}
	return nil
}

func queueEmptyCandidates(ctx context.Context, pipe redis.Pipeliner, roomCode string, restaurants []models.Restaurant, ttl time.Duration) {
	key := candidatesKey(roomCode)
	pipe.Del(ctx, key)
	if len(restaurants) == 0 {
		return
	}
	list := models.NewCandidateList(restaurants)
	fields := make(map[string]interface{}, len(list))
	for id, n := range list {
		fields[id] = n
	}
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
}

// GetCandidateList returns the live tally. A room without restaurants has an empty tally.
func (s *RoomState) GetCandidateList(ctx context.Context, roomCode string) (models.CandidateList, error) {
	raw, err := s.rdb.HGetAll(ctx, candidatesKey(roomCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate list for room %s: %w", roomCode, err)
	}
	list := make(models.CandidateList, len(raw))
	for id, v := range raw {
		var n int
		if _, err := fmt.Sscan(v, &n); err != nil {
			return nil, fmt.Errorf("corrupt count for %s in room %s: %w", id, roomCode, err)
		}
		list[id] = n
	}
	return list, nil
}

// Vote casts (delta > 0) or takes back (delta <= 0) sessionID's vote for one
// restaurant and returns the restaurant's count. changed is false when the vote
// was already cast or there was nothing to take back. Unknown ids return
// ErrUnknownRestaurant.
func (s *RoomState) Vote(ctx context.Context, roomCode, sessionID, restaurantID string, delta int) (int, bool, error) {
	if delta > 0 {
		delta = 1
	} else {
		delta = -1
	}
	keys := []string{candidatesKey(roomCode), ballotKey(roomCode, sessionID)}
	res, err := voteScript.Run(ctx, s.rdb, keys, restaurantID, delta).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to vote in room %s: %w", roomCode, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected vote reply in room %s: %v", roomCode, res)
	}
	if res[0] < 0 {
		return 0, false, ErrUnknownRestaurant
	}
	return int(res[0]), res[1] == 1, nil
}

// CreateEmptyJoinList clears any member left over under this room code.
func (s *RoomState) CreateEmptyJoinList(ctx context.Context, roomCode string) error {
	if err := s.rdb.Del(ctx, membersKey(roomCode)).Err(); err != nil {
		return fmt.Errorf("failed to create join list for room %s: %w", roomCode, err)
	}
	return nil
}

// AddMember inserts m unless a member with the same UserID already exists. It
// returns whichever member is stored after the call and whether it was newly added,
// so a second tab of the same session keeps the name assigned on first join.
func (s *RoomState) AddMember(ctx context.Context, roomCode string, m models.Member) (models.Member, bool, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return models.Member{}, false, fmt.Errorf("failed to marshal member: %w", err)
	}
	key := membersKey(roomCode)

	var setCmd *redis.BoolCmd
	var getCmd *redis.StringCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setCmd = pipe.HSetNX(ctx, key, m.UserID, data)
		getCmd = pipe.HGet(ctx, key, m.UserID)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return models.Member{}, false, fmt.Errorf("failed to add member %s to room %s: %w", m.UserID, roomCode, err)
	}

	var stored models.Member
	if err := json.Unmarshal([]byte(getCmd.Val()), &stored); err != nil {
		return models.Member{}, false, fmt.Errorf("corrupt member %s in room %s: %w", m.UserID, roomCode, err)
	}
	return stored, setCmd.Val(), nil
}

// RemoveMember deletes the member keyed by sessionID and reports whether one existed.
func (s *RoomState) RemoveMember(ctx context.Context, roomCode, sessionID string) (bool, error) {
	n, err := s.rdb.HDel(ctx, membersKey(roomCode), sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove member %s from room %s: %w", sessionID, roomCode, err)
	}
	return n > 0, nil
}

// GetJoinList returns every member of the room keyed by user id.
func (s *RoomState) GetJoinList(ctx context.Context, roomCode string) (models.JoinList, error) {
	raw, err := s.rdb.HGetAll(ctx, membersKey(roomCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get join list for room %s: %w", roomCode, err)
	}
	list := make(models.JoinList, len(raw))
	for id, v := range raw {
		var m models.Member
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("corrupt member %s in room %s: %w", id, roomCode, err)
		}
		list[id] = m
	}
	return list, nil
}
