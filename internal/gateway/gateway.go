// internal/gateway/gateway.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jason-s-yu/menupick/internal/cache"
	"github.com/jason-s-yu/menupick/internal/database"
	"github.com/jason-s-yu/menupick/internal/models"
	"github.com/jason-s-yu/menupick/internal/nickname"
	"github.com/sirupsen/logrus"
)

// ErrConnectFailed is returned when a connectRoom handshake fails. The initiating
// connection has already been told; nobody else has.
var ErrConnectFailed = errors.New("failed to connect to room")

// ErrNotJoined is returned for room actions on a connection that has not joined.
var ErrNotJoined = errors.New("connection has not joined a room")

const (
	connectFailMessage = "접속 실패"
	outboxSize         = 32
)

// StateStore is the slice of the ephemeral room store the gateway uses.
type StateStore interface {
	GetRestaurantList(ctx context.Context, roomCode string) ([]models.Restaurant, error)
	GetCandidateList(ctx context.Context, roomCode string) (models.CandidateList, error)
	AddMember(ctx context.Context, roomCode string, m models.Member) (models.Member, bool, error)
	RemoveMember(ctx context.Context, roomCode, sessionID string) (bool, error)
	GetJoinList(ctx context.Context, roomCode string) (models.JoinList, error)
	Vote(ctx context.Context, roomCode, sessionID, restaurantID string, delta int) (int, bool, error)
}

// Gateway runs the room protocol for every live connection in the process.
// Handlers for different connections run concurrently; all shared state lives in
// the stores (atomic per-key operations) or in the Registry. Member changes of
// one session in one room are serialized by sessionLocks.
type Gateway struct {
	rooms        database.RoomStore
	state        StateStore
	registry     *Registry
	sessionLocks *keyedMutex
	logger       *logrus.Logger
	validate     *validator.Validate
	nickname     func() string
}

func New(rooms database.RoomStore, state StateStore, logger *logrus.Logger) *Gateway {
	return &Gateway{
		rooms:        rooms,
		state:        state,
		registry:     NewRegistry(),
		sessionLocks: newKeyedMutex(),
		logger:       logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		nickname:     nickname.Random,
	}
}

// Registry exposes the live connection registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Open registers a new, not yet joined connection for sessionID.
func (g *Gateway) Open(sessionID string) *Connection {
	c := newConnection(sessionID, outboxSize, g.logger)
	g.registry.Add(c)
	return c
}

// Handle decodes one client frame and runs the matching operation.
func (g *Gateway) Handle(ctx context.Context, c *Connection, msgType string, data json.RawMessage) {
	switch msgType {
	case TypeConnectRoom:
		var req ConnectRoomRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.Send(Message{Type: TypeConnectResult, Data: connectFail(connectFailMessage)})
			return
		}
		_ = g.ConnectRoom(ctx, c, req)
	case TypeVote, TypeUnvote:
		var req VoteRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError("invalid vote payload")
			return
		}
		delta := 1
		if msgType == TypeUnvote {
			delta = -1
		}
		_ = g.Vote(ctx, c, req, delta)
	default:
		c.sendError(fmt.Sprintf("unknown message type: %s", msgType))
	}
}

// ConnectRoom is the join handshake. It binds c to the room, upserts the
// session's member, replies with a full snapshot and tells every other
// connection in the room about the member if it is new.
func (g *Gateway) ConnectRoom(ctx context.Context, c *Connection, req ConnectRoomRequest) error {
	log := g.logger.WithFields(logrus.Fields{
		"roomCode":  req.RoomCode,
		"sessionID": c.SessionID,
		"connID":    c.ID,
	})
	fail := func(reason string, err error) error {
		entry := log
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("connectRoom failed: " + reason)
		c.Send(Message{Type: TypeConnectResult, Data: connectFail(connectFailMessage)})
		return ErrConnectFailed
	}

	if err := g.validate.Struct(req); err != nil {
		return fail("invalid request", err)
	}
	if c.State() != Unauthenticated {
		return fail("connection already joined", nil)
	}
	if err := g.registry.Bind(c, req.RoomCode); err != nil {
		return fail("bind", err)
	}

	// Held until the join is announced: a disconnect of another tab of this
	// session either finishes before the member upsert or sees c bound.
	unlock := g.sessionLocks.Lock(sessionKey(req.RoomCode, c.SessionID))
	defer unlock()

	snapshot, member, added, err := g.join(ctx, c, req)
	if err != nil {
		// Leave the connection open and unbound so the client can retry.
		g.registry.Unbind(c)
		// Peers only know about the member if it was there before this attempt.
		g.releaseSession(ctx, req.RoomCode, c.SessionID, !added)
		return fail("join", err)
	}

	if !c.markJoined() {
		// Disconnect already dropped c from the registry.
		g.releaseSession(ctx, req.RoomCode, c.SessionID, !added)
		log.Info("connection closed during handshake")
		return nil
	}
	c.Send(Message{Type: TypeConnectResult, Data: connectOK(snapshot)})

	if added {
		g.broadcast(req.RoomCode, c, Message{Type: TypeJoin, Data: member})
	}
	log.WithFields(logrus.Fields{"userName": member.UserName, "newMember": added}).Info("connection joined room")
	return nil
}

func (g *Gateway) join(ctx context.Context, c *Connection, req ConnectRoomRequest) (RoomSnapshot, models.Member, bool, error) {
	room, err := g.rooms.FindByCode(ctx, req.RoomCode)
	if err != nil {
		return RoomSnapshot{}, models.Member{}, false, err
	}
	if room.Deleted() {
		return RoomSnapshot{}, models.Member{}, false, fmt.Errorf("room %s is deleted", req.RoomCode)
	}

	restaurants, err := g.state.GetRestaurantList(ctx, req.RoomCode)
	if err != nil {
		return RoomSnapshot{}, models.Member{}, false, err
	}
	candidates, err := g.state.GetCandidateList(ctx, req.RoomCode)
	if err != nil {
		return RoomSnapshot{}, models.Member{}, false, err
	}

	member, added, err := g.state.AddMember(ctx, req.RoomCode, models.Member{
		UserID:   c.SessionID,
		UserLat:  req.UserLat,
		UserLng:  req.UserLng,
		UserName: g.nickname(),
	})
	if err != nil {
		return RoomSnapshot{}, models.Member{}, false, err
	}

	users, err := g.state.GetJoinList(ctx, req.RoomCode)
	if err != nil {
		return RoomSnapshot{}, member, added, err
	}

	return RoomSnapshot{
		RoomCode:       req.RoomCode,
		Lat:            room.Lat,
		Lng:            room.Lng,
		RestaurantList: restaurants,
		CandidateList:  candidates,
		UserList:       users,
		UserID:         member.UserID,
		UserName:       member.UserName,
	}, member, added, nil
}

// releaseSession removes the session's member unless another live connection
// of the session is still bound to the room. announce broadcasts the leave when
// a member was actually removed. Callers hold the session lock.
func (g *Gateway) releaseSession(ctx context.Context, roomCode, sessionID string, announce bool) {
	log := g.logger.WithFields(logrus.Fields{
		"roomCode":  roomCode,
		"sessionID": sessionID,
	})

	if g.registry.SessionPresent(roomCode, sessionID) {
		log.Debug("session still has a live connection in the room, keeping member")
		return
	}

	removed, err := g.state.RemoveMember(ctx, roomCode, sessionID)
	if err != nil {
		log.WithError(err).Error("failed to remove member")
		return
	}
	if !removed || !announce {
		return
	}
	leave := Message{Type: TypeLeave, Data: LeaveEvent{SessionID: sessionID}}
	for _, peer := range g.registry.InRoom(roomCode, nil) {
		if peer.SessionID != sessionID {
			peer.Send(leave)
		}
	}
	log.Info("member left room")
}

// Disconnect runs when a connection closes for any reason. The member is removed
// and a leave is broadcast only if no other live connection of the same session
// is bound to the room.
func (g *Gateway) Disconnect(ctx context.Context, c *Connection) {
	roomCode := g.registry.Remove(c)
	c.close()
	if roomCode == "" {
		return
	}

	unlock := g.sessionLocks.Lock(sessionKey(roomCode, c.SessionID))
	defer unlock()
	g.releaseSession(ctx, roomCode, c.SessionID, true)
}

// Vote casts (delta > 0) or takes back (delta < 0) the session's vote for a
// restaurant and broadcasts the new count to everyone in the room, the voter
// included. A session counts once per restaurant and can only take back its own vote.
func (g *Gateway) Vote(ctx context.Context, c *Connection, req VoteRequest, delta int) error {
	if err := g.validate.Struct(req); err != nil {
		c.sendError("invalid vote payload")
		return err
	}
	roomCode, bound := g.registry.RoomOf(c)
	if !bound || c.State() != Joined {
		c.sendError("join a room before voting")
		return ErrNotJoined
	}

	count, changed, err := g.state.Vote(ctx, roomCode, c.SessionID, req.RestaurantID, delta)
	if errors.Is(err, cache.ErrUnknownRestaurant) {
		c.sendError("unknown restaurant")
		return err
	}
	if err != nil {
		g.logger.WithError(err).WithFields(logrus.Fields{
			"roomCode":     roomCode,
			"restaurantId": req.RestaurantID,
		}).Error("vote failed")
		c.sendError("vote failed")
		return err
	}

	update := Message{
		Type: TypeCandidateUpdate,
		Data: CandidateUpdate{RestaurantID: req.RestaurantID, Count: count},
	}
	if !changed {
		// Repeated vote or nothing to take back: only the voter needs the count.
		c.Send(update)
		return nil
	}
	g.broadcast(roomCode, nil, update)
	return nil
}

// broadcast sends msg to every connection bound to roomCode except the given one.
func (g *Gateway) broadcast(roomCode string, except *Connection, msg Message) {
	for _, peer := range g.registry.InRoom(roomCode, except) {
		peer.Send(msg)
	}
}
