package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/menupick/internal/auth"
	"github.com/jason-s-yu/menupick/internal/cache"
	"github.com/jason-s-yu/menupick/internal/database"
	"github.com/jason-s-yu/menupick/internal/gateway"
	"github.com/jason-s-yu/menupick/internal/models"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newRoomServer(t *testing.T) (*httptest.Server, *cache.RoomState) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger, _ := logtest.NewNullLogger()
	rooms := database.NewMemoryRoomStore()
	state := cache.NewRoomState(rdb, time.Hour)

	ctx := context.Background()
	require.NoError(t, rooms.Create(ctx, models.Room{RoomCode: "room-1", Lat: 37.5, Lng: 127.0}))
	require.NoError(t, state.SeedRoom(ctx, "room-1", []models.Restaurant{{ID: "A", Name: "Kimbap"}}))

	sessions, err := auth.NewSessions("", time.Hour)
	require.NoError(t, err)
	gw := gateway.New(rooms, state, logger)

	srv := httptest.NewServer(NewRouter(logger, &fakeRooms{}, gw, sessions, RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv, state
}

func dialRoom(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/room/ws", &websocket.DialOptions{
		Subprotocols: []string{"room"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func readFrame(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) frame {
	t.Helper()
	for {
		var f frame
		require.NoError(t, wsjson.Read(ctx, c, &f))
		if f.Type == typ {
			return f
		}
	}
}

func TestRoomChannelJoinVoteLeave(t *testing.T) {
	srv, state := newRoomServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := dialRoom(t, ctx, srv)
	require.NoError(t, wsjson.Write(ctx, first, map[string]interface{}{
		"type": "connectRoom",
		"data": map[string]interface{}{"roomCode": "room-1", "userLat": 37.5, "userLng": 127.0},
	}))

	var res gateway.ConnectResult
	require.NoError(t, json.Unmarshal(readFrame(t, ctx, first, "connectResult").Data, &res))
	require.True(t, res.OK)
	require.NotNil(t, res.Data)
	assert.Equal(t, "Kimbap", res.Data.RestaurantList[0].Name)
	assert.Len(t, res.Data.UserList, 1)

	second := dialRoom(t, ctx, srv)
	require.NoError(t, wsjson.Write(ctx, second, map[string]interface{}{
		"type": "connectRoom",
		"data": map[string]interface{}{"roomCode": "room-1", "userLat": 37.5, "userLng": 127.0},
	}))
	readFrame(t, ctx, second, "connectResult")

	var joined models.Member
	require.NoError(t, json.Unmarshal(readFrame(t, ctx, first, "join").Data, &joined))
	assert.NotEqual(t, res.Data.UserID, joined.UserID)

	require.NoError(t, wsjson.Write(ctx, second, map[string]interface{}{
		"type": "vote",
		"data": map[string]string{"restaurantId": "A"},
	}))
	var update gateway.CandidateUpdate
	require.NoError(t, json.Unmarshal(readFrame(t, ctx, first, "candidateUpdate").Data, &update))
	assert.Equal(t, gateway.CandidateUpdate{RestaurantID: "A", Count: 1}, update)

	second.Close(websocket.StatusNormalClosure, "bye")

	var leave gateway.LeaveEvent
	require.NoError(t, json.Unmarshal(readFrame(t, ctx, first, "leave").Data, &leave))
	assert.Equal(t, joined.UserID, leave.SessionID)

	members, err := state.GetJoinList(ctx, "room-1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRoomChannelConnectFailure(t *testing.T) {
	srv, _ := newRoomServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := dialRoom(t, ctx, srv)
	require.NoError(t, wsjson.Write(ctx, c, map[string]interface{}{
		"type": "connectRoom",
		"data": map[string]interface{}{"roomCode": "nope"},
	}))

	var res gateway.ConnectResult
	require.NoError(t, json.Unmarshal(readFrame(t, ctx, c, "connectResult").Data, &res))
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Message)

	require.NoError(t, wsjson.Write(ctx, c, map[string]interface{}{"type": "vote", "data": map[string]string{"restaurantId": "A"}}))
	readFrame(t, ctx, c, "error")
}

func TestRoomChannelRequiresSubprotocol(t *testing.T) {
	srv, _ := newRoomServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/room/ws", nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	_, _, err = c.Read(ctx)
	assert.Equal(t, BadSubprotocolError, websocket.CloseStatus(err))
}

func TestRoomChannelInvalidJSON(t *testing.T) {
	srv, _ := newRoomServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := dialRoom(t, ctx, srv)
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
	readFrame(t, ctx, c, "error")
}

func TestRoomChannelSetsSessionCookie(t *testing.T) {
	srv, _ := newRoomServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, resp, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/room/ws", &websocket.DialOptions{
		Subprotocols: []string{"room"},
	})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	var found bool
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.SessionCookieName {
			found = true
		}
	}
	assert.True(t, found)
}
