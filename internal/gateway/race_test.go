package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/menupick/internal/cache"
	"github.com/jason-s-yu/menupick/internal/models"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookedState runs a callback once, right before the wrapped call.
type hookedState struct {
	*cache.RoomState

	mu             sync.Mutex
	beforeRemove   func()
	failNextJoinRd func() error
}

func (h *hookedState) RemoveMember(ctx context.Context, roomCode, sessionID string) (bool, error) {
	h.mu.Lock()
	hook := h.beforeRemove
	h.beforeRemove = nil
	h.mu.Unlock()
	if hook != nil {
		hook()
	}
	return h.RoomState.RemoveMember(ctx, roomCode, sessionID)
}

func (h *hookedState) GetJoinList(ctx context.Context, roomCode string) (models.JoinList, error) {
	h.mu.Lock()
	hook := h.failNextJoinRd
	h.failNextJoinRd = nil
	h.mu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return nil, err
		}
	}
	return h.RoomState.GetJoinList(ctx, roomCode)
}

func newHookedFixture(t *testing.T) (*fixture, *hookedState) {
	f := newFixture(t)
	logger, _ := logtest.NewNullLogger()
	hooked := &hookedState{RoomState: f.state}
	nick := f.gw.nickname
	f.gw = New(f.rooms, hooked, logger)
	f.gw.nickname = nick
	return f, hooked
}

func (f *fixture) waitBound(t *testing.T, c *Connection, bound bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := f.gw.Registry().RoomOf(c)
		return ok == bound
	}, time.Second, time.Millisecond)
}

// A tab of the same session reconnecting while the last old tab is being torn
// down must end up joined with its member in place.
func TestReconnectDuringDisconnectKeepsMember(t *testing.T) {
	f, hooked := newHookedFixture(t)
	ctx := context.Background()

	peer := f.connect(t, "P")
	old := f.connect(t, "S1")
	drain(peer)
	drain(old)

	fresh := f.gw.Open("S1")
	done := make(chan error, 1)
	hooked.beforeRemove = func() {
		go func() {
			done <- f.gw.ConnectRoom(ctx, fresh, ConnectRoomRequest{RoomCode: testRoom})
		}()
		// The old tab already decided the session is gone; the new tab binds now.
		f.waitBound(t, fresh, true)
	}

	f.gw.Disconnect(ctx, old)
	require.NoError(t, <-done)

	assert.Equal(t, Joined, fresh.State())
	members, err := f.state.GetJoinList(ctx, testRoom)
	require.NoError(t, err)
	assert.Contains(t, members, "S1")

	freshMsgs := drain(fresh)
	assert.Empty(t, ofType(freshMsgs, TypeLeave), "a session never hears its own leave")
	res := connectResult(t, freshMsgs)
	assert.Contains(t, res.Data.UserList, "S1")

	peerMsgs := drain(peer)
	require.Len(t, ofType(peerMsgs, TypeLeave), 1)
	require.Len(t, ofType(peerMsgs, TypeJoin), 1, "the peer sees the session come back")
	assert.Equal(t, TypeLeave, peerMsgs[0].Type)
	assert.Equal(t, TypeJoin, peerMsgs[1].Type)
}

// The other order: the new tab is bound before the old tab decides, so the
// member is kept and nobody hears a leave.
func TestReconnectBeforeDisconnectKeepsMemberSilently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	peer := f.connect(t, "P")
	old := f.connect(t, "S1")
	fresh := f.connect(t, "S1")
	drain(peer)

	f.gw.Disconnect(ctx, old)

	assert.Empty(t, drain(peer))
	members, err := f.state.GetJoinList(ctx, testRoom)
	require.NoError(t, err)
	assert.Contains(t, members, "S1")
	assert.Equal(t, Joined, fresh.State())
}

// A handshake that fails after the session's only other tab went away must not
// leave the member behind.
func TestFailedHandshakeReleasesAbandonedMember(t *testing.T) {
	f, hooked := newHookedFixture(t)
	ctx := context.Background()

	peer := f.connect(t, "P")
	first := f.connect(t, "S1")
	drain(peer)
	drain(first)

	second := f.gw.Open("S1")
	disconnected := make(chan struct{})
	hooked.failNextJoinRd = func() error {
		go func() {
			f.gw.Disconnect(ctx, first)
			close(disconnected)
		}()
		f.waitBound(t, first, false)
		return errors.New("redis: connection reset")
	}

	err := f.gw.ConnectRoom(ctx, second, ConnectRoomRequest{RoomCode: testRoom})
	assert.ErrorIs(t, err, ErrConnectFailed)
	<-disconnected

	assert.Equal(t, Unauthenticated, second.State())
	_, bound := f.gw.Registry().RoomOf(second)
	assert.False(t, bound)

	members, err := f.state.GetJoinList(ctx, testRoom)
	require.NoError(t, err)
	assert.NotContains(t, members, "S1")
	assert.Len(t, ofType(drain(peer), TypeLeave), 1)
}

// A failing handshake while another tab of the session stays joined keeps the member.
func TestFailedHandshakeKeepsMemberOfLiveSession(t *testing.T) {
	f, hooked := newHookedFixture(t)
	ctx := context.Background()

	peer := f.connect(t, "P")
	first := f.connect(t, "S1")
	drain(peer)

	hooked.failNextJoinRd = func() error { return errors.New("redis: connection reset") }
	second := f.gw.Open("S1")
	assert.ErrorIs(t, f.gw.ConnectRoom(ctx, second, ConnectRoomRequest{RoomCode: testRoom}), ErrConnectFailed)

	members, err := f.state.GetJoinList(ctx, testRoom)
	require.NoError(t, err)
	assert.Contains(t, members, "S1")
	assert.Empty(t, ofType(drain(peer), TypeLeave))
	assert.Equal(t, Joined, first.State())
}

func TestSessionLocksAreReleased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.connect(t, "S1")
	f.gw.Disconnect(ctx, c)

	assert.Equal(t, 0, f.gw.sessionLocks.len())
}
