package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/room"
)

type stubAuth struct {
	verifyErr   error
	registerErr error

	mu         sync.Mutex
	registered []string
}

func (that *stubAuth) Register(_ context.Context, username, _ string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.registered = append(that.registered, username)

	return that.registerErr
}

func (that *stubAuth) Verify(_ context.Context, _, _ string) error {
	return that.verifyErr
}

type fakeParticipant struct {
	id   int64
	name string

	mu   sync.Mutex
	sent []string
}

func (that *fakeParticipant) ID() int64        { return that.id }
func (that *fakeParticipant) Username() string { return that.name }

func (that *fakeParticipant) Send(line string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sent = append(that.sent, line)
}

func newRegistry(auth *stubAuth) *Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(context.Background(), logger, auth)
}

func TestRegistry_Login(t *testing.T) {
	t.Run("Successful login binds the connection", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})

		err := reg.Login(context.Background(), 1, "alice", "pw")

		require.NoError(t, err)
		require.True(t, reg.Authenticated(1))
	})

	t.Run("Credential errors pass through unchanged", func(t *testing.T) {
		reg := newRegistry(&stubAuth{verifyErr: apperror.ErrBadPassword})

		err := reg.Login(context.Background(), 1, "alice", "wrong")

		require.ErrorIs(t, err, apperror.ErrBadPassword)
		require.False(t, reg.Authenticated(1))
	})

	t.Run("Same user on a second connection is rejected", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		require.NoError(t, reg.Login(context.Background(), 1, "alice", "pw"))

		err := reg.Login(context.Background(), 2, "alice", "pw")

		require.ErrorIs(t, err, apperror.ErrUserActiveElsewhere)
	})

	t.Run("Second login on the same connection is rejected", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		require.NoError(t, reg.Login(context.Background(), 1, "alice", "pw"))

		err := reg.Login(context.Background(), 1, "bob", "pw")

		require.ErrorIs(t, err, apperror.ErrAlreadyAuthenticated)
	})
}

func TestRegistry_CreateRoom(t *testing.T) {
	t.Run("Create and list", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		creator := &fakeParticipant{id: 1, name: "alice"}

		require.NoError(t, reg.CreateRoom("zeta", creator))

		other := &fakeParticipant{id: 2, name: "bob"}
		require.NoError(t, reg.CreateRoom("alpha", other))

		// Then: names come back sorted
		assert.Equal(t, []string{"alpha", "zeta"}, reg.ListRooms(false))
	})

	t.Run("Invalid name", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		creator := &fakeParticipant{id: 1, name: "alice"}

		err := reg.CreateRoom("bad!name", creator)

		require.ErrorIs(t, err, apperror.ErrInvalidRoomName)
	})

	t.Run("Duplicate name", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		require.NoError(t, reg.CreateRoom("r1", &fakeParticipant{id: 1, name: "alice"}))

		err := reg.CreateRoom("r1", &fakeParticipant{id: 2, name: "bob"})

		require.ErrorIs(t, err, apperror.ErrRoomExists)
	})

	t.Run("Creator already playing elsewhere", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		creator := &fakeParticipant{id: 1, name: "alice"}
		require.NoError(t, reg.CreateRoom("r1", creator))

		err := reg.CreateRoom("r2", creator)

		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)
	})

	t.Run("Room cap", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		for i := 0; i < MaxRooms; i++ {
			creator := &fakeParticipant{id: int64(i + 1), name: fmt.Sprintf("user%d", i)}
			require.NoError(t, reg.CreateRoom(fmt.Sprintf("room%d", i), creator))
		}

		err := reg.CreateRoom("one too many", &fakeParticipant{id: 9999, name: "late"})

		require.ErrorIs(t, err, apperror.ErrRoomCapacity)
	})
}

func TestRegistry_JoinRoom(t *testing.T) {
	t.Run("Player join fills the room", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		creator := &fakeParticipant{id: 1, name: "alice"}
		require.NoError(t, reg.CreateRoom("r1", creator))

		joiner := &fakeParticipant{id: 2, name: "bob"}
		require.NoError(t, reg.JoinRoom(context.Background(), "r1", joiner, room.RolePlayer))

		// Then: both connections resolve to the room
		_, ok := reg.RoomOf(1)
		require.True(t, ok)
		_, ok = reg.RoomOf(2)
		require.True(t, ok)

		// Then: the full room disappears from the joinable listing
		assert.Empty(t, reg.ListRooms(true))
		assert.Equal(t, []string{"r1"}, reg.ListRooms(false))
	})

	t.Run("Unknown room", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})

		err := reg.JoinRoom(context.Background(), "nope", &fakeParticipant{id: 1, name: "alice"}, room.RolePlayer)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Full room", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		require.NoError(t, reg.CreateRoom("r1", &fakeParticipant{id: 1, name: "alice"}))
		require.NoError(t, reg.JoinRoom(context.Background(), "r1", &fakeParticipant{id: 2, name: "bob"}, room.RolePlayer))

		err := reg.JoinRoom(context.Background(), "r1", &fakeParticipant{id: 3, name: "carol"}, room.RolePlayer)

		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})

	t.Run("Player already in a room", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		creator := &fakeParticipant{id: 1, name: "alice"}
		require.NoError(t, reg.CreateRoom("r1", creator))
		require.NoError(t, reg.CreateRoom("r2", &fakeParticipant{id: 2, name: "bob"}))

		err := reg.JoinRoom(context.Background(), "r2", creator, room.RolePlayer)

		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)
	})

	t.Run("Failed player join leaves no membership behind", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		require.NoError(t, reg.CreateRoom("r1", &fakeParticipant{id: 1, name: "alice"}))
		require.NoError(t, reg.JoinRoom(context.Background(), "r1", &fakeParticipant{id: 2, name: "bob"}, room.RolePlayer))

		// When: a third player bounces off the full room
		carol := &fakeParticipant{id: 3, name: "carol"}
		err := reg.JoinRoom(context.Background(), "r1", carol, room.RolePlayer)
		require.ErrorIs(t, err, apperror.ErrRoomFull)

		// Then: no membership is left behind and the connection can still create
		_, ok := reg.RoomOf(3)
		require.False(t, ok)
		assert.NoError(t, reg.CreateRoom("r2", carol))
	})

	t.Run("Viewer may watch several rooms", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		require.NoError(t, reg.CreateRoom("r1", &fakeParticipant{id: 1, name: "alice"}))
		require.NoError(t, reg.CreateRoom("r2", &fakeParticipant{id: 2, name: "bob"}))

		viewer := &fakeParticipant{id: 3, name: "carol"}
		require.NoError(t, reg.JoinRoom(context.Background(), "r1", viewer, room.RoleViewer))
		require.NoError(t, reg.JoinRoom(context.Background(), "r2", viewer, room.RoleViewer))

		// Then: viewing never counts as playing
		_, ok := reg.RoomOf(3)
		assert.False(t, ok)
	})
}

func TestRegistry_RemoveConnection(t *testing.T) {
	t.Run("Frees the username for a new login", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		require.NoError(t, reg.Login(context.Background(), 1, "alice", "pw"))

		reg.RemoveConnection(&fakeParticipant{id: 1, name: "alice"})

		require.False(t, reg.Authenticated(1))
		assert.NoError(t, reg.Login(context.Background(), 2, "alice", "pw"))
	})

	t.Run("Dissolves the waiting room of a leaving owner", func(t *testing.T) {
		reg := newRegistry(&stubAuth{})
		creator := &fakeParticipant{id: 1, name: "alice"}
		require.NoError(t, reg.CreateRoom("r1", creator))

		reg.RemoveConnection(creator)

		// Then: the room is gone and the name is reusable
		require.Eventually(t, func() bool {
			return len(reg.ListRooms(false)) == 0
		}, time.Second, 10*time.Millisecond)
		assert.NoError(t, reg.CreateRoom("r1", &fakeParticipant{id: 2, name: "bob"}))
	})
}

func TestRegistry_Register(t *testing.T) {
	auth := &stubAuth{registerErr: errors.New("store down")}
	reg := newRegistry(auth)

	err := reg.Register(context.Background(), "alice", "pw")

	require.Error(t, err)
	require.Equal(t, []string{"alice"}, auth.registered)
}
