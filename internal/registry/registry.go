// Package registry tracks every room and the authenticated-identity and
// room-membership bindings of every connection. Its maps are guarded by one
// mutex with short critical sections; the lock is never held across a room
// call or any I/O.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/protocol"
	"tictactoe-server/internal/room"
)

// MaxRooms caps the number of concurrent rooms.
const MaxRooms = 256

type authService interface {
	Register(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) error
}

type Registry struct {
	logger *slog.Logger
	auth   authService

	// baseCtx bounds the lifetime of room goroutines, not of any request.
	baseCtx context.Context

	mu          sync.Mutex
	rooms       map[string]*room.Room
	userByConn  map[int64]string
	connByUser  map[string]int64
	memberOf    map[int64]string            // player connections only
	viewedRooms map[int64]map[string]struct{}
}

func New(ctx context.Context, logger *slog.Logger, auth authService) *Registry {
	return &Registry{
		logger:      logger.With("component", "registry"),
		auth:        auth,
		baseCtx:     ctx,
		rooms:       make(map[string]*room.Room),
		userByConn:  make(map[int64]string),
		connByUser:  make(map[string]int64),
		memberOf:    make(map[int64]string),
		viewedRooms: make(map[int64]map[string]struct{}),
	}
}

// Login verifies credentials against the credential store and binds the
// username to this connection. A username can be bound to at most one live
// connection, and a connection can carry at most one login.
func (that *Registry) Login(ctx context.Context, connID int64, username, password string) error {
	if err := that.auth.Verify(ctx, username, password); err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, taken := that.connByUser[username]; taken {
		return apperror.ErrUserActiveElsewhere
	}
	if _, loggedIn := that.userByConn[connID]; loggedIn {
		return apperror.ErrAlreadyAuthenticated
	}

	that.userByConn[connID] = username
	that.connByUser[username] = connID

	return nil
}

// Register creates a new credential; it is permitted regardless of auth state.
func (that *Registry) Register(ctx context.Context, username, password string) error {
	if err := that.auth.Register(ctx, username, password); err != nil {
		return err
	}

	return nil
}

// Authenticated reports whether the connection has a bound username.
func (that *Registry) Authenticated(connID int64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.userByConn[connID]

	return ok
}

// CreateRoom validates the name, enforces the room cap and single-membership,
// and starts a room with the creator in slot 0.
func (that *Registry) CreateRoom(name string, creator room.Participant) error {
	if !protocol.ValidRoomName(name) {
		return apperror.ErrInvalidRoomName
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, member := that.memberOf[creator.ID()]; member {
		return apperror.ErrAlreadyInRoom
	}
	if _, exists := that.rooms[name]; exists {
		return apperror.ErrRoomExists
	}
	if len(that.rooms) >= MaxRooms {
		return apperror.ErrRoomCapacity
	}

	newRoom := room.New(name, creator, that.logger, that.roomClosed)
	newRoom.Start(that.baseCtx)
	that.rooms[name] = newRoom
	that.memberOf[creator.ID()] = name

	that.logger.Info("room created", "room", name, "creator", creator.Username())

	return nil
}

// ListRooms returns room names sorted lexicographically. With joinableOnly
// set, rooms that already hold two players are excluded.
func (that *Registry) ListRooms(joinableOnly bool) []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	names := make([]string, 0, len(that.rooms))
	for name, r := range that.rooms {
		if joinableOnly && !r.Joinable() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// JoinRoom resolves the room and forwards the join. Player joins bind the
// membership; viewer joins are tracked separately and do not limit the
// connection to a single room.
func (that *Registry) JoinRoom(ctx context.Context, name string, p room.Participant, role room.Role) error {
	that.mu.Lock()
	target, exists := that.rooms[name]
	if !exists {
		that.mu.Unlock()
		return apperror.ErrRoomNotFound
	}
	if role == room.RolePlayer {
		if _, member := that.memberOf[p.ID()]; member {
			that.mu.Unlock()
			return apperror.ErrAlreadyInRoom
		}
		// Bind before the join: if the room closes while the join is in
		// flight, its roomClosed callback finds this entry and removes it.
		// Binding afterwards would leave a stale membership forever.
		that.memberOf[p.ID()] = name
	}
	that.mu.Unlock()

	status, err := target.Join(ctx, p, role)
	if err != nil || status == room.JoinRoomFull {
		if role == room.RolePlayer {
			that.unbindMember(p.ID(), name)
		}
		if err != nil {
			return fmt.Errorf("failed to join room %q: %w", name, err)
		}

		return apperror.ErrRoomFull
	}

	if role == room.RoleViewer {
		that.mu.Lock()
		viewed, ok := that.viewedRooms[p.ID()]
		if !ok {
			viewed = make(map[string]struct{})
			that.viewedRooms[p.ID()] = viewed
		}
		viewed[name] = struct{}{}
		that.mu.Unlock()
	}

	return nil
}

func (that *Registry) unbindMember(connID int64, name string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.memberOf[connID] == name {
		delete(that.memberOf, connID)
	}
}

// RoomOf returns the room the connection is playing in, if any.
func (that *Registry) RoomOf(connID int64) (*room.Room, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	name, ok := that.memberOf[connID]
	if !ok {
		return nil, false
	}
	r, ok := that.rooms[name]

	return r, ok
}

// RemoveConnection purges all state of a closing connection: the login
// binding, viewer subscriptions, and - if the connection was a player - the
// room's disconnect path (dissolve or implicit forfeit).
func (that *Registry) RemoveConnection(p room.Participant) {
	that.mu.Lock()
	if username, ok := that.userByConn[p.ID()]; ok {
		delete(that.userByConn, p.ID())
		delete(that.connByUser, username)
	}
	var playing *room.Room
	if name, ok := that.memberOf[p.ID()]; ok {
		playing = that.rooms[name]
		delete(that.memberOf, p.ID())
	}
	var viewed []*room.Room
	for name := range that.viewedRooms[p.ID()] {
		if r, ok := that.rooms[name]; ok {
			viewed = append(viewed, r)
		}
	}
	delete(that.viewedRooms, p.ID())
	that.mu.Unlock()

	for _, r := range viewed {
		r.DropViewer(p)
	}

	if playing != nil {
		outcome := playing.Disconnect(p)
		that.logger.Info("player connection removed",
			"conn", p.ID(), "room", playing.Name(), "outcome", int(outcome))
	}
}

// roomClosed runs in the room goroutine when a room ends or dissolves.
func (that *Registry) roomClosed(name string, playerIDs []int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, name)
	for _, id := range playerIDs {
		if that.memberOf[id] == name {
			delete(that.memberOf, id)
		}
	}

	that.logger.Info("room closed", "room", name)
}
