package tcp

import (
	"context"
	"errors"
	"strconv"

	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/protocol"
	"tictactoe-server/internal/room"
)

// dispatch routes one frame. LOGIN and REGISTER are always permitted; every
// other command needs an authenticated connection first.
func (that *Server) dispatch(ctx context.Context, conn *Conn, line string) {
	fields := protocol.Split(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case protocol.CmdLogin:
		that.handleLogin(ctx, conn, args)
		return
	case protocol.CmdRegister:
		that.handleRegister(ctx, conn, args)
		return
	}

	if conn.Username() == "" {
		conn.Send(protocol.BadAuth)
		return
	}

	switch cmd {
	case protocol.CmdRoomList:
		that.handleRoomList(conn, args)
	case protocol.CmdCreate:
		that.handleCreate(conn, args)
	case protocol.CmdJoin:
		that.handleJoin(ctx, conn, args)
	default:
		that.handleRoomCommand(ctx, conn, cmd, args)
	}
}

func (that *Server) handleLogin(ctx context.Context, conn *Conn, args []string) {
	if len(args) != 2 || args[0] == "" || args[1] == "" {
		conn.Send(protocol.Ack(protocol.CmdLogin, 3))
		return
	}
	username, password := args[0], args[1]

	err := that.registry.Login(ctx, conn.ID(), username, password)
	switch {
	case err == nil:
		conn.setUsername(username)
		conn.Send(protocol.Ack(protocol.CmdLogin, 0))
	case errors.Is(err, apperror.ErrUserNotFound):
		conn.Send(protocol.Ack(protocol.CmdLogin, 1))
	case errors.Is(err, apperror.ErrBadPassword):
		conn.Send(protocol.Ack(protocol.CmdLogin, 2))
	case errors.Is(err, apperror.ErrUserActiveElsewhere):
		conn.Send(protocol.Ack(protocol.CmdLogin, 4))
	case errors.Is(err, apperror.ErrAlreadyAuthenticated):
		conn.Send(protocol.Ack(protocol.CmdLogin, 5))
	default:
		that.logger.Error("login failed against credential store", "conn", conn.ID(), "error", err)
		conn.Send(protocol.Ack(protocol.CmdLogin, 1))
	}
}

func (that *Server) handleRegister(ctx context.Context, conn *Conn, args []string) {
	if len(args) != 2 || args[0] == "" || args[1] == "" {
		conn.Send(protocol.Ack(protocol.CmdRegister, 2))
		return
	}
	username, password := args[0], args[1]

	err := that.registry.Register(ctx, username, password)
	switch {
	case err == nil:
		conn.Send(protocol.Ack(protocol.CmdRegister, 0))
	case errors.Is(err, apperror.ErrUserExists):
		conn.Send(protocol.Ack(protocol.CmdRegister, 1))
	default:
		that.logger.Error("register failed against credential store", "conn", conn.ID(), "error", err)
		conn.Send(protocol.Ack(protocol.CmdRegister, 2))
	}
}

func (that *Server) handleRoomList(conn *Conn, args []string) {
	if len(args) != 1 || (args[0] != protocol.ModePlayer && args[0] != protocol.ModeViewer) {
		conn.Send(protocol.Ack(protocol.CmdRoomList, 1))
		return
	}

	names := that.registry.ListRooms(args[0] == protocol.ModePlayer)
	conn.Send(protocol.RoomList(names))
}

func (that *Server) handleCreate(conn *Conn, args []string) {
	if len(args) != 1 {
		conn.Send(protocol.Ack(protocol.CmdCreate, 4))
		return
	}

	err := that.registry.CreateRoom(args[0], conn)
	switch {
	case err == nil:
		conn.Send(protocol.Ack(protocol.CmdCreate, 0))
	case errors.Is(err, apperror.ErrInvalidRoomName):
		conn.Send(protocol.Ack(protocol.CmdCreate, 1))
	case errors.Is(err, apperror.ErrRoomExists):
		conn.Send(protocol.Ack(protocol.CmdCreate, 2))
	case errors.Is(err, apperror.ErrRoomCapacity):
		conn.Send(protocol.Ack(protocol.CmdCreate, 3))
	case errors.Is(err, apperror.ErrAlreadyInRoom):
		conn.Send(protocol.Ack(protocol.CmdCreate, 4))
	}
}

func (that *Server) handleJoin(ctx context.Context, conn *Conn, args []string) {
	if len(args) != 2 || (args[1] != protocol.ModePlayer && args[1] != protocol.ModeViewer) {
		conn.Send(protocol.Ack(protocol.CmdJoin, 3))
		return
	}
	name := args[0]
	role := room.RolePlayer
	if args[1] == protocol.ModeViewer {
		role = room.RoleViewer
	}

	// The success ack is emitted inside the room so it always precedes the
	// BEGIN/INPROGRESS notices; only failures are answered here.
	err := that.registry.JoinRoom(ctx, name, conn, role)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrRoomNotFound):
		conn.Send(protocol.Ack(protocol.CmdJoin, 1))
	case errors.Is(err, apperror.ErrRoomFull):
		conn.Send(protocol.Ack(protocol.CmdJoin, 2))
	case errors.Is(err, apperror.ErrAlreadyInRoom):
		conn.Send(protocol.Ack(protocol.CmdJoin, 3))
	default:
		that.logger.Error("join failed", "conn", conn.ID(), "room", name, "error", err)
	}
}

// handleRoomCommand covers every token that is only meaningful inside a
// room. PLACE and FORFEIT suspend until it is the caller's turn or the room
// ends; rejected mutations emit nothing on the wire.
func (that *Server) handleRoomCommand(ctx context.Context, conn *Conn, cmd string, args []string) {
	current, ok := that.registry.RoomOf(conn.ID())
	if !ok {
		conn.Send(protocol.NoRoom)
		return
	}

	switch cmd {
	case protocol.CmdPlace:
		if len(args) != 2 {
			that.logger.Debug("malformed PLACE ignored", "conn", conn.ID())
			return
		}
		col, errCol := strconv.Atoi(args[0])
		row, errRow := strconv.Atoi(args[1])
		if errCol != nil || errRow != nil {
			that.logger.Debug("malformed PLACE ignored", "conn", conn.ID())
			return
		}

		if _, err := current.Place(ctx, conn, row, col); err != nil {
			that.logger.Debug("place aborted", "conn", conn.ID(), "error", err)
		}
	case protocol.CmdForfeit:
		if _, err := current.Forfeit(ctx, conn); err != nil {
			that.logger.Debug("forfeit aborted", "conn", conn.ID(), "error", err)
		}
	default:
		that.logger.Debug("unknown in-room command ignored", "conn", conn.ID(), "cmd", cmd)
	}
}
