package apperror

import "errors"

var (
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrCellOutOfRange = errors.New("cell is out of range")

	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrRoomFull        = errors.New("room already has two players")
	ErrRoomCapacity    = errors.New("room capacity reached")
	ErrInvalidRoomName = errors.New("illegal room name")
	ErrAlreadyInRoom   = errors.New("connection is already in a room")

	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrBadPassword          = errors.New("wrong password")
	ErrAlreadyAuthenticated = errors.New("connection is already logged in")
	ErrUserActiveElsewhere  = errors.New("user is logged in on another connection")
)
