// Package protocol holds the colon-delimited wire format shared by the
// transport router and the room state machine: command tokens, ACKSTATUS
// reply builders and the broadcast lines. Keeping every literal here means a
// reply and its broadcast can never disagree about the format.
package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	CmdLogin    = "LOGIN"
	CmdRegister = "REGISTER"
	CmdRoomList = "ROOMLIST"
	CmdCreate   = "CREATE"
	CmdJoin     = "JOIN"
	CmdPlace    = "PLACE"
	CmdForfeit  = "FORFEIT"

	ModePlayer = "PLAYER"
	ModeViewer = "VIEWER"

	BadAuth = "BADAUTH"
	NoRoom  = "NOROOM"

	// OwnerLeftNotice is sent to viewers when a waiting room dissolves.
	// The wording (typo included) is kept from the legacy server because
	// deployed clients match on it.
	OwnerLeftNotice = "Room owner has quited."
)

// GAMEEND status codes.
const (
	EndStatusWin     = "0"
	EndStatusDraw    = "1"
	EndStatusForfeit = "2"
)

var roomNamePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]{1,20}$`)

// Split breaks a frame into its colon-delimited fields.
func Split(frame string) []string {
	return strings.Split(frame, ":")
}

// ValidRoomName reports whether a room name matches the allowed pattern.
func ValidRoomName(name string) bool {
	return roomNamePattern.MatchString(name)
}

// Ack builds a command-specific ACKSTATUS reply.
func Ack(cmd string, code int) string {
	return cmd + ":ACKSTATUS:" + strconv.Itoa(code)
}

// RoomList builds the successful ROOMLIST reply with a comma-joined name list.
func RoomList(names []string) string {
	return Ack(CmdRoomList, 0) + ":" + strings.Join(names, ",")
}

// Begin is broadcast to both players when the second player joins.
func Begin(player0, player1 string) string {
	return "BEGIN:" + player0 + ":" + player1
}

// InProgress is the synthetic notice for viewers of an active match.
// The first name is the player whose turn it currently is.
func InProgress(current, other string) string {
	return "INPROGRESS:" + current + ":" + other
}

// BoardStatus is broadcast after a non-terminal placement.
func BoardStatus(board string) string {
	return "BOARDSTATUS:" + board
}

// GameEndWin is broadcast when a placement completes a line.
func GameEndWin(board, winner string) string {
	return "GAMEEND:" + board + ":" + EndStatusWin + ":" + winner
}

// GameEndDraw is broadcast when the board fills with no line.
func GameEndDraw(board string) string {
	return "GAMEEND:" + board + ":" + EndStatusDraw
}

// GameEndForfeit is broadcast on an explicit forfeit or a player disconnect.
func GameEndForfeit(board, winner string) string {
	return "GAMEEND:" + board + ":" + EndStatusForfeit + ":" + winner
}
