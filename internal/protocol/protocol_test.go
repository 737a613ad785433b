package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRoomName(t *testing.T) {
	t.Run("Valid names", func(t *testing.T) {
		for _, name := range []string{"r1", "room one", "a-b_c", "A", "12345678901234567890"} {
			assert.True(t, ValidRoomName(name), "expected %q to be valid", name)
		}
	})

	t.Run("Invalid names", func(t *testing.T) {
		for _, name := range []string{"", "bad!name", "room:one", "123456789012345678901", "naïve"} {
			assert.False(t, ValidRoomName(name), "expected %q to be invalid", name)
		}
	})
}

func TestSplit(t *testing.T) {
	fields := Split("JOIN:r1:PLAYER")

	require.Equal(t, []string{"JOIN", "r1", "PLAYER"}, fields)
}

func TestReplies(t *testing.T) {
	assert.Equal(t, "LOGIN:ACKSTATUS:2", Ack(CmdLogin, 2))
	assert.Equal(t, "ROOMLIST:ACKSTATUS:0:a,b", RoomList([]string{"a", "b"}))
	assert.Equal(t, "ROOMLIST:ACKSTATUS:0:", RoomList(nil))
}

func TestBroadcasts(t *testing.T) {
	assert.Equal(t, "BEGIN:alice:bob", Begin("alice", "bob"))
	assert.Equal(t, "INPROGRESS:bob:alice", InProgress("bob", "alice"))
	assert.Equal(t, "BOARDSTATUS:100020000", BoardStatus("100020000"))
	assert.Equal(t, "GAMEEND:111220000:0:alice", GameEndWin("111220000", "alice"))
	assert.Equal(t, "GAMEEND:121212121:1", GameEndDraw("121212121"))
	assert.Equal(t, "GAMEEND:100020000:2:bob", GameEndForfeit("100020000", "bob"))
}
