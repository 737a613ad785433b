package tcp

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

// writeTimeout bounds a single Send so a stalled peer can never wedge a room
// goroutine mid-broadcast.
const writeTimeout = 10 * time.Second

// Conn is one live client connection. Its identity is an explicit ID handed
// out at accept time - never the address pair, which aliases under churn.
type Conn struct {
	id      int64
	netConn net.Conn
	logger  *slog.Logger

	mu       sync.Mutex
	username string
	dead     bool
}

func newConn(id int64, netConn net.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		id:      id,
		netConn: netConn,
		logger:  logger.With("component", "conn", "conn", id),
	}
}

func (that *Conn) ID() int64 { return that.id }

func (that *Conn) Username() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.username
}

func (that *Conn) setUsername(username string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.username = username
}

// Send writes one newline-terminated frame. Write failures mark the
// connection dead and are swallowed: a broken peer is unwound by its own
// read loop, never by whoever happened to broadcast to it.
func (that *Conn) Send(line string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.dead {
		return
	}

	if err := that.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		that.dead = true
		return
	}

	if _, err := that.netConn.Write([]byte(line + "\n")); err != nil {
		that.logger.Debug("write failed", "error", err)
		that.dead = true
	}
}

func (that *Conn) close() {
	that.mu.Lock()
	that.dead = true
	that.mu.Unlock()

	_ = that.netConn.Close()
}
