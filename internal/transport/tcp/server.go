// Package tcp serves the colon-delimited line protocol: one goroutine per
// connection reads newline-framed commands and routes them to the session
// registry and room state machines.
package tcp

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"tictactoe-server/internal/registry"
)

type Server struct {
	logger      *slog.Logger
	registry    *registry.Registry
	idleTimeout time.Duration

	nextConnID atomic.Int64
}

// New creates a server. idleTimeout is the per-connection read deadline used
// to reclaim silently dead peers; zero disables it.
func New(logger *slog.Logger, reg *registry.Registry, idleTimeout time.Duration) *Server {
	return &Server{
		logger:      logger.With("component", "tcp"),
		registry:    reg,
		idleTimeout: idleTimeout,
	}
}

// Start listens on the port and serves until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	return that.Serve(ctx, listener)
}

// Serve accepts connections from the listener until ctx is canceled.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	that.logger.Info("listening", "addr", listener.Addr().String())

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		conn := newConn(that.nextConnID.Add(1), netConn, that.logger)
		go that.handleConnection(ctx, conn)
	}
}

// handleConnection reads frames until the peer goes away, then unwinds the
// connection's registry and room state. A transport failure here never
// affects other connections or rooms.
func (that *Server) handleConnection(ctx context.Context, conn *Conn) {
	log := that.logger.With("conn", conn.ID(), "remote", conn.netConn.RemoteAddr().String())
	log.Info("connection established")

	defer func() {
		conn.close()
		that.registry.RemoveConnection(conn)
		log.Info("connection closed")
	}()

	scanner := bufio.NewScanner(conn.netConn)
	for {
		if that.idleTimeout > 0 {
			if err := conn.netConn.SetReadDeadline(time.Now().Add(that.idleTimeout)); err != nil {
				return
			}
		}

		if !scanner.Scan() {
			// EOF, reset or idle deadline: all are implicit disconnects.
			if err := scanner.Err(); err != nil {
				log.Debug("read failed", "error", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		that.dispatch(ctx, conn, line)
	}
}
