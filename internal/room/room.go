// Package room implements one match's state machine: board, player slots,
// viewers, turn and lifecycle. Every room is owned by a single goroutine that
// consumes a FIFO request inbox, so mutations and the broadcasts they cause
// are atomic from an observer's standpoint, and two rooms never contend.
package room

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/game"
	"tictactoe-server/internal/protocol"
)

// Participant is a live connection as the room sees it: a stable identity,
// the authenticated username, and a non-blocking line sink.
type Participant interface {
	ID() int64
	Username() string
	Send(line string)
}

type Role uint8

const (
	RolePlayer Role = iota
	RoleViewer
)

type Status uint8

const (
	StatusWaiting Status = iota
	StatusInProgress
	StatusEnded
)

type JoinStatus uint8

const (
	JoinAccepted JoinStatus = iota
	JoinRoomFull
)

// ActStatus is the outcome of a PLACE or FORFEIT request.
type ActStatus uint8

const (
	// ActApplied - the mutation committed and was broadcast.
	ActApplied ActStatus = iota
	// ActRejected - out-of-range or occupied cell; nothing was sent.
	ActRejected
	// ActDropped - the room reached a terminal state while the request was
	// queued; the terminal broadcast already went out in its place.
	ActDropped
)

type DisconnectOutcome uint8

const (
	NoEffect DisconnectOutcome = iota
	RoomDissolved
	OpponentAwardedWin
)

var errRoomClosed = errors.New("room is closed")

type reqKind uint8

const (
	reqJoin reqKind = iota
	reqPlace
	reqForfeit
	reqDisconnect
	reqDropViewer
)

type request struct {
	kind     reqKind
	from     Participant
	role     Role
	row, col int
	reply    chan result
}

type result struct {
	join       JoinStatus
	act        ActStatus
	disconnect DisconnectOutcome
	ended      bool
}

type Room struct {
	name   string
	logger *slog.Logger

	inbox chan request
	done  chan struct{}

	// onClosed runs in the room goroutine when the room ends or dissolves;
	// the registry uses it to delete the room and unbind player memberships.
	onClosed func(name string, playerIDs []int64)

	playerCount atomic.Int32

	// Owned by the run goroutine.
	board   game.Board
	players [2]Participant
	viewers []Participant
	turn    int
	status  Status
	endLine string
	pending [2]*request
	closed  bool
}

// New creates a room with the creator in slot 0. Start must be called before
// any request is submitted.
func New(name string, creator Participant, logger *slog.Logger, onClosed func(name string, playerIDs []int64)) *Room {
	that := &Room{
		name:     name,
		logger:   logger.With("component", "room", "room", name),
		inbox:    make(chan request),
		done:     make(chan struct{}),
		onClosed: onClosed,
		status:   StatusWaiting,
	}
	that.players[0] = creator
	that.playerCount.Store(1)

	return that
}

func (that *Room) Name() string { return that.name }

// Joinable reports whether a player slot is free. It reads an atomic counter
// so the registry can filter ROOMLIST without entering the room goroutine.
func (that *Room) Joinable() bool { return that.playerCount.Load() < 2 }

// Start launches the owner goroutine. ctx bounds the room's lifetime on
// server shutdown; normal rooms stop themselves when they end or dissolve.
func (that *Room) Start(ctx context.Context) {
	go that.run(ctx)
}

// Join adds a participant. Players fill slot 1 and flip the room to
// InProgress; viewers are always accepted. The success ack and any
// BEGIN/INPROGRESS notices are sent inside the room so their order is stable.
func (that *Room) Join(ctx context.Context, p Participant, role Role) (JoinStatus, error) {
	res, err := that.submit(ctx, request{kind: reqJoin, from: p, role: role})
	if errors.Is(err, errRoomClosed) {
		return 0, apperror.ErrRoomNotFound
	}
	if err != nil {
		return 0, err
	}

	return res.join, nil
}

// Place suspends until the room has begun and it is the caller's turn, or
// until the room is terminal, then applies the move.
func (that *Room) Place(ctx context.Context, p Participant, row, col int) (ActStatus, error) {
	return that.act(ctx, request{kind: reqPlace, from: p, row: row, col: col})
}

// Forfeit follows the same wait rule as Place and concedes to the opponent.
func (that *Room) Forfeit(ctx context.Context, p Participant) (ActStatus, error) {
	return that.act(ctx, request{kind: reqForfeit, from: p})
}

func (that *Room) act(ctx context.Context, req request) (ActStatus, error) {
	res, err := that.submit(ctx, req)
	if errors.Is(err, errRoomClosed) {
		return ActDropped, nil
	}
	if err != nil {
		return 0, err
	}

	return res.act, nil
}

// Disconnect unwinds a player that dropped: a waiting room dissolves, an
// in-progress match ends as an implicit forfeit with the opponent as winner.
func (that *Room) Disconnect(p Participant) DisconnectOutcome {
	res, err := that.submit(context.Background(), request{kind: reqDisconnect, from: p})
	if err != nil {
		return NoEffect
	}

	return res.disconnect
}

// DropViewer removes a disconnected viewer from the broadcast set.
func (that *Room) DropViewer(p Participant) {
	_, _ = that.submit(context.Background(), request{kind: reqDropViewer, from: p})
}

func (that *Room) submit(ctx context.Context, req request) (result, error) {
	req.reply = make(chan result, 1)

	select {
	case that.inbox <- req:
	case <-that.done:
		return result{}, errRoomClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-that.done:
		// The room shut down while the request was queued or parked; a reply
		// may still have been written just before.
		select {
		case res := <-req.reply:
			return res, nil
		default:
			return result{}, errRoomClosed
		}
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (that *Room) run(ctx context.Context) {
	defer close(that.done)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-that.inbox:
			that.handle(req)
			if that.closed {
				return
			}
		}
	}
}

func (that *Room) handle(req request) {
	switch req.kind {
	case reqJoin:
		that.handleJoin(req)
	case reqPlace, reqForfeit:
		that.handleAct(req)
	case reqDisconnect:
		that.handleDisconnect(req)
	case reqDropViewer:
		that.removeViewer(req.from)
		req.reply <- result{}
	}
}

func (that *Room) handleJoin(req request) {
	if req.role == RoleViewer {
		if that.slotOfViewer(req.from) < 0 {
			that.viewers = append(that.viewers, req.from)
		}
		req.reply <- result{join: JoinAccepted}

		req.from.Send(protocol.Ack(protocol.CmdJoin, 0))
		switch that.status {
		case StatusInProgress:
			// Late viewers get a synthetic notice with the current turn,
			// not the move history.
			req.from.Send(protocol.InProgress(that.players[that.turn].Username(), that.players[1-that.turn].Username()))
		case StatusEnded:
			req.from.Send(that.endLine)
		case StatusWaiting:
		}

		return
	}

	if that.status != StatusWaiting || that.players[1] != nil {
		req.reply <- result{join: JoinRoomFull}
		return
	}

	// Second player: record the slot and begin atomically.
	that.players[1] = req.from
	that.playerCount.Store(2)
	that.status = StatusInProgress
	that.turn = 0
	req.reply <- result{join: JoinAccepted}

	req.from.Send(protocol.Ack(protocol.CmdJoin, 0))
	begin := protocol.Begin(that.players[0].Username(), that.players[1].Username())
	that.players[0].Send(begin)
	that.players[1].Send(begin)
	for _, viewer := range that.viewers {
		viewer.Send(protocol.InProgress(that.players[0].Username(), that.players[1].Username()))
	}

	that.logger.Info("match started",
		"player0", that.players[0].Username(),
		"player1", that.players[1].Username())

	// A move the creator issued while waiting is parked in pending; now that
	// the match has begun it is slot 0's turn, so release it.
	that.wakeParked()
}

func (that *Room) handleAct(req request) {
	slot := that.slotOf(req.from)
	if slot < 0 {
		req.reply <- result{act: ActRejected}
		return
	}

	if that.status == StatusEnded {
		req.reply <- result{act: ActDropped}
		return
	}

	if that.status == StatusWaiting || that.turn != slot {
		// Park until it is this slot's turn or the room ends. The caller's
		// handler stays blocked, so a slot holds at most one parked request.
		parked := req
		that.pending[slot] = &parked

		return
	}

	that.execute(req, slot)
	that.wakeParked()
}

// wakeParked resumes the parked request of whichever slot the turn moved to.
// An executed request can flip the turn again, so this loops.
func (that *Room) wakeParked() {
	for that.status == StatusInProgress {
		req := that.pending[that.turn]
		if req == nil {
			return
		}
		that.pending[that.turn] = nil
		that.execute(*req, that.turn)
	}
}

func (that *Room) execute(req request, slot int) {
	if req.kind == reqForfeit {
		winner := that.players[1-slot]
		that.endGame(protocol.GameEndForfeit(that.board.String(), winner.Username()), nil)
		req.reply <- result{act: ActApplied, ended: true}

		return
	}

	if err := that.board.Place(slot, req.row, req.col); err != nil {
		that.logger.Debug("placement rejected", "slot", slot, "row", req.row, "col", req.col, "error", err)
		req.reply <- result{act: ActRejected}

		return
	}

	outcome, winnerSlot := that.board.Evaluate()
	switch outcome {
	case game.OutcomeWin:
		that.endGame(protocol.GameEndWin(that.board.String(), that.players[winnerSlot].Username()), nil)
		req.reply <- result{act: ActApplied, ended: true}
	case game.OutcomeDraw:
		that.endGame(protocol.GameEndDraw(that.board.String()), nil)
		req.reply <- result{act: ActApplied, ended: true}
	case game.OutcomeOngoing:
		that.turn = 1 - slot
		that.broadcast(protocol.BoardStatus(that.board.String()), nil)
		req.reply <- result{act: ActApplied}
	}
}

func (that *Room) handleDisconnect(req request) {
	slot := that.slotOf(req.from)
	if slot < 0 || that.status == StatusEnded {
		req.reply <- result{disconnect: NoEffect}
		return
	}

	if that.status == StatusWaiting {
		for _, viewer := range that.viewers {
			viewer.Send(protocol.OwnerLeftNotice)
		}
		req.reply <- result{disconnect: RoomDissolved}
		that.close()

		return
	}

	winner := that.players[1-slot]
	that.endGame(protocol.GameEndForfeit(that.board.String(), winner.Username()), req.from)
	req.reply <- result{disconnect: OpponentAwardedWin}

	that.logger.Info("player disconnected, opponent wins", "winner", winner.Username())
}

// endGame commits the terminal state, fans the line out to both players and
// all viewers (skipping a disconnected participant), releases parked waiters
// and closes the room. Compute once, then fan out: no observer can see the
// transition without its notification.
func (that *Room) endGame(line string, skip Participant) {
	that.status = StatusEnded
	that.endLine = line
	that.broadcast(line, skip)

	for slot, parked := range that.pending {
		if parked != nil {
			parked.reply <- result{act: ActDropped, ended: true}
			that.pending[slot] = nil
		}
	}

	that.close()
}

func (that *Room) close() {
	that.closed = true

	ids := make([]int64, 0, 2)
	for _, p := range that.players {
		if p != nil {
			ids = append(ids, p.ID())
		}
	}
	if that.onClosed != nil {
		that.onClosed(that.name, ids)
	}
}

func (that *Room) broadcast(line string, skip Participant) {
	for _, p := range that.players {
		if p == nil || (skip != nil && p.ID() == skip.ID()) {
			continue
		}
		p.Send(line)
	}
	for _, viewer := range that.viewers {
		if skip != nil && viewer.ID() == skip.ID() {
			continue
		}
		viewer.Send(line)
	}
}

func (that *Room) slotOf(p Participant) int {
	for i, player := range that.players {
		if player != nil && player.ID() == p.ID() {
			return i
		}
	}

	return -1
}

func (that *Room) removeViewer(p Participant) {
	if i := that.slotOfViewer(p); i >= 0 {
		that.viewers = append(that.viewers[:i], that.viewers[i+1:]...)
	}
}

func (that *Room) slotOfViewer(p Participant) int {
	for i, viewer := range that.viewers {
		if viewer.ID() == p.ID() {
			return i
		}
	}

	return -1
}
