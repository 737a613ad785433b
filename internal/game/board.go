package game

import (
	"tictactoe-server/internal/apperror"
)

// Size is the board side length.
const Size = 3

// Cell holds the mark of one board cell.
type Cell uint8

const (
	EmptyCell Cell = iota
	MarkSlot0
	MarkSlot1
)

type Outcome uint8

const (
	OutcomeOngoing Outcome = iota
	OutcomeWin
	OutcomeDraw
)

// Board is a 3x3 grid stored row-major.
type Board [Size * Size]Cell

// winLines are the 8 uniform lines that decide a game: 3 rows, 3 columns, 2 diagonals.
var winLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// MarkFor returns the cell mark of a player slot (0 or 1).
func MarkFor(slot int) Cell {
	if slot == 0 {
		return MarkSlot0
	}
	return MarkSlot1
}

// Place writes the slot's mark at (row, col). The board is unchanged on error.
func (that *Board) Place(slot, row, col int) error {
	if row < 0 || row >= Size || col < 0 || col >= Size {
		return apperror.ErrCellOutOfRange
	}

	cell := row*Size + col
	if that[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that[cell] = MarkFor(slot)

	return nil
}

// Evaluate checks the board after a placement. At most one line can be
// uniform by construction, so the scan short-circuits on the first match.
// The winner slot is only meaningful when the outcome is OutcomeWin.
func (that Board) Evaluate() (Outcome, int) {
	for _, line := range winLines {
		a, b, c := that[line[0]], that[line[1]], that[line[2]]
		if a != EmptyCell && a == b && b == c {
			if a == MarkSlot0 {
				return OutcomeWin, 0
			}
			return OutcomeWin, 1
		}
	}

	for _, cell := range that {
		if cell == EmptyCell {
			return OutcomeOngoing, 0
		}
	}

	return OutcomeDraw, 0
}

// String serializes the board to the wire format: nine row-major digits,
// '0' empty, '1' slot 0, '2' slot 1.
func (that Board) String() string {
	buf := make([]byte, len(that))
	for i, cell := range that {
		buf[i] = '0' + byte(cell)
	}

	return string(buf)
}
