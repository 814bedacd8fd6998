package model

import "fmt"

type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Green  Color = "green"

	White Color = "white"
	Black Color = "black"
)

type Kind int8

const (
	Pawn Kind = iota + 1
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindLetters = map[Kind]byte{
	Pawn:   'p',
	Rook:   'r',
	Knight: 'n',
	Bishop: 'b',
	Queen:  'q',
	King:   'k',
}

// Letter is the lower case algebraic letter of the kind, 0 for unknown kinds.
func (k Kind) Letter() byte {
	return kindLetters[k]
}

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Rook:
		return "rook"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return fmt.Sprintf("n/a:%d", k)
	}
}

func KindFromLetter(b byte) (Kind, bool) {
	for k, l := range kindLetters {
		if l == b {
			return k, true
		}
	}
	return 0, false
}

type Piece struct {
	Kind  Kind
	Owner Color
	Moved bool
}

func (p Piece) String() string {
	return fmt.Sprintf("%s %s", p.Owner, p.Kind)
}

type CellState uint8

const (
	Empty CellState = iota
	Dead
	Occupied
)

func (s CellState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Dead:
		return "dead"
	case Occupied:
		return "occupied"
	default:
		return fmt.Sprintf("n/a:%d", s)
	}
}

// Cell is Empty, Dead or Occupied. Piece is meaningful only when Occupied.
type Cell struct {
	State CellState
	Piece Piece
}

func EmptyCell() Cell { return Cell{State: Empty} }

func DeadCell() Cell { return Cell{State: Dead} }

func OccupiedCell(p Piece) Cell { return Cell{State: Occupied, Piece: p} }

func (c Cell) IsDead() bool { return c.State == Dead }

// Occupant returns the piece on the cell and whether there is one.
func (c Cell) Occupant() (Piece, bool) {
	if c.State != Occupied {
		return Piece{}, false
	}
	return c.Piece, true
}

type Coord struct {
	Row, Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Board is the multi player rules core. It is not safe for concurrent use;
// the owning session serializes every call.
type Board struct {
	size   int
	cells  [][]Cell
	colors []Color
	turn   int
}

// State is a serializable copy of a board.
type State struct {
	Size   int
	Colors []Color
	Turn   int
	Cells  [][]Cell
}

// At returns the cell at c, Dead for coordinates off the board.
func (s State) At(c Coord) Cell {
	if c.Row < 0 || c.Col < 0 || c.Row >= len(s.Cells) || c.Col >= len(s.Cells[c.Row]) {
		return DeadCell()
	}
	return s.Cells[c.Row][c.Col]
}

func (s State) CurrentTurn() Color {
	if s.Turn < 0 || s.Turn >= len(s.Colors) {
		return ""
	}
	return s.Colors[s.Turn]
}

type MoveResult struct {
	From, To Coord
	Color    Color
	Piece    Piece
	Captured *Piece
}
