package model

import "fmt"

// Snapshot returns a deep copy of the board.
func (b *Board) Snapshot() State {
	return State{
		Size:   b.size,
		Colors: b.Colors(),
		Turn:   b.turn,
		Cells:  copyCells(b.cells),
	}
}

// LoadState replaces cells and turn with s without validating how the
// position was reached. A malformed state leaves the board untouched.
func (b *Board) LoadState(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Size != b.size {
		return fmt.Errorf("%w: size %d, board is %d", ErrInvalidState, s.Size, b.size)
	}
	if len(s.Colors) != len(b.colors) {
		return fmt.Errorf("%w: %d colors, board has %d", ErrInvalidState, len(s.Colors), len(b.colors))
	}
	for i, c := range s.Colors {
		if b.colors[i] != c {
			return fmt.Errorf("%w: color %d is %q, board has %q", ErrInvalidState, i, c, b.colors[i])
		}
	}
	for r := range b.cells {
		for c := range b.cells[r] {
			if b.cells[r][c].IsDead() != s.Cells[r][c].IsDead() {
				return fmt.Errorf("%w: dead cells differ at %s", ErrInvalidState, Coord{r, c})
			}
		}
	}
	b.cells = copyCells(s.Cells)
	b.turn = s.Turn
	return nil
}

// NewBoardFromState builds a board whose dead cells are the ones of s.
func NewBoardFromState(s State) (*Board, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Board{
		size:   s.Size,
		cells:  copyCells(s.Cells),
		colors: append([]Color(nil), s.Colors...),
		turn:   s.Turn,
	}, nil
}

// Validate checks the board invariants a state must satisfy.
func (s State) Validate() error {
	if s.Size <= 0 || len(s.Cells) != s.Size {
		return fmt.Errorf("%w: size %d with %d rows", ErrInvalidState, s.Size, len(s.Cells))
	}
	if len(s.Colors) == 0 {
		return fmt.Errorf("%w: no colors", ErrInvalidState)
	}
	if s.Turn < 0 || s.Turn >= len(s.Colors) {
		return fmt.Errorf("%w: turn %d out of range", ErrInvalidState, s.Turn)
	}
	members := make(map[Color]bool, len(s.Colors))
	for _, c := range s.Colors {
		if c == "" || members[c] {
			return fmt.Errorf("%w: color %q empty or repeated", ErrInvalidState, c)
		}
		members[c] = true
	}
	for r, row := range s.Cells {
		if len(row) != s.Size {
			return fmt.Errorf("%w: row %d has %d cells", ErrInvalidState, r, len(row))
		}
		for c, cell := range row {
			switch cell.State {
			case Empty, Dead:
			case Occupied:
				if !members[cell.Piece.Owner] {
					return fmt.Errorf("%w: owner %q at %s not playing", ErrInvalidState, cell.Piece.Owner, Coord{r, c})
				}
				if cell.Piece.Kind.Letter() == 0 {
					return fmt.Errorf("%w: unknown kind at %s", ErrInvalidState, Coord{r, c})
				}
			default:
				return fmt.Errorf("%w: cell state %d at %s", ErrInvalidState, cell.State, Coord{r, c})
			}
		}
	}
	return nil
}

func copyCells(cells [][]Cell) [][]Cell {
	out := make([][]Cell, len(cells))
	for i := range cells {
		out[i] = make([]Cell, len(cells[i]))
		copy(out[i], cells[i])
	}
	return out
}
