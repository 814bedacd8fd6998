package model

import "fmt"

func NewBoard(layout Layout) (*Board, error) {
	if layout.Size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidLayout, layout.Size)
	}
	colors, err := layoutColors(layout.Players)
	if err != nil {
		return nil, err
	}
	b := &Board{
		size:   layout.Size,
		cells:  emptyCells(layout.Size),
		colors: colors,
	}
	// dead zones go first, placement must never land on them
	for _, z := range layout.Dead {
		if z.Rows.From < 0 || z.Cols.From < 0 || z.Rows.To > b.size || z.Cols.To > b.size ||
			z.Rows.From > z.Rows.To || z.Cols.From > z.Cols.To {
			return nil, fmt.Errorf("%w: zone %+v out of bounds", ErrInvalidLayout, z)
		}
		for r := z.Rows.From; r < z.Rows.To; r++ {
			for c := z.Cols.From; c < z.Cols.To; c++ {
				if b.cells[r][c].IsDead() {
					return nil, fmt.Errorf("%w: zone %+v overlaps another at %s", ErrInvalidLayout, z, Coord{r, c})
				}
				b.cells[r][c] = DeadCell()
			}
		}
	}
	for _, p := range layout.Players {
		back, pawns := p.squares()
		for i, kind := range p.order() {
			if err := b.place(back[i], Piece{Kind: kind, Owner: p.Color}); err != nil {
				return nil, err
			}
			if err := b.place(pawns[i], Piece{Kind: Pawn, Owner: p.Color}); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func layoutColors(players []PlayerSpec) ([]Color, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: no players", ErrInvalidLayout)
	}
	colors := make([]Color, 0, len(players))
	seen := make(map[Color]bool)
	for _, p := range players {
		if p.Color == "" || seen[p.Color] {
			return nil, fmt.Errorf("%w: color %q empty or repeated", ErrInvalidLayout, p.Color)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		seen[p.Color] = true
		colors = append(colors, p.Color)
	}
	return colors, nil
}

func emptyCells(size int) [][]Cell {
	cells := make([][]Cell, size)
	for r := range cells {
		cells[r] = make([]Cell, size)
	}
	return cells
}

func (b *Board) place(at Coord, p Piece) error {
	if !b.inside(at) {
		return fmt.Errorf("%w: %s %s off the board", ErrInvalidLayout, p, at)
	}
	switch b.cells[at.Row][at.Col].State {
	case Dead:
		return fmt.Errorf("%w: %w: %s at %s", ErrInvalidLayout, ErrDeadPlacement, p, at)
	case Occupied:
		return fmt.Errorf("%w: %w: %s at %s", ErrInvalidLayout, ErrOverlap, p, at)
	}
	b.cells[at.Row][at.Col] = OccupiedCell(p)
	return nil
}

func (b *Board) inside(c Coord) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < b.size && c.Col < b.size
}

// Move applies from->to when the mover owns the turn, the destination is
// playable and not held by the mover. Piece geometry is not checked.
func (b *Board) Move(from, to Coord) (MoveResult, error) {
	piece, err := b.movable(from)
	if err != nil {
		return MoveResult{}, err
	}
	target, taken, err := b.reachable(piece, to)
	if err != nil {
		return MoveResult{}, err
	}

	piece.Moved = true
	b.cells[to.Row][to.Col] = OccupiedCell(piece)
	b.cells[from.Row][from.Col] = EmptyCell()
	b.turn = (b.turn + 1) % len(b.colors)

	result := MoveResult{From: from, To: to, Color: piece.Owner, Piece: piece}
	if taken {
		result.Captured = &target
	}
	return result, nil
}

func (b *Board) movable(from Coord) (Piece, error) {
	if !b.inside(from) {
		return Piece{}, NoPieceAtSource
	}
	piece, ok := b.cells[from.Row][from.Col].Occupant()
	if !ok {
		return Piece{}, NoPieceAtSource
	}
	if piece.Owner != b.CurrentTurn() {
		return Piece{}, NotYourTurn
	}
	return piece, nil
}

func (b *Board) reachable(piece Piece, to Coord) (target Piece, taken bool, err error) {
	if !b.inside(to) || b.cells[to.Row][to.Col].IsDead() {
		return Piece{}, false, DestinationUnplayable
	}
	target, taken = b.cells[to.Row][to.Col].Occupant()
	if taken && target.Owner == piece.Owner {
		return Piece{}, false, DestinationOccupiedByFriendly
	}
	return target, taken, nil
}

// Destinations lists every cell Move would accept from `from`, row by row.
// It is empty when from holds no piece of the player to move.
func (b *Board) Destinations(from Coord) []Coord {
	piece, err := b.movable(from)
	if err != nil {
		return nil
	}
	var out []Coord
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			if _, _, err := b.reachable(piece, Coord{r, c}); err == nil {
				out = append(out, Coord{r, c})
			}
		}
	}
	return out
}

func (b *Board) CurrentTurn() Color {
	return b.colors[b.turn]
}

func (b *Board) TurnIndex() int {
	return b.turn
}

func (b *Board) Colors() []Color {
	return append([]Color(nil), b.colors...)
}

func (b *Board) Size() int {
	return b.size
}

// At returns the cell at c, Dead for coordinates off the board.
func (b *Board) At(c Coord) Cell {
	if !b.inside(c) {
		return DeadCell()
	}
	return b.cells[c.Row][c.Col]
}

// Occupied counts the cells holding a piece.
func (b *Board) Occupied() int {
	n := 0
	for _, row := range b.cells {
		for _, c := range row {
			if c.State == Occupied {
				n++
			}
		}
	}
	return n
}
