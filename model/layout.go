package model

import "fmt"

// Span is a half open range [From, To).
type Span struct {
	From, To int
}

// Zone is a rectangle of dead cells.
type Zone struct {
	Rows, Cols Span
}

type Orientation uint8

const (
	// AlongRow places a player on a fixed row, varying the column.
	AlongRow Orientation = iota
	// AlongColumn places a player on a fixed column, varying the row.
	AlongColumn
)

type PlayerSpec struct {
	Color       Color
	Orientation Orientation
	// Back and Pawn are the fixed row (or column) of the back rank and pawn rank.
	Back, Pawn int
	// Offset is the first varying index of both ranks.
	Offset   int
	Order    []Kind
	Mirrored bool
}

// Layout describes a starting position. Players are listed in turn order.
type Layout struct {
	Size    int
	Dead    []Zone
	Players []PlayerSpec
}

// RankLength is the number of back rank pieces, and pawns, of every player.
const RankLength = 8

// BackRank returns a fresh copy of the standard back rank order.
func BackRank() []Kind {
	return []Kind{Rook, Knight, Bishop, King, Queen, Bishop, Knight, Rook}
}

// CrossLayout is the 14x14 four player board with 3x3 dead corners.
func CrossLayout() Layout {
	const size = 14
	return Layout{
		Size: size,
		Dead: []Zone{
			{Rows: Span{0, 3}, Cols: Span{0, 3}},
			{Rows: Span{0, 3}, Cols: Span{11, size}},
			{Rows: Span{11, size}, Cols: Span{0, 3}},
			{Rows: Span{11, size}, Cols: Span{11, size}},
		},
		Players: []PlayerSpec{
			{Color: Red, Orientation: AlongRow, Back: 13, Pawn: 12, Offset: 3, Order: BackRank()},
			{Color: Blue, Orientation: AlongColumn, Back: 0, Pawn: 1, Offset: 3, Order: BackRank()},
			{Color: Yellow, Orientation: AlongRow, Back: 0, Pawn: 1, Offset: 3, Order: BackRank(), Mirrored: true},
			{Color: Green, Orientation: AlongColumn, Back: 13, Pawn: 12, Offset: 3, Order: BackRank(), Mirrored: true},
		},
	}
}

func (p PlayerSpec) validate() error {
	if p.Orientation != AlongRow && p.Orientation != AlongColumn {
		return fmt.Errorf("%w: %s orientation %d", ErrInvalidLayout, p.Color, p.Orientation)
	}
	if len(p.Order) != RankLength {
		return fmt.Errorf("%w: %s back rank has %d pieces, want %d", ErrInvalidLayout, p.Color, len(p.Order), RankLength)
	}
	for i, k := range p.Order {
		if k.Letter() == 0 {
			return fmt.Errorf("%w: %s back rank slot %d has unknown kind %d", ErrInvalidLayout, p.Color, i, k)
		}
	}
	return nil
}

func (p PlayerSpec) order() []Kind {
	if !p.Mirrored {
		return p.Order
	}
	reversed := make([]Kind, len(p.Order))
	for i, k := range p.Order {
		reversed[len(p.Order)-1-i] = k
	}
	return reversed
}

// squares returns the back rank and pawn rank coordinates, index aligned with order().
func (p PlayerSpec) squares() (back, pawns []Coord) {
	for i := range p.Order {
		along := p.Offset + i
		if p.Orientation == AlongRow {
			back = append(back, Coord{p.Back, along})
			pawns = append(pawns, Coord{p.Pawn, along})
		} else {
			back = append(back, Coord{along, p.Back})
			pawns = append(pawns, Coord{along, p.Pawn})
		}
	}
	return
}
