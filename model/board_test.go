package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCross(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard(CrossLayout())
	require.NoError(t, err)
	return b
}

func changed(a, b State) []Coord {
	var out []Coord
	for r := range a.Cells {
		for c := range a.Cells[r] {
			if a.Cells[r][c] != b.Cells[r][c] {
				out = append(out, Coord{r, c})
			}
		}
	}
	return out
}

func deadSet(s State) map[Coord]bool {
	out := make(map[Coord]bool)
	for r := range s.Cells {
		for c := range s.Cells[r] {
			if s.Cells[r][c].IsDead() {
				out[Coord{r, c}] = true
			}
		}
	}
	return out
}

// emptied keeps the dead cells of b and clears every piece.
func emptied(b *Board) State {
	s := b.Snapshot()
	for r := range s.Cells {
		for c := range s.Cells[r] {
			if !s.Cells[r][c].IsDead() {
				s.Cells[r][c] = EmptyCell()
			}
		}
	}
	return s
}

func TestCrossLayout(t *testing.T) {
	b := newCross(t)

	assert.Equal(t, 14, b.Size())
	assert.Equal(t, []Color{Red, Blue, Yellow, Green}, b.Colors())
	assert.Equal(t, Red, b.CurrentTurn())
	assert.Equal(t, 0, b.TurnIndex())
	assert.Equal(t, 64, b.Occupied())
	assert.Len(t, deadSet(b.Snapshot()), 36)

	assert.True(t, b.At(Coord{0, 0}).IsDead())
	assert.True(t, b.At(Coord{13, 12}).IsDead())
	assert.Equal(t, Empty, b.At(Coord{6, 6}).State)

	assert.Equal(t, OccupiedCell(Piece{Kind: Pawn, Owner: Red}), b.At(Coord{12, 3}))
	assert.Equal(t, OccupiedCell(Piece{Kind: Rook, Owner: Red}), b.At(Coord{13, 3}))
	assert.Equal(t, OccupiedCell(Piece{Kind: King, Owner: Red}), b.At(Coord{13, 6}))
	assert.Equal(t, OccupiedCell(Piece{Kind: Queen, Owner: Red}), b.At(Coord{13, 7}))

	assert.Equal(t, OccupiedCell(Piece{Kind: King, Owner: Blue}), b.At(Coord{6, 0}))
	assert.Equal(t, OccupiedCell(Piece{Kind: Pawn, Owner: Blue}), b.At(Coord{10, 1}))

	// mirrored players swap king and queen
	assert.Equal(t, OccupiedCell(Piece{Kind: Queen, Owner: Yellow}), b.At(Coord{0, 6}))
	assert.Equal(t, OccupiedCell(Piece{Kind: King, Owner: Yellow}), b.At(Coord{0, 7}))
	assert.Equal(t, OccupiedCell(Piece{Kind: Queen, Owner: Green}), b.At(Coord{6, 13}))
	assert.Equal(t, OccupiedCell(Piece{Kind: King, Owner: Green}), b.At(Coord{7, 13}))
	assert.Equal(t, OccupiedCell(Piece{Kind: Pawn, Owner: Green}), b.At(Coord{3, 12}))

	perColor := make(map[Color]int)
	s := b.Snapshot()
	for _, row := range s.Cells {
		for _, c := range row {
			if p, ok := c.Occupant(); ok {
				perColor[p.Owner]++
			}
		}
	}
	assert.Equal(t, map[Color]int{Red: 16, Blue: 16, Yellow: 16, Green: 16}, perColor)
}

func TestNewBoardRejectsBadLayouts(t *testing.T) {
	deadPlacement := CrossLayout()
	deadPlacement.Players[0].Offset = 0

	overlap := CrossLayout()
	overlap.Players[2].Back = 13
	overlap.Players[2].Pawn = 12

	zone := CrossLayout()
	zone.Dead = append(zone.Dead, Zone{Rows: Span{12, 15}, Cols: Span{0, 1}})

	repeated := CrossLayout()
	repeated.Players[1].Color = Red

	offBoard := CrossLayout()
	offBoard.Players[3].Back = 14

	shortRank := CrossLayout()
	shortRank.Players[0].Order = []Kind{Rook, 0, 42}

	unknownKind := CrossLayout()
	unknownKind.Players[1].Order[2] = 42

	orientation := CrossLayout()
	orientation.Players[2].Orientation = 7

	overlappingZones := CrossLayout()
	overlappingZones.Dead = append(overlappingZones.Dead, Zone{Rows: Span{2, 4}, Cols: Span{2, 4}})

	tests := []struct {
		name   string
		layout Layout
		target error
	}{
		{"dead placement", deadPlacement, ErrDeadPlacement},
		{"overlap", overlap, ErrOverlap},
		{"zone out of bounds", zone, ErrInvalidLayout},
		{"repeated color", repeated, ErrInvalidLayout},
		{"placement off board", offBoard, ErrInvalidLayout},
		{"short back rank", shortRank, ErrInvalidLayout},
		{"unknown kind in back rank", unknownKind, ErrInvalidLayout},
		{"unknown orientation", orientation, ErrInvalidLayout},
		{"overlapping zones", overlappingZones, ErrInvalidLayout},
		{"no size", Layout{Players: CrossLayout().Players}, ErrInvalidLayout},
		{"no players", Layout{Size: 8}, ErrInvalidLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBoard(tt.layout)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestCrossLayoutOrdersAreFresh(t *testing.T) {
	l := CrossLayout()
	l.Players[0].Order[3] = Pawn
	assert.Equal(t, King, l.Players[1].Order[3])
	assert.Equal(t, King, BackRank()[3])

	b := newCross(t)
	assert.Equal(t, OccupiedCell(Piece{Kind: King, Owner: Red}), b.At(Coord{13, 6}))
}

func TestDestinations(t *testing.T) {
	b := newCross(t)
	s := emptied(b)
	s.Cells[6][6] = OccupiedCell(Piece{Kind: Knight, Owner: Red})
	s.Cells[6][7] = OccupiedCell(Piece{Kind: Pawn, Owner: Red})
	s.Cells[7][7] = OccupiedCell(Piece{Kind: Pawn, Owner: Blue})
	require.NoError(t, b.LoadState(s))

	dests := b.Destinations(Coord{6, 6})
	// every live cell but the knight's own and its neighbour's
	assert.Len(t, dests, 14*14-36-2)
	assert.Contains(t, dests, Coord{7, 7})
	assert.NotContains(t, dests, Coord{6, 7})
	assert.NotContains(t, dests, Coord{0, 0})
	for _, to := range dests {
		_, _, err := b.reachable(Piece{Kind: Knight, Owner: Red}, to)
		assert.NoError(t, err, "%s", to)
	}

	assert.Empty(t, b.Destinations(Coord{7, 7}), "blue is not to move")
	assert.Empty(t, b.Destinations(Coord{5, 5}), "empty source")
	assert.Empty(t, b.Destinations(Coord{-1, 0}), "off board")
}

func TestMoveRejections(t *testing.T) {
	tests := []struct {
		name     string
		from, to Coord
		reason   Reason
	}{
		{"empty source", Coord{6, 6}, Coord{6, 7}, NoPieceAtSource},
		{"dead source", Coord{0, 0}, Coord{6, 6}, NoPieceAtSource},
		{"source off board", Coord{-1, 4}, Coord{6, 6}, NoPieceAtSource},
		{"blue piece on red turn", Coord{3, 1}, Coord{3, 2}, NotYourTurn},
		{"into dead corner", Coord{12, 3}, Coord{12, 1}, DestinationUnplayable},
		{"destination off board", Coord{12, 3}, Coord{12, 14}, DestinationUnplayable},
		{"onto own rook", Coord{12, 3}, Coord{13, 3}, DestinationOccupiedByFriendly},
		{"same square", Coord{12, 3}, Coord{12, 3}, DestinationOccupiedByFriendly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newCross(t)
			before := b.Snapshot()

			for i := 0; i < 2; i++ {
				res, err := b.Move(tt.from, tt.to)
				assert.ErrorIs(t, err, tt.reason)
				assert.Equal(t, MoveResult{}, res)
				assert.Equal(t, before, b.Snapshot())
				assert.Equal(t, Red, b.CurrentTurn())
			}
		})
	}
}

func TestMoveIntoDeadZoneFromCenter(t *testing.T) {
	b := newCross(t)
	s := emptied(b)
	s.Cells[3][3] = OccupiedCell(Piece{Kind: Queen, Owner: Red})
	require.NoError(t, b.LoadState(s))

	_, err := b.Move(Coord{3, 3}, Coord{1, 1})
	assert.ErrorIs(t, err, DestinationUnplayable)
}

func TestMoveCapture(t *testing.T) {
	b := newCross(t)
	s := emptied(b)
	s.Cells[9][5] = OccupiedCell(Piece{Kind: Rook, Owner: Red})
	s.Cells[9][6] = OccupiedCell(Piece{Kind: Pawn, Owner: Blue})
	require.NoError(t, b.LoadState(s))
	before := b.Snapshot()

	res, err := b.Move(Coord{9, 5}, Coord{9, 6})
	require.NoError(t, err)

	require.NotNil(t, res.Captured)
	assert.Equal(t, Blue, res.Captured.Owner)
	assert.Equal(t, Pawn, res.Captured.Kind)
	assert.Equal(t, Red, res.Color)
	assert.Equal(t, Coord{9, 5}, res.From)
	assert.Equal(t, Coord{9, 6}, res.To)

	assert.Equal(t, EmptyCell(), b.At(Coord{9, 5}))
	assert.Equal(t, OccupiedCell(Piece{Kind: Rook, Owner: Red, Moved: true}), b.At(Coord{9, 6}))
	assert.Equal(t, Blue, b.CurrentTurn())
	assert.ElementsMatch(t, []Coord{{9, 5}, {9, 6}}, changed(before, b.Snapshot()))
}

func TestMoveToEmptyHasNoCapture(t *testing.T) {
	b := newCross(t)
	res, err := b.Move(Coord{12, 3}, Coord{6, 6})
	require.NoError(t, err)
	assert.Nil(t, res.Captured)
	assert.Equal(t, Piece{Kind: Pawn, Owner: Red, Moved: true}, res.Piece)
}

func TestTurnRotation(t *testing.T) {
	b := newCross(t)
	dead := deadSet(b.Snapshot())

	moves := []struct{ from, to Coord }{
		{Coord{12, 3}, Coord{11, 3}}, // red
		{Coord{3, 1}, Coord{3, 2}},   // blue
		{Coord{1, 3}, Coord{2, 3}},   // yellow
		{Coord{3, 12}, Coord{3, 11}}, // green
		{Coord{12, 4}, Coord{10, 4}}, // red
		{Coord{13, 7}, Coord{13, 7}}, // rejected, blue to move
		{Coord{4, 1}, Coord{4, 2}},   // blue
	}
	applied := 0
	for i, m := range moves {
		before := b.Snapshot()
		_, err := b.Move(m.from, m.to)
		if err != nil {
			assert.Equal(t, before, b.Snapshot(), "move %d", i)
			assert.Equal(t, applied%4, b.TurnIndex(), "move %d", i)
			continue
		}
		applied++
		after := b.Snapshot()
		assert.Equal(t, applied%4, b.TurnIndex(), "move %d", i)
		assert.Len(t, changed(before, after), 2, "move %d", i)
		assert.Equal(t, dead, deadSet(after), "move %d", i)
	}
	assert.Equal(t, 6, applied)
	assert.Equal(t, Yellow, b.CurrentTurn())
	assert.Equal(t, 64, b.Occupied())
}

func TestSnapshotIsCopy(t *testing.T) {
	b := newCross(t)
	s := b.Snapshot()
	s.Cells[12][3] = EmptyCell()
	s.Cells[6][6] = OccupiedCell(Piece{Kind: King, Owner: Blue})
	s.Colors[0] = Black
	s.Turn = 3

	assert.Equal(t, OccupiedCell(Piece{Kind: Pawn, Owner: Red}), b.At(Coord{12, 3}))
	assert.Equal(t, EmptyCell(), b.At(Coord{6, 6}))
	assert.Equal(t, Red, b.CurrentTurn())
	colors := b.Colors()
	colors[1] = Black
	assert.Equal(t, Blue, b.Colors()[1])
}

func TestLoadStateRoundTrip(t *testing.T) {
	src := newCross(t)
	_, err := src.Move(Coord{12, 3}, Coord{8, 3})
	require.NoError(t, err)
	_, err = src.Move(Coord{3, 1}, Coord{8, 3})
	require.NoError(t, err)
	snap := src.Snapshot()

	dst := newCross(t)
	require.NoError(t, dst.LoadState(snap))
	assert.Equal(t, snap, dst.Snapshot())
	assert.Equal(t, Yellow, dst.CurrentTurn())

	restored, err := NewBoardFromState(snap)
	require.NoError(t, err)
	assert.Equal(t, snap, restored.Snapshot())

	// the loaded board does not alias the snapshot
	snap.Cells[8][3] = EmptyCell()
	assert.Equal(t, Blue, dst.At(Coord{8, 3}).Piece.Owner)
}

func TestLoadStateRejectsMalformed(t *testing.T) {
	mutate := func(f func(*State)) State {
		b, _ := NewBoard(CrossLayout())
		s := b.Snapshot()
		f(&s)
		return s
	}
	tests := []struct {
		name  string
		state State
	}{
		{"turn out of range", mutate(func(s *State) { s.Turn = 4 })},
		{"negative turn", mutate(func(s *State) { s.Turn = -1 })},
		{"unknown owner", mutate(func(s *State) { s.Cells[6][6] = OccupiedCell(Piece{Kind: Rook, Owner: Black}) })},
		{"unknown kind", mutate(func(s *State) { s.Cells[6][6] = OccupiedCell(Piece{Owner: Red}) })},
		{"dead cell revived", mutate(func(s *State) { s.Cells[0][0] = EmptyCell() })},
		{"new dead cell", mutate(func(s *State) { s.Cells[6][6] = DeadCell() })},
		{"short row", mutate(func(s *State) { s.Cells[5] = s.Cells[5][:3] })},
		{"size mismatch", mutate(func(s *State) {
			s.Size = 13
			s.Cells = s.Cells[:13]
		})},
		{"rotation differs", mutate(func(s *State) { s.Colors[0], s.Colors[1] = s.Colors[1], s.Colors[0] })},
		{"no colors", mutate(func(s *State) { s.Colors = nil })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newCross(t)
			before := b.Snapshot()
			assert.ErrorIs(t, b.LoadState(tt.state), ErrInvalidState)
			assert.Equal(t, before, b.Snapshot())
		})
	}
}

func TestReasonHelpers(t *testing.T) {
	b := newCross(t)
	_, err := b.Move(Coord{3, 1}, Coord{3, 2})
	r, ok := AsReason(err)
	require.True(t, ok)
	assert.Equal(t, NotYourTurn, r)
	assert.Equal(t, "not your turn", err.Error())

	_, ok = AsReason(ErrOverlap)
	assert.False(t, ok)
}
