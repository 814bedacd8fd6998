package server

import (
	"fmt"

	chess "github.com/corentings/chess/v2"
	"github.com/zucenko/crosschess/model"
)

const (
	VariantCross   = "cross"
	VariantClassic = "classic"
)

// Rules resolves moves for one variant. Calls are serialized by the session.
type Rules interface {
	Variant() string
	Colors() []model.Color
	Turn() model.Color
	Move(from, to model.Coord) (model.MoveResult, error)
	// Destinations lists the cells Move accepts from `from` for the player to move.
	Destinations(from model.Coord) []model.Coord
	Snapshot() model.State
	// Outcome reports a finished game; winner is empty for a draw.
	Outcome() (over bool, winner model.Color, reason string)
}

// crossRules plays on the four player board. The board never ends a game
// itself, capturing a king does.
type crossRules struct {
	board  *model.Board
	over   bool
	winner model.Color
	reason string
}

func newCrossRules(board *model.Board) *crossRules {
	return &crossRules{board: board}
}

func (r *crossRules) Variant() string { return VariantCross }

func (r *crossRules) Colors() []model.Color { return r.board.Colors() }

func (r *crossRules) Turn() model.Color { return r.board.CurrentTurn() }

func (r *crossRules) Snapshot() model.State { return r.board.Snapshot() }

func (r *crossRules) Move(from, to model.Coord) (model.MoveResult, error) {
	if r.over {
		return model.MoveResult{}, model.GameFinished
	}
	res, err := r.board.Move(from, to)
	if err != nil {
		return res, err
	}
	if res.Captured != nil && res.Captured.Kind == model.King {
		r.over = true
		r.winner = res.Color
		r.reason = fmt.Sprintf("%s king captured", res.Captured.Owner)
	}
	return res, nil
}

func (r *crossRules) Destinations(from model.Coord) []model.Coord {
	if r.over {
		return nil
	}
	return r.board.Destinations(from)
}

func (r *crossRules) Outcome() (bool, model.Color, string) {
	return r.over, r.winner, r.reason
}

// classicRules delegates the two player game to the chess library.
// Row 0 is rank 8, column 0 is file a.
type classicRules struct {
	game *chess.Game
}

var classicColors = []model.Color{model.White, model.Black}

var classicKinds = map[chess.PieceType]model.Kind{
	chess.Pawn:   model.Pawn,
	chess.Rook:   model.Rook,
	chess.Knight: model.Knight,
	chess.Bishop: model.Bishop,
	chess.Queen:  model.Queen,
	chess.King:   model.King,
}

func newClassicRules(fen string) (*classicRules, error) {
	if fen == "" {
		return &classicRules{game: chess.NewGame()}, nil
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("fen %q: %w", fen, err)
	}
	return &classicRules{game: chess.NewGame(opt)}, nil
}

func classicSquare(c model.Coord) (chess.Square, bool) {
	if c.Row < 0 || c.Col < 0 || c.Row > 7 || c.Col > 7 {
		return chess.NoSquare, false
	}
	return chess.NewSquare(chess.File(c.Col), chess.Rank(7-c.Row)), true
}

func classicCoord(sq chess.Square) model.Coord {
	return model.Coord{Row: 7 - int(sq.Rank()), Col: int(sq.File())}
}

func classicColor(c chess.Color) model.Color {
	if c == chess.White {
		return model.White
	}
	return model.Black
}

func classicPiece(p chess.Piece) model.Piece {
	return model.Piece{Kind: classicKinds[p.Type()], Owner: classicColor(p.Color())}
}

func (r *classicRules) Variant() string { return VariantClassic }

func (r *classicRules) Colors() []model.Color {
	return append([]model.Color(nil), classicColors...)
}

func (r *classicRules) Turn() model.Color {
	return classicColor(r.game.Position().Turn())
}

func (r *classicRules) Move(from, to model.Coord) (model.MoveResult, error) {
	if over, _, _ := r.Outcome(); over {
		return model.MoveResult{}, model.GameFinished
	}
	pos := r.game.Position()
	board := pos.Board()

	s1, ok := classicSquare(from)
	if !ok {
		return model.MoveResult{}, model.NoPieceAtSource
	}
	piece := board.Piece(s1)
	if piece == chess.NoPiece {
		return model.MoveResult{}, model.NoPieceAtSource
	}
	if classicColor(piece.Color()) != r.Turn() {
		return model.MoveResult{}, model.NotYourTurn
	}
	s2, ok := classicSquare(to)
	if !ok {
		return model.MoveResult{}, model.DestinationUnplayable
	}
	target := board.Piece(s2)
	if target != chess.NoPiece && target.Color() == piece.Color() {
		return model.MoveResult{}, model.DestinationOccupiedByFriendly
	}

	var move *chess.Move
	for _, m := range r.game.ValidMoves() {
		if m.S1() != s1 || m.S2() != s2 {
			continue
		}
		// promotion defaults to a queen
		if m.Promo() == chess.NoPieceType || m.Promo() == chess.Queen {
			mv := m
			move = &mv
			break
		}
	}
	if move == nil {
		return model.MoveResult{}, model.IllegalMove
	}

	san := chess.AlgebraicNotation{}.Encode(pos, move)
	if err := r.game.PushMove(san, nil); err != nil {
		return model.MoveResult{}, fmt.Errorf("push %s: %w", san, err)
	}

	moved := classicPiece(piece)
	moved.Moved = true
	if move.Promo() != chess.NoPieceType {
		moved.Kind = classicKinds[move.Promo()]
	}
	res := model.MoveResult{From: from, To: to, Color: moved.Owner, Piece: moved}
	switch {
	case target != chess.NoPiece:
		captured := classicPiece(target)
		res.Captured = &captured
	case move.HasTag(chess.EnPassant):
		captured := model.Piece{Kind: model.Pawn, Owner: r.Turn()}
		res.Captured = &captured
	}
	return res, nil
}

func (r *classicRules) Destinations(from model.Coord) []model.Coord {
	s1, ok := classicSquare(from)
	if !ok {
		return nil
	}
	var out []model.Coord
	for _, m := range r.game.ValidMoves() {
		if m.S1() != s1 {
			continue
		}
		// one entry per square, promotions collapse to the queen
		if m.Promo() != chess.NoPieceType && m.Promo() != chess.Queen {
			continue
		}
		out = append(out, classicCoord(m.S2()))
	}
	return out
}

func (r *classicRules) Snapshot() model.State {
	cells := make([][]model.Cell, 8)
	for i := range cells {
		cells[i] = make([]model.Cell, 8)
	}
	for sq, p := range r.game.Position().Board().SquareMap() {
		c := classicCoord(sq)
		cells[c.Row][c.Col] = model.OccupiedCell(classicPiece(p))
	}
	turn := 0
	if r.Turn() == model.Black {
		turn = 1
	}
	return model.State{Size: 8, Colors: r.Colors(), Turn: turn, Cells: cells}
}

func (r *classicRules) Outcome() (bool, model.Color, string) {
	reason := fmt.Sprint(r.game.Method())
	switch r.game.Outcome() {
	case chess.WhiteWon:
		return true, model.White, reason
	case chess.BlackWon:
		return true, model.Black, reason
	case chess.Draw:
		return true, "", reason
	default:
		return false, "", ""
	}
}
