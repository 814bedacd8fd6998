package model

type ServerMessage struct {
	Setup      []Setup
	Moves      []MoveEvent
	Rejections []Rejection
	States     []State
	Over       []GameOver
	Hints      []Hint
}

type Setup struct {
	Variant string
	Color   Color
	Players []Color
	State   State
}

type MoveEvent struct {
	From, To Coord
	Color    Color
	Piece    Piece
	Captured *Piece
	Turn     Color
}

type Rejection struct {
	From, To Coord
	Reason   Reason
	Message  string
}

type GameOver struct {
	// Winner is empty for a draw.
	Winner Color
	Reason string
}

// Hint answers a Select with the cells the selected piece may move to.
// To is empty when the piece cannot move or it is not the player's turn.
type Hint struct {
	From Coord
	To   []Coord
}

type ClientMessage struct {
	Move   *MoveRequest
	Select *Coord
}

type MoveRequest struct {
	From, To Coord
}

func NewMoveEvent(r MoveResult, turn Color) MoveEvent {
	return MoveEvent{
		From:     r.From,
		To:       r.To,
		Color:    r.Color,
		Piece:    r.Piece,
		Captured: r.Captured,
		Turn:     turn,
	}
}

func NewRejection(req MoveRequest, err error) Rejection {
	reason, _ := AsReason(err)
	return Rejection{From: req.From, To: req.To, Reason: reason, Message: err.Error()}
}
