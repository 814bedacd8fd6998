package model

import "errors"

var (
	ErrInvalidLayout = errors.New("invalid layout")
	ErrDeadPlacement = errors.New("piece placed on dead cell")
	ErrOverlap       = errors.New("placements overlap")
	ErrInvalidState  = errors.New("invalid state")
)

// Reason is a move rejection. Rejections are expected outcomes of user input,
// they never change the board.
type Reason uint8

const (
	NoPieceAtSource Reason = iota + 1
	NotYourTurn
	DestinationUnplayable
	DestinationOccupiedByFriendly
	// IllegalMove is only produced by rules that check piece geometry.
	IllegalMove
	GameFinished
)

func (r Reason) Error() string {
	switch r {
	case NoPieceAtSource:
		return "no piece at source"
	case NotYourTurn:
		return "not your turn"
	case DestinationUnplayable:
		return "destination unplayable"
	case DestinationOccupiedByFriendly:
		return "destination occupied by friendly piece"
	case IllegalMove:
		return "illegal move"
	case GameFinished:
		return "game finished"
	default:
		return "unknown rejection"
	}
}

// AsReason extracts the rejection reason from err.
func AsReason(err error) (Reason, bool) {
	var r Reason
	if errors.As(err, &r) {
		return r, true
	}
	return 0, false
}
