package server

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/zucenko/crosschess/model"
)

const HTTP_SUCCESS = 200
const HTTP_BAD_REQUEST = 400
const HTTP_NOT_FOUND = 404
const HTTP_TIMEOUT = 408
const HTTP_SERVER_ERR = 503

type ResponseCode int

const (
	GAME_READY ResponseCode = iota
	GAME_NOT_FOUND
	GAME_INVALIDE
)

func (h ResponseCode) ToHttp() int {
	switch h {
	case GAME_READY:
		return HTTP_SUCCESS
	case GAME_NOT_FOUND:
		return HTTP_NOT_FOUND
	case GAME_INVALIDE:
		return HTTP_BAD_REQUEST
	default:
		return HTTP_SERVER_ERR
	}
}

func (gss GameSessionState) Name() string {
	switch gss {
	case GS_NEW:
		return "GS_NEW"
	case GS_WAIT:
		return "GS_WAIT"
	case GS_PLAY:
		return "GS_PLAY"
	case GS_ERR:
		return "GS_ERR"
	case GS_OVER:
		return "GS_OVER"
	default:
		return fmt.Sprintf("n/a:%d", gss)
	}
}

// Open sessions still seat players.
func (gss GameSessionState) Open() bool {
	return gss == GS_NEW || gss == GS_WAIT
}

func (gss GameSessionState) Finished() bool {
	return gss == GS_ERR || gss == GS_OVER
}

func (ps PlayerSessionState) Name() string {
	switch ps {
	case PS_NEW:
		return "NEW"
	case PS_PLAY:
		return "PLAY"
	case PS_OVER:
		return "OVER"
	case PS_ERR:
		return "ERR"
	case PS_ERR_SEC:
		return "ERR_SEC"
	default:
		return "N/A"
	}
}

type GameContextAwaiting struct {
	ResponseCode ResponseCode
	GameSession  *GameSession
}

type GameRequest struct {
	// GameId picks an open session to join, empty joins any.
	GameId              string
	GameContextAwaiting chan GameContextAwaiting
}

type PlayerConnectRequest struct {
	Con      *websocket.Conn
	GameOver chan struct{}
}

// PlayerEvent carries a move, or a hint request when Select is set.
type PlayerEvent struct {
	Player model.Color
	Move   model.MoveRequest
	Select *model.Coord
}
