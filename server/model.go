package server

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zucenko/crosschess/model"
)

type GameServer struct {
	Config       Config
	GameRequests chan GameRequest
	Upgrader     *websocket.Upgrader

	mu           sync.RWMutex
	GameSessions []*GameSession
}

type GameSessionState int

const (
	GS_NEW GameSessionState = iota
	GS_WAIT
	GS_PLAY
	GS_ERR
	GS_OVER
)

// GameSession owns one board. Only Loop touches Rules and PlayerSessions.
type GameSession struct {
	Id                    string
	Rules                 Rules
	PlayerSessions        []*PlayerSession
	Errors                chan model.Color
	Events                chan PlayerEvent
	PlayerConnectRequests chan PlayerConnectRequest

	// bots hold the last seats of the rotation and never connect.
	bots []model.Color
	rand *rand.Rand

	mu      sync.RWMutex
	state   GameSessionState
	summary Summary
}

type PlayerSessionState int

const (
	PS_NEW PlayerSessionState = iota + 1
	PS_PLAY
	PS_OVER
	PS_ERR
	PS_ERR_SEC
)

type PlayerSession struct {
	State       PlayerSessionState
	Color       model.Color
	GameSession *GameSession
	Conn        *websocket.Conn
	GameOver    chan struct{}

	MessagesToSend chan model.ServerMessage

	closing   chan struct{}
	closeOnce sync.Once
	hangOnce  sync.Once

	DebugInMessages  int
	DebugOutMessages int
	DebugLastMessage time.Time
	DebugLastPing    time.Time
	DebugPings       int
}

// Summary is the JSON view of a session served over HTTP.
type Summary struct {
	Id      string        `json:"id"`
	Variant string        `json:"variant"`
	State   string        `json:"state"`
	Players []model.Color `json:"players"`
	Turn    model.Color   `json:"turn"`
	Winner  model.Color   `json:"winner,omitempty"`
	Board   *model.State  `json:"board,omitempty"`
}
