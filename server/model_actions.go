package server

import (
	"context"
	"encoding/gob"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/crosschess/model"
)

const pruneInterval = time.Minute

func NewGameServer(cfg Config) *GameServer {
	return &GameServer{
		Config:       cfg,
		GameSessions: make([]*GameSession, 0),
		GameRequests: make(chan GameRequest),
		Upgrader:     &websocket.Upgrader{},
	}
}

func (s *GameServer) HandleHttpCall() http.HandlerFunc {
	timeout := s.Config.timeout()
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("HandleHttpCall - connection received")

		gcas := make(chan GameContextAwaiting, 1)
		select {
		case s.GameRequests <- GameRequest{GameId: r.URL.Query().Get("game"), GameContextAwaiting: gcas}:
		case <-time.After(timeout):
			log.Warn("GameRequests TIMEOUTED")
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}

		var gca GameContextAwaiting
		select {
		case gca = <-gcas:
			if gca.ResponseCode != GAME_READY {
				log.Warnf("HandleHttpCall no game: code %d", gca.ResponseCode)
				w.WriteHeader(gca.ResponseCode.ToHttp())
				return
			}
		case <-time.After(timeout):
			log.Warn("HandleHttpCall GameContextAwaiting TIMEOUTED")
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}

		con, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client
			log.Warnf("HandleHttpCall websocket upgrade err %v", err)
			return
		}
		defer con.Close()

		gameOver := make(chan struct{})
		select {
		case gca.GameSession.PlayerConnectRequests <- PlayerConnectRequest{Con: con, GameOver: gameOver}:
		case <-time.After(timeout):
			log.Warnf("HandleHttpCall game %s not accepting players", gca.GameSession.Id)
			return
		}

		log.Debugf("HandleHttpCall waiting for game %s to finish", gca.GameSession.Id)
		<-gameOver
	}
}

// Loop hands out sessions to connecting players until ctx is done.
func (s *GameServer) Loop(ctx context.Context) {
	log.Info("GameServer.Loop starting")
	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("GameServer.Loop stopped")
			return
		case <-prune.C:
			s.prune()
		case gameReq := <-s.GameRequests:
			gameReq.GameContextAwaiting <- s.findOrCreate(gameReq.GameId)
		}
	}
}

// findOrCreate seats a player in the session named id, or in any open
// session when id is empty, creating one if none is open.
func (s *GameServer) findOrCreate(id string) GameContextAwaiting {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		for _, gs := range s.GameSessions {
			if gs.Id == id && gs.Status().Open() {
				return GameContextAwaiting{ResponseCode: GAME_READY, GameSession: gs}
			}
		}
		return GameContextAwaiting{ResponseCode: GAME_NOT_FOUND}
	}
	for _, gs := range s.GameSessions {
		if gs.Status().Open() {
			return GameContextAwaiting{ResponseCode: GAME_READY, GameSession: gs}
		}
	}
	rules, err := s.Config.NewRules()
	if err != nil {
		log.Errorf("cannot create game: %v", err)
		return GameContextAwaiting{ResponseCode: GAME_INVALIDE}
	}
	gs := NewGameSession(rules)
	gs.AddBots(s.Config.Bots)
	log.WithFields(log.Fields{"game": gs.Id, "variant": rules.Variant(), "bots": s.Config.Bots}).Info("create GameSession")
	go gs.Loop()
	s.GameSessions = append(s.GameSessions, gs)
	return GameContextAwaiting{ResponseCode: GAME_READY, GameSession: gs}
}

func (s *GameServer) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.GameSessions[:0]
	for _, gs := range s.GameSessions {
		if gs.Status().Finished() {
			log.Debugf("pruning game %s", gs.Id)
			continue
		}
		kept = append(kept, gs)
	}
	clear(s.GameSessions[len(kept):])
	s.GameSessions = kept
}

// Summaries lists every known session without its board.
func (s *GameServer) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.GameSessions))
	for _, gs := range s.GameSessions {
		sum := gs.Summary()
		sum.Board = nil
		out = append(out, sum)
	}
	return out
}

func (s *GameServer) Summary(id string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, gs := range s.GameSessions {
		if gs.Id == id {
			return gs.Summary(), true
		}
	}
	return Summary{}, false
}

func NewGameSession(rules Rules) *GameSession {
	gs := &GameSession{
		Id:                    uuid.NewString(),
		Rules:                 rules,
		PlayerSessions:        make([]*PlayerSession, 0),
		Errors:                make(chan model.Color),
		Events:                make(chan PlayerEvent, 16),
		PlayerConnectRequests: make(chan PlayerConnectRequest),
		rand:                  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	gs.publish()
	return gs
}

// AddBots hands the last n seats to the server. Call before Loop starts.
func (gs *GameSession) AddBots(n int) {
	colors := gs.Rules.Colors()
	if n >= len(colors) {
		n = len(colors) - 1
	}
	if n <= 0 {
		return
	}
	gs.bots = append([]model.Color(nil), colors[len(colors)-n:]...)
	gs.publish()
}

func (gs *GameSession) humans() int {
	return len(gs.Rules.Colors()) - len(gs.bots)
}

func (gs *GameSession) isBot(c model.Color) bool {
	for _, b := range gs.bots {
		if b == c {
			return true
		}
	}
	return false
}

func (gs *GameSession) Status() GameSessionState {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.state
}

func (gs *GameSession) Summary() Summary {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.summary
}

func (gs *GameSession) setState(state GameSessionState) {
	gs.mu.Lock()
	gs.state = state
	gs.mu.Unlock()
	gs.publish()
}

// publish refreshes the summary read by HTTP handlers. Called from Loop only.
func (gs *GameSession) publish() {
	players := make([]model.Color, 0, len(gs.PlayerSessions))
	for _, ps := range gs.PlayerSessions {
		players = append(players, ps.Color)
	}
	players = append(players, gs.bots...)
	board := gs.Rules.Snapshot()
	_, winner, _ := gs.Rules.Outcome()

	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.summary = Summary{
		Id:      gs.Id,
		Variant: gs.Rules.Variant(),
		State:   gs.state.Name(),
		Players: players,
		Turn:    gs.Rules.Turn(),
		Winner:  winner,
		Board:   &board,
	}
}

// Loop is the only writer of the session's board.
func (gs *GameSession) Loop() {
	logger := log.WithField("game", gs.Id)
	logger.Info("GameSession.Loop start")
	defer logger.Info("GameSession.Loop end")
	for {
		select {
		case pcr := <-gs.PlayerConnectRequests:
			if !gs.Status().Open() {
				logger.Warn("GameSession full, refusing player")
				close(pcr.GameOver)
				continue
			}
			gs.addPlayer(pcr.Con, pcr.GameOver)
			if len(gs.PlayerSessions) < gs.humans() {
				gs.setState(GS_WAIT)
				continue
			}
			gs.setState(GS_PLAY)
			for _, ps := range gs.PlayerSessions {
				ps.State = PS_PLAY
				ps.MessagesToSend <- ps.MakeGameSetupMessage()
			}
			if gs.playBots() {
				return
			}
		case errPlayer := <-gs.Errors:
			logger.Warnf("player %s failed, killing GS", errPlayer)
			for _, ps := range gs.PlayerSessions {
				if ps.Color == errPlayer {
					ps.State = PS_ERR
				} else {
					ps.State = PS_ERR_SEC
				}
				ps.close()
			}
			gs.setState(GS_ERR)
			return
		case pe := <-gs.Events:
			playerSession := gs.player(pe.Player)
			if pe.Select != nil {
				if playerSession != nil {
					playerSession.send(gs.Hint(pe.Player, *pe.Select))
				}
				continue
			}
			messageToPlayer, messageToOthers := gs.Turn(pe)
			gs.deliver(playerSession, messageToPlayer, messageToOthers)
			if gs.playBots() {
				return
			}
		}
	}
}

func (gs *GameSession) deliver(mover *PlayerSession, messageToPlayer, messageToOthers *model.ServerMessage) {
	if messageToPlayer != nil && mover != nil {
		mover.send(*messageToPlayer)
	}
	if messageToOthers != nil {
		for _, ps := range gs.PlayerSessions {
			if ps != mover {
				ps.send(*messageToOthers)
			}
		}
	}
}

// playBots moves for the bots as long as one of them holds the turn, then
// closes the players of a finished game. It reports whether the game ended.
func (gs *GameSession) playBots() bool {
	for gs.Status() == GS_PLAY && gs.isBot(gs.Rules.Turn()) {
		bot := gs.Rules.Turn()
		move, ok := gs.botMove()
		if !ok {
			log.WithFields(log.Fields{"game": gs.Id, "player": bot}).Warn("bot has no move")
			break
		}
		_, messageToOthers := gs.Turn(PlayerEvent{Player: bot, Move: move})
		if messageToOthers == nil {
			log.WithFields(log.Fields{"game": gs.Id, "player": bot}).Warnf("bot move %s->%s refused", move.From, move.To)
			break
		}
		gs.deliver(nil, nil, messageToOthers)
	}
	if gs.Status() != GS_OVER {
		return false
	}
	for _, ps := range gs.PlayerSessions {
		ps.State = PS_OVER
		ps.close()
	}
	return true
}

// botMove picks a random move among every destination of every piece of
// the player to move.
func (gs *GameSession) botMove() (model.MoveRequest, bool) {
	turn := gs.Rules.Turn()
	state := gs.Rules.Snapshot()
	var moves []model.MoveRequest
	for r, row := range state.Cells {
		for c, cell := range row {
			if p, ok := cell.Occupant(); !ok || p.Owner != turn {
				continue
			}
			from := model.Coord{Row: r, Col: c}
			for _, to := range gs.Rules.Destinations(from) {
				moves = append(moves, model.MoveRequest{From: from, To: to})
			}
		}
	}
	if len(moves) == 0 {
		return model.MoveRequest{}, false
	}
	return moves[gs.rand.Intn(len(moves))], true
}

// Hint lists where the piece on from may go. Only the player to move gets
// destinations.
func (gs *GameSession) Hint(player model.Color, from model.Coord) model.ServerMessage {
	hint := model.Hint{From: from}
	if gs.Status() == GS_PLAY && player == gs.Rules.Turn() {
		hint.To = gs.Rules.Destinations(from)
	}
	return model.ServerMessage{Hints: []model.Hint{hint}}
}

func (gs *GameSession) player(c model.Color) *PlayerSession {
	for _, ps := range gs.PlayerSessions {
		if ps.Color == c {
			return ps
		}
	}
	return nil
}

// Turn resolves one move request. Rejections go back to the mover only.
func (gs *GameSession) Turn(pe PlayerEvent) (
	messageToPlayer *model.ServerMessage,
	messageToOthers *model.ServerMessage) {
	reject := func(err error) (*model.ServerMessage, *model.ServerMessage) {
		log.WithFields(log.Fields{"game": gs.Id, "player": pe.Player}).Debugf("move %s->%s rejected: %v", pe.Move.From, pe.Move.To, err)
		return &model.ServerMessage{Rejections: []model.Rejection{model.NewRejection(pe.Move, err)}}, nil
	}
	switch gs.Status() {
	case GS_PLAY:
	case GS_OVER:
		return reject(model.GameFinished)
	default:
		return reject(model.NotYourTurn)
	}
	if pe.Player != gs.Rules.Turn() {
		return reject(model.NotYourTurn)
	}
	res, err := gs.Rules.Move(pe.Move.From, pe.Move.To)
	if err != nil {
		return reject(err)
	}

	snapshot := gs.Rules.Snapshot()
	message := &model.ServerMessage{
		Moves:  []model.MoveEvent{model.NewMoveEvent(res, gs.Rules.Turn())},
		States: []model.State{snapshot},
	}
	if over, winner, reason := gs.Rules.Outcome(); over {
		log.WithFields(log.Fields{"game": gs.Id, "winner": winner}).Infof("game over: %s", reason)
		message.Over = []model.GameOver{{Winner: winner, Reason: reason}}
		gs.setState(GS_OVER)
	} else {
		gs.publish()
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("game %s after %s %s->%s\n%s", gs.Id, res.Color, res.From, res.To, snapshot.Diagram())
	}
	return message, message
}

func (gs *GameSession) addPlayer(
	conn *websocket.Conn,
	gameOver chan struct{},
) {
	color := gs.Rules.Colors()[len(gs.PlayerSessions)]
	log.WithFields(log.Fields{"game": gs.Id, "color": color}).Info("GameSession.addPlayer")
	ps := &PlayerSession{
		State:          PS_NEW,
		Color:          color,
		GameSession:    gs,
		Conn:           conn,
		GameOver:       gameOver,
		MessagesToSend: make(chan model.ServerMessage, 10),
		closing:        make(chan struct{}),
	}
	conn.SetPingHandler(
		func(message string) error {
			err := conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(time.Second))
			ps.DebugLastPing = time.Now()
			ps.DebugPings++
			if err == websocket.ErrCloseSent {
				return nil
			} else if e, ok := err.(net.Error); ok && e.Timeout() {
				return nil
			}
			return err
		})
	// start processing input from the player
	go ps.LoopChannelRead()
	// start sending from server
	go ps.LoopChannelWrite()
	gs.PlayerSessions = append(gs.PlayerSessions, ps)
	gs.publish()
}

// send queues a message without ever blocking the session loop.
func (ps *PlayerSession) send(m model.ServerMessage) {
	select {
	case ps.MessagesToSend <- m:
	default:
		log.Warnf("player %s outbox full, dropping message", ps.Color)
	}
}

// close makes the writer flush queued messages and hang up.
func (ps *PlayerSession) close() {
	ps.closeOnce.Do(func() { close(ps.closing) })
}

func (ps *PlayerSession) hangUp() {
	ps.hangOnce.Do(func() {
		ps.Conn.Close()
		close(ps.GameOver)
	})
}

func (ps *PlayerSession) fail() {
	select {
	case ps.GameSession.Errors <- ps.Color:
	case <-ps.closing:
	}
}

func (ps *PlayerSession) LoopChannelRead() {
	logger := log.WithFields(log.Fields{"game": ps.GameSession.Id, "player": ps.Color})
	logger.Debug("LoopChannelRead STARTED")
	defer logger.Debug("LoopChannelRead ENDED")
	for {
		_, r, err := ps.Conn.NextReader()
		if err != nil {
			select {
			case <-ps.closing:
				logger.Debug("LoopChannelRead closed by session")
			default:
				logger.Infof("LoopChannelRead err reading message from Conn %v", err)
				ps.fail()
			}
			return
		}
		cm := &model.ClientMessage{}
		if err := gob.NewDecoder(r).Decode(cm); err != nil {
			logger.Warnf("cant decode: %v", err)
			ps.fail()
			return
		}
		ps.DebugLastMessage = time.Now()
		ps.DebugInMessages++
		pe := PlayerEvent{Player: ps.Color, Select: cm.Select}
		switch {
		case cm.Move != nil:
			pe.Move = *cm.Move
			pe.Select = nil
		case cm.Select == nil:
			continue
		}

		select {
		case ps.GameSession.Events <- pe:
		case <-ps.closing:
			return
		default:
			logger.Warn("Dropping move read from socket, GameSession.Events FULL")
		}
	}
}

func (ps *PlayerSession) MakeGameSetupMessage() model.ServerMessage {
	return model.ServerMessage{
		Setup: []model.Setup{{
			Variant: ps.GameSession.Rules.Variant(),
			Color:   ps.Color,
			Players: ps.GameSession.Rules.Colors(),
			State:   ps.GameSession.Rules.Snapshot(),
		}},
	}
}

// LoopChannelWrite is the only writer of the connection.
func (ps *PlayerSession) LoopChannelWrite() {
	logger := log.WithFields(log.Fields{"game": ps.GameSession.Id, "player": ps.Color})
	logger.Debug("LoopChannelWrite STARTED")
	defer logger.Debug("LoopChannelWrite ENDED")
	defer ps.hangUp()
	for {
		select {
		case mes := <-ps.MessagesToSend:
			if err := ps.write(mes); err != nil {
				logger.Warnf("LoopChannelWrite cant write %v", err)
				ps.fail()
				return
			}
		case <-ps.closing:
			for {
				select {
				case mes := <-ps.MessagesToSend:
					if err := ps.write(mes); err != nil {
						return
					}
				default:
					_ = ps.Conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(time.Second))
					return
				}
			}
		}
	}
}

func (ps *PlayerSession) write(mes model.ServerMessage) error {
	w, err := ps.Conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(mes); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	ps.DebugOutMessages++
	return nil
}
