package main

import (
	"context"
	"errors"
	"sync"
	"time"
)

type inboundMessage struct {
	client *client
	msg    ClientMessage
}

// session is the actor owning one room. A single run() goroutine
// consumes every event - connects, client messages, alarms - so state
// mutations within a room are totally ordered and no two transitions
// can race. The authoritative GameState lives in the store, loaded at
// the start of each event and persisted before anything is broadcast,
// so no client can observe a broadcast implying state that is not yet
// durable.
type session struct {
	id    string
	cfg   *Config
	store GameStore
	mgr   *roomManager

	clients map[*client]bool

	register chan *client
	unreg    chan *client
	inbound  chan inboundMessage
	alarms   chan alarmEvent
	done     chan struct{}

	clock *alarmClock
}

func newSession(cfg *Config, store GameStore, mgr *roomManager, roomID string) *session {
	s := &session{
		id:       roomID,
		cfg:      cfg,
		store:    store,
		mgr:      mgr,
		clients:  make(map[*client]bool),
		register: make(chan *client),
		unreg:    make(chan *client),
		inbound:  make(chan inboundMessage),
		alarms:   make(chan alarmEvent, 4),
		done:     make(chan struct{}),
	}

	s.clock = newAlarmClock(func(ev alarmEvent) {
		select {
		case s.alarms <- ev:
		case <-s.done:
		}
	})

	return s
}

func (s *session) run() {
	for {
		select {
		case c := <-s.register:
			s.handleRegister(c)
		case c := <-s.unreg:
			s.handleUnregister(c)
		case in := <-s.inbound:
			s.handleMessage(in.client, in.msg)
		case ev := <-s.alarms:
			if s.handleAlarm(ev) {
				return
			}
		case <-s.done:
			return
		}
	}
}

// loadState fetches the room's current state, resolving a vanished room
// to a fatal error on the offending connection.
func (s *session) loadState(c *client) *GameState {
	st, err := s.store.Load(context.Background(), s.id)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			s.deliver(c, wireError(codeGameNotFound))
		} else {
			logf(s.cfg, "STORE: load %s failed: %v", s.id, err)
			s.deliver(c, wireError(codeGameNotFound, "The game state is unavailable."))
		}
		s.drop(c)
		return nil
	}
	return st
}

func (s *session) persist(st *GameState) bool {
	if err := s.store.Save(context.Background(), st); err != nil {
		logf(s.cfg, "STORE: save %s failed: %v", s.id, err)
		return false
	}
	return true
}

func (s *session) handleRegister(c *client) {
	s.clients[c] = true
	s.clock.cancelCleanup()

	st, err := s.store.Load(context.Background(), s.id)
	if err != nil {
		s.deliver(c, wireError(codeGameNotFound))
		s.drop(c)
		return
	}

	// A room resuming from suspension (or one whose phase deadline was
	// displaced by a cleanup deadline) re-arms from persisted state.
	if !s.clock.armed() {
		s.rearmForPhase(st)
	}

	// The host proved the room secret before the upgrade; greet it
	// immediately. Players stay silent until their connect message.
	if c.role == roleHost {
		s.deliver(c, newConnected(roleHost, "", ""))
		s.deliver(c, snapshotMessage(st, "", s.cfg.getReadyTime, s.cfg.questionTime))
	}
}

func (s *session) handleUnregister(c *client) {
	s.drop(c)
}

func (s *session) handleMessage(c *client, msg ClientMessage) {
	if _, ok := s.clients[c]; !ok {
		return
	}

	if !c.authenticated && msg.Type != "connect" {
		s.deliver(c, wireError(codeNotConnected))
		return
	}

	switch msg.Type {
	case "connect":
		s.handleConnect(c, msg)
	case "join":
		s.handleJoin(c, msg.Nickname)
	case "startGame":
		s.handleStart(c)
	case "submitAnswer":
		s.handleAnswer(c, msg.AnswerIndex)
	case "nextState":
		s.handleNext(c)
	case "sendEmoji":
		s.handleEmoji(c, msg.Emoji)
	default:
		s.deliver(c, wireError(codeInvalidMessage))
	}
}

// handleConnect authenticates a player connection, rebinding it to an
// existing player when valid reconnection credentials are presented. A
// token mismatch is connection-fatal.
func (s *session) handleConnect(c *client, msg ClientMessage) {
	// The role was fixed at upgrade time; a connect claiming a
	// different one is malformed.
	if msg.Role != "" && msg.Role != c.role {
		s.deliver(c, wireError(codeInvalidMessage, "Role does not match this connection."))
		return
	}

	st := s.loadState(c)
	if st == nil {
		return
	}

	if c.role == roleHost {
		s.deliver(c, newConnected(roleHost, "", ""))
		s.deliver(c, snapshotMessage(st, "", s.cfg.getReadyTime, s.cfg.questionTime))
		return
	}

	if msg.PlayerID != "" {
		player := st.findPlayer(msg.PlayerID)
		if player == nil || player.Token != msg.PlayerToken {
			s.deliver(c, wireError(codeInvalidSession))
			s.drop(c)
			return
		}

		c.playerID = player.ID
		c.authenticated = true
		s.deliver(c, newConnected(rolePlayer, player.ID, player.Token))
		s.deliver(c, snapshotMessage(st, player.ID, s.cfg.getReadyTime, s.cfg.questionTime))
		logf(s.cfg, "GAMES: Player %q reconnected to %s", player.Name, s.id)
		return
	}

	// A fresh player: authenticated, but not part of the game until it
	// joins with a nickname.
	c.authenticated = true
	s.deliver(c, newConnected(rolePlayer, "", ""))
	s.deliver(c, snapshotMessage(st, "", s.cfg.getReadyTime, s.cfg.questionTime))
}

func (s *session) handleJoin(c *client, nickname string) {
	if c.role != rolePlayer {
		s.deliver(c, wireError(codeInvalidMessage, "The host cannot join as a player."))
		return
	}
	if c.joined() {
		s.deliver(c, wireError(codeInvalidMessage, "You have already joined this game."))
		return
	}

	st := s.loadState(c)
	if st == nil {
		return
	}

	if st.Phase != PhaseLobby {
		s.deliver(c, wireError(codeGameAlreadyStarted))
		return
	}
	if !validNickname(nickname) {
		s.deliver(c, wireError(codeInvalidNickname))
		return
	}
	if st.nameTaken(nickname) {
		s.deliver(c, wireError(codeNicknameTaken))
		return
	}
	if len(st.Players) >= s.cfg.maxPlayers {
		s.deliver(c, wireError(codeGameFull))
		return
	}

	player := Player{
		ID:    newPlayerID(),
		Name:  nickname,
		Token: newPlayerToken(),
	}
	st.Players = append(st.Players, player)

	if !s.persist(st) {
		return
	}

	c.playerID = player.ID
	s.deliver(c, newConnected(rolePlayer, player.ID, player.Token))
	s.broadcast(newLobbyUpdate(st))
	logf(s.cfg, "GAMES: Player %q joined %s (%d total)", player.Name, s.id, len(st.Players))
}

func (s *session) handleStart(c *client) {
	if c.role != roleHost {
		s.deliver(c, wireError(codeOnlyHostStart))
		return
	}

	st := s.loadState(c)
	if st == nil {
		return
	}

	if st.Phase != PhaseLobby {
		s.deliver(c, wireError(codeGameNotInLobby))
		return
	}

	enterGetReady(st, time.Now())
	if !s.persist(st) {
		return
	}

	s.broadcast(newGetReady(st, s.cfg.getReadyTime))
	s.clock.arm(s.cfg.getReadyTime, alarmPhase)
	logf(s.cfg, "GAMES: Game %s started with %d players", s.id, len(st.Players))
}

func (s *session) handleAnswer(c *client, answerIndex *int) {
	if c.role != rolePlayer {
		s.deliver(c, wireError(codeOnlyPlayersAnswer))
		return
	}
	if !c.joined() {
		s.deliver(c, wireError(codeNotJoined))
		return
	}

	st := s.loadState(c)
	if st == nil {
		return
	}

	if st.Phase != PhaseQuestion {
		s.deliver(c, wireError(codeNotInQuestionPhase))
		return
	}
	if answerIndex == nil || *answerIndex < 0 || *answerIndex >= len(st.currentQuestion().Options) {
		s.deliver(c, wireError(codeInvalidAnswer))
		return
	}

	player := st.findPlayer(c.playerID)
	if player == nil {
		s.deliver(c, wireError(codeNotJoined))
		return
	}

	if player.Answered || st.hasAnswered(player.ID) {
		s.deliver(c, wireError(codeAlreadyAnswered))
		return
	}

	now := time.Now()
	elapsed := now.UnixMilli() - st.QuestionStartTime
	if elapsed > s.cfg.questionTime.Milliseconds() {
		s.deliver(c, wireError(codeTimeExpired))
		return
	}

	st.Answers = append(st.Answers, Answer{
		PlayerID:    player.ID,
		AnswerIndex: *answerIndex,
		Time:        elapsed,
	})
	player.Answered = true

	if !s.persist(st) {
		return
	}

	s.toPlayer(player.ID, newAnswerReceived(*answerIndex))
	s.toHost(newPlayerAnswered(st, player.ID))

	// Everybody answered: reveal early, after a short beat, but never
	// later than the question would have ended anyway.
	if len(st.Answers) == len(st.Players) {
		delay := min(s.cfg.answeredDelay, questionTimeLeft(st, s.cfg.questionTime, now))
		s.clock.arm(delay, alarmPhase)
	}
}

// handleNext processes the host's manual advance. Phases outside the
// advance-allowed set ignore it silently rather than erroring.
func (s *session) handleNext(c *client) {
	if c.role != roleHost {
		s.deliver(c, wireError(codeOnlyHostAdvance))
		return
	}

	st := s.loadState(c)
	if st == nil {
		return
	}

	if !advanceAllowed(st.Phase) {
		return
	}

	switch st.Phase {
	case PhaseQuestion:
		s.finishQuestion(st)
	case PhaseReveal:
		advanceFromReveal(st, time.Now())
		if !s.persist(st) {
			return
		}
		if st.Phase == PhaseEndIntro {
			s.broadcast(newGameEnd(st, false))
			s.clock.arm(s.cfg.endIntroTime, alarmPhase)
		} else {
			s.broadcast(newLeaderboard(st))
		}
	case PhaseLeaderboard:
		advanceFromLeaderboard(st, time.Now())
		if !s.persist(st) {
			return
		}
		switch st.Phase {
		case PhaseEndIntro:
			s.broadcast(newGameEnd(st, false))
			s.clock.arm(s.cfg.endIntroTime, alarmPhase)
		case PhaseQuestionModifier:
			s.broadcast(newQuestionModifier(st))
			s.clock.arm(s.cfg.modifierTime, alarmPhase)
		default:
			s.broadcast(newQuestionStart(st, s.cfg.questionTime))
			s.clock.arm(s.cfg.questionTime, alarmPhase)
		}
	}
}

func (s *session) handleEmoji(c *client, emoji string) {
	if c.role != rolePlayer {
		s.deliver(c, wireError(codeOnlyPlayersEmoji))
		return
	}
	if !c.joined() {
		s.deliver(c, wireError(codeNotJoined))
		return
	}
	if emoji == "" || len(emoji) > 32 {
		s.deliver(c, wireError(codeInvalidMessage))
		return
	}

	st := s.loadState(c)
	if st == nil {
		return
	}

	if !emojiAllowed(st.Phase) {
		s.deliver(c, wireError(codeEmojiNotAllowed))
		return
	}

	s.toHost(newEmojiReceived(emoji, c.playerID))
}

// handleAlarm processes a fired deadline. Returns true when the room
// was cleaned up and the actor should exit.
func (s *session) handleAlarm(ev alarmEvent) bool {
	// A replaced alarm that fired anyway carries a stale generation.
	if ev.gen != s.clock.current() {
		return false
	}

	if ev.kind == alarmCleanup {
		if len(s.clients) > 0 {
			return false
		}
		return s.cleanup()
	}

	st, err := s.store.Load(context.Background(), s.id)
	if err != nil {
		logf(s.cfg, "STORE: load %s on alarm failed: %v", s.id, err)
		return false
	}

	// The deadline may have been armed for a phase the host already
	// moved past; such a firing is a no-op.
	if !timerAdvances(st.Phase) {
		return false
	}

	switch st.Phase {
	case PhaseGetReady:
		s.openQuestion(st)
	case PhaseQuestionModifier:
		enterQuestion(st, time.Now())
		if !s.persist(st) {
			return false
		}
		s.broadcast(newQuestionStart(st, s.cfg.questionTime))
		s.clock.arm(s.cfg.questionTime, alarmPhase)
	case PhaseQuestion:
		s.finishQuestion(st)
	case PhaseEndIntro:
		enterEndRevealed(st, time.Now())
		if !s.persist(st) {
			return false
		}
		s.broadcast(newGameEnd(st, true))
		logf(s.cfg, "GAMES: Game %s finished", s.id)
	}

	return false
}

// openQuestion moves into the current question's modifier screen or the
// question itself, broadcasting and arming accordingly.
func (s *session) openQuestion(st *GameState) {
	if enterModifierOrQuestion(st, time.Now()) {
		if !s.persist(st) {
			return
		}
		s.broadcast(newQuestionModifier(st))
		s.clock.arm(s.cfg.modifierTime, alarmPhase)
		return
	}

	if !s.persist(st) {
		return
	}
	s.broadcast(newQuestionStart(st, s.cfg.questionTime))
	s.clock.arm(s.cfg.questionTime, alarmPhase)
}

// finishQuestion scores the received answers and reveals the result,
// with role-specific payloads.
func (s *session) finishQuestion(st *GameState) {
	enterReveal(st, s.cfg.questionTime, time.Now())
	if !s.persist(st) {
		return
	}

	for c := range s.clients {
		if c.joined() {
			s.deliver(c, newReveal(st, c.playerID))
		} else {
			s.deliver(c, newReveal(st, ""))
		}
	}
}

// rearmForPhase restores the deadline a suspended room would have had
// pending: the remainder of the phase's window, computed from persisted
// state. A remainder of zero still arms a minimal deadline so the phase
// advances through the normal alarm path.
func (s *session) rearmForPhase(st *GameState) {
	var total time.Duration

	switch st.Phase {
	case PhaseGetReady:
		total = s.cfg.getReadyTime
	case PhaseQuestionModifier:
		total = s.cfg.modifierTime
	case PhaseQuestion:
		total = s.cfg.questionTime
	case PhaseEndIntro:
		total = s.cfg.endIntroTime
	case PhaseLobby, PhaseReveal, PhaseLeaderboard, PhaseEndRevealed:
		// Host-driven or terminal; nothing pending.
		return
	}

	left := phaseTimeLeft(st, total, time.Now())
	if left <= 0 {
		left = time.Millisecond
	}
	s.clock.arm(left, alarmPhase)
}

// cleanup deletes the room once its cleanup deadline passes with no
// connections left.
func (s *session) cleanup() bool {
	if err := s.store.Delete(context.Background(), s.id); err != nil {
		logf(s.cfg, "STORE: delete %s failed: %v", s.id, err)
	}

	s.clock.stop()
	if s.mgr != nil {
		s.mgr.remove(s.id)
	}
	close(s.done)
	logf(s.cfg, "GAMES: Reaped idle game %s", s.id)
	return true
}

// roomManager holds the set of live room actors keyed by room ID, so
// each room is its own isolated session. Actors spawn lazily on first
// connection and remove themselves when their cleanup deadline fires.
type roomManager struct {
	mu    sync.Mutex
	rooms map[string]*session

	cfg   *Config
	store GameStore
}

func newRoomManager(cfg *Config, store GameStore) *roomManager {
	return &roomManager{
		rooms: make(map[string]*session),
		cfg:   cfg,
		store: store,
	}
}

func (m *roomManager) session(roomID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.rooms[roomID]; ok {
		return s
	}

	s := newSession(m.cfg, m.store, m, roomID)
	m.rooms[roomID] = s
	go s.run()
	return s
}

func (m *roomManager) remove(roomID string) {
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
}
