package main

import "time"

// Messages sent to clients. Builders are pure functions of a state
// snapshot (plus the recipient, where host and player payloads differ),
// so they can be unit tested without any transport.

type ConnectedMessage struct {
	Type        string `json:"type"` // "connected"
	Role        string `json:"role"`
	PlayerID    string `json:"playerId,omitempty"`
	PlayerToken string `json:"playerToken,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LobbyPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LobbyUpdateMessage struct {
	Type    string        `json:"type"` // "lobbyUpdate"
	Players []LobbyPlayer `json:"players"`
	PIN     string        `json:"pin"`
	GameID  string        `json:"gameId"`
}

type GetReadyMessage struct {
	Type           string `json:"type"` // "getReady"
	CountdownMs    int64  `json:"countdownMs"`
	TotalQuestions int    `json:"totalQuestions"`
}

type QuestionModifierMessage struct {
	Type           string   `json:"type"` // "questionModifier"
	Modifiers      []string `json:"modifiers"`
	QuestionIndex  int      `json:"questionIndex"`
	TotalQuestions int      `json:"totalQuestions"`
}

type QuestionStartMessage struct {
	Type            string   `json:"type"` // "questionStart"
	QuestionIndex   int      `json:"questionIndex"`
	TotalQuestions  int      `json:"totalQuestions"`
	QuestionText    string   `json:"questionText"`
	Options         []string `json:"options"`
	StartTime       int64    `json:"startTime"`
	TimeLimitMs     int64    `json:"timeLimitMs"`
	IsDoublePoints  bool     `json:"isDoublePoints,omitempty"`
	BackgroundImage string   `json:"backgroundImage,omitempty"`
}

type AnswerReceivedMessage struct {
	Type        string `json:"type"` // "answerReceived"
	AnswerIndex int    `json:"answerIndex"`
}

// PlayerAnsweredMessage is sent to the host only.
type PlayerAnsweredMessage struct {
	Type          string `json:"type"` // "playerAnswered"
	PlayerID      string `json:"playerId"`
	AnsweredCount int    `json:"answeredCount"`
	TotalPlayers  int    `json:"totalPlayers"`
}

type PlayerResult struct {
	IsCorrect   bool `json:"isCorrect"`
	Score       int  `json:"score"`
	AnswerIndex int  `json:"answerIndex"`
}

// RevealMessage carries aggregate counts for everyone; the recipient's
// own result is attached only to that player's copy.
type RevealMessage struct {
	Type               string        `json:"type"` // "reveal"
	CorrectAnswerIndex int           `json:"correctAnswerIndex"`
	AnswerCounts       []int         `json:"answerCounts"`
	QuestionText       string        `json:"questionText"`
	Options            []string      `json:"options"`
	PlayerResult       *PlayerResult `json:"playerResult,omitempty"`
}

type LeaderboardMessage struct {
	Type           string             `json:"type"` // "leaderboard"
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	IsLastQuestion bool               `json:"isLastQuestion"`
}

type GameEndMessage struct {
	Type             string             `json:"type"` // "gameEnd"
	Revealed         bool               `json:"revealed"`
	FinalLeaderboard []LeaderboardEntry `json:"finalLeaderboard,omitempty"`
}

// EmojiReceivedMessage is sent to the host only.
type EmojiReceivedMessage struct {
	Type     string `json:"type"` // "emojiReceived"
	Emoji    string `json:"emoji"`
	PlayerID string `json:"playerId"`
}

func newConnected(role, playerID, playerToken string) ConnectedMessage {
	return ConnectedMessage{
		Type:        "connected",
		Role:        role,
		PlayerID:    playerID,
		PlayerToken: playerToken,
	}
}

func newLobbyUpdate(st *GameState) LobbyUpdateMessage {
	players := make([]LobbyPlayer, 0, len(st.Players))
	for _, p := range st.Players {
		players = append(players, LobbyPlayer{ID: p.ID, Name: p.Name})
	}

	return LobbyUpdateMessage{
		Type:    "lobbyUpdate",
		Players: players,
		PIN:     st.PIN,
		GameID:  st.ID,
	}
}

func newGetReady(st *GameState, countdown time.Duration) GetReadyMessage {
	return GetReadyMessage{
		Type:           "getReady",
		CountdownMs:    countdown.Milliseconds(),
		TotalQuestions: len(st.Questions),
	}
}

func newQuestionModifier(st *GameState) QuestionModifierMessage {
	modifiers := make([]string, 0, 1)
	if st.currentQuestion().IsDoublePoints {
		modifiers = append(modifiers, "DOUBLE_POINTS")
	}

	return QuestionModifierMessage{
		Type:           "questionModifier",
		Modifiers:      modifiers,
		QuestionIndex:  st.CurrentQuestionIndex,
		TotalQuestions: len(st.Questions),
	}
}

func newQuestionStart(st *GameState, timeLimit time.Duration) QuestionStartMessage {
	q := st.currentQuestion()

	return QuestionStartMessage{
		Type:            "questionStart",
		QuestionIndex:   st.CurrentQuestionIndex,
		TotalQuestions:  len(st.Questions),
		QuestionText:    q.Text,
		Options:         q.Options,
		StartTime:       st.QuestionStartTime,
		TimeLimitMs:     timeLimit.Milliseconds(),
		IsDoublePoints:  q.IsDoublePoints,
		BackgroundImage: q.BackgroundImage,
	}
}

func newAnswerReceived(answerIndex int) AnswerReceivedMessage {
	return AnswerReceivedMessage{
		Type:        "answerReceived",
		AnswerIndex: answerIndex,
	}
}

func newPlayerAnswered(st *GameState, playerID string) PlayerAnsweredMessage {
	return PlayerAnsweredMessage{
		Type:          "playerAnswered",
		PlayerID:      playerID,
		AnsweredCount: len(st.Answers),
		TotalPlayers:  len(st.Players),
	}
}

// newReveal builds the reveal payload for one recipient. An empty
// playerID means the host: aggregate counts only. A player additionally
// gets their own result, or no result block if they did not answer.
func newReveal(st *GameState, playerID string) RevealMessage {
	q := st.currentQuestion()

	msg := RevealMessage{
		Type:               "reveal",
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		AnswerCounts:       st.answerCounts(),
		QuestionText:       q.Text,
		Options:            q.Options,
	}

	if playerID == "" {
		return msg
	}

	for _, a := range st.Answers {
		if a.PlayerID == playerID {
			msg.PlayerResult = &PlayerResult{
				IsCorrect:   a.IsCorrect,
				Score:       a.Score,
				AnswerIndex: a.AnswerIndex,
			}
			break
		}
	}

	return msg
}

func newLeaderboard(st *GameState) LeaderboardMessage {
	return LeaderboardMessage{
		Type:           "leaderboard",
		Leaderboard:    buildLeaderboard(st.Players),
		IsLastQuestion: st.isLastQuestion(),
	}
}

func newGameEnd(st *GameState, revealed bool) GameEndMessage {
	msg := GameEndMessage{
		Type:     "gameEnd",
		Revealed: revealed,
	}
	if revealed {
		msg.FinalLeaderboard = buildLeaderboard(st.Players)
	}
	return msg
}

func newEmojiReceived(emoji, playerID string) EmojiReceivedMessage {
	return EmojiReceivedMessage{
		Type:     "emojiReceived",
		Emoji:    emoji,
		PlayerID: playerID,
	}
}

// snapshotMessage rebuilds the view a freshly (re)connected client
// should be seeing for the current phase.
func snapshotMessage(st *GameState, playerID string, countdown, timeLimit time.Duration) any {
	switch st.Phase {
	case PhaseLobby:
		return newLobbyUpdate(st)
	case PhaseGetReady:
		return newGetReady(st, countdown)
	case PhaseQuestionModifier:
		return newQuestionModifier(st)
	case PhaseQuestion:
		return newQuestionStart(st, timeLimit)
	case PhaseReveal:
		return newReveal(st, playerID)
	case PhaseLeaderboard:
		return newLeaderboard(st)
	case PhaseEndIntro:
		return newGameEnd(st, false)
	case PhaseEndRevealed:
		return newGameEnd(st, true)
	}
	return nil
}
