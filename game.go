package main

import (
	"crypto/rand"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Phase is the room's position in the game loop. It only ever changes
// through the transition helpers in phases.go.
type Phase string

const (
	PhaseLobby            Phase = "LOBBY"
	PhaseGetReady         Phase = "GET_READY"
	PhaseQuestionModifier Phase = "QUESTION_MODIFIER"
	PhaseQuestion         Phase = "QUESTION"
	PhaseReveal           Phase = "REVEAL"
	PhaseLeaderboard      Phase = "LEADERBOARD"
	PhaseEndIntro         Phase = "END_INTRO"
	PhaseEndRevealed      Phase = "END_REVEALED"
)

const (
	maxNicknameLength = 24
	minOptions        = 2
	maxOptions        = 6
)

// Question is copied into a GameState at creation time and never
// modified afterwards, so edits to the source quiz cannot leak into a
// running game.
type Question struct {
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	IsDoublePoints     bool     `json:"isDoublePoints,omitempty"`
	BackgroundImage    string   `json:"backgroundImage,omitempty"`
}

type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Answered bool   `json:"answered"`

	// Token is the reconnection secret, disclosed only to this player.
	Token string `json:"token"`
}

type Answer struct {
	PlayerID    string `json:"playerId"`
	AnswerIndex int    `json:"answerIndex"`

	// Time is milliseconds since the question started, captured at
	// submission. IsCorrect and Score are filled in at reveal.
	Time      int64 `json:"time"`
	IsCorrect bool  `json:"isCorrect"`
	Score     int   `json:"score"`
}

// GameState is the root aggregate for one room, owned exclusively by
// that room's session actor and persisted as a single document.
type GameState struct {
	ID                   string     `json:"id"`
	PIN                  string     `json:"pin"`
	Phase                Phase      `json:"phase"`
	Players              []Player   `json:"players"`
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`

	// PhaseStartTime marks when the current phase was entered, so a
	// resumed room can re-arm the remainder of a timed phase instead of
	// the full duration. QuestionStartTime additionally anchors answer
	// timing for scoring.
	PhaseStartTime    int64 `json:"phaseStartTime"`
	QuestionStartTime int64 `json:"questionStartTime"`
	Answers              []Answer   `json:"answers"`
	HostSecret           string     `json:"hostSecret"`
}

func newGameState(id string, questions []Question) *GameState {
	return &GameState{
		ID:         id,
		PIN:        newPIN(),
		Phase:      PhaseLobby,
		Players:    make([]Player, 0),
		Questions:  slices.Clone(questions),
		Answers:    make([]Answer, 0),
		HostSecret: newSecret(),
	}
}

func (st *GameState) currentQuestion() Question {
	return st.Questions[st.CurrentQuestionIndex]
}

func (st *GameState) isLastQuestion() bool {
	return st.CurrentQuestionIndex >= len(st.Questions)-1
}

func (st *GameState) findPlayer(id string) *Player {
	for i := range st.Players {
		if st.Players[i].ID == id {
			return &st.Players[i]
		}
	}
	return nil
}

func (st *GameState) nameTaken(name string) bool {
	for _, p := range st.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (st *GameState) hasAnswered(playerID string) bool {
	for _, a := range st.Answers {
		if a.PlayerID == playerID {
			return true
		}
	}
	return false
}

// answerCounts tallies answers per option for the current question.
func (st *GameState) answerCounts() []int {
	counts := make([]int, len(st.currentQuestion().Options))
	for _, a := range st.Answers {
		if a.AnswerIndex >= 0 && a.AnswerIndex < len(counts) {
			counts[a.AnswerIndex]++
		}
	}
	return counts
}

var nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

func validNickname(name string) bool {
	if len(name) < 1 || len(name) > maxNicknameLength {
		return false
	}
	return nicknamePattern.MatchString(name)
}

func validQuestions(questions []Question) bool {
	for _, q := range questions {
		if q.Text == "" {
			return false
		}
		if len(q.Options) < minOptions || len(q.Options) > maxOptions {
			return false
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			return false
		}
	}
	return true
}

func newPlayerID() string {
	return uuid.NewString()
}

func newPlayerToken() string {
	return uuid.NewString()
}

func randomString(alphabet string, length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(out)
}

// newGameID generates an 8-char crypto-random room ID.
func newGameID() string {
	return randomString("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789", 8)
}

// newPIN generates the 6-digit code shown on the host screen. Collisions
// across rooms are acceptable; the PIN is display-only.
func newPIN() string {
	return randomString("0123456789", 6)
}

func newSecret() string {
	return randomString("abcdef0123456789", 32)
}
