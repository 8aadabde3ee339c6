package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func revealState() *GameState {
	return &GameState{
		ID:    "room",
		PIN:   "123456",
		Phase: PhaseReveal,
		Questions: []Question{
			{Text: "capital?", Options: []string{"a", "b", "c"}, CorrectAnswerIndex: 2},
		},
		Players: []Player{
			{ID: "p1", Name: "One", Score: 800},
			{ID: "p2", Name: "Two", Score: 0},
		},
		Answers: []Answer{
			{PlayerID: "p1", AnswerIndex: 2, Time: 4000, IsCorrect: true, Score: 800},
		},
	}
}

func TestNewRevealForHost(t *testing.T) {
	msg := newReveal(revealState(), "")

	assert.Equal(t, "reveal", msg.Type)
	assert.Equal(t, 2, msg.CorrectAnswerIndex)
	assert.Equal(t, []int{0, 0, 1}, msg.AnswerCounts)
	assert.Nil(t, msg.PlayerResult, "host payload carries aggregate counts only")
}

func TestNewRevealForAnsweringPlayer(t *testing.T) {
	msg := newReveal(revealState(), "p1")

	require.NotNil(t, msg.PlayerResult)
	assert.True(t, msg.PlayerResult.IsCorrect)
	assert.Equal(t, 800, msg.PlayerResult.Score)
	assert.Equal(t, 2, msg.PlayerResult.AnswerIndex)
}

func TestNewRevealForSilentPlayer(t *testing.T) {
	msg := newReveal(revealState(), "p2")

	assert.Nil(t, msg.PlayerResult, "a player who did not answer gets no result block")
}

func TestNewLobbyUpdate(t *testing.T) {
	st := revealState()
	msg := newLobbyUpdate(st)

	assert.Equal(t, "lobbyUpdate", msg.Type)
	assert.Equal(t, "123456", msg.PIN)
	assert.Equal(t, "room", msg.GameID)
	require.Len(t, msg.Players, 2)
	assert.Equal(t, LobbyPlayer{ID: "p1", Name: "One"}, msg.Players[0])
}

func TestNewQuestionStart(t *testing.T) {
	st := &GameState{
		Phase:             PhaseQuestion,
		QuestionStartTime: 1700000000000,
		Questions: []Question{
			{Text: "q1", Options: []string{"a", "b"}, IsDoublePoints: true, BackgroundImage: "bg.png"},
		},
	}

	msg := newQuestionStart(st, 20*time.Second)

	assert.Equal(t, "questionStart", msg.Type)
	assert.Equal(t, 0, msg.QuestionIndex)
	assert.Equal(t, 1, msg.TotalQuestions)
	assert.Equal(t, int64(1700000000000), msg.StartTime)
	assert.Equal(t, int64(20000), msg.TimeLimitMs)
	assert.True(t, msg.IsDoublePoints)
	assert.Equal(t, "bg.png", msg.BackgroundImage)
}

func TestNewGameEnd(t *testing.T) {
	st := revealState()

	intro := newGameEnd(st, false)
	assert.False(t, intro.Revealed)
	assert.Empty(t, intro.FinalLeaderboard)

	final := newGameEnd(st, true)
	assert.True(t, final.Revealed)
	require.Len(t, final.FinalLeaderboard, 2)
	assert.Equal(t, "p1", final.FinalLeaderboard[0].ID)
	assert.Equal(t, 1, final.FinalLeaderboard[0].Rank)
}

func TestSnapshotMessagePerPhase(t *testing.T) {
	st := revealState()

	tests := []struct {
		phase Phase
		want  any
	}{
		{PhaseLobby, LobbyUpdateMessage{}},
		{PhaseGetReady, GetReadyMessage{}},
		{PhaseQuestionModifier, QuestionModifierMessage{}},
		{PhaseQuestion, QuestionStartMessage{}},
		{PhaseReveal, RevealMessage{}},
		{PhaseLeaderboard, LeaderboardMessage{}},
		{PhaseEndIntro, GameEndMessage{}},
		{PhaseEndRevealed, GameEndMessage{}},
	}

	for _, tc := range tests {
		st.Phase = tc.phase
		got := snapshotMessage(st, "p1", 5*time.Second, 20*time.Second)
		assert.IsType(t, tc.want, got, "phase %s", tc.phase)
	}
}
