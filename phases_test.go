package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var allPhases = []Phase{
	PhaseLobby, PhaseGetReady, PhaseQuestionModifier, PhaseQuestion,
	PhaseReveal, PhaseLeaderboard, PhaseEndIntro, PhaseEndRevealed,
}

func TestAdvanceAllowed(t *testing.T) {
	allowed := map[Phase]bool{
		PhaseQuestion:    true,
		PhaseReveal:      true,
		PhaseLeaderboard: true,
	}

	for _, p := range allPhases {
		assert.Equal(t, allowed[p], advanceAllowed(p), "phase %s", p)
	}
}

func TestEmojiAllowed(t *testing.T) {
	blocked := map[Phase]bool{
		PhaseQuestionModifier: true,
		PhaseQuestion:         true,
	}

	for _, p := range allPhases {
		assert.Equal(t, !blocked[p], emojiAllowed(p), "phase %s", p)
	}
}

func TestTimerAdvances(t *testing.T) {
	advances := map[Phase]bool{
		PhaseGetReady:         true,
		PhaseQuestionModifier: true,
		PhaseQuestion:         true,
		PhaseEndIntro:         true,
	}

	for _, p := range allPhases {
		assert.Equal(t, advances[p], timerAdvances(p), "phase %s", p)
	}
}

func TestEnterQuestionResetsAnswers(t *testing.T) {
	st := &GameState{
		Phase:     PhaseLeaderboard,
		Questions: []Question{{Options: []string{"a", "b"}}},
		Players: []Player{
			{ID: "p1", Answered: true},
			{ID: "p2", Answered: true},
		},
		Answers: []Answer{{PlayerID: "p1", AnswerIndex: 0}},
	}

	now := time.Now()
	enterQuestion(st, now)

	assert.Equal(t, PhaseQuestion, st.Phase)
	assert.Empty(t, st.Answers)
	assert.Equal(t, now.UnixMilli(), st.QuestionStartTime)
	for _, p := range st.Players {
		assert.False(t, p.Answered)
	}
}

func TestEnterModifierOrQuestion(t *testing.T) {
	st := &GameState{
		Questions: []Question{{Options: []string{"a", "b"}, IsDoublePoints: true}},
	}

	assert.True(t, enterModifierOrQuestion(st, time.Now()))
	assert.Equal(t, PhaseQuestionModifier, st.Phase)

	st.Questions[0].IsDoublePoints = false
	assert.False(t, enterModifierOrQuestion(st, time.Now()))
	assert.Equal(t, PhaseQuestion, st.Phase)
}

func TestAdvanceFromReveal(t *testing.T) {
	st := &GameState{
		Phase:     PhaseReveal,
		Questions: []Question{{Options: []string{"a", "b"}}, {Options: []string{"a", "b"}}},
	}

	advanceFromReveal(st, time.Now())
	assert.Equal(t, PhaseLeaderboard, st.Phase)

	st.Phase = PhaseReveal
	st.CurrentQuestionIndex = 1
	advanceFromReveal(st, time.Now())
	assert.Equal(t, PhaseEndIntro, st.Phase)
}

func TestAdvanceFromLeaderboardStepsQuestion(t *testing.T) {
	st := &GameState{
		Phase: PhaseLeaderboard,
		Questions: []Question{
			{Options: []string{"a", "b"}},
			{Options: []string{"a", "b"}},
		},
	}

	advanceFromLeaderboard(st, time.Now())

	assert.Equal(t, 1, st.CurrentQuestionIndex)
	assert.Equal(t, PhaseQuestion, st.Phase)
}

func TestPhaseTransitionsStampEntryTime(t *testing.T) {
	st := &GameState{
		Phase:     PhaseLobby,
		Questions: []Question{{Options: []string{"a", "b"}}},
	}

	now := time.Now()
	enterGetReady(st, now)
	assert.Equal(t, now.UnixMilli(), st.PhaseStartTime)

	later := now.Add(5 * time.Second)
	enterQuestion(st, later)
	assert.Equal(t, later.UnixMilli(), st.PhaseStartTime)
	assert.Equal(t, later.UnixMilli(), st.QuestionStartTime)

	latest := later.Add(20 * time.Second)
	enterReveal(st, 20*time.Second, latest)
	assert.Equal(t, latest.UnixMilli(), st.PhaseStartTime)
}

func TestPhaseTimeLeft(t *testing.T) {
	now := time.Now()
	st := &GameState{PhaseStartTime: now.Add(-3 * time.Second).UnixMilli()}

	left := phaseTimeLeft(st, 5*time.Second, now)
	assert.InDelta(t, float64(2*time.Second), float64(left), float64(10*time.Millisecond))

	st.PhaseStartTime = now.Add(-time.Minute).UnixMilli()
	assert.Zero(t, phaseTimeLeft(st, 5*time.Second, now))
}

func TestQuestionTimeLeft(t *testing.T) {
	now := time.Now()
	st := &GameState{QuestionStartTime: now.Add(-5 * time.Second).UnixMilli()}

	left := questionTimeLeft(st, 20*time.Second, now)
	assert.InDelta(t, float64(15*time.Second), float64(left), float64(10*time.Millisecond))

	st.QuestionStartTime = now.Add(-time.Minute).UnixMilli()
	assert.Zero(t, questionTimeLeft(st, 20*time.Second, now))
}

func TestValidNickname(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"alice", true},
		{"Alice Bob", true},
		{"a_b-c123", true},
		{"", false},
		{"  <script>", false},
		{"name!", false},
		{"ThisNicknameIsWayTooLongForTheGame", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.ok, validNickname(tc.name), "nickname %q", tc.name)
	}
}

func TestValidQuestions(t *testing.T) {
	good := []Question{{Text: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: 1}}
	assert.True(t, validQuestions(good))

	assert.False(t, validQuestions([]Question{{Text: "", Options: []string{"a", "b"}}}))
	assert.False(t, validQuestions([]Question{{Text: "q", Options: []string{"only"}}}))
	assert.False(t, validQuestions([]Question{{Text: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: 2}}))
	assert.False(t, validQuestions([]Question{{Text: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: -1}}))
}
