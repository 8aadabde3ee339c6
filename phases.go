package main

import "time"

// The game loop:
//
//	LOBBY -> GET_READY -> [QUESTION_MODIFIER] -> QUESTION -> REVEAL
//	      -> LEADERBOARD -> next question ... -> END_INTRO -> END_REVEALED
//
// GET_READY, QUESTION_MODIFIER, QUESTION and END_INTRO advance on the
// room alarm; REVEAL and LEADERBOARD (and QUESTION, early) advance on
// the host's nextState. Everything else about a phase - who may do what
// while it holds - is answered by the predicates below.

// advanceAllowed reports whether the host's manual nextState does
// anything in this phase. Elsewhere it is a silent no-op.
func advanceAllowed(p Phase) bool {
	switch p {
	case PhaseQuestion, PhaseReveal, PhaseLeaderboard:
		return true
	case PhaseLobby, PhaseGetReady, PhaseQuestionModifier, PhaseEndIntro, PhaseEndRevealed:
		return false
	}
	return false
}

// emojiAllowed permits reactions in every phase except the two that
// display the question itself.
func emojiAllowed(p Phase) bool {
	switch p {
	case PhaseQuestionModifier, PhaseQuestion:
		return false
	case PhaseLobby, PhaseGetReady, PhaseReveal, PhaseLeaderboard, PhaseEndIntro, PhaseEndRevealed:
		return true
	}
	return false
}

// timerAdvances reports whether the room alarm moves this phase forward.
// A firing against any other phase is stale and must be ignored.
func timerAdvances(p Phase) bool {
	switch p {
	case PhaseGetReady, PhaseQuestionModifier, PhaseQuestion, PhaseEndIntro:
		return true
	case PhaseLobby, PhaseReveal, PhaseLeaderboard, PhaseEndRevealed:
		return false
	}
	return false
}

// hasModifier reports whether the current question shows a modifier
// screen before the question itself.
func hasModifier(q Question) bool {
	return q.IsDoublePoints
}

func setPhase(st *GameState, p Phase, now time.Time) {
	st.Phase = p
	st.PhaseStartTime = now.UnixMilli()
}

// enterGetReady starts the game from the lobby.
func enterGetReady(st *GameState, now time.Time) {
	setPhase(st, PhaseGetReady, now)
	st.CurrentQuestionIndex = 0
}

// enterModifierOrQuestion moves into the current question's modifier
// screen when it has one, otherwise straight into the question. It
// returns true when the modifier screen was entered, so the caller
// knows which deadline to arm.
func enterModifierOrQuestion(st *GameState, now time.Time) bool {
	if hasModifier(st.currentQuestion()) {
		setPhase(st, PhaseQuestionModifier, now)
		return true
	}
	enterQuestion(st, now)
	return false
}

// enterQuestion opens the current question: answers are reset and the
// submission clock starts.
func enterQuestion(st *GameState, now time.Time) {
	setPhase(st, PhaseQuestion, now)
	st.QuestionStartTime = now.UnixMilli()
	st.Answers = st.Answers[:0]
	for i := range st.Players {
		st.Players[i].Answered = false
	}
}

// enterReveal closes the current question and scores what came in.
func enterReveal(st *GameState, timeLimit time.Duration, now time.Time) {
	applyScores(st, timeLimit)
	setPhase(st, PhaseReveal, now)
}

// advanceFromReveal moves to the leaderboard, or directly into the
// ending sequence after the last question.
func advanceFromReveal(st *GameState, now time.Time) {
	if st.isLastQuestion() {
		setPhase(st, PhaseEndIntro, now)
		return
	}
	setPhase(st, PhaseLeaderboard, now)
}

// advanceFromLeaderboard steps to the next question, or to the ending
// sequence if none remain. Returns true when the modifier screen was
// entered.
func advanceFromLeaderboard(st *GameState, now time.Time) bool {
	if st.isLastQuestion() {
		setPhase(st, PhaseEndIntro, now)
		return false
	}
	st.CurrentQuestionIndex++
	return enterModifierOrQuestion(st, now)
}

func enterEndRevealed(st *GameState, now time.Time) {
	setPhase(st, PhaseEndRevealed, now)
}

func timeLeft(startMs int64, total time.Duration, now time.Time) time.Duration {
	elapsed := now.UnixMilli() - startMs
	left := total - time.Duration(elapsed)*time.Millisecond
	if left < 0 {
		return 0
	}
	return left
}

// questionTimeLeft is the submission window remaining for the current
// question, clamped at zero.
func questionTimeLeft(st *GameState, timeLimit time.Duration, now time.Time) time.Duration {
	return timeLeft(st.QuestionStartTime, timeLimit, now)
}

// phaseTimeLeft is the remainder of the current phase's full duration,
// clamped at zero.
func phaseTimeLeft(st *GameState, total time.Duration, now time.Time) time.Duration {
	return timeLeft(st.PhaseStartTime, total, now)
}
