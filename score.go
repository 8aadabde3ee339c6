package main

import (
	"slices"
	"time"
)

const baseScore = 1000

// scoreAnswer computes the points for a single answer. A correct answer
// at time zero is worth the full base score, decaying linearly to half
// at the time limit. The result is clamped at zero in case an answer
// slipped past the submission deadline.
func scoreAnswer(a Answer, correctIndex int, doublePoints bool, timeLimit time.Duration) (bool, int) {
	if a.AnswerIndex != correctIndex {
		return false, 0
	}

	multiplier := 1
	if doublePoints {
		multiplier = 2
	}

	limitMs := float64(timeLimit.Milliseconds())
	score := int(float64(baseScore*multiplier) * (1 - float64(a.Time)/(2*limitMs)))
	if score < 0 {
		score = 0
	}

	return true, score
}

// applyScores annotates every answer for the current question and adds
// the earned points to the matching players. Answers referencing unknown
// player IDs are skipped.
func applyScores(st *GameState, timeLimit time.Duration) {
	question := st.currentQuestion()

	for i := range st.Answers {
		a := &st.Answers[i]

		player := st.findPlayer(a.PlayerID)
		if player == nil {
			continue
		}

		a.IsCorrect, a.Score = scoreAnswer(*a, question.CorrectAnswerIndex, question.IsDoublePoints, timeLimit)
		player.Score += a.Score
	}
}

type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// buildLeaderboard returns players sorted by score descending with
// sequential 1-based ranks; tied scores still get distinct ranks. The
// input slice is not modified.
func buildLeaderboard(players []Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
		})
	}

	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		return b.Score - a.Score
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}
