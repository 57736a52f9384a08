package services

import (
	"sort"
	"strings"
	"time"

	"quizlive/models"
)

// speedFactorFloor is the multiplier applied to an answer arriving at
// the very end of the question window; earlier answers scale linearly
// up to 1.0 at the window open.
const speedFactorFloor = 0.5

// ScoringEngine grades a locked question's answers and computes the
// running leaderboard. Grading runs exactly once per question, on the
// active->locked transition.
type ScoringEngine struct{}

func NewScoringEngine() *ScoringEngine {
	return &ScoringEngine{}
}

// GradeCurrentQuestion fills Correct and Points on every answer
// submitted for the session's current question.
func (e *ScoringEngine) GradeCurrentQuestion(session *models.GameSession) {
	question := session.CurrentQuestion()
	if question == nil || session.QuestionStartedAt == nil {
		return
	}

	for i := range session.Answers {
		answer := &session.Answers[i]
		if answer.QuestionIndex != session.QuestionIndex {
			continue
		}
		answer.Correct = e.isCorrect(question, answer)
		if answer.Correct {
			factor := speedFactor(*session.QuestionStartedAt, question.Duration, answer.SubmittedAt)
			answer.Points = int(float64(question.Points) * factor)
		} else {
			answer.Points = 0
		}
	}
}

func (e *ScoringEngine) isCorrect(question *models.QuestionSnapshot, answer *models.SessionAnswer) bool {
	switch question.Type {
	case models.QuestionTypeSingle, models.QuestionTypeMultiple:
		correct := make(map[uint]bool)
		for _, a := range question.Answers {
			if a.Correct {
				correct[a.ID] = true
			}
		}
		if len(answer.SelectedAnswerIDs) != len(correct) {
			return false
		}
		seen := make(map[uint]bool)
		for _, id := range answer.SelectedAnswerIDs {
			if !correct[id] || seen[id] {
				return false
			}
			seen[id] = true
		}
		return true

	case models.QuestionTypeTypeAnswer:
		text := strings.ToLower(strings.TrimSpace(answer.Text))
		for _, a := range question.Answers {
			if a.Correct && strings.ToLower(strings.TrimSpace(a.Title)) == text {
				return true
			}
		}
		return false
	}
	return false
}

// speedFactor decays linearly from 1.0 at the window open to the floor
// at the deadline. Submissions outside the window clamp to the edges.
func speedFactor(startedAt time.Time, durationSeconds int, submittedAt time.Time) float64 {
	if durationSeconds <= 0 {
		return speedFactorFloor
	}
	elapsed := submittedAt.Sub(startedAt).Seconds()
	if elapsed <= 0 {
		return 1.0
	}
	window := float64(durationSeconds)
	if elapsed >= window {
		return speedFactorFloor
	}
	return 1.0 - (1.0-speedFactorFloor)*(elapsed/window)
}

// LeaderboardEntry is one row of the ranking, highest score first.
type LeaderboardEntry struct {
	PlayerID uint   `json:"player_id"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// Leaderboard recomputes the ranking from all graded answers instead
// of patching a running total, so a retried grade can never drift it.
func (e *ScoringEngine) Leaderboard(session *models.GameSession) []LeaderboardEntry {
	totals := make(map[uint]int)
	for _, answer := range session.Answers {
		totals[answer.PlayerID] += answer.Points
	}

	entries := make([]LeaderboardEntry, 0, len(session.Players))
	for _, player := range session.Players {
		entries = append(entries, LeaderboardEntry{
			PlayerID: player.ID,
			Name:     player.Name,
			Image:    player.Image,
			Score:    totals[player.ID],
		})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Score > entries[b].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
