package services

import (
	"context"

	"quizlive/models"
)

// SessionView is the read model served to hosts, players and
// observers. Answer correctness is redacted while the question is
// open and revealed once it locks.
type SessionView struct {
	ID             uint               `json:"id"`
	Pin            string             `json:"pin,omitempty"`
	State          string             `json:"state"`
	Locked         bool               `json:"locked"`
	QuestionIndex  int                `json:"question_index"`
	TotalQuestions int                `json:"total_questions"`
	Question       *QuestionView      `json:"question,omitempty"`
	Players        []models.Player    `json:"players"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
}

type QuestionView struct {
	ID       uint         `json:"id"`
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Duration int          `json:"duration"`
	Hint     string       `json:"hint,omitempty"`
	TimeLeft int          `json:"time_left"`
	Answers  []AnswerView `json:"answers"`
}

type AnswerView struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	// Correct is nil while the question is open.
	Correct *bool `json:"correct,omitempty"`
}

// View assembles the read model for a session, applying any elapsed
// question deadline first so no caller ever sees an expired question
// still open. The roster and the leaderboard are both derived from
// the one aggregate read, so they always agree on who is in the game.
func (s *SessionService) View(ctx context.Context, sessionID uint) (*SessionView, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &SessionView{
		ID:             session.ID,
		Pin:            session.Pin,
		State:          session.State,
		Locked:         session.Locked,
		QuestionIndex:  session.QuestionIndex,
		TotalQuestions: len(session.Snapshot),
		Players:        sortedRoster(session),
		Leaderboard:    s.scoring.Leaderboard(session),
	}

	if question := session.CurrentQuestion(); question != nil {
		reveal := session.State != models.StateQuestionActive
		qv := &QuestionView{
			ID:       question.ID,
			Type:     question.Type,
			Title:    question.Title,
			Duration: question.Duration,
			Hint:     question.Hint,
		}
		if deadline, ok := session.QuestionDeadline(); ok {
			if left := int(deadline.Sub(s.now()).Seconds()); left > 0 {
				qv.TimeLeft = left
			}
		}
		for _, a := range question.Answers {
			av := AnswerView{ID: a.ID, Title: a.Title}
			if reveal {
				correct := a.Correct
				av.Correct = &correct
			}
			qv.Answers = append(qv.Answers, av)
		}
		view.Question = qv
	}

	return view, nil
}

// Observe resolves a PIN to a spectator view of the session. An
// observer never gets a player token and never appears in the roster
// or the leaderboard.
func (s *SessionService) Observe(ctx context.Context, pin string) (*SessionView, error) {
	sessionID, err := s.pins.Resolve(pin)
	if err != nil {
		return nil, err
	}
	return s.View(ctx, sessionID)
}

// Leaderboard returns the running ranking, recomputed from all graded
// answers at read time.
func (s *SessionService) Leaderboard(ctx context.Context, sessionID uint) ([]LeaderboardEntry, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.scoring.Leaderboard(session), nil
}
