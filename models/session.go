package models

import (
	"time"
)

// Session states. A session is created directly into StateLobby;
// StateCreated exists only as the conceptual start of the lifecycle.
const (
	StateCreated        = "created"
	StateLobby          = "lobby"
	StateQuestionActive = "question_active"
	StateQuestionLocked = "question_locked"
	StateResults        = "results"
	StateEnded          = "ended"
)

// GameSession is the aggregate root for one live run of a Game. The
// question snapshot, players and submitted answers all hang off it and
// are mutated only under the engine's per-session lock.
type GameSession struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	GameID            uint       `json:"game_id" gorm:"not null;index"`
	HostID            uint       `json:"host_id" gorm:"not null;index"`
	Pin               string     `json:"pin" gorm:"size:6;index"`
	State             string     `json:"state" gorm:"size:20;not null;default:'lobby'"`
	Locked            bool       `json:"locked" gorm:"not null;default:false"`
	QuestionIndex     int        `json:"question_index" gorm:"not null;default:-1"`
	StartedAt         *time.Time `json:"started_at"`
	QuestionStartedAt *time.Time `json:"question_started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	CreatedAt         time.Time  `json:"created_at"`

	Snapshot []QuestionSnapshot `json:"snapshot" gorm:"serializer:json"`

	// Relationships
	Players []Player        `json:"players,omitempty" gorm:"foreignKey:SessionID"`
	Answers []SessionAnswer `json:"answers,omitempty" gorm:"foreignKey:SessionID"`
}

// QuestionSnapshot is a question frozen at session start. Edits to the
// source Game after launch never reach a running session.
type QuestionSnapshot struct {
	ID       uint             `json:"id"`
	Type     string           `json:"type"`
	Title    string           `json:"title"`
	Duration int              `json:"duration"` // seconds
	Points   int              `json:"points"`
	Hint     string           `json:"hint,omitempty"`
	Answers  []AnswerSnapshot `json:"answers"`
}

type AnswerSnapshot struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Correct bool   `json:"correct"`
}

// Active reports whether the session still counts against the
// one-active-session-per-game invariant and holds its PIN.
func (s *GameSession) Active() bool {
	return s.State != StateEnded
}

// CurrentQuestion returns the snapshot question the session is
// pointing at, or nil while no question has been opened.
func (s *GameSession) CurrentQuestion() *QuestionSnapshot {
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(s.Snapshot) {
		return nil
	}
	return &s.Snapshot[s.QuestionIndex]
}

// QuestionDeadline returns the instant the current question window
// closes and false when no question is open.
func (s *GameSession) QuestionDeadline() (time.Time, bool) {
	q := s.CurrentQuestion()
	if q == nil || s.QuestionStartedAt == nil || s.State != StateQuestionActive {
		return time.Time{}, false
	}
	return s.QuestionStartedAt.Add(time.Duration(q.Duration) * time.Second), true
}
