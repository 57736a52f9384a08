package models

import (
	"time"
)

// SessionAnswer is one player's committed answer for one question.
// (SessionID, QuestionIndex, PlayerID) is unique: a player answers a
// question at most once and cannot change it afterwards.
type SessionAnswer struct {
	ID            uint `json:"id" gorm:"primaryKey"`
	SessionID     uint `json:"session_id" gorm:"not null;uniqueIndex:idx_session_question_player"`
	QuestionIndex int  `json:"question_index" gorm:"not null;uniqueIndex:idx_session_question_player"`
	PlayerID      uint `json:"player_id" gorm:"not null;uniqueIndex:idx_session_question_player"`

	SelectedAnswerIDs []uint `json:"selected_answer_ids,omitempty" gorm:"serializer:json"`
	Text              string `json:"text,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`

	// Filled in by grading when the question locks; never client-supplied.
	Correct bool `json:"correct" gorm:"not null;default:false"`
	Points  int  `json:"points" gorm:"not null;default:0"`
}
