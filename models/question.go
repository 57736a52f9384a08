package models

import (
	"time"

	"gorm.io/gorm"
)

// Question types.
const (
	QuestionTypeSingle     = "single"
	QuestionTypeMultiple   = "multiple"
	QuestionTypeTypeAnswer = "type_answer"
)

type Question struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	GameID   uint   `json:"game_id" gorm:"not null"`
	Type     string `json:"type" gorm:"not null;default:'single'"` // single, multiple, type_answer
	Title    string `json:"title" gorm:"not null"`
	Duration int    `json:"duration" gorm:"not null;default:30"` // seconds
	Points   int    `json:"points" gorm:"not null;default:1000"`
	Hint     string `json:"hint"`
	Order    int    `json:"order" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}
