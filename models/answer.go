package models

import (
	"time"

	"gorm.io/gorm"
)

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null"`
	Title      string `json:"title" gorm:"not null"`
	Correct    bool   `json:"correct" gorm:"not null;default:false"`
	Order      int    `json:"order" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
