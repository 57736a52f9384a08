package models

import (
	"time"

	"gorm.io/gorm"
)

// Game is the authored quiz definition. Sessions never read it after
// launch; they work off the snapshot taken at start.
type Game struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	HostID    uint           `json:"host_id" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:GameID"`
}
