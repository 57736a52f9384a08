package models

import (
	"time"
)

// MaxPlayerNameLen bounds the display name accepted at join time.
const MaxPlayerNameLen = 25

type Player struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SessionID uint   `json:"session_id" gorm:"not null;index"`
	Name      string `json:"name" gorm:"size:25;not null"`
	Image     string `json:"image"`

	// Token is the bearer credential issued at join. It must survive
	// store serialization, so every read surface blanks it explicitly
	// before handing players out.
	Token string `json:"token,omitempty" gorm:"size:36;index"`

	JoinedAt time.Time `json:"joined_at"`
}
