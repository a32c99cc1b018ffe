package models

import (
	"time"

	"gorm.io/gorm"
)

type APIToken struct {
	gorm.Model
	UserID    string    `gorm:"not null;index;size:64" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null;size:512" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}
