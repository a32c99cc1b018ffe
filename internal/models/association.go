package models

import "time"

// Association grants a non-owner user operational access to a farm.
type Association struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;size:64;uniqueIndex:idx_association_user_farm" json:"user_id"`
	FarmID    uint      `gorm:"not null;index;uniqueIndex:idx_association_user_farm" json:"farm_id"`
	Farm      Farm      `gorm:"foreignKey:FarmID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
