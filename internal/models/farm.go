package models

import "gorm.io/gorm"

type Farm struct {
	gorm.Model
	RegistryCode string  `gorm:"uniqueIndex;not null;size:64" json:"registry_code"`
	Name         string  `gorm:"not null;size:255" json:"name"`
	Latitude     float64 `gorm:"not null" json:"latitude"`
	Longitude    float64 `gorm:"not null" json:"longitude"`
	AreaHectares float64 `gorm:"not null" json:"area_hectares"`
	OwnerID      string  `gorm:"not null;index;size:64" json:"owner_id"`
}
