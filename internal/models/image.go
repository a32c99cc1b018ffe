package models

import "time"

// Image is an aerial photo sample taken somewhere inside a farm. Its Verdict
// shares the same id and is always written in the same transaction.
type Image struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FarmID       uint      `gorm:"not null;index" json:"farm_id"`
	Farm         Farm      `gorm:"foreignKey:FarmID" json:"-"`
	StoragePath  string    `gorm:"not null;size:512" json:"storage_path"`
	OriginalName string    `gorm:"size:255" json:"original_name"`
	Latitude     float64   `gorm:"not null" json:"latitude"`
	Longitude    float64   `gorm:"not null" json:"longitude"`
	UploadedBy   string    `gorm:"size:64;index" json:"uploaded_by"`
	Verdict      *Verdict  `gorm:"foreignKey:ID;references:ID" json:"verdict,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Verdict struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Anomalous bool      `gorm:"not null;index" json:"anomalous"`
	CreatedAt time.Time `json:"created_at"`
}
