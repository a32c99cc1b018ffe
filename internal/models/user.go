package models

import "time"

type Role string

const (
	RoleProducer Role = "producer"
	RoleOperator Role = "operator"
	RoleSurveyor Role = "surveyor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleProducer, RoleOperator, RoleSurveyor:
		return true
	}
	return false
}

// User is the profile of an authenticated caller. ID is the identity the
// session layer hands us (a national tax id for producers).
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Role      Role      `gorm:"size:16;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
