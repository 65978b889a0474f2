package users

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RolePlayer Role = "PLAYER"
)

type Gender string

const (
	GenderMale   Gender = "masculino"
	GenderFemale Gender = "femenino"
	GenderOther  Gender = "otro"
)

// User is the player directory row. Profile fields come from the external
// user service; the balance columns are owned by the wallet manager and must
// not be mutated anywhere else.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"not null" json:"name"`
	Email    string    `gorm:"unique;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     Role      `gorm:"type:varchar(20);default:'PLAYER'" json:"role"`
	Gender   Gender    `gorm:"type:varchar(20);default:'otro'" json:"gender"`
	Level    string    `gorm:"type:varchar(20);default:'iniciacion'" json:"level"`

	// Balances in minor currency units / whole points.
	Credit        int64 `gorm:"not null;default:0" json:"credit"`
	BlockedCredit int64 `gorm:"not null;default:0" json:"blocked_credit"`
	Points        int64 `gorm:"not null;default:0" json:"points"`
	BlockedPoints int64 `gorm:"not null;default:0" json:"blocked_points"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// AvailableCredit returns credit not reserved against pending bookings.
func (u *User) AvailableCredit() int64 {
	return u.Credit - u.BlockedCredit
}

// AvailablePoints returns points not reserved against pending bookings.
func (u *User) AvailablePoints() int64 {
	return u.Points - u.BlockedPoints
}

// Category maps a player's gender to the slot category their first booking
// fixes: masculino, femenino, otherwise mixto.
func (u *User) Category() string {
	switch u.Gender {
	case GenderMale:
		return "masculino"
	case GenderFemale:
		return "femenino"
	default:
		return "mixto"
	}
}
