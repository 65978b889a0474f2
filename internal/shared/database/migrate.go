package database

import (
	"courtside/internal/bookings"
	"courtside/internal/clubs"
	"courtside/internal/ledger"
	"courtside/internal/slots"
	"courtside/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&clubs.Club{},
		&clubs.Court{},
		&clubs.Instructor{},
		&clubs.CourtSchedule{},
		&clubs.InstructorSchedule{},
		&slots.Slot{},
		&bookings.Booking{},
		&ledger.Entry{},
	)
}
