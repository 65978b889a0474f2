package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"courtside/internal/clubs"
	"courtside/internal/shared/config"
	"courtside/internal/shared/database"
	"courtside/internal/slots"
	"courtside/internal/users"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("Starting Courtside database seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("Seeding completed, database ready for testing.")
}

// CleanDatabase truncates all tables, children first.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"ledger_entries",
		"bookings",
		"court_schedules",
		"instructor_schedules",
		"slots",
		"instructors",
		"courts",
		"clubs",
		"users",
	}
	for _, table := range tables {
		if err := s.db.PostgreSQL.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) SeedAll(ctx context.Context) error {
	return s.db.PostgreSQL.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		club, err := s.seedClub(tx)
		if err != nil {
			return err
		}
		instructor, err := s.seedInstructor(tx, club.ID)
		if err != nil {
			return err
		}
		if err := s.seedUsers(tx); err != nil {
			return err
		}
		return s.seedSlots(tx, club.ID, instructor.ID)
	})
}

func (s *Seeder) seedClub(tx *gorm.DB) (*clubs.Club, error) {
	club := &clubs.Club{
		ID:   uuid.New(),
		Name: "Club Norte Padel",
	}
	if err := tx.Create(club).Error; err != nil {
		return nil, fmt.Errorf("failed to seed club: %w", err)
	}

	for number := 1; number <= 4; number++ {
		court := &clubs.Court{
			ID:     uuid.New(),
			ClubID: club.ID,
			Number: number,
			Active: true,
		}
		if err := tx.Create(court).Error; err != nil {
			return nil, fmt.Errorf("failed to seed court %d: %w", number, err)
		}
	}

	fmt.Printf("  seeded club %q with 4 courts\n", club.Name)
	return club, nil
}

func (s *Seeder) seedInstructor(tx *gorm.DB, clubID uuid.UUID) (*clubs.Instructor, error) {
	instructor := &clubs.Instructor{
		ID:     uuid.New(),
		ClubID: clubID,
		Name:   "Marta Iglesias",
	}
	if err := tx.Create(instructor).Error; err != nil {
		return nil, fmt.Errorf("failed to seed instructor: %w", err)
	}
	return instructor, nil
}

func (s *Seeder) seedUsers(tx *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	demo := []users.User{
		{Name: "Admin", Email: "admin@courtside.local", Role: users.RoleAdmin, Gender: "otro", Level: "C", Credit: 0},
		{Name: "Lucia Herrero", Email: "lucia@courtside.local", Role: users.RolePlayer, Gender: "femenino", Level: "B", Credit: 200_00, Points: 40},
		{Name: "Pablo Montes", Email: "pablo@courtside.local", Role: users.RolePlayer, Gender: "masculino", Level: "B", Credit: 150_00},
		{Name: "Irene Castro", Email: "irene@courtside.local", Role: users.RolePlayer, Gender: "femenino", Level: "C", Credit: 80_00, Points: 120},
		{Name: "Diego Vidal", Email: "diego@courtside.local", Role: users.RolePlayer, Gender: "masculino", Level: "A", Credit: 300_00},
	}
	for i := range demo {
		demo[i].ID = uuid.New()
		demo[i].Password = string(hash)
		if err := tx.Create(&demo[i]).Error; err != nil {
			return fmt.Errorf("failed to seed user %s: %w", demo[i].Email, err)
		}
	}

	fmt.Printf("  seeded %d users (password: password123)\n", len(demo))
	return nil
}

func (s *Seeder) seedSlots(tx *gorm.DB, clubID, instructorID uuid.UUID) error {
	tomorrow := time.Now().AddDate(0, 0, 1)
	base := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, time.Local)

	count := 0
	for hour := 0; hour < 6; hour++ {
		start := base.Add(time.Duration(hour) * time.Hour)

		slot := &slots.Slot{
			ID:           uuid.New(),
			ClubID:       clubID,
			Kind:         slots.KindClass,
			InstructorID: &instructorID,
			StartTime:    start,
			EndTime:      start.Add(time.Hour),
			TotalPrice:   60_00,
			Category:     slots.CategoryOpen,
			Level:        slots.LevelOpen,
			MaxPlayers:   4,
			Status:       slots.StatusOpen,
		}
		if err := tx.Create(slot).Error; err != nil {
			return fmt.Errorf("failed to seed slot at %s: %w", start, err)
		}
		count++
	}

	fmt.Printf("  seeded %d class slots for %s\n", count, base.Format("2006-01-02"))
	return nil
}
