package clubs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrClubNotFound = errors.New("club not found")

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetClubByID(ctx context.Context, id uuid.UUID) (*Club, error)
	CreateClub(ctx context.Context, club *Club) error
	CreateCourt(ctx context.Context, court *Court) error
	CreateInstructor(ctx context.Context, instructor *Instructor) error

	ListActiveCourts(ctx context.Context, clubID uuid.UUID) ([]Court, error)
	OccupiedCourtNumbers(ctx context.Context, clubID uuid.UUID, start, end time.Time) (map[int]bool, error)

	CreateCourtSchedule(ctx context.Context, mark *CourtSchedule) error
	CreateInstructorSchedule(ctx context.Context, mark *InstructorSchedule) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to an open transaction so occupancy reads see
// courts assigned earlier in the same settlement.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) GetClubByID(ctx context.Context, id uuid.UUID) (*Club, error) {
	var club Club
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&club).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return &club, nil
}

func (r *repository) CreateClub(ctx context.Context, club *Club) error {
	if club.ID == uuid.Nil {
		club.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(club).Error
}

func (r *repository) CreateCourt(ctx context.Context, court *Court) error {
	if court.ID == uuid.Nil {
		court.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(court).Error
}

func (r *repository) CreateInstructor(ctx context.Context, instructor *Instructor) error {
	if instructor.ID == uuid.Nil {
		instructor.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(instructor).Error
}

func (r *repository) ListActiveCourts(ctx context.Context, clubID uuid.UUID) ([]Court, error) {
	var courts []Court
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND active = ?", clubID, true).
		Order("number ASC").
		Find(&courts).Error
	return courts, err
}

// OccupiedCourtNumbers returns the union of court numbers held by other slots
// and by schedule marks that strictly overlap [start, end).
func (r *repository) OccupiedCourtNumbers(ctx context.Context, clubID uuid.UUID, start, end time.Time) (map[int]bool, error) {
	occupied := make(map[int]bool)

	// Slots at this club already holding a court for an overlapping interval.
	var slotRows []struct {
		CourtNumber int `gorm:"column:court_number"`
	}
	err := r.db.WithContext(ctx).
		Table("slots").
		Select("court_number").
		Where("club_id = ?", clubID).
		Where("court_number IS NOT NULL").
		Where("status <> ?", "CANCELLED").
		Where("start_time < ? AND end_time > ?", end, start).
		Scan(&slotRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range slotRows {
		occupied[row.CourtNumber] = true
	}

	// Schedule marks flagged occupied for an overlapping interval.
	var marks []CourtSchedule
	err = r.db.WithContext(ctx).
		Where("club_id = ? AND occupied = ?", clubID, true).
		Where("start_time < ? AND end_time > ?", end, start).
		Find(&marks).Error
	if err != nil {
		return nil, err
	}
	for _, mark := range marks {
		occupied[mark.CourtNumber] = true
	}

	return occupied, nil
}

func (r *repository) CreateCourtSchedule(ctx context.Context, mark *CourtSchedule) error {
	if mark.ID == uuid.Nil {
		mark.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(mark).Error
}

func (r *repository) CreateInstructorSchedule(ctx context.Context, mark *InstructorSchedule) error {
	if mark.ID == uuid.Nil {
		mark.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(mark).Error
}
