package slots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSlotNotFound = errors.New("slot not found")

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, slot *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// GetByIDForUpdate locks the slot row for the duration of the enclosing
	// transaction. All count-and-decide work must go through this lock.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Slot, error)
	Save(ctx context.Context, slot *Slot) error
	ListByClubAndDay(ctx context.Context, clubID uuid.UUID, day time.Time) ([]Slot, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, slot *Slot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	var slot Slot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Slot, error) {
	var slot Slot
	query := r.db.WithContext(ctx)
	// Row locks are a postgres capability; the sqlite dialect used by tests
	// rejects FOR UPDATE, and single-connection sqlite serializes anyway.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *repository) Save(ctx context.Context, slot *Slot) error {
	return r.db.WithContext(ctx).Save(slot).Error
}

func (r *repository) ListByClubAndDay(ctx context.Context, clubID uuid.UUID, day time.Time) ([]Slot, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	var result []Slot
	err := r.db.WithContext(ctx).
		Where("club_id = ?", clubID).
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time ASC").
		Find(&result).Error
	return result, err
}
