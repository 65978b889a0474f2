package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, booking *Booking) error
	Save(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ListActiveBySlot returns the slot's non-cancelled bookings in creation
	// order; this is the set the race evaluation counts over.
	ListActiveBySlot(ctx context.Context, slotID uuid.UUID) ([]Booking, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error)

	// HasActiveVariantEntry reports whether the user already holds a
	// non-cancelled booking for this exact (slot, group size).
	HasActiveVariantEntry(ctx context.Context, userID, slotID uuid.UUID, groupSize int) (bool, error)

	// HasConfirmedOnDay reports whether the user has a confirmed booking on
	// a slot starting within [dayStart, dayEnd), excluding the given slot.
	HasConfirmedOnDay(ctx context.Context, userID uuid.UUID, dayStart, dayEnd time.Time, excludeSlotID uuid.UUID) (bool, error)

	// HasActiveWithInstructorAt reports whether the user holds a pending or
	// confirmed booking on a different slot with the same instructor at the
	// exact same start time.
	HasActiveWithInstructorAt(ctx context.Context, userID, instructorID uuid.UUID, start time.Time, excludeSlotID uuid.UUID) (bool, error)

	// ListPendingByUserOnDay returns the user's pending bookings whose slot
	// starts within [dayStart, dayEnd), excluding the given slot. Feeds the
	// cascade canceller.
	ListPendingByUserOnDay(ctx context.Context, userID uuid.UUID, dayStart, dayEnd time.Time, excludeSlotID uuid.UUID) ([]Booking, error)
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

func (r *repository) Create(ctx context.Context, booking *Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) Save(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListActiveBySlot(ctx context.Context, slotID uuid.UUID) ([]Booking, error) {
	var result []Booking
	err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Where("status <> ?", StatusCancelled).
		Order("created_at ASC").
		Find(&result).Error
	return result, err
}

func (r *repository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]Booking, error) {
	var result []Booking
	err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("created_at ASC").
		Find(&result).Error
	return result, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var result []Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error
	return result, err
}

func (r *repository) HasActiveVariantEntry(ctx context.Context, userID, slotID uuid.UUID, groupSize int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("user_id = ? AND slot_id = ? AND group_size = ?", userID, slotID, groupSize).
		Where("status <> ?", StatusCancelled).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasConfirmedOnDay(ctx context.Context, userID uuid.UUID, dayStart, dayEnd time.Time, excludeSlotID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("bookings").
		Joins("JOIN slots ON slots.id = bookings.slot_id").
		Where("bookings.user_id = ?", userID).
		Where("bookings.status = ?", StatusConfirmed).
		Where("bookings.slot_id <> ?", excludeSlotID).
		Where("slots.start_time >= ? AND slots.start_time < ?", dayStart, dayEnd).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasActiveWithInstructorAt(ctx context.Context, userID, instructorID uuid.UUID, start time.Time, excludeSlotID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("bookings").
		Joins("JOIN slots ON slots.id = bookings.slot_id").
		Where("bookings.user_id = ?", userID).
		Where("bookings.status <> ?", StatusCancelled).
		Where("bookings.slot_id <> ?", excludeSlotID).
		Where("slots.instructor_id = ?", instructorID).
		Where("slots.start_time = ?", start).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListPendingByUserOnDay(ctx context.Context, userID uuid.UUID, dayStart, dayEnd time.Time, excludeSlotID uuid.UUID) ([]Booking, error) {
	var result []Booking
	err := r.db.WithContext(ctx).
		Joins("JOIN slots ON slots.id = bookings.slot_id").
		Where("bookings.user_id = ?", userID).
		Where("bookings.status = ?", StatusPending).
		Where("bookings.slot_id <> ?", excludeSlotID).
		Where("slots.start_time >= ? AND slots.start_time < ?", dayStart, dayEnd).
		Find(&result).Error
	return result, err
}
