package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the append-only persistence for ledger entries. There is
// deliberately no update or delete operation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *Entry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]Entry, error)
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

func (r *repository) Append(ctx context.Context, entry *Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("related_booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
