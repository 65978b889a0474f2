package cancellation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courtside/internal/bookings"
	"courtside/internal/slots"
	"courtside/internal/wallet"
	"courtside/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service cancels the pending bookings a confirmed booking makes obsolete:
// once a player is locked into a class on a given day, their other pending
// options for that day are withdrawn and their blocks released.
type Service struct {
	db          *gorm.DB
	bookingRepo bookings.Repository
	slotRepo    slots.Repository
	wallet      wallet.Manager
	log         *logger.Logger
}

func NewService(db *gorm.DB, bookingRepo bookings.Repository, slotRepo slots.Repository, walletManager wallet.Manager) *Service {
	return &Service{
		db:          db,
		bookingRepo: bookingRepo,
		slotRepo:    slotRepo,
		wallet:      walletManager,
		log:         logger.GetDefault(),
	}
}

// CancelConflicts runs in its own transaction, after the confirming
// transaction committed. It finds the user's pending bookings on the same
// day as the confirmed slot and cancels them one by one, releasing credit or
// point blocks. Each cancellation is independent: one failure does not stop
// the rest.
func (s *Service) CancelConflicts(ctx context.Context, userID, confirmedSlotID uuid.UUID) error {
	confirmedSlot, err := s.slotRepo.GetByID(ctx, confirmedSlotID)
	if err != nil {
		return fmt.Errorf("failed to load confirmed slot: %w", err)
	}

	dayStart, dayEnd := dayBounds(confirmedSlot.StartTime)
	pending, err := s.bookingRepo.ListPendingByUserOnDay(ctx, userID, dayStart, dayEnd, confirmedSlotID)
	if err != nil {
		return fmt.Errorf("failed to list pending bookings: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var failures int
	for i := range pending {
		if err := s.cancelOne(ctx, &pending[i]); err != nil {
			failures++
			s.log.Warn("failed to cancel conflicting booking",
				slog.String("booking_id", pending[i].ID.String()),
				slog.Any("error", err),
			)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d conflicting bookings could not be cancelled", failures, len(pending))
	}

	s.log.Info("cascade cancelled conflicting bookings",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(pending)),
	)
	return nil
}

func (s *Service) cancelOne(ctx context.Context, booking *bookings.Booking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.bookingRepo.WithTx(tx)
		w := s.wallet.WithTx(tx)

		// Re-read inside the transaction: the booking may have settled in
		// the meantime.
		current, err := repo.GetByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return nil
		}

		current.Cancel(bookings.ReasonSameDayConflict)
		if err := repo.Save(ctx, current); err != nil {
			return err
		}

		concept := fmt.Sprintf("slot %s: %s", current.SlotID, bookings.ReasonSameDayConflict)
		if current.PaidWithPoints {
			return w.UnblockPoints(ctx, current.UserID, current.PointsUsed, concept, &current.ID)
		}
		return w.Unblock(ctx, current.UserID, current.AmountBlocked, concept, &current.ID)
	})
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.Add(24 * time.Hour)
}
