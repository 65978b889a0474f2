package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"courtside/internal/clubs"
	"courtside/internal/slots"
	"courtside/internal/users"
	"courtside/internal/wallet"
	"courtside/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CascadeCanceller removes a user's other same-day pending bookings after one
// of their bookings confirms (to avoid a circular dependency the concrete
// implementation lives in the cancellation package).
type CascadeCanceller interface {
	CancelConflicts(ctx context.Context, userID, confirmedSlotID uuid.UUID) error
}

// EventPublisher publishes booking lifecycle events. Best-effort: failures
// are logged and never affect settlement.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]interface{}) error
}

// BookingResult is what the booking entry point returns to the caller.
type BookingResult struct {
	BookingID        uuid.UUID `json:"booking_id"`
	ClassComplete    bool      `json:"class_complete"`
	WinningGroupSize *int      `json:"winning_group_size,omitempty"`
	CourtAssigned    *int      `json:"court_assigned,omitempty"`
}

// Service is the booking settlement engine: admission, race resolution,
// confirmation and cancellation of bookings.
type Service interface {
	RequestBooking(ctx context.Context, userID uuid.UUID, req BookingRequest) (*BookingResult, error)
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) error
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error)
}

type service struct {
	db        *gorm.DB
	repo      Repository
	slotRepo  slots.Repository
	slotSvc   slots.Service
	clubRepo  clubs.Repository
	resolver  *clubs.AvailabilityResolver
	userRepo  users.Repository
	wallet    wallet.Manager
	cascade   CascadeCanceller
	publisher EventPublisher
	locker    *SlotLocker
	log       *logger.Logger
}

func NewService(
	db *gorm.DB,
	repo Repository,
	slotRepo slots.Repository,
	slotSvc slots.Service,
	clubRepo clubs.Repository,
	resolver *clubs.AvailabilityResolver,
	userRepo users.Repository,
	walletManager wallet.Manager,
	cascade CascadeCanceller,
	publisher EventPublisher,
	locker *SlotLocker,
) Service {
	return &service{
		db:        db,
		repo:      repo,
		slotRepo:  slotRepo,
		slotSvc:   slotSvc,
		clubRepo:  clubRepo,
		resolver:  resolver,
		userRepo:  userRepo,
		wallet:    walletManager,
		cascade:   cascade,
		publisher: publisher,
		locker:    locker,
		log:       logger.GetDefault(),
	}
}

// settlementOutcome collects the side work deferred until commit: successor
// spawning, cascade cancellations and event publishing must never roll back
// a settled booking.
type settlementOutcome struct {
	result       *BookingResult
	spawnParent  *slots.Slot
	winnerUsers  []uuid.UUID
	confirmedSlotID uuid.UUID
	events       []eventPayload
}

type eventPayload struct {
	eventType string
	payload   map[string]interface{}
}

// RequestBooking admits a booking request and settles the slot's group-size
// race if this admission completes a variant. The whole count-and-decide step
// runs inside one transaction holding the slot row lock, so two simultaneous
// admissions can never both believe they completed the same variant.
func (s *service) RequestBooking(ctx context.Context, userID uuid.UUID, req BookingRequest) (*BookingResult, error) {
	token, err := s.locker.Acquire(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.locker.Release(context.WithoutCancel(ctx), req.SlotID, token); releaseErr != nil {
			s.log.Warn("failed to release slot lock", slog.Any("error", releaseErr))
		}
	}()

	outcome := &settlementOutcome{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.settle(ctx, tx, userID, req, outcome)
	})
	if err != nil {
		return nil, err
	}

	s.runSideWork(ctx, outcome)
	return outcome.result, nil
}

func (s *service) settle(ctx context.Context, tx *gorm.DB, userID uuid.UUID, req BookingRequest, outcome *settlementOutcome) error {
	repo := s.repo.WithTx(tx)
	slotRepo := s.slotRepo.WithTx(tx)
	w := s.wallet.WithTx(tx)

	slot, err := slotRepo.GetByIDForUpdate(ctx, req.SlotID)
	if err != nil {
		return err
	}
	user, err := s.userRepo.WithTx(tx).GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if slot.IsCancelled() {
		return conflictf("slot %s is cancelled", slot.ID)
	}
	if req.GroupSize < 1 || req.GroupSize > slot.MaxPlayers {
		return conflictf("group size must be between 1 and %d", slot.MaxPlayers)
	}

	// A confirmed slot only admits points-paid claims on given-back spots.
	if slot.IsConfirmed() {
		return s.claimRecycledSpot(ctx, tx, user, slot, req, outcome)
	}

	if err := s.validateAdmission(ctx, repo, user, slot, req); err != nil {
		return err
	}

	price := slot.TotalPrice / int64(req.GroupSize)

	booking := &Booking{
		ID:            uuid.New(),
		UserID:        user.ID,
		SlotID:        slot.ID,
		GroupSize:     req.GroupSize,
		Status:        StatusPending,
		AmountBlocked: price,
	}

	if req.PayWithPoints {
		booking.PaidWithPoints = true
		booking.PointsUsed = w.PointsPrice(price)
		if err := w.CheckAvailablePoints(ctx, user.ID, booking.PointsUsed); err != nil {
			return err
		}
	} else {
		if err := w.CheckAvailableCredit(ctx, user.ID, price); err != nil {
			return err
		}
	}

	if err := repo.Create(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	concept := fmt.Sprintf("booking %dx slot %s", req.GroupSize, slot.ID)
	if booking.PaidWithPoints {
		err = w.BlockPoints(ctx, user.ID, booking.PointsUsed, concept, &booking.ID)
	} else {
		err = w.Block(ctx, user.ID, price, concept, &booking.ID)
	}
	if err != nil {
		return err
	}

	active, err := repo.ListActiveBySlot(ctx, slot.ID)
	if err != nil {
		return fmt.Errorf("failed to load slot bookings: %w", err)
	}

	// The slot's first booking fixes its category and level from the
	// booker's profile, and flags a successor slot to be spawned so a second
	// group can still form at this time.
	if len(active) == 1 && !slot.IsClassified() {
		if err := s.slotSvc.WithTx(tx).Classify(ctx, slot, user.Category(), user.Level); err != nil {
			return err
		}
		outcome.spawnParent = slot
	}

	outcome.result = &BookingResult{BookingID: booking.ID}
	outcome.events = append(outcome.events, eventPayload{
		eventType: "booking.created",
		payload: map[string]interface{}{
			"booking_id": booking.ID.String(),
			"user_id":    user.ID.String(),
			"slot_id":    slot.ID.String(),
			"group_size": req.GroupSize,
		},
	})

	winner, ok := winningVariant(active)
	if !ok {
		return nil
	}

	return s.confirmVariant(ctx, tx, slot, active, winner, outcome)
}

// validateSchedule enforces the day-level rules that hold for every admission
// path, recycled claims included: one confirmed booking per user per day, and
// no second slot with the same instructor at the same start.
func (s *service) validateSchedule(ctx context.Context, repo Repository, user *users.User, slot *slots.Slot) error {
	dayStart, dayEnd := dayBounds(slot.StartTime)

	confirmed, err := repo.HasConfirmedOnDay(ctx, user.ID, dayStart, dayEnd, slot.ID)
	if err != nil {
		return err
	}
	if confirmed {
		return conflictf("user already has a confirmed booking on %s", dayStart.Format("2006-01-02"))
	}

	if slot.InstructorID != nil {
		clash, err := repo.HasActiveWithInstructorAt(ctx, user.ID, *slot.InstructorID, slot.StartTime, slot.ID)
		if err != nil {
			return err
		}
		if clash {
			return conflictf("user already booked this instructor at %s", slot.StartTime.Format(time.RFC3339))
		}
	}
	return nil
}

// validateAdmission applies the admission business rules, cheapest first.
func (s *service) validateAdmission(ctx context.Context, repo Repository, user *users.User, slot *slots.Slot, req BookingRequest) error {
	if err := s.validateSchedule(ctx, repo, user, slot); err != nil {
		return err
	}

	duplicate, err := repo.HasActiveVariantEntry(ctx, user.ID, slot.ID, req.GroupSize)
	if err != nil {
		return err
	}
	if duplicate {
		return conflictf("user already holds a booking for this slot and group size")
	}

	active, err := repo.ListActiveBySlot(ctx, slot.ID)
	if err != nil {
		return err
	}
	variantCount := 0
	for _, b := range active {
		if b.GroupSize == req.GroupSize {
			variantCount++
		}
	}
	if variantCount >= req.GroupSize {
		return conflictf("group size %d is already full", req.GroupSize)
	}

	return nil
}

// winningVariant groups the active bookings by group size and returns the
// first variant, in ascending group-size order, whose count reached its own
// threshold. Ascending evaluation makes the smallest variant the
// deterministic winner when several thresholds are met at once.
func winningVariant(active []Booking) (int, bool) {
	counts := make(map[int]int)
	for _, b := range active {
		counts[b.GroupSize]++
	}

	sizes := make([]int, 0, len(counts))
	for size := range counts {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)

	for _, size := range sizes {
		if counts[size] >= size {
			return size, true
		}
	}
	return 0, false
}

// confirmVariant performs the confirmation for the winning group size: court
// assignment, charging winners, cancelling losers and marking calendars. When
// no court is free, everything stays pending and the slot remains open.
func (s *service) confirmVariant(ctx context.Context, tx *gorm.DB, slot *slots.Slot, active []Booking, winner int, outcome *settlementOutcome) error {
	repo := s.repo.WithTx(tx)
	slotRepo := s.slotRepo.WithTx(tx)
	w := s.wallet.WithTx(tx)

	court := 0
	if slot.CourtNumber != nil {
		court = *slot.CourtNumber
	} else {
		found := false
		var err error
		court, found, err = s.resolver.WithTx(tx).FindAvailableCourt(ctx, slot.ClubID, slot.StartTime, slot.EndTime)
		if err != nil {
			return fmt.Errorf("court lookup failed: %w", err)
		}
		if !found {
			// Not an error for the requester: bookings stay pending and a
			// later admission retries the confirmation.
			s.log.Warn("no court available, confirmation deferred",
				slog.String("slot_id", slot.ID.String()),
				slog.Int("group_size", winner),
			)
			return nil
		}
	}

	slot.CourtNumber = &court
	slot.Status = slots.StatusConfirmed
	slot.WinningGroupSize = &winner
	if err := slotRepo.Save(ctx, slot); err != nil {
		return fmt.Errorf("failed to confirm slot: %w", err)
	}

	for i := range active {
		booking := &active[i]
		if booking.GroupSize == winner {
			if err := s.chargeWinner(ctx, repo, w, booking, slot); err != nil {
				return err
			}
			outcome.winnerUsers = append(outcome.winnerUsers, booking.UserID)
			outcome.events = append(outcome.events, eventPayload{
				eventType: "booking.confirmed",
				payload: map[string]interface{}{
					"booking_id": booking.ID.String(),
					"user_id":    booking.UserID.String(),
					"slot_id":    slot.ID.String(),
					"court":      court,
				},
			})
		} else {
			if err := s.cancelLoser(ctx, repo, w, booking, slot); err != nil {
				return err
			}
			outcome.events = append(outcome.events, eventPayload{
				eventType: "booking.cancelled",
				payload: map[string]interface{}{
					"booking_id": booking.ID.String(),
					"user_id":    booking.UserID.String(),
					"slot_id":    slot.ID.String(),
					"reason":     ReasonLostRace,
				},
			})
		}
	}

	if err := s.markCalendars(ctx, tx, slot, court); err != nil {
		return err
	}

	outcome.confirmedSlotID = slot.ID
	if outcome.result == nil {
		outcome.result = &BookingResult{}
	}
	outcome.result.ClassComplete = true
	outcome.result.WinningGroupSize = &winner
	outcome.result.CourtAssigned = &court
	return nil
}

// chargeWinner marks the booking confirmed before charging so the amount
// drops out of the pending sum the recompute reads.
func (s *service) chargeWinner(ctx context.Context, repo Repository, w wallet.Manager, booking *Booking, slot *slots.Slot) error {
	booking.Confirm()
	if err := repo.Save(ctx, booking); err != nil {
		return fmt.Errorf("failed to confirm booking %s: %w", booking.ID, err)
	}

	concept := fmt.Sprintf("slot %s confirmed", slot.ID)
	if booking.PaidWithPoints {
		// The block on these points lifts with the status change; refresh
		// before the spend's availability check.
		if err := w.RecomputeBlocked(ctx, booking.UserID); err != nil {
			return err
		}
		return w.SpendPoints(ctx, booking.UserID, booking.PointsUsed, concept, &booking.ID)
	}
	return w.Charge(ctx, booking.UserID, booking.AmountBlocked, concept, &booking.ID)
}

// cancelLoser settles a booking on a losing variant: a previously confirmed
// loser is compensated in points, a pending one is simply unblocked.
func (s *service) cancelLoser(ctx context.Context, repo Repository, w wallet.Manager, booking *Booking, slot *slots.Slot) error {
	wasConfirmed := booking.IsConfirmed()
	booking.Cancel(ReasonLostRace)
	if err := repo.Save(ctx, booking); err != nil {
		return fmt.Errorf("failed to cancel losing booking %s: %w", booking.ID, err)
	}

	concept := fmt.Sprintf("slot %s: %s", slot.ID, ReasonLostRace)
	switch {
	case wasConfirmed:
		return w.GrantPoints(ctx, booking.UserID, w.CompensationPoints(booking.AmountBlocked), concept, &booking.ID)
	case booking.PaidWithPoints:
		return w.UnblockPoints(ctx, booking.UserID, booking.PointsUsed, concept, &booking.ID)
	default:
		return w.Unblock(ctx, booking.UserID, booking.AmountBlocked, concept, &booking.ID)
	}
}

func (s *service) markCalendars(ctx context.Context, tx *gorm.DB, slot *slots.Slot, court int) error {
	clubRepo := s.clubRepo.WithTx(tx)

	mark := &clubs.CourtSchedule{
		ClubID:      slot.ClubID,
		CourtNumber: court,
		SlotID:      slot.ID,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Occupied:    true,
	}
	if err := clubRepo.CreateCourtSchedule(ctx, mark); err != nil {
		return fmt.Errorf("failed to mark court schedule: %w", err)
	}

	if slot.InstructorID != nil {
		instructorMark := &clubs.InstructorSchedule{
			ClubID:       slot.ClubID,
			InstructorID: *slot.InstructorID,
			SlotID:       slot.ID,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
			Occupied:     true,
		}
		if err := clubRepo.CreateInstructorSchedule(ctx, instructorMark); err != nil {
			return fmt.Errorf("failed to mark instructor schedule: %w", err)
		}
	}
	return nil
}

// claimRecycledSpot admits a points-only booking onto an already-confirmed
// slot when a confirmed player gave their spot back. The claim confirms
// immediately: the race is long settled.
func (s *service) claimRecycledSpot(ctx context.Context, tx *gorm.DB, user *users.User, slot *slots.Slot, req BookingRequest, outcome *settlementOutcome) error {
	repo := s.repo.WithTx(tx)
	w := s.wallet.WithTx(tx)

	if !req.PayWithPoints {
		return conflictf("slot %s is already confirmed; only recycled spots can be claimed, with points", slot.ID)
	}
	if slot.WinningGroupSize == nil {
		return conflictf("slot %s is confirmed without a winning group size", slot.ID)
	}
	if err := s.validateSchedule(ctx, repo, user, slot); err != nil {
		return err
	}

	all, err := repo.ListBySlot(ctx, slot.ID)
	if err != nil {
		return err
	}

	// Open spots: confirmed give-backs not yet reclaimed.
	gaveBack, reclaimed := 0, 0
	for _, b := range all {
		if b.GaveBack && b.IsCancelled() {
			gaveBack++
		}
		if b.IsRecycled && !b.IsCancelled() {
			reclaimed++
		}
		if b.UserID == user.ID && !b.IsCancelled() {
			return conflictf("user already holds a booking for this slot")
		}
	}
	if gaveBack-reclaimed <= 0 {
		return conflictf("no recycled spot open on slot %s", slot.ID)
	}

	price := slot.TotalPrice / int64(*slot.WinningGroupSize)
	points := w.PointsPrice(price)

	booking := &Booking{
		ID:             uuid.New(),
		UserID:         user.ID,
		SlotID:         slot.ID,
		GroupSize:      *slot.WinningGroupSize,
		Status:         StatusConfirmed,
		AmountBlocked:  price,
		PaidWithPoints: true,
		PointsUsed:     points,
		IsRecycled:     true,
	}
	if err := repo.Create(ctx, booking); err != nil {
		return fmt.Errorf("failed to create recycled booking: %w", err)
	}

	concept := fmt.Sprintf("recycled spot on slot %s", slot.ID)
	if err := w.SpendPoints(ctx, user.ID, points, concept, &booking.ID); err != nil {
		return err
	}

	court := 0
	if slot.CourtNumber != nil {
		court = *slot.CourtNumber
	}
	outcome.result = &BookingResult{
		BookingID:        booking.ID,
		ClassComplete:    true,
		WinningGroupSize: slot.WinningGroupSize,
		CourtAssigned:    slot.CourtNumber,
	}
	outcome.winnerUsers = append(outcome.winnerUsers, user.ID)
	outcome.confirmedSlotID = slot.ID
	outcome.events = append(outcome.events, eventPayload{
		eventType: "booking.confirmed",
		payload: map[string]interface{}{
			"booking_id": booking.ID.String(),
			"user_id":    user.ID.String(),
			"slot_id":    slot.ID.String(),
			"court":      court,
			"recycled":   true,
		},
	})
	return nil
}

// runSideWork executes the best-effort follow-ups of a committed settlement.
// Failures here are logged and swallowed: the booking outcome already holds.
func (s *service) runSideWork(ctx context.Context, outcome *settlementOutcome) {
	if outcome.spawnParent != nil {
		if _, err := s.slotSvc.SpawnSuccessor(ctx, outcome.spawnParent); err != nil {
			s.log.Warn("failed to spawn successor slot",
				slog.String("slot_id", outcome.spawnParent.ID.String()),
				slog.Any("error", err),
			)
		}
	}

	if s.cascade != nil {
		for _, winnerID := range outcome.winnerUsers {
			if err := s.cascade.CancelConflicts(ctx, winnerID, outcome.confirmedSlotID); err != nil {
				s.log.Warn("cascade cancellation failed",
					slog.String("user_id", winnerID.String()),
					slog.Any("error", err),
				)
			}
		}
	}

	if s.publisher != nil {
		for _, event := range outcome.events {
			if err := s.publisher.Publish(ctx, event.eventType, event.payload); err != nil {
				s.log.Warn("failed to publish booking event",
					slog.String("event", event.eventType),
					slog.Any("error", err),
				)
			}
		}
	}
}

// CancelBooking handles a player-initiated cancellation: a pending booking is
// released in full, a confirmed one becomes a give-back with compensation
// points and opens a recycled spot.
func (s *service) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) error {
	var event *eventPayload
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		w := s.wallet.WithTx(tx)

		booking, err := repo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return conflictf("booking does not belong to user")
		}
		if booking.IsCancelled() {
			return conflictf("booking is already cancelled")
		}

		switch {
		case booking.IsPending():
			booking.Cancel(ReasonUserCancelled)
			if err := repo.Save(ctx, booking); err != nil {
				return err
			}
			concept := fmt.Sprintf("booking cancelled on slot %s", booking.SlotID)
			if booking.PaidWithPoints {
				if err := w.UnblockPoints(ctx, userID, booking.PointsUsed, concept, &booking.ID); err != nil {
					return err
				}
			} else {
				if err := w.Unblock(ctx, userID, booking.AmountBlocked, concept, &booking.ID); err != nil {
					return err
				}
			}

		default: // confirmed: voluntary give-back
			booking.GaveBack = true
			booking.Cancel(ReasonGaveBack)
			if err := repo.Save(ctx, booking); err != nil {
				return err
			}
			concept := fmt.Sprintf("spot given back on slot %s", booking.SlotID)
			compensation := booking.PointsUsed
			if !booking.PaidWithPoints {
				compensation = w.CompensationPoints(booking.AmountBlocked)
			}
			if err := w.GrantPoints(ctx, userID, compensation, concept, &booking.ID); err != nil {
				return err
			}
		}

		event = &eventPayload{
			eventType: "booking.cancelled",
			payload: map[string]interface{}{
				"booking_id": booking.ID.String(),
				"user_id":    userID.String(),
				"slot_id":    booking.SlotID.String(),
				"reason":     booking.CancelReason,
			},
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.publisher != nil && event != nil {
		if pubErr := s.publisher.Publish(ctx, event.eventType, event.payload); pubErr != nil {
			s.log.Warn("failed to publish booking event", slog.Any("error", pubErr))
		}
	}
	return nil
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) GetUserBookings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// dayBounds returns the local midnight-to-midnight interval containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.Add(24 * time.Hour)
}
