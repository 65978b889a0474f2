package bookings_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"courtside/internal/bookings"
	"courtside/internal/cancellation"
	"courtside/internal/clubs"
	"courtside/internal/ledger"
	"courtside/internal/slots"
	"courtside/internal/users"
	"courtside/internal/wallet"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEngine struct {
	db       *gorm.DB
	service  bookings.Service
	repo     bookings.Repository
	slotRepo slots.Repository
	slotSvc  slots.Service
	userRepo users.Repository
	clubRepo clubs.Repository
	wallet   wallet.Manager
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&users.User{},
		&clubs.Club{},
		&clubs.Court{},
		&clubs.Instructor{},
		&clubs.CourtSchedule{},
		&clubs.InstructorSchedule{},
		&slots.Slot{},
		&bookings.Booking{},
		&ledger.Entry{},
	))

	bookingRepo := bookings.NewRepository(db)
	slotRepo := slots.NewRepository(db)
	slotSvc := slots.NewService(slotRepo)
	clubRepo := clubs.NewRepository(db)
	resolver := clubs.NewAvailabilityResolver(clubRepo)
	userRepo := users.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	walletManager := wallet.NewManager(db, ledgerRepo, 100, 1)
	canceller := cancellation.NewService(db, bookingRepo, slotRepo, walletManager)
	locker := bookings.NewSlotLocker(nil, 0)

	service := bookings.NewService(
		db, bookingRepo, slotRepo, slotSvc, clubRepo, resolver,
		userRepo, walletManager, canceller, nil, locker,
	)

	return &testEngine{
		db:       db,
		service:  service,
		repo:     bookingRepo,
		slotRepo: slotRepo,
		slotSvc:  slotSvc,
		userRepo: userRepo,
		clubRepo: clubRepo,
		wallet:   walletManager,
	}
}

func (e *testEngine) createClub(t *testing.T, courts int) uuid.UUID {
	t.Helper()
	club := &clubs.Club{ID: uuid.New(), Name: "Test Club"}
	require.NoError(t, e.db.Create(club).Error)
	for number := 1; number <= courts; number++ {
		require.NoError(t, e.db.Create(&clubs.Court{
			ID:     uuid.New(),
			ClubID: club.ID,
			Number: number,
			Active: true,
		}).Error)
	}
	return club.ID
}

func (e *testEngine) createUser(t *testing.T, credit, points int64) *users.User {
	t.Helper()
	user := &users.User{
		ID:     uuid.New(),
		Name:   "Player",
		Email:  fmt.Sprintf("%s@test.local", uuid.NewString()[:8]),
		Role:   users.RolePlayer,
		Gender: users.GenderFemale,
		Level:  "B",
		Credit: credit,
		Points: points,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEngine) createSlot(t *testing.T, clubID uuid.UUID, price int64, start time.Time) *slots.Slot {
	t.Helper()
	slot := &slots.Slot{
		ID:         uuid.New(),
		ClubID:     clubID,
		Kind:       slots.KindClass,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		TotalPrice: price,
		Category:   slots.CategoryOpen,
		Level:      slots.LevelOpen,
		MaxPlayers: 4,
		Status:     slots.StatusOpen,
	}
	require.NoError(t, e.db.Create(slot).Error)
	return slot
}

func (e *testEngine) createInstructor(t *testing.T, clubID uuid.UUID) uuid.UUID {
	t.Helper()
	instructor := &clubs.Instructor{ID: uuid.New(), ClubID: clubID, Name: "Coach"}
	require.NoError(t, e.db.Create(instructor).Error)
	return instructor.ID
}

func (e *testEngine) createInstructorSlot(t *testing.T, clubID, instructorID uuid.UUID, price int64, start time.Time) *slots.Slot {
	t.Helper()
	slot := e.createSlot(t, clubID, price, start)
	slot.InstructorID = &instructorID
	require.NoError(t, e.db.Save(slot).Error)
	return slot
}

// occupyCourt writes an external calendar mark so the court is not free for
// the given interval.
func (e *testEngine) occupyCourt(t *testing.T, clubID uuid.UUID, court int, start, end time.Time) uuid.UUID {
	t.Helper()
	mark := &clubs.CourtSchedule{
		ID:          uuid.New(),
		ClubID:      clubID,
		CourtNumber: court,
		SlotID:      uuid.New(),
		StartTime:   start,
		EndTime:     end,
		Occupied:    true,
	}
	require.NoError(t, e.db.Create(mark).Error)
	return mark.ID
}

func (e *testEngine) reloadBooking(t *testing.T, id uuid.UUID) *bookings.Booking {
	t.Helper()
	booking, err := e.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return booking
}

func (e *testEngine) reloadUser(t *testing.T, id uuid.UUID) *users.User {
	t.Helper()
	user, err := e.userRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func (e *testEngine) reloadSlot(t *testing.T, id uuid.UUID) *slots.Slot {
	t.Helper()
	slot, err := e.slotRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return slot
}

func tomorrowAt(hour int) time.Time {
	d := time.Now().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.Local)
}

func TestSoloBookingConfirmsImmediately(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 2)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	result, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{
		SlotID:    slot.ID,
		GroupSize: 1,
	})
	require.NoError(t, err)
	require.True(t, result.ClassComplete)
	require.NotNil(t, result.WinningGroupSize)
	assert.Equal(t, 1, *result.WinningGroupSize)
	require.NotNil(t, result.CourtAssigned)
	assert.Equal(t, 1, *result.CourtAssigned)

	booking := e.reloadBooking(t, result.BookingID)
	assert.Equal(t, bookings.StatusConfirmed, booking.Status)
	assert.Equal(t, int64(60_00), booking.AmountBlocked)

	reloaded := e.reloadUser(t, user.ID)
	assert.Equal(t, int64(40_00), reloaded.Credit)
	assert.Zero(t, reloaded.BlockedCredit)

	confirmed := e.reloadSlot(t, slot.ID)
	assert.Equal(t, slots.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.CourtNumber)
	assert.Equal(t, 1, *confirmed.CourtNumber)
}

func TestGroupVariantConfirmsWhenCountReachesSize(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 2)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))

	alice := e.createUser(t, 100_00, 0)
	bob := e.createUser(t, 100_00, 0)
	carol := e.createUser(t, 100_00, 0)

	// Carol bets on a group of three, Alice and Bob on a pair.
	resCarol, err := e.service.RequestBooking(ctx, carol.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 3})
	require.NoError(t, err)
	assert.False(t, resCarol.ClassComplete)

	resAlice, err := e.service.RequestBooking(ctx, alice.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)
	assert.False(t, resAlice.ClassComplete)

	resBob, err := e.service.RequestBooking(ctx, bob.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)
	require.True(t, resBob.ClassComplete)
	assert.Equal(t, 2, *resBob.WinningGroupSize)

	// Winners pay half the slot price each.
	for _, winner := range []*users.User{alice, bob} {
		reloaded := e.reloadUser(t, winner.ID)
		assert.Equal(t, int64(70_00), reloaded.Credit)
		assert.Zero(t, reloaded.BlockedCredit)
	}

	// Carol lost the race: booking cancelled, nothing charged, block lifted.
	lost := e.reloadBooking(t, resCarol.BookingID)
	assert.Equal(t, bookings.StatusCancelled, lost.Status)
	assert.Equal(t, bookings.ReasonLostRace, lost.CancelReason)

	reloadedCarol := e.reloadUser(t, carol.ID)
	assert.Equal(t, int64(100_00), reloadedCarol.Credit)
	assert.Zero(t, reloadedCarol.BlockedCredit)
}

func TestNoCourtLeavesEverythingPending(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	e.occupyCourt(t, clubID, 1, slot.StartTime, slot.EndTime)

	user := e.createUser(t, 100_00, 0)
	result, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 1})
	require.NoError(t, err)
	assert.False(t, result.ClassComplete)
	assert.Nil(t, result.CourtAssigned)

	booking := e.reloadBooking(t, result.BookingID)
	assert.Equal(t, bookings.StatusPending, booking.Status)

	reloaded := e.reloadUser(t, user.ID)
	assert.Equal(t, int64(100_00), reloaded.Credit)
	assert.Equal(t, int64(60_00), reloaded.BlockedCredit)

	open := e.reloadSlot(t, slot.ID)
	assert.Equal(t, slots.StatusOpen, open.Status)
}

func TestLaterAdmissionRetriesDeferredConfirmation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	markID := e.occupyCourt(t, clubID, 1, slot.StartTime, slot.EndTime)

	first := e.createUser(t, 100_00, 0)
	second := e.createUser(t, 100_00, 0)

	// The pair fills while no court is free, so it stays pending.
	_, err := e.service.RequestBooking(ctx, first.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)
	res, err := e.service.RequestBooking(ctx, second.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)
	assert.False(t, res.ClassComplete)

	require.NoError(t, e.db.Delete(&clubs.CourtSchedule{}, "id = ?", markID).Error)

	// The next admission finds the pair complete and a court free.
	third := e.createUser(t, 100_00, 0)
	res, err = e.service.RequestBooking(ctx, third.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 3})
	require.NoError(t, err)
	require.True(t, res.ClassComplete)
	assert.Equal(t, 2, *res.WinningGroupSize)

	// The triggering booking itself lost to the pair.
	own := e.reloadBooking(t, res.BookingID)
	assert.Equal(t, bookings.StatusCancelled, own.Status)
	assert.Equal(t, bookings.ReasonLostRace, own.CancelReason)
	reloadedThird := e.reloadUser(t, third.ID)
	assert.Equal(t, int64(100_00), reloadedThird.Credit)
	assert.Zero(t, reloadedThird.BlockedCredit)
}

func TestSmallestCompleteVariantWins(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	markID := e.occupyCourt(t, clubID, 1, slot.StartTime, slot.EndTime)

	trio := []*users.User{
		e.createUser(t, 100_00, 0),
		e.createUser(t, 100_00, 0),
		e.createUser(t, 100_00, 0),
	}
	pair := []*users.User{
		e.createUser(t, 100_00, 0),
		e.createUser(t, 100_00, 0),
	}

	// Both variants complete while the court is taken.
	for _, u := range trio {
		_, err := e.service.RequestBooking(ctx, u.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 3})
		require.NoError(t, err)
	}
	for _, u := range pair {
		res, err := e.service.RequestBooking(ctx, u.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
		require.NoError(t, err)
		assert.False(t, res.ClassComplete)
	}

	require.NoError(t, e.db.Delete(&clubs.CourtSchedule{}, "id = ?", markID).Error)

	// With the court free, the next admission settles the race. The pair
	// wins over the trio because it is the smaller complete variant.
	late := e.createUser(t, 100_00, 0)
	res, err := e.service.RequestBooking(ctx, late.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 4})
	require.NoError(t, err)
	require.True(t, res.ClassComplete)
	assert.Equal(t, 2, *res.WinningGroupSize)

	for _, u := range pair {
		reloaded := e.reloadUser(t, u.ID)
		assert.Equal(t, int64(70_00), reloaded.Credit)
	}
	for _, u := range trio {
		reloaded := e.reloadUser(t, u.ID)
		assert.Equal(t, int64(100_00), reloaded.Credit)
		assert.Zero(t, reloaded.BlockedCredit)
	}
}

func TestInsufficientCreditRejectsAdmission(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 40_00, tomorrowAt(10))
	user := e.createUser(t, 15_00, 0)

	// Per-player share is 20.00 against 15.00 available.
	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	// Shortfall detail is reported in major currency units.
	var insufficient *wallet.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(20), insufficient.Required)
	assert.Equal(t, int64(15), insufficient.Available)
	assert.Equal(t, int64(5), insufficient.Missing())

	// The rejected attempt left no booking behind.
	list, err := e.repo.ListBySlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDuplicateVariantEntryRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)

	_, err = e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)
}

func TestSameUserMayEnterSeveralVariants(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)
	_, err = e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 3})
	require.NoError(t, err)

	// Both blocks count against the same wallet.
	reloaded := e.reloadUser(t, user.ID)
	assert.Equal(t, int64(30_00+20_00), reloaded.BlockedCredit)
}

func TestFullVariantRejectsNewEntry(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	e.occupyCourt(t, clubID, 1, slot.StartTime, slot.EndTime)

	for i := 0; i < 3; i++ {
		u := e.createUser(t, 100_00, 0)
		_, err := e.service.RequestBooking(ctx, u.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 3})
		require.NoError(t, err)
	}

	extra := e.createUser(t, 100_00, 0)
	_, err := e.service.RequestBooking(ctx, extra.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)
}

func TestConfirmedBookingBlocksSameDaySecond(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 2)
	morning := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	evening := e.createSlot(t, clubID, 60_00, tomorrowAt(18))
	user := e.createUser(t, 300_00, 0)

	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: morning.ID, GroupSize: 1})
	require.NoError(t, err)

	_, err = e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: evening.ID, GroupSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)
}

func TestSameInstructorSameStartRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 2)
	instructorID := e.createInstructor(t, clubID)
	first := e.createInstructorSlot(t, clubID, instructorID, 60_00, tomorrowAt(10))
	second := e.createInstructorSlot(t, clubID, instructorID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 300_00, 0)

	// A pending entry is enough to tie the user to the instructor's hour.
	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: first.ID, GroupSize: 2})
	require.NoError(t, err)

	_, err = e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: second.ID, GroupSize: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)

	// A different starting hour with the same instructor is fine.
	later := e.createInstructorSlot(t, clubID, instructorID, 60_00, tomorrowAt(12))
	_, err = e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: later.ID, GroupSize: 2})
	require.NoError(t, err)
}

func TestConfirmationMarksInstructorCalendar(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	instructorID := e.createInstructor(t, clubID)
	slot := e.createInstructorSlot(t, clubID, instructorID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	res, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 1})
	require.NoError(t, err)
	require.True(t, res.ClassComplete)

	var courtMarks []clubs.CourtSchedule
	require.NoError(t, e.db.Where("slot_id = ?", slot.ID).Find(&courtMarks).Error)
	require.Len(t, courtMarks, 1)
	assert.True(t, courtMarks[0].Occupied)

	var instructorMarks []clubs.InstructorSchedule
	require.NoError(t, e.db.Where("slot_id = ?", slot.ID).Find(&instructorMarks).Error)
	require.Len(t, instructorMarks, 1)
	assert.Equal(t, instructorID, instructorMarks[0].InstructorID)
	assert.Equal(t, slot.StartTime.Unix(), instructorMarks[0].StartTime.Unix())
}

func TestConfirmationCascadesSameDayPendings(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 2)
	morning := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	evening := e.createSlot(t, clubID, 60_00, tomorrowAt(18))
	user := e.createUser(t, 300_00, 0)

	// A pending bet on the evening pair first.
	pendingRes, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: evening.ID, GroupSize: 2})
	require.NoError(t, err)

	// Then a solo morning booking that confirms immediately.
	res, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: morning.ID, GroupSize: 1})
	require.NoError(t, err)
	require.True(t, res.ClassComplete)

	cancelled := e.reloadBooking(t, pendingRes.BookingID)
	assert.Equal(t, bookings.StatusCancelled, cancelled.Status)
	assert.Equal(t, bookings.ReasonSameDayConflict, cancelled.CancelReason)

	reloaded := e.reloadUser(t, user.ID)
	assert.Equal(t, int64(240_00), reloaded.Credit)
	assert.Zero(t, reloaded.BlockedCredit)
}

func TestFirstBookingClassifiesSlotAndSpawnsSuccessor(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 2)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)

	classified := e.reloadSlot(t, slot.ID)
	assert.Equal(t, "femenino", classified.Category)
	assert.Equal(t, "B", classified.Level)

	var successors []slots.Slot
	require.NoError(t, e.db.Where("parent_slot_id = ?", slot.ID).Find(&successors).Error)
	require.Len(t, successors, 1)
	assert.Equal(t, slots.CategoryOpen, successors[0].Category)
	assert.Equal(t, slots.StatusOpen, successors[0].Status)
	assert.Nil(t, successors[0].CourtNumber)

	// A second booking on the same slot spawns nothing more.
	other := e.createUser(t, 100_00, 0)
	_, err = e.service.RequestBooking(ctx, other.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 3})
	require.NoError(t, err)
	require.NoError(t, e.db.Where("parent_slot_id = ?", slot.ID).Find(&successors).Error)
	assert.Len(t, successors, 1)
}

func TestPayWithPointsFlow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 0, 100)

	res, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{
		SlotID:        slot.ID,
		GroupSize:     1,
		PayWithPoints: true,
	})
	require.NoError(t, err)
	require.True(t, res.ClassComplete)

	booking := e.reloadBooking(t, res.BookingID)
	assert.True(t, booking.PaidWithPoints)
	assert.Equal(t, int64(60), booking.PointsUsed)

	reloaded := e.reloadUser(t, user.ID)
	assert.Equal(t, int64(40), reloaded.Points)
	assert.Zero(t, reloaded.BlockedPoints)
	assert.Zero(t, reloaded.Credit)
}

func TestPendingSelfCancellationReleasesBlock(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	res, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)

	require.NoError(t, e.service.CancelBooking(ctx, res.BookingID, user.ID))

	booking := e.reloadBooking(t, res.BookingID)
	assert.Equal(t, bookings.StatusCancelled, booking.Status)
	assert.Equal(t, bookings.ReasonUserCancelled, booking.CancelReason)
	assert.False(t, booking.GaveBack)

	reloaded := e.reloadUser(t, user.ID)
	assert.Equal(t, int64(100_00), reloaded.Credit)
	assert.Zero(t, reloaded.BlockedCredit)
}

func TestGiveBackGrantsCompensationAndOpensRecycledSpot(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	owner := e.createUser(t, 100_00, 0)

	res, err := e.service.RequestBooking(ctx, owner.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 1})
	require.NoError(t, err)
	require.True(t, res.ClassComplete)

	require.NoError(t, e.service.CancelBooking(ctx, res.BookingID, owner.ID))

	gaveBack := e.reloadBooking(t, res.BookingID)
	assert.Equal(t, bookings.StatusCancelled, gaveBack.Status)
	assert.True(t, gaveBack.GaveBack)

	// No money back, compensation in points instead.
	reloadedOwner := e.reloadUser(t, owner.ID)
	assert.Equal(t, int64(40_00), reloadedOwner.Credit)
	assert.Equal(t, int64(60), reloadedOwner.Points)

	// The slot stays confirmed and a points claim takes the freed spot.
	claimer := e.createUser(t, 0, 80)
	claimRes, err := e.service.RequestBooking(ctx, claimer.ID, bookings.BookingRequest{
		SlotID:        slot.ID,
		GroupSize:     1,
		PayWithPoints: true,
	})
	require.NoError(t, err)
	require.True(t, claimRes.ClassComplete)

	claim := e.reloadBooking(t, claimRes.BookingID)
	assert.Equal(t, bookings.StatusConfirmed, claim.Status)
	assert.True(t, claim.IsRecycled)
	assert.Equal(t, int64(60), claim.PointsUsed)

	reloadedClaimer := e.reloadUser(t, claimer.ID)
	assert.Equal(t, int64(20), reloadedClaimer.Points)

	// Only one spot was given back; a second claim finds nothing.
	late := e.createUser(t, 0, 200)
	_, err = e.service.RequestBooking(ctx, late.ID, bookings.BookingRequest{
		SlotID:        slot.ID,
		GroupSize:     1,
		PayWithPoints: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)
}

func TestRecycledClaimBlockedBySameDayConfirmed(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 2)
	morning := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	evening := e.createSlot(t, clubID, 60_00, tomorrowAt(18))

	owner := e.createUser(t, 100_00, 0)
	res, err := e.service.RequestBooking(ctx, owner.ID, bookings.BookingRequest{SlotID: evening.ID, GroupSize: 1})
	require.NoError(t, err)
	require.NoError(t, e.service.CancelBooking(ctx, res.BookingID, owner.ID))

	// The claimer already holds a confirmed booking that day; the freed spot
	// does not exempt them from the one-confirmed-per-day rule.
	claimer := e.createUser(t, 100_00, 200)
	_, err = e.service.RequestBooking(ctx, claimer.ID, bookings.BookingRequest{SlotID: morning.ID, GroupSize: 1})
	require.NoError(t, err)

	_, err = e.service.RequestBooking(ctx, claimer.ID, bookings.BookingRequest{
		SlotID:        evening.ID,
		GroupSize:     1,
		PayWithPoints: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)

	// The spot stays open for an unencumbered claimer.
	other := e.createUser(t, 0, 200)
	claimRes, err := e.service.RequestBooking(ctx, other.ID, bookings.BookingRequest{
		SlotID:        evening.ID,
		GroupSize:     1,
		PayWithPoints: true,
	})
	require.NoError(t, err)
	claim := e.reloadBooking(t, claimRes.BookingID)
	assert.Equal(t, bookings.StatusConfirmed, claim.Status)
	assert.True(t, claim.IsRecycled)
}

func TestRecycledClaimRequiresPoints(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	owner := e.createUser(t, 100_00, 0)

	res, err := e.service.RequestBooking(ctx, owner.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 1})
	require.NoError(t, err)
	require.NoError(t, e.service.CancelBooking(ctx, res.BookingID, owner.ID))

	claimer := e.createUser(t, 500_00, 0)
	_, err = e.service.RequestBooking(ctx, claimer.ID, bookings.BookingRequest{
		SlotID:    slot.ID,
		GroupSize: 1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)
}

func TestCancelSomeoneElsesBookingRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	owner := e.createUser(t, 100_00, 0)
	intruder := e.createUser(t, 100_00, 0)

	res, err := e.service.RequestBooking(ctx, owner.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)

	err = e.service.CancelBooking(ctx, res.BookingID, intruder.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)

	// The booking is untouched.
	booking := e.reloadBooking(t, res.BookingID)
	assert.Equal(t, bookings.StatusPending, booking.Status)
}

func TestCancelAlreadyCancelledRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	res, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 2})
	require.NoError(t, err)
	require.NoError(t, e.service.CancelBooking(ctx, res.BookingID, user.ID))

	err = e.service.CancelBooking(ctx, res.BookingID, user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)
}

func TestBookingOnCancelledSlotRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	require.NoError(t, e.db.Model(&slots.Slot{}).Where("id = ?", slot.ID).
		Update("status", slots.StatusCancelled).Error)

	user := e.createUser(t, 100_00, 0)
	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: slot.ID, GroupSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookings.ErrConflict)
}

func TestUnknownSlotAndUser(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	clubID := e.createClub(t, 1)
	slot := e.createSlot(t, clubID, 60_00, tomorrowAt(10))
	user := e.createUser(t, 100_00, 0)

	_, err := e.service.RequestBooking(ctx, user.ID, bookings.BookingRequest{SlotID: uuid.New(), GroupSize: 1})
	assert.ErrorIs(t, err, slots.ErrSlotNotFound)

	_, err = e.service.RequestBooking(ctx, uuid.New(), bookings.BookingRequest{SlotID: slot.ID, GroupSize: 1})
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	err = e.service.CancelBooking(ctx, uuid.New(), user.ID)
	assert.ErrorIs(t, err, bookings.ErrBookingNotFound)
}
