package clubs_test

import (
	"context"
	"testing"
	"time"

	"courtside/internal/clubs"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// minimal slot row mirror; the resolver reads the slots table directly.
type slotRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClubID      uuid.UUID `gorm:"type:uuid"`
	CourtNumber *int
	Status      string
	StartTime   time.Time
	EndTime     time.Time
}

func (slotRow) TableName() string { return "slots" }

func newAvailabilityFixture(t *testing.T) (*gorm.DB, clubs.Repository, *clubs.AvailabilityResolver, uuid.UUID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&clubs.Club{}, &clubs.Court{}, &clubs.CourtSchedule{}, &slotRow{}))

	club := &clubs.Club{ID: uuid.New(), Name: "Fixture Club"}
	require.NoError(t, db.Create(club).Error)
	for number := 1; number <= 3; number++ {
		require.NoError(t, db.Create(&clubs.Court{
			ID:     uuid.New(),
			ClubID: club.ID,
			Number: number,
			Active: true,
		}).Error)
	}

	repo := clubs.NewRepository(db)
	return db, repo, clubs.NewAvailabilityResolver(repo), club.ID
}

func interval(hour int) (time.Time, time.Time) {
	d := time.Now().AddDate(0, 0, 1)
	start := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.Local)
	return start, start.Add(time.Hour)
}

func TestLowestFreeCourtWins(t *testing.T) {
	db, _, resolver, clubID := newAvailabilityFixture(t)
	ctx := context.Background()
	start, end := interval(10)

	court, found, err := resolver.FindAvailableCourt(ctx, clubID, start, end)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, court)

	// Court 1 taken by a confirmed slot: next lowest is 2.
	one := 1
	require.NoError(t, db.Create(&slotRow{
		ID: uuid.New(), ClubID: clubID, CourtNumber: &one,
		Status: "CONFIRMED", StartTime: start, EndTime: end,
	}).Error)

	court, found, err = resolver.FindAvailableCourt(ctx, clubID, start, end)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, court)
}

func TestCancelledSlotsDoNotHoldCourts(t *testing.T) {
	db, _, resolver, clubID := newAvailabilityFixture(t)
	ctx := context.Background()
	start, end := interval(10)

	one := 1
	require.NoError(t, db.Create(&slotRow{
		ID: uuid.New(), ClubID: clubID, CourtNumber: &one,
		Status: "CANCELLED", StartTime: start, EndTime: end,
	}).Error)

	court, found, err := resolver.FindAvailableCourt(ctx, clubID, start, end)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, court)
}

func TestScheduleMarksBlockCourts(t *testing.T) {
	db, _, resolver, clubID := newAvailabilityFixture(t)
	ctx := context.Background()
	start, end := interval(10)

	for _, number := range []int{1, 2, 3} {
		require.NoError(t, db.Create(&clubs.CourtSchedule{
			ID: uuid.New(), ClubID: clubID, CourtNumber: number, SlotID: uuid.New(),
			StartTime: start, EndTime: end, Occupied: true,
		}).Error)
	}

	_, found, err := resolver.FindAvailableCourt(ctx, clubID, start, end)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOverlapIsStrict(t *testing.T) {
	db, _, resolver, clubID := newAvailabilityFixture(t)
	ctx := context.Background()
	start, end := interval(10)

	// Back-to-back bookings share a boundary instant and do not conflict.
	one := 1
	require.NoError(t, db.Create(&slotRow{
		ID: uuid.New(), ClubID: clubID, CourtNumber: &one,
		Status: "CONFIRMED", StartTime: end, EndTime: end.Add(time.Hour),
	}).Error)

	court, found, err := resolver.FindAvailableCourt(ctx, clubID, start, end)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, court)

	// A half-overlapping booking does conflict.
	half := start.Add(30 * time.Minute)
	require.NoError(t, db.Create(&slotRow{
		ID: uuid.New(), ClubID: clubID, CourtNumber: &one,
		Status: "OPEN", StartTime: half, EndTime: half.Add(time.Hour),
	}).Error)

	court, found, err = resolver.FindAvailableCourt(ctx, clubID, start, end)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, court)
}

func TestInactiveCourtsSkipped(t *testing.T) {
	db, repo, resolver, clubID := newAvailabilityFixture(t)
	ctx := context.Background()
	start, end := interval(10)

	require.NoError(t, db.Model(&clubs.Court{}).
		Where("club_id = ? AND number = ?", clubID, 1).
		Update("active", false).Error)

	court, found, err := resolver.FindAvailableCourt(ctx, clubID, start, end)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, court)

	courts, err := repo.ListActiveCourts(ctx, clubID)
	require.NoError(t, err)
	assert.Len(t, courts, 2)
}
