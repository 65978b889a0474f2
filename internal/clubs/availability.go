package clubs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilityResolver answers "which court is free at this club for this
// interval". It must be re-run inside the confirming transaction rather than
// cached from an earlier check, since concurrent confirmations change
// occupancy between a booking request and the race completing.
type AvailabilityResolver struct {
	repo Repository
}

func NewAvailabilityResolver(repo Repository) *AvailabilityResolver {
	return &AvailabilityResolver{repo: repo}
}

// WithTx returns a resolver whose occupancy reads run on the given transaction.
func (a *AvailabilityResolver) WithTx(tx *gorm.DB) *AvailabilityResolver {
	return &AvailabilityResolver{repo: a.repo.WithTx(tx)}
}

// FindAvailableCourt returns the lowest-numbered active court at the club that
// is free for [start, end). The second return is false when every court is
// taken; callers must treat that as "leave bookings pending", not as a fault.
func (a *AvailabilityResolver) FindAvailableCourt(ctx context.Context, clubID uuid.UUID, start, end time.Time) (int, bool, error) {
	occupied, err := a.repo.OccupiedCourtNumbers(ctx, clubID, start, end)
	if err != nil {
		return 0, false, err
	}

	courts, err := a.repo.ListActiveCourts(ctx, clubID)
	if err != nil {
		return 0, false, err
	}

	for _, court := range courts {
		if !occupied[court.Number] {
			return court.Number, true, nil
		}
	}
	return 0, false, nil
}
