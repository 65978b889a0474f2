package wallet

import (
	"context"
	"fmt"

	"courtside/internal/ledger"
	"courtside/internal/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager owns every mutation of a user's credit and points balances. Blocked
// amounts are never incremented or decremented ad hoc: RecomputeBlocked
// derives them from the user's still-pending bookings after every change, so
// concurrent cancellations cannot leave drift behind.
type Manager interface {
	WithTx(tx *gorm.DB) Manager

	HasAvailableCredit(ctx context.Context, userID uuid.UUID, amount int64) (bool, error)
	CheckAvailableCredit(ctx context.Context, userID uuid.UUID, amount int64) error
	CheckAvailablePoints(ctx context.Context, userID uuid.UUID, points int64) error

	RecomputeBlocked(ctx context.Context, userID uuid.UUID) error

	Block(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error
	Unblock(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error
	BlockPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error
	UnblockPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error
	Charge(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error
	RefundCredit(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error
	GrantPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error
	SpendPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error

	// CompensationPoints converts a blocked amount in minor units to the
	// points granted when a confirmed booking loses the race: one point per
	// full currency unit, fractions discarded.
	CompensationPoints(amount int64) int64
	// PointsPrice converts a credit price in minor units to its points cost.
	PointsPrice(amount int64) int64
}

type manager struct {
	db            *gorm.DB
	ledgerRepo    ledger.Repository
	minorPerUnit  int64
	pointsPerUnit int64
}

func NewManager(db *gorm.DB, ledgerRepo ledger.Repository, minorPerUnit, pointsPerUnit int64) Manager {
	if minorPerUnit <= 0 {
		minorPerUnit = 100
	}
	if pointsPerUnit <= 0 {
		pointsPerUnit = 1
	}
	return &manager{
		db:            db,
		ledgerRepo:    ledgerRepo,
		minorPerUnit:  minorPerUnit,
		pointsPerUnit: pointsPerUnit,
	}
}

// WithTx binds the manager to an open transaction. Settlement runs every
// balance mutation on the same transaction that owns the slot row lock.
func (m *manager) WithTx(tx *gorm.DB) Manager {
	return &manager{
		db:            tx,
		ledgerRepo:    m.ledgerRepo.WithTx(tx),
		minorPerUnit:  m.minorPerUnit,
		pointsPerUnit: m.pointsPerUnit,
	}
}

// lockUser reads the user row, locked for the enclosing transaction on
// postgres so per-user balance mutations serialize.
func (m *manager) lockUser(ctx context.Context, userID uuid.UUID) (*users.User, error) {
	var user users.User
	query := m.db.WithContext(ctx)
	if m.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, users.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (m *manager) HasAvailableCredit(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.AvailableCredit() >= amount, nil
}

func (m *manager) CheckAvailableCredit(ctx context.Context, userID uuid.UUID, amount int64) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.AvailableCredit() < amount {
		return &InsufficientFundsError{
			UserID:    userID,
			Required:  amount / m.minorPerUnit,
			Available: user.AvailableCredit() / m.minorPerUnit,
		}
	}
	return nil
}

func (m *manager) CheckAvailablePoints(ctx context.Context, userID uuid.UUID, points int64) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.AvailablePoints() < points {
		return &InsufficientFundsError{
			UserID:    userID,
			Required:  points,
			Available: user.AvailablePoints(),
			Points:    true,
		}
	}
	return nil
}

// RecomputeBlocked sets blocked credit to the sum of amount_blocked over the
// user's PENDING credit bookings, and blocked points to the sum of
// points_used over the user's PENDING points bookings. Full recomputation,
// not a delta.
func (m *manager) RecomputeBlocked(ctx context.Context, userID uuid.UUID) error {
	var blockedCredit int64
	err := m.db.WithContext(ctx).
		Table("bookings").
		Where("user_id = ? AND status = ? AND paid_with_points = ?", userID, "PENDING", false).
		Select("COALESCE(SUM(amount_blocked), 0)").
		Scan(&blockedCredit).Error
	if err != nil {
		return fmt.Errorf("failed to sum pending blocks: %w", err)
	}

	var blockedPoints int64
	err = m.db.WithContext(ctx).
		Table("bookings").
		Where("user_id = ? AND status = ? AND paid_with_points = ?", userID, "PENDING", true).
		Select("COALESCE(SUM(points_used), 0)").
		Scan(&blockedPoints).Error
	if err != nil {
		return fmt.Errorf("failed to sum pending point blocks: %w", err)
	}

	return m.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"blocked_credit": blockedCredit,
			"blocked_points": blockedPoints,
		}).Error
}

// Block records the reservation of funds against a pending booking. Total
// credit does not move; the blocked amount comes out of the recompute.
func (m *manager) Block(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.appendEntry(ctx, userID, ledger.TypeCredit, ledger.ActionBlock, amount, user.Credit, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

// Unblock releases a reservation that was never charged. No money movement.
func (m *manager) Unblock(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.appendEntry(ctx, userID, ledger.TypeCredit, ledger.ActionUnblock, amount, user.Credit, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

// BlockPoints records the reservation of points against a pending
// points-paid booking.
func (m *manager) BlockPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.appendEntry(ctx, userID, ledger.TypePoints, ledger.ActionBlock, points, user.Points, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

// UnblockPoints releases a points reservation that was never spent.
func (m *manager) UnblockPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.appendEntry(ctx, userID, ledger.TypePoints, ledger.ActionUnblock, points, user.Points, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

// Charge converts a blocked amount into a real debit of total credit. The
// caller marks the booking CONFIRMED in the same transaction so the amount
// drops out of the pending sum.
func (m *manager) Charge(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}

	newBalance := user.Credit - amount
	err = m.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Update("credit", newBalance).Error
	if err != nil {
		return fmt.Errorf("failed to charge user %s: %w", userID, err)
	}

	if err := m.appendEntry(ctx, userID, ledger.TypeCredit, ledger.ActionCharge, amount, newBalance, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

// RefundCredit returns an already-charged amount to the user's total credit.
func (m *manager) RefundCredit(ctx context.Context, userID uuid.UUID, amount int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}

	newBalance := user.Credit + amount
	err = m.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Update("credit", newBalance).Error
	if err != nil {
		return fmt.Errorf("failed to refund user %s: %w", userID, err)
	}

	if err := m.appendEntry(ctx, userID, ledger.TypeCredit, ledger.ActionRefund, amount, newBalance, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

func (m *manager) GrantPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}

	newBalance := user.Points + points
	err = m.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Update("points", newBalance).Error
	if err != nil {
		return fmt.Errorf("failed to grant points to user %s: %w", userID, err)
	}

	if err := m.appendEntry(ctx, userID, ledger.TypePoints, ledger.ActionAdd, points, newBalance, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

func (m *manager) SpendPoints(ctx context.Context, userID uuid.UUID, points int64, concept string, bookingID *uuid.UUID) error {
	user, err := m.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.AvailablePoints() < points {
		return &InsufficientFundsError{
			UserID:    userID,
			Required:  points,
			Available: user.AvailablePoints(),
			Points:    true,
		}
	}

	newBalance := user.Points - points
	err = m.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Update("points", newBalance).Error
	if err != nil {
		return fmt.Errorf("failed to spend points for user %s: %w", userID, err)
	}

	if err := m.appendEntry(ctx, userID, ledger.TypePoints, ledger.ActionSubtract, points, newBalance, concept, bookingID); err != nil {
		return err
	}
	return m.RecomputeBlocked(ctx, userID)
}

func (m *manager) CompensationPoints(amount int64) int64 {
	return (amount / m.minorPerUnit) * m.pointsPerUnit
}

func (m *manager) PointsPrice(amount int64) int64 {
	return (amount / m.minorPerUnit) * m.pointsPerUnit
}

func (m *manager) appendEntry(ctx context.Context, userID uuid.UUID, entryType ledger.EntryType, action ledger.Action, amount, balance int64, concept string, bookingID *uuid.UUID) error {
	entry := &ledger.Entry{
		UserID:           userID,
		Type:             entryType,
		Action:           action,
		Amount:           amount,
		Balance:          balance,
		Concept:          concept,
		RelatedBookingID: bookingID,
	}
	if err := m.ledgerRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}
