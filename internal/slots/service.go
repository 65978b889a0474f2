package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service covers the slot mutations the settlement engine needs beyond plain
// repository access: fixing classification and spawning successor slots.
type Service interface {
	WithTx(tx *gorm.DB) Service

	// Classify fixes the slot's category and level from the first booker's
	// profile. No-op when the slot is already classified.
	Classify(ctx context.Context, slot *Slot, category, level string) error

	// SpawnSuccessor creates a fresh "open" slot for the same club,
	// instructor, interval and price, so a second independent group can form
	// at the same time. The successor has no court and open classification.
	SpawnSuccessor(ctx context.Context, parent *Slot) (*Slot, error)

	// Create opens a fresh bookable slot with open classification.
	Create(ctx context.Context, req CreateSlotRequest) (*Slot, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListByClubAndDay(ctx context.Context, clubID uuid.UUID, day time.Time) ([]Slot, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Classify(ctx context.Context, slot *Slot, category, level string) error {
	if slot.IsClassified() {
		return nil
	}
	slot.Category = category
	slot.Level = level
	if err := s.repo.Save(ctx, slot); err != nil {
		return fmt.Errorf("failed to classify slot %s: %w", slot.ID, err)
	}
	return nil
}

func (s *service) SpawnSuccessor(ctx context.Context, parent *Slot) (*Slot, error) {
	successor := &Slot{
		ID:           uuid.New(),
		ClubID:       parent.ClubID,
		Kind:         parent.Kind,
		InstructorID: parent.InstructorID,
		StartTime:    parent.StartTime,
		EndTime:      parent.EndTime,
		TotalPrice:   parent.TotalPrice,
		Category:     CategoryOpen,
		Level:        LevelOpen,
		MaxPlayers:   parent.MaxPlayers,
		Status:       StatusOpen,
		ParentSlotID: &parent.ID,
	}
	if err := s.repo.Create(ctx, successor); err != nil {
		return nil, fmt.Errorf("failed to spawn successor for slot %s: %w", parent.ID, err)
	}
	return successor, nil
}

func (s *service) Create(ctx context.Context, req CreateSlotRequest) (*Slot, error) {
	slot := &Slot{
		ID:           uuid.New(),
		ClubID:       req.ClubID,
		Kind:         req.Kind,
		InstructorID: req.InstructorID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		TotalPrice:   req.TotalPrice,
		Category:     CategoryOpen,
		Level:        LevelOpen,
		MaxPlayers:   req.MaxPlayers,
		Status:       StatusOpen,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}
	return slot, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByClubAndDay(ctx context.Context, clubID uuid.UUID, day time.Time) ([]Slot, error) {
	return s.repo.ListByClubAndDay(ctx, clubID, day)
}
