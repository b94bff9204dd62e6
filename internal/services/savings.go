package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

type SavingStore interface {
	ListSavings(ctx context.Context, userID int64) ([]core.Saving, error)
	CreateSaving(ctx context.Context, userID int64, s core.Saving) (core.Saving, error)
	UpdateSaving(ctx context.Context, userID int64, s core.Saving) (core.Saving, error)
	DeleteSaving(ctx context.Context, userID, id int64) error
}

type SavingService struct {
	store SavingStore
}

func NewSavingService(store SavingStore) *SavingService {
	return &SavingService{store: store}
}

// List returns the goals ordered by priority.
func (s *SavingService) List(ctx context.Context, userID int64) ([]core.Saving, error) {
	savings, err := s.store.ListSavings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	return savings, nil
}

func (s *SavingService) Create(ctx context.Context, userID int64, saving core.Saving) (core.Saving, error) {
	if err := saving.Validate(); err != nil {
		return core.Saving{}, err
	}
	created, err := s.store.CreateSaving(ctx, userID, saving)
	if err != nil {
		return core.Saving{}, fmt.Errorf("create saving: %w", err)
	}
	return created, nil
}

func (s *SavingService) Update(ctx context.Context, userID int64, saving core.Saving) (core.Saving, error) {
	if err := saving.Validate(); err != nil {
		return core.Saving{}, err
	}
	updated, err := s.store.UpdateSaving(ctx, userID, saving)
	if err != nil {
		return core.Saving{}, fmt.Errorf("update saving %d: %w", saving.ID, err)
	}
	return updated, nil
}

func (s *SavingService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteSaving(ctx, userID, id); err != nil {
		return fmt.Errorf("delete saving %d: %w", id, err)
	}
	return nil
}
