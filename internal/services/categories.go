package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

const (
	categoryCacheSize = 256
	categoryCacheTTL  = 10 * time.Minute
)

type CategoryStore interface {
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	EnsureCategory(ctx context.Context, userID int64, name string) (core.Category, bool, error)
	DeleteCategory(ctx context.Context, userID, id int64) (int64, error)
}

// CategoryService keeps a per-user cache of category lists.
type CategoryService struct {
	store CategoryStore
	cache *cache.LRUCache[[]core.Category]
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{
		store: store,
		cache: cache.NewLRUCache[[]core.Category](categoryCacheSize, categoryCacheTTL).
			WithCopy(slices.Clone[[]core.Category]),
	}
}

// Cache exposes the list cache for registration with a cache.Manager.
func (s *CategoryService) Cache() cache.Cleaner {
	return s.cache
}

// List returns the user's categories. The slice is the caller's to modify.
func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	cats, err := s.cache.Load(cacheKey(userID), func() ([]core.Category, error) {
		return s.store.ListCategories(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Ensure returns the category named name, creating it when needed.
func (s *CategoryService) Ensure(ctx context.Context, userID int64, name string) (core.Category, bool, error) {
	if err := (core.Category{Name: name}).Validate(); err != nil {
		return core.Category{}, false, err
	}
	cat, created, err := s.store.EnsureCategory(ctx, userID, name)
	if err != nil {
		return core.Category{}, false, fmt.Errorf("ensure category: %w", err)
	}
	if created {
		s.cache.Delete(cacheKey(userID))
	}
	return cat, created, nil
}

// Delete removes a category and returns how many expenses lost it.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) (int64, error) {
	detached, err := s.store.DeleteCategory(ctx, userID, id)
	if err != nil {
		return 0, fmt.Errorf("delete category %d: %w", id, err)
	}
	s.cache.Delete(cacheKey(userID))
	return detached, nil
}

func cacheKey(userID int64) string {
	return "categories:" + strconv.FormatInt(userID, 10)
}
