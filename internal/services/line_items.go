// Package services orchestrates storage, the ledger engine and change events
// for the HTTP handlers and the worker.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

var ErrUnknownCategory = errors.New("unknown category")

// LineItemStore is the persistence LineItemService needs.
type LineItemStore interface {
	ListLineItems(ctx context.Context, userID int64, kind core.Kind) ([]core.LineItem, error)
	GetLineItem(ctx context.Context, userID, id int64) (core.LineItem, error)
	CreateLineItem(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error)
	UpdateLineItem(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error)
	DeleteLineItem(ctx context.Context, userID int64, kind core.Kind, id int64) error
	GetCategory(ctx context.Context, userID, id int64) (core.Category, error)
}

// EventPublisher announces line-item changes.
type EventPublisher interface {
	PublishLineItemEvent(ctx context.Context, evt *amqp.LineItemEvent) error
}

// Overview holds both summaries at one instant.
type Overview struct {
	Revenues core.Summary `json:"revenues"`
	Expenses core.Summary `json:"expenses"`
}

// LineItemService persists line-items, classifies them on the way out and
// publishes a change event after every mutation.
type LineItemService struct {
	store     LineItemStore
	publisher EventPublisher
}

// NewLineItemService wires the service. A nil publisher disables events.
func NewLineItemService(store LineItemStore, publisher EventPublisher) *LineItemService {
	return &LineItemService{store: store, publisher: publisher}
}

// List returns every item of kind classified at now, in storage order.
func (s *LineItemService) List(ctx context.Context, userID int64, kind core.Kind, now time.Time) ([]ledger.Classified, error) {
	items, err := s.store.ListLineItems(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	return ledger.ClassifyAll(items, kind, now)
}

// Filter returns the items of kind matching c at now.
func (s *LineItemService) Filter(ctx context.Context, userID int64, kind core.Kind, c ledger.Criteria, now time.Time) ([]ledger.Classified, error) {
	items, err := s.store.ListLineItems(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	return ledger.Filter(items, kind, c, now)
}

// Get returns one item of kind. Items of the other kind are not found.
func (s *LineItemService) Get(ctx context.Context, userID int64, kind core.Kind, id int64, now time.Time) (ledger.Classified, error) {
	item, err := s.get(ctx, userID, kind, id)
	if err != nil {
		return ledger.Classified{}, err
	}
	status, err := ledger.Classify(item, kind, now)
	if err != nil {
		return ledger.Classified{}, err
	}
	return ledger.Classified{Item: item, Status: status}, nil
}

func (s *LineItemService) get(ctx context.Context, userID int64, kind core.Kind, id int64) (core.LineItem, error) {
	item, err := s.store.GetLineItem(ctx, userID, id)
	if err != nil {
		return core.LineItem{}, err
	}
	if item.Kind != kind {
		return core.LineItem{}, storage.ErrNotFound
	}
	return item, nil
}

// Create validates and stores a new item.
func (s *LineItemService) Create(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error) {
	item, err := s.prepare(ctx, userID, item)
	if err != nil {
		return core.LineItem{}, err
	}
	created, err := s.store.CreateLineItem(ctx, userID, item)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("create %s: %w", item.Kind, err)
	}
	log.LogLineItemChanged(ctx, log.OpCreate, userID, string(created.Kind), created.ID, created.Value.Cents)
	s.publish(ctx, amqp.EventCreated, userID, created.Kind, created.ID)
	return created, nil
}

// Update replaces an existing item of the same kind.
func (s *LineItemService) Update(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error) {
	item, err := s.prepare(ctx, userID, item)
	if err != nil {
		return core.LineItem{}, err
	}
	updated, err := s.store.UpdateLineItem(ctx, userID, item)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("update %s %d: %w", item.Kind, item.ID, err)
	}
	log.LogLineItemChanged(ctx, log.OpUpdate, userID, string(updated.Kind), updated.ID, updated.Value.Cents)
	s.publish(ctx, amqp.EventUpdated, userID, updated.Kind, updated.ID)
	return updated, nil
}

func (s *LineItemService) Delete(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	if err := s.store.DeleteLineItem(ctx, userID, kind, id); err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	log.LogLineItemChanged(ctx, log.OpDelete, userID, string(kind), id, 0)
	s.publish(ctx, amqp.EventDeleted, userID, kind, id)
	return nil
}

// Installments returns the payment schedule of an expense with a plan.
func (s *LineItemService) Installments(ctx context.Context, userID, id int64, now time.Time) ([]ledger.Installment, error) {
	item, err := s.get(ctx, userID, core.Expense, id)
	if err != nil {
		return nil, err
	}
	return ledger.Schedule(item, now)
}

// Summary classifies both kinds concurrently and aggregates them per status.
func (s *LineItemService) Summary(ctx context.Context, userID int64, now time.Time) (Overview, error) {
	var revenues, expenses []ledger.Classified
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		revenues, err = s.List(gctx, userID, core.Revenue, now)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.List(gctx, userID, core.Expense, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return Overview{
		Revenues: ledger.Summarize(core.Revenue, revenues),
		Expenses: ledger.Summarize(core.Expense, expenses),
	}, nil
}

// prepare validates item and resolves its category against the user's own.
// Revenues never carry a category or an installment plan.
func (s *LineItemService) prepare(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error) {
	if item.Kind == core.Revenue {
		item.Category = nil
		item.Installments = nil
	}
	if err := item.Validate(); err != nil {
		return core.LineItem{}, err
	}
	if item.Category != nil {
		cat, err := s.store.GetCategory(ctx, userID, item.Category.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.LineItem{}, fmt.Errorf("%w: %d", ErrUnknownCategory, item.Category.ID)
		}
		if err != nil {
			return core.LineItem{}, fmt.Errorf("resolve category: %w", err)
		}
		item.Category = &cat
	}
	return item, nil
}

// publish never fails the caller: the item is already stored.
func (s *LineItemService) publish(ctx context.Context, typ amqp.EventType, userID int64, kind core.Kind, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLineItemEvent(ctx, amqp.NewLineItemEvent(typ, userID, kind, id)); err != nil {
		slog.WarnContext(ctx, "Failed to publish line-item event",
			"event", typ, "kind", kind, "item_id", id, "error", err)
	}
}
